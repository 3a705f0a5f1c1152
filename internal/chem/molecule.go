package chem

import (
	"math"
	"strings"
)

// Atom is a single heavy atom within a molecule. Hydrogens are dropped at
// parse time; interaction fingerprints only look at heavy-atom contacts.
type Atom struct {
	Element string     // upper-case element symbol, e.g. "C", "N", "FE"
	Coord   [3]float64 // cartesian coordinates in angstroms
	Residue string     // residue name for PDB records, substructure name for MOL2
	ResSeq  int
	Chain   string
	IsWater bool
	Bonds   []int // indices of covalently bonded atoms
}

// Molecule holds a parsed structure, either a protein receptor or a ligand.
type Molecule struct {
	Title string
	Atoms []Atom
}

// NumAtoms returns the heavy-atom count.
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// HeavyDegree returns the number of heavy-atom neighbors of atom i.
func (m *Molecule) HeavyDegree(i int) int { return len(m.Atoms[i].Bonds) }

// Dist returns the euclidean distance between atoms i and j.
func (m *Molecule) Dist(i, j int) float64 {
	return dist(m.Atoms[i].Coord, m.Atoms[j].Coord)
}

func dist(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// waterResidues covers the residue names PDB depositions use for solvent.
var waterResidues = map[string]bool{
	"HOH": true,
	"WAT": true,
	"H2O": true,
	"DOD": true,
	"SOL": true,
}

// IsWaterResidue reports whether a residue name denotes a water molecule.
func IsWaterResidue(name string) bool {
	return waterResidues[strings.ToUpper(strings.TrimSpace(name))]
}

// covalentRadii in angstroms, used for distance-based bond perception.
// Values follow Cordero et al. 2008; elements missing from the table fall
// back to a generic 0.77.
var covalentRadii = map[string]float64{
	"H": 0.31, "C": 0.76, "N": 0.71, "O": 0.66, "F": 0.57,
	"P": 1.07, "S": 1.05, "CL": 1.02, "BR": 1.20, "I": 1.39,
	"B": 0.84, "SI": 1.11, "SE": 1.20,
	"NA": 1.66, "MG": 1.41, "K": 2.03, "CA": 1.76,
	"MN": 1.39, "FE": 1.32, "CO": 1.26, "NI": 1.24, "CU": 1.32, "ZN": 1.22,
}

func covalentRadius(element string) float64 {
	if r, ok := covalentRadii[element]; ok {
		return r
	}
	return 0.77
}

// bondTolerance is the slack multiplier applied to the sum of covalent
// radii when perceiving bonds from geometry.
const bondTolerance = 1.25

// maxBondLimit is the largest tolerance-scaled radius sum the table can
// produce (potassium pairs). The perception grid cell must be at least
// this wide, otherwise candidate pairs can straddle non-adjacent cells
// and bond perception would depend on absolute coordinates.
var maxBondLimit = func() float64 {
	maxR := 0.77
	for _, r := range covalentRadii {
		if r > maxR {
			maxR = r
		}
	}
	return 2 * bondTolerance * maxR
}()

// InferBonds perceives covalent bonds from interatomic distances. Two heavy
// atoms are bonded when their separation is below the tolerance-scaled sum
// of covalent radii. Water oxygens keep no bonds. Existing bond lists are
// replaced.
func (m *Molecule) InferBonds() {
	for i := range m.Atoms {
		m.Atoms[i].Bonds = m.Atoms[i].Bonds[:0]
	}

	// The cell covers the largest limit the radius table can produce, so
	// every candidate pair lives in adjacent cells wherever it sits.
	grid := newCellGrid(m, maxBondLimit)
	for i := range m.Atoms {
		if m.Atoms[i].IsWater {
			continue
		}
		grid.neighbors(m.Atoms[i].Coord, func(j int) {
			if j <= i || m.Atoms[j].IsWater {
				return
			}
			limit := bondTolerance * (covalentRadius(m.Atoms[i].Element) + covalentRadius(m.Atoms[j].Element))
			if m.Dist(i, j) <= limit {
				m.Atoms[i].Bonds = append(m.Atoms[i].Bonds, j)
				m.Atoms[j].Bonds = append(m.Atoms[j].Bonds, i)
			}
		})
	}
}
