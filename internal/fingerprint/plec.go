// Package fingerprint computes the PLEC (Protein-Ligand Extended
// Connectivity) interaction fingerprint: every ligand-protein heavy-atom
// contact contributes hashed pairs of the two atoms' bond-topology
// environments at increasing depths, folded onto a fixed-length vector.
package fingerprint

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/sawpanic/plecscore/internal/chem"
)

// ContactCutoff is the heavy-atom distance below which a ligand-protein
// atom pair counts as an interaction contact, in angstroms.
const ContactCutoff = 4.5

// Config fixes the fingerprint hyperparameters. The zero value is not
// usable; take Defaults and override.
type Config struct {
	DepthLigand  int  // bond-graph environment depth on the ligand side
	DepthProtein int  // bond-graph environment depth on the protein side
	Size         int  // folded vector length
	CountBits    bool // accumulate contact counts instead of 0/1 presence
	Sparse       bool // emit index/count pairs instead of a dense vector
	IgnoreHOH    bool // skip water residues on the protein side
}

// Defaults mirrors the published PLEC parameterization.
func Defaults() Config {
	return Config{
		DepthLigand:  1,
		DepthProtein: 5,
		Size:         65536,
		CountBits:    true,
		Sparse:       true,
		IgnoreHOH:    true,
	}
}

// Validate rejects configurations the algorithm cannot honor.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("fingerprint size must be positive, got %d", c.Size)
	}
	if c.DepthLigand < 0 || c.DepthProtein < 0 {
		return fmt.Errorf("environment depths must be non-negative, got ligand %d protein %d",
			c.DepthLigand, c.DepthProtein)
	}
	return nil
}

// Fingerprint is a folded interaction fingerprint. When sparse, Indices
// holds the sorted occupied positions and Counts the matching values;
// Dense is nil. When dense it is the other way around.
type Fingerprint struct {
	Size    int
	Indices []int
	Counts  []float64
	Dense   []float64
}

// NNZ returns the number of occupied positions.
func (fp *Fingerprint) NNZ() int {
	if fp.Dense != nil {
		n := 0
		for _, v := range fp.Dense {
			if v != 0 {
				n++
			}
		}
		return n
	}
	return len(fp.Indices)
}

// At returns the value at position i regardless of representation.
func (fp *Fingerprint) At(i int) float64 {
	if fp.Dense != nil {
		return fp.Dense[i]
	}
	j := sort.SearchInts(fp.Indices, i)
	if j < len(fp.Indices) && fp.Indices[j] == i {
		return fp.Counts[j]
	}
	return 0
}

// PLEC computes the fingerprint for one ligand-protein pair.
//
// For every contact within ContactCutoff, the ligand atom's environments at
// depths 0..DepthLigand are paired with the protein atom's environments at
// depths 0..DepthProtein. The depth series are walked in lockstep; the
// shorter side keeps contributing its deepest environment until the longer
// side is exhausted, so each contact always yields
// max(DepthLigand, DepthProtein)+1 hashed pairs.
func PLEC(ligand, protein *chem.Molecule, cfg Config) (*Fingerprint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ligEnvs := environmentTable(ligand, cfg.DepthLigand)
	protEnvs := environmentTable(protein, cfg.DepthProtein)

	counts := make(map[int]float64)
	search := chem.NewNeighborSearch(protein, ContactCutoff)
	depths := max(cfg.DepthLigand, cfg.DepthProtein) + 1

	var buf [16]byte
	for li := range ligand.Atoms {
		search.Within(ligand.Atoms[li].Coord, ContactCutoff, func(pi int, _ float64) {
			if cfg.IgnoreHOH && protein.Atoms[pi].IsWater {
				return
			}
			for d := 0; d < depths; d++ {
				le := ligEnvs[li][min(d, cfg.DepthLigand)]
				pe := protEnvs[pi][min(d, cfg.DepthProtein)]
				binary.LittleEndian.PutUint64(buf[0:8], le)
				binary.LittleEndian.PutUint64(buf[8:16], pe)
				bit := int(xxhash.Sum64(buf[:]) % uint64(cfg.Size))
				if cfg.CountBits {
					counts[bit]++
				} else {
					counts[bit] = 1
				}
			}
		})
	}

	fp := &Fingerprint{Size: cfg.Size}
	if cfg.Sparse {
		fp.Indices = make([]int, 0, len(counts))
		for bit := range counts {
			fp.Indices = append(fp.Indices, bit)
		}
		sort.Ints(fp.Indices)
		fp.Counts = make([]float64, len(fp.Indices))
		for i, bit := range fp.Indices {
			fp.Counts[i] = counts[bit]
		}
	} else {
		fp.Dense = make([]float64, cfg.Size)
		for bit, v := range counts {
			fp.Dense[bit] = v
		}
	}
	return fp, nil
}

// environmentTable precomputes, for every atom, the environment hash at
// each depth 0..maxDepth.
func environmentTable(m *chem.Molecule, maxDepth int) [][]uint64 {
	table := make([][]uint64, len(m.Atoms))
	for i := range m.Atoms {
		table[i] = atomEnvironments(m, i, maxDepth)
	}
	return table
}

type envMember struct {
	depth  int
	elem   string
	degree int
}

// atomEnvironments hashes the bond-graph neighborhood of atom root at every
// depth up to maxDepth. The depth-d hash digests the multiset of
// (bond distance, element, heavy degree) triples of all atoms reachable
// within d bonds, which is invariant under atom reordering.
func atomEnvironments(m *chem.Molecule, root, maxDepth int) []uint64 {
	dist := map[int]int{root: 0}
	frontier := []int{root}

	members := []envMember{{0, m.Atoms[root].Element, m.HeavyDegree(root)}}

	envs := make([]uint64, maxDepth+1)
	envs[0] = hashMembers(members)

	for d := 1; d <= maxDepth; d++ {
		var next []int
		for _, i := range frontier {
			for _, j := range m.Atoms[i].Bonds {
				if _, seen := dist[j]; seen {
					continue
				}
				dist[j] = d
				next = append(next, j)
				members = append(members, envMember{d, m.Atoms[j].Element, m.HeavyDegree(j)})
			}
		}
		frontier = next
		// Keep the multiset canonical: order by depth, element, degree.
		sort.Slice(members, func(a, b int) bool {
			if members[a].depth != members[b].depth {
				return members[a].depth < members[b].depth
			}
			if members[a].elem != members[b].elem {
				return members[a].elem < members[b].elem
			}
			return members[a].degree < members[b].degree
		})
		envs[d] = hashMembers(members)
	}
	return envs
}

func hashMembers(members []envMember) uint64 {
	h := xxhash.New()
	var b [4]byte
	for _, mb := range members {
		binary.LittleEndian.PutUint16(b[0:2], uint16(mb.depth))
		binary.LittleEndian.PutUint16(b[2:4], uint16(mb.degree))
		_, _ = h.Write(b[:])
		_, _ = h.WriteString(mb.elem)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
