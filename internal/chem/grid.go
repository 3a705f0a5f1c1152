package chem

import "math"

// cellGrid buckets atoms into cubic cells so that neighbor queries only
// visit the 27 cells around a point instead of every atom.
type cellGrid struct {
	cell  float64
	cells map[[3]int][]int
}

func newCellGrid(m *Molecule, cell float64) *cellGrid {
	g := &cellGrid{cell: cell, cells: make(map[[3]int][]int)}
	for i := range m.Atoms {
		key := g.key(m.Atoms[i].Coord)
		g.cells[key] = append(g.cells[key], i)
	}
	return g
}

func (g *cellGrid) key(c [3]float64) [3]int {
	return [3]int{
		int(math.Floor(c[0] / g.cell)),
		int(math.Floor(c[1] / g.cell)),
		int(math.Floor(c[2] / g.cell)),
	}
}

// neighbors invokes fn with the index of every atom stored in the cell
// containing c or one of its 26 surrounding cells. Callers still have to
// check the actual distance.
func (g *cellGrid) neighbors(c [3]float64, fn func(i int)) {
	k := g.key(c)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				for _, i := range g.cells[[3]int{k[0] + dx, k[1] + dy, k[2] + dz}] {
					fn(i)
				}
			}
		}
	}
}

// NeighborSearch answers fixed-radius queries against a molecule, reusing
// the same cell decomposition as bond perception. The radius must not
// exceed the cell size passed at construction.
type NeighborSearch struct {
	mol  *Molecule
	grid *cellGrid
}

// NewNeighborSearch indexes mol for queries up to maxRadius angstroms.
func NewNeighborSearch(mol *Molecule, maxRadius float64) *NeighborSearch {
	return &NeighborSearch{mol: mol, grid: newCellGrid(mol, maxRadius)}
}

// Within invokes fn for every atom of the indexed molecule that lies within
// radius of coord. radius must be <= the maxRadius used at construction.
func (ns *NeighborSearch) Within(coord [3]float64, radius float64, fn func(i int, d float64)) {
	ns.grid.neighbors(coord, func(i int) {
		if d := dist(coord, ns.mol.Atoms[i].Coord); d <= radius {
			fn(i, d)
		}
	})
}
