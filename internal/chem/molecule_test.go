package chem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferBonds_MetalOxygenLongBond(t *testing.T) {
	// Ca-O coordination reaches 1.25*(1.76+0.66) = 3.025 angstroms, well
	// past typical organic bond lengths. The pair sits so the atoms fall
	// into non-adjacent 3 angstrom cells; perception must still find it.
	mol := &Molecule{Atoms: []Atom{
		{Element: "CA", Coord: [3]float64{2.99, 0, 0}},
		{Element: "O", Coord: [3]float64{6.00, 0, 0}},
	}}
	mol.InferBonds()
	require.Equal(t, []int{1}, mol.Atoms[0].Bonds)
	require.Equal(t, []int{0}, mol.Atoms[1].Bonds)
}

func TestInferBonds_TranslationInvariant(t *testing.T) {
	pair := func(offset float64) *Molecule {
		m := &Molecule{Atoms: []Atom{
			{Element: "CA", Coord: [3]float64{offset, 0, 0}},
			{Element: "O", Coord: [3]float64{offset + 3.01, 0, 0}},
		}}
		m.InferBonds()
		return m
	}

	want := pair(0)
	for _, offset := range []float64{0.5, 1.5, 2.99, 7.3, -4.2} {
		got := pair(offset)
		assert.Equal(t, want.Atoms[0].Bonds, got.Atoms[0].Bonds, "offset %v", offset)
		assert.Equal(t, want.Atoms[1].Bonds, got.Atoms[1].Bonds, "offset %v", offset)
	}
}

func TestInferBonds_BeyondLimit(t *testing.T) {
	mol := &Molecule{Atoms: []Atom{
		{Element: "CA", Coord: [3]float64{0, 0, 0}},
		{Element: "O", Coord: [3]float64{3.10, 0, 0}},
	}}
	mol.InferBonds()
	assert.Empty(t, mol.Atoms[0].Bonds)
	assert.Empty(t, mol.Atoms[1].Bonds)
}
