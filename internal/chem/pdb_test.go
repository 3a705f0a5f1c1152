package chem

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdbLine(serial int, name, res, chain string, seq int, x, y, z float64, elem string) string {
	return fmt.Sprintf("ATOM  %5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		serial, name, res, chain, seq, x, y, z, 1.0, 0.0, elem)
}

func hetatmLine(serial int, name, res string, seq int, x, y, z float64, elem string) string {
	return fmt.Sprintf("HETATM%5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		serial, name, res, "A", seq, x, y, z, 1.0, 0.0, elem)
}

func TestParsePDB_Basic(t *testing.T) {
	src := strings.Join([]string{
		"HEADER    HYDROLASE                               01-JAN-10   1ABC",
		pdbLine(1, "N", "ALA", "A", 1, 0.0, 0.0, 0.0, "N"),
		pdbLine(2, "CA", "ALA", "A", 1, 1.45, 0.0, 0.0, "C"),
		pdbLine(3, "C", "ALA", "A", 1, 2.0, 1.4, 0.0, "C"),
		pdbLine(4, "H", "ALA", "A", 1, 0.5, 0.9, 0.0, "H"),
		hetatmLine(5, "O", "HOH", 101, 9.0, 9.0, 9.0, "O"),
		"END",
	}, "\n")

	mol, err := ParsePDB(strings.NewReader(src))
	require.NoError(t, err)

	// Hydrogen dropped, water kept but flagged.
	require.Equal(t, 4, mol.NumAtoms())
	assert.Equal(t, "N", mol.Atoms[0].Element)
	assert.Equal(t, "ALA", mol.Atoms[0].Residue)
	assert.Equal(t, "A", mol.Atoms[0].Chain)
	assert.Equal(t, 1, mol.Atoms[0].ResSeq)
	assert.False(t, mol.Atoms[0].IsWater)
	assert.True(t, mol.Atoms[3].IsWater)

	// N-CA and CA-C are within bonding distance, the water is not.
	assert.Contains(t, mol.Atoms[0].Bonds, 1)
	assert.Contains(t, mol.Atoms[1].Bonds, 2)
	assert.Empty(t, mol.Atoms[3].Bonds)
}

func TestParsePDB_ElementFallback(t *testing.T) {
	// No element columns: the element comes from the atom name.
	line := pdbLine(1, "CA", "ALA", "A", 1, 0, 0, 0, "C")[:54]
	mol, err := ParsePDB(strings.NewReader(line))
	require.NoError(t, err)
	require.Equal(t, 1, mol.NumAtoms())
	assert.Equal(t, "C", mol.Atoms[0].Element)
}

func TestParsePDB_AltLoc(t *testing.T) {
	lineA := pdbLine(1, "CA", "ALA", "A", 1, 0, 0, 0, "C")
	// Mark a B alternate location at column 17.
	lineB := lineA[:16] + "B" + lineA[17:]
	mol, err := ParsePDB(strings.NewReader(lineA + "\n" + lineB))
	require.NoError(t, err)
	assert.Equal(t, 1, mol.NumAtoms())
}

func TestParsePDB_Empty(t *testing.T) {
	_, err := ParsePDB(strings.NewReader("HEADER    NOTHING\nEND\n"))
	assert.Error(t, err)
}

func TestParsePDB_FirstModelOnly(t *testing.T) {
	src := strings.Join([]string{
		"MODEL        1",
		pdbLine(1, "CA", "ALA", "A", 1, 0, 0, 0, "C"),
		"ENDMDL",
		"MODEL        2",
		pdbLine(1, "CA", "ALA", "A", 1, 5, 5, 5, "C"),
		"ENDMDL",
	}, "\n")
	mol, err := ParsePDB(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 1, mol.NumAtoms())
}

func TestIsWaterResidue(t *testing.T) {
	assert.True(t, IsWaterResidue("HOH"))
	assert.True(t, IsWaterResidue("wat"))
	assert.False(t, IsWaterResidue("ALA"))
}
