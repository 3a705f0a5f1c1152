package chem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const benzamideFragment = `@<TRIPOS>MOLECULE
fragment
5 4 1
SMALL
USER_CHARGES
@<TRIPOS>ATOM
      1 C1          0.0000    0.0000    0.0000 C.ar      1 LIG1        0.0000
      2 C2          1.3900    0.0000    0.0000 C.ar      1 LIG1        0.0000
      3 N1          2.0800    1.2000    0.0000 N.am      1 LIG1       -0.3000
      4 O1         -0.6900    1.2000    0.0000 O.2       1 LIG1       -0.5000
      5 H1          2.6000    1.9000    0.0000 H         1 LIG1        0.3000
@<TRIPOS>BOND
     1    1    2 ar
     2    2    3 am
     3    1    4 2
     4    3    5 1
`

func TestParseMOL2_Basic(t *testing.T) {
	mol, err := ParseMOL2(strings.NewReader(benzamideFragment))
	require.NoError(t, err)

	assert.Equal(t, "fragment", mol.Title)
	// Hydrogen and its bond are dropped.
	require.Equal(t, 4, mol.NumAtoms())
	assert.Equal(t, "C", mol.Atoms[0].Element)
	assert.Equal(t, "N", mol.Atoms[2].Element)
	assert.Equal(t, "O", mol.Atoms[3].Element)

	assert.ElementsMatch(t, []int{1, 3}, mol.Atoms[0].Bonds)
	assert.ElementsMatch(t, []int{0, 2}, mol.Atoms[1].Bonds)
	assert.ElementsMatch(t, []int{1}, mol.Atoms[2].Bonds)
}

func TestParseMOL2_FirstMoleculeOnly(t *testing.T) {
	two := benzamideFragment + "\n" + benzamideFragment
	mol, err := ParseMOL2(strings.NewReader(two))
	require.NoError(t, err)
	assert.Equal(t, 4, mol.NumAtoms())
}

func TestParseMOL2_BadAtom(t *testing.T) {
	src := "@<TRIPOS>MOLECULE\nx\n@<TRIPOS>ATOM\n1 C1 bad coords here C.3\n"
	_, err := ParseMOL2(strings.NewReader(src))
	assert.Error(t, err)
}

func TestElementFromSybyl(t *testing.T) {
	assert.Equal(t, "C", elementFromSybyl("C.ar"))
	assert.Equal(t, "CL", elementFromSybyl("Cl"))
	assert.Equal(t, "N", elementFromSybyl("N.4"))
}
