package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/plecscore/internal/chem"
)

// testLigand is a symmetric C-N-C chain sitting right next to the protein
// site; the two terminal carbons have identical environments at every
// depth, so shared bits accumulate counts.
func testLigand() *chem.Molecule {
	m := &chem.Molecule{Atoms: []chem.Atom{
		{Element: "C", Coord: [3]float64{0, 0, 0}},
		{Element: "N", Coord: [3]float64{1.4, 0, 0}},
		{Element: "C", Coord: [3]float64{2.8, 0, 0}},
	}}
	m.Atoms[0].Bonds = []int{1}
	m.Atoms[1].Bonds = []int{0, 2}
	m.Atoms[2].Bonds = []int{1}
	return m
}

func testProtein() *chem.Molecule {
	m := &chem.Molecule{Atoms: []chem.Atom{
		{Element: "C", Coord: [3]float64{0, 3, 0}, Residue: "ALA"},
		{Element: "C", Coord: [3]float64{1.5, 3, 0}, Residue: "ALA"},
		{Element: "N", Coord: [3]float64{3.0, 3, 0}, Residue: "ALA"},
		{Element: "O", Coord: [3]float64{0, 4, 0}, Residue: "HOH", IsWater: true},
	}}
	m.Atoms[0].Bonds = []int{1}
	m.Atoms[1].Bonds = []int{0, 2}
	m.Atoms[2].Bonds = []int{1}
	return m
}

func testConfig() Config {
	return Config{
		DepthLigand:  1,
		DepthProtein: 2,
		Size:         4096,
		CountBits:    true,
		Sparse:       true,
		IgnoreHOH:    true,
	}
}

func TestPLEC_Deterministic(t *testing.T) {
	lig, prot := testLigand(), testProtein()
	a, err := PLEC(lig, prot, testConfig())
	require.NoError(t, err)
	b, err := PLEC(lig, prot, testConfig())
	require.NoError(t, err)

	assert.Equal(t, a.Indices, b.Indices)
	assert.Equal(t, a.Counts, b.Counts)
	assert.Positive(t, a.NNZ())
}

func TestPLEC_SparseDenseAgree(t *testing.T) {
	lig, prot := testLigand(), testProtein()
	cfg := testConfig()

	sp, err := PLEC(lig, prot, cfg)
	require.NoError(t, err)

	cfg.Sparse = false
	dn, err := PLEC(lig, prot, cfg)
	require.NoError(t, err)

	for i := 0; i < cfg.Size; i++ {
		assert.Equal(t, sp.At(i), dn.At(i), "bit %d", i)
	}
}

func TestPLEC_IgnoreHOH(t *testing.T) {
	lig := testLigand()
	cfg := testConfig()

	// Move the water within contact range; with IgnoreHOH it must not
	// change the fingerprint.
	prot := testProtein()
	prot.Atoms[3].Coord = [3]float64{0, 3.5, 0}
	withWater, err := PLEC(lig, prot, cfg)
	require.NoError(t, err)

	ref, err := PLEC(lig, testProtein(), cfg)
	require.NoError(t, err)
	assert.Equal(t, ref.Indices, withWater.Indices)

	cfg.IgnoreHOH = false
	counted, err := PLEC(lig, prot, cfg)
	require.NoError(t, err)
	assert.Greater(t, counted.NNZ(), ref.NNZ())
}

func TestPLEC_CountBits(t *testing.T) {
	lig, prot := testLigand(), testProtein()
	cfg := testConfig()
	counted, err := PLEC(lig, prot, cfg)
	require.NoError(t, err)

	cfg.CountBits = false
	binary, err := PLEC(lig, prot, cfg)
	require.NoError(t, err)

	assert.Equal(t, counted.Indices, binary.Indices)
	maxCount := 0.0
	for _, c := range counted.Counts {
		if c > maxCount {
			maxCount = c
		}
	}
	// Several identical environment pairs fold onto the same bit here.
	assert.Greater(t, maxCount, 1.0)
	for _, c := range binary.Counts {
		assert.Equal(t, 1.0, c)
	}
}

func TestPLEC_DepthChangesBits(t *testing.T) {
	lig, prot := testLigand(), testProtein()
	cfg := testConfig()
	shallow, err := PLEC(lig, prot, cfg)
	require.NoError(t, err)

	cfg.DepthProtein = 0
	flat, err := PLEC(lig, prot, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, shallow.Indices, flat.Indices)
}

func TestPLEC_NoContacts(t *testing.T) {
	lig := testLigand()
	far := &chem.Molecule{Atoms: []chem.Atom{
		{Element: "C", Coord: [3]float64{100, 100, 100}},
	}}
	fp, err := PLEC(lig, far, testConfig())
	require.NoError(t, err)
	assert.Zero(t, fp.NNZ())
}

func TestConfig_Validate(t *testing.T) {
	cfg := testConfig()
	cfg.Size = 0
	assert.Error(t, cfg.Validate())

	cfg = testConfig()
	cfg.DepthLigand = -1
	assert.Error(t, cfg.Validate())
}
