// Package descriptor turns structure pairs into model input: a fingerprint
// function bound to fixed hyperparameters and, optionally, to a default
// receptor, producing fixed-width sparse vectors and matrices.
package descriptor

import (
	"fmt"

	"github.com/james-bowman/sparse"

	"github.com/sawpanic/plecscore/internal/chem"
	"github.com/sawpanic/plecscore/internal/fingerprint"
)

// Generator is a stateless feature extractor: the fingerprint
// configuration is fixed at construction and every Build call is a pure
// function of its structure arguments.
type Generator struct {
	cfg     fingerprint.Config
	protein *chem.Molecule // default receptor, may be nil
}

// New builds a generator for the given fingerprint parameters.
func New(cfg fingerprint.Config, protein *chem.Molecule) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	return &Generator{cfg: cfg, protein: protein}, nil
}

// Shape returns the descriptor vector width.
func (g *Generator) Shape() int { return g.cfg.Size }

// Config returns the bound fingerprint parameters.
func (g *Generator) Config() fingerprint.Config { return g.cfg }

// SetProtein rebinds the default receptor.
func (g *Generator) SetProtein(protein *chem.Molecule) { g.protein = protein }

// Build computes the descriptor of a ligand against the bound receptor.
func (g *Generator) Build(ligand *chem.Molecule) (*fingerprint.Fingerprint, error) {
	if g.protein == nil {
		return nil, fmt.Errorf("descriptor: no receptor bound, use BuildPair")
	}
	return g.BuildPair(ligand, g.protein)
}

// BuildPair computes the descriptor of an explicit structure pair.
func (g *Generator) BuildPair(ligand, protein *chem.Molecule) (*fingerprint.Fingerprint, error) {
	fp, err := fingerprint.PLEC(ligand, protein, g.cfg)
	if err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	return fp, nil
}

// Matrix assembles fingerprints into a CSR matrix, one row per
// fingerprint, in the given order.
func Matrix(fps []*fingerprint.Fingerprint, shape int) (*sparse.CSR, error) {
	dok := sparse.NewDOK(len(fps), shape)
	for i, fp := range fps {
		if fp.Size != shape {
			return nil, fmt.Errorf("descriptor: row %d has width %d, want %d", i, fp.Size, shape)
		}
		if fp.Dense != nil {
			for j, v := range fp.Dense {
				if v != 0 {
					dok.Set(i, j, v)
				}
			}
			continue
		}
		for k, j := range fp.Indices {
			dok.Set(i, j, fp.Counts[k])
		}
	}
	return dok.ToCSR(), nil
}

// Row wraps a single fingerprint as a 1xN CSR matrix for Predict calls.
func Row(fp *fingerprint.Fingerprint) *sparse.CSR {
	dok := sparse.NewDOK(1, fp.Size)
	if fp.Dense != nil {
		for j, v := range fp.Dense {
			if v != 0 {
				dok.Set(0, j, v)
			}
		}
	} else {
		for k, j := range fp.Indices {
			dok.Set(0, j, fp.Counts[k])
		}
	}
	return dok.ToCSR()
}
