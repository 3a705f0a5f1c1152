package model

import (
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/sawpanic/plecscore/internal/stats"
)

// ForestConfig fixes the hyperparameters of the tree ensemble. The
// defaults follow the published rf-variant parameterization: 100 trees,
// out-of-bag scoring, all available parallelism, deterministic seed.
type ForestConfig struct {
	NEstimators     int
	NJobs           int // <=0 means all available cores
	OOBScore        bool
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// DefaultForestConfig returns the fixed rf-variant hyperparameters.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NEstimators:     100,
		NJobs:           -1,
		OOBScore:        true,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            0,
	}
}

// ForestRegressor is a bootstrap ensemble of regression trees. Each tree
// draws its bootstrap sample from an rng seeded by the base seed and the
// tree index, so fits are reproducible regardless of how the trees are
// scheduled across goroutines.
//
// Dense input only: sparse matrices are rejected so the caller densifies
// deliberately instead of paying a hidden conversion.
type ForestRegressor struct {
	Config ForestConfig

	Trees         []*Tree
	OOBPrediction []float64
	OOBScoreValue float64
	NFeatures     int
	Fitted        bool
}

// NewForestRegressor builds an unfit ensemble.
func NewForestRegressor(cfg ForestConfig) *ForestRegressor {
	if cfg.NEstimators <= 0 {
		cfg.NEstimators = 100
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	if cfg.MinSamplesLeaf < 1 {
		cfg.MinSamplesLeaf = 1
	}
	return &ForestRegressor{Config: cfg}
}

// treeSeed derives a per-tree seed that keeps bootstrap draws independent
// of goroutine scheduling.
func (r *ForestRegressor) treeSeed(t int) int64 {
	return r.Config.Seed + int64(t)*0x9E3779B9
}

// Fit grows the ensemble. The training matrix must be dense.
func (r *ForestRegressor) Fit(X mat.Matrix, y []float64) error {
	if isSparse(X) {
		return fmt.Errorf("rf: sparse input is not supported, densify before fitting")
	}
	n, p := X.Dims()
	if n != len(y) {
		return fmt.Errorf("rf: %d samples but %d targets", n, len(y))
	}
	if n == 0 {
		return fmt.Errorf("rf: empty training set")
	}

	dense, ok := X.(*mat.Dense)
	if !ok {
		dense = mat.DenseCopyOf(X)
	}

	nTrees := r.Config.NEstimators
	r.Trees = make([]*Tree, nTrees)
	inBag := make([][]bool, nTrees)

	jobs := r.Config.NJobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(jobs)
	for t := 0; t < nTrees; t++ {
		t := t
		g.Go(func() error {
			rng := rand.New(rand.NewSource(r.treeSeed(t)))
			samples := make([]int, n)
			bag := make([]bool, n)
			for i := range samples {
				s := rng.Intn(n)
				samples[i] = s
				bag[s] = true
			}
			tree := &Tree{
				MinSamplesSplit: r.Config.MinSamplesSplit,
				MinSamplesLeaf:  r.Config.MinSamplesLeaf,
			}
			tree.fit(dense, y, samples)
			r.Trees[t] = tree
			inBag[t] = bag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.NFeatures = p
	r.Fitted = true

	if r.Config.OOBScore {
		r.computeOOB(dense, y, inBag)
	}
	return nil
}

// computeOOB averages, for every training sample, the predictions of the
// trees whose bootstrap missed it. A sample covered by every bootstrap
// falls back to the full-ensemble prediction.
func (r *ForestRegressor) computeOOB(X *mat.Dense, y []float64, inBag [][]bool) {
	n, _ := X.Dims()
	sums := make([]float64, n)
	counts := make([]int, n)
	for t, tree := range r.Trees {
		for i := 0; i < n; i++ {
			if inBag[t][i] {
				continue
			}
			sums[i] += tree.predict(func(j int) float64 { return X.At(i, j) })
			counts[i]++
		}
	}

	r.OOBPrediction = make([]float64, n)
	for i := 0; i < n; i++ {
		if counts[i] > 0 {
			r.OOBPrediction[i] = sums[i] / float64(counts[i])
		} else {
			r.OOBPrediction[i] = r.predictRow(X, i)
		}
	}
	r.OOBScoreValue = stats.R2(y, r.OOBPrediction)
}

func (r *ForestRegressor) predictRow(X mat.Matrix, i int) float64 {
	var s float64
	for _, tree := range r.Trees {
		s += tree.predict(func(j int) float64 { return X.At(i, j) })
	}
	return s / float64(len(r.Trees))
}

// Predict averages the trees. Dense input only, matching Fit.
func (r *ForestRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if !r.IsFit() {
		return nil, ErrNotFit
	}
	if isSparse(X) {
		return nil, fmt.Errorf("rf: sparse input is not supported, densify before predicting")
	}
	n, p := X.Dims()
	if p != r.NFeatures {
		return nil, fmt.Errorf("rf: input has %d features, model has %d", p, r.NFeatures)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.predictRow(X, i)
	}
	return out, nil
}

// IsFit reports whether trees are available.
func (r *ForestRegressor) IsFit() bool {
	return r.Fitted && len(r.Trees) > 0
}
