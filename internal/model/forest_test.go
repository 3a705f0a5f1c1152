package model

import (
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sawpanic/plecscore/internal/stats"
)

func TestForest_FitAndPredict(t *testing.T) {
	X, y := linearTestData(80, 3, 13)

	cfg := DefaultForestConfig()
	cfg.NEstimators = 25
	r := NewForestRegressor(cfg)
	require.NoError(t, r.Fit(X, y))
	require.True(t, r.IsFit())
	require.Len(t, r.Trees, 25)

	pred, err := r.Predict(X)
	require.NoError(t, err)
	assert.Greater(t, stats.R2(y, pred), 0.8)
}

func TestForest_OOB(t *testing.T) {
	X, y := linearTestData(60, 3, 19)

	cfg := DefaultForestConfig()
	cfg.NEstimators = 30
	r := NewForestRegressor(cfg)
	require.NoError(t, r.Fit(X, y))

	require.Len(t, r.OOBPrediction, 60)
	// OOB predictions are honest estimates, far from perfect on a small
	// set but clearly better than guessing the mean.
	assert.Greater(t, r.OOBScoreValue, 0.0)
	assert.Less(t, r.OOBScoreValue, 1.0)
}

func TestForest_DeterministicAcrossScheduling(t *testing.T) {
	X, y := linearTestData(40, 3, 23)

	single := DefaultForestConfig()
	single.NEstimators = 12
	single.NJobs = 1
	parallel := single
	parallel.NJobs = 4

	a := NewForestRegressor(single)
	b := NewForestRegressor(parallel)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Equal(t, a.OOBPrediction, b.OOBPrediction)
	assert.Equal(t, a.OOBScoreValue, b.OOBScoreValue)
}

func TestForest_RejectsSparse(t *testing.T) {
	dok := sparse.NewDOK(4, 2)
	dok.Set(0, 0, 1)
	dok.Set(1, 1, 2)
	csr := dok.ToCSR()
	y := []float64{1, 2, 3, 4}

	r := NewForestRegressor(DefaultForestConfig())
	err := r.Fit(csr, y)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sparse")

	require.NoError(t, r.Fit(mat.DenseCopyOf(csr), y))
	_, err = r.Predict(csr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sparse")
}

func TestForest_PredictUnfit(t *testing.T) {
	r := NewForestRegressor(DefaultForestConfig())
	_, err := r.Predict(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, ErrNotFit)
}
