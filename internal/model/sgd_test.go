package model

import (
	"math/rand"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sawpanic/plecscore/internal/stats"
)

// linearTestData draws n samples with p features in [0, 1] and targets
// from a fixed noiseless linear model through the origin.
func linearTestData(n, p int, seed int64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewSource(seed))
	truth := []float64{2.0, -1.0, 0.5}
	X := mat.NewDense(n, p, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			v := rng.Float64()
			X.Set(i, j, v)
			y[i] += truth[j%len(truth)] * v
		}
	}
	return X, y
}

func TestSGD_FitRecoversLinearTarget(t *testing.T) {
	X, y := linearTestData(60, 3, 42)

	cfg := DefaultSGDConfig()
	cfg.Epsilon = 10 // wide huber band keeps the gradient unclipped
	cfg.NIter = 300
	cfg.Alpha = 1e-6
	r := NewSGDRegressor(cfg)

	require.NoError(t, r.Fit(X, y))
	require.True(t, r.IsFit())

	pred, err := r.Predict(X)
	require.NoError(t, err)
	assert.Greater(t, stats.R2(y, pred), 0.9)
}

func TestSGD_SparseAndDenseFitsAgree(t *testing.T) {
	X, y := linearTestData(30, 3, 7)
	n, p := X.Dims()
	dok := sparse.NewDOK(n, p)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			dok.Set(i, j, X.At(i, j))
		}
	}
	csr := dok.ToCSR()

	cfg := DefaultSGDConfig()
	cfg.NIter = 20
	dr := NewSGDRegressor(cfg)
	sr := NewSGDRegressor(cfg)
	require.NoError(t, dr.Fit(X, y))
	require.NoError(t, sr.Fit(csr, y))

	assert.InDeltaSlice(t, dr.Coef, sr.Coef, 1e-9)
}

func TestSGD_PredictUnfit(t *testing.T) {
	r := NewSGDRegressor(DefaultSGDConfig())
	_, err := r.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrNotFit)
}

func TestSGD_SetParams(t *testing.T) {
	r := NewSGDRegressor(DefaultSGDConfig())
	r.SetParams([]float64{1, 0, -2}, 0.5)
	require.True(t, r.IsFit())

	X := mat.NewDense(2, 3, []float64{
		1, 1, 1,
		2, 0, 1,
	})
	pred, err := r.Predict(X)
	require.NoError(t, err)
	assert.InDelta(t, 1+0-2+0.5, pred[0], 1e-12)
	assert.InDelta(t, 2+0-2+0.5, pred[1], 1e-12)
}

func TestSGD_DimensionErrors(t *testing.T) {
	r := NewSGDRegressor(DefaultSGDConfig())
	assert.Error(t, r.Fit(mat.NewDense(2, 3, nil), []float64{1}))

	r.SetParams([]float64{1, 2}, 0)
	_, err := r.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestSGD_FitIsDeterministic(t *testing.T) {
	X, y := linearTestData(25, 3, 3)
	cfg := DefaultSGDConfig()
	cfg.NIter = 15
	a := NewSGDRegressor(cfg)
	b := NewSGDRegressor(cfg)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Coef, b.Coef)
	assert.Equal(t, a.Intercept, b.Intercept)
}
