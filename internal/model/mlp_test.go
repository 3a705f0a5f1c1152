package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/sawpanic/plecscore/internal/stats"
)

func TestMLP_FitLinearTarget(t *testing.T) {
	X, y := linearTestData(50, 3, 11)

	cfg := MLPConfig{
		HiddenLayerSizes: []int{8},
		BatchSize:        10,
		Alpha:            1e-6,
		MaxIter:          400,
		Tol:              1e-6,
		Seed:             1,
	}
	r := NewMLPRegressor(cfg)
	require.NoError(t, r.Fit(X, y))
	require.True(t, r.IsFit())

	assert.Equal(t, 3, r.NLayers) // input, one hidden, output
	assert.Equal(t, 1, r.NOutputs)
	assert.Equal(t, "identity", r.OutActivation)

	pred, err := r.Predict(X)
	require.NoError(t, err)
	assert.Greater(t, stats.R2(y, pred), 0.9)
}

func TestMLP_PredictUnfit(t *testing.T) {
	r := NewMLPRegressor(DefaultMLPConfig())
	_, err := r.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrNotFit)
}

func TestMLP_SetParamsForwardPass(t *testing.T) {
	// One input, one hidden unit, one output, weights chosen so the
	// forward pass is easy to follow by hand.
	coefs := [][][]float64{
		{{2}}, // input -> hidden
		{{3}}, // hidden -> output
	}
	intercepts := [][]float64{{0.5}, {-1}}

	r := NewMLPRegressor(DefaultMLPConfig())
	require.NoError(t, r.SetParams(coefs, intercepts, 0.01, 17, 3, 1, "identity"))
	require.True(t, r.IsFit())
	assert.Equal(t, 17, r.NIterations)

	X := mat.NewDense(2, 1, []float64{1, -1})
	pred, err := r.Predict(X)
	require.NoError(t, err)
	// x=1: relu(2*1+0.5)=2.5, 3*2.5-1 = 6.5
	assert.InDelta(t, 6.5, pred[0], 1e-12)
	// x=-1: relu(-1.5)=0, 3*0-1 = -1
	assert.InDelta(t, -1.0, pred[1], 1e-12)
}

func TestMLP_SetParamsMismatch(t *testing.T) {
	r := NewMLPRegressor(DefaultMLPConfig())
	err := r.SetParams([][][]float64{{{1}}}, nil, 0, 0, 0, 0, "identity")
	assert.Error(t, err)
}

func TestMLP_FitIsDeterministic(t *testing.T) {
	X, y := linearTestData(30, 3, 5)
	cfg := MLPConfig{
		HiddenLayerSizes: []int{4},
		BatchSize:        10,
		Alpha:            1e-4,
		MaxIter:          50,
		Tol:              1e-5,
		Seed:             2,
	}
	a := NewMLPRegressor(cfg)
	b := NewMLPRegressor(cfg)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestMLP_DimensionErrors(t *testing.T) {
	r := NewMLPRegressor(DefaultMLPConfig())
	assert.Error(t, r.Fit(mat.NewDense(2, 3, nil), []float64{1}))
}
