package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerfectFit(t *testing.T) {
	obs := []float64{1, 2, 3, 4, 5}
	rep, err := Evaluate(obs, obs)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rep.R2, 1e-12)
	assert.InDelta(t, 1.0, rep.Rp, 1e-12)
	assert.InDelta(t, 0.0, rep.RMSE, 1e-12)
}

func TestRMSE_HandComputed(t *testing.T) {
	obs := []float64{0, 0, 0, 0}
	pred := []float64{1, -1, 1, -1}
	assert.InDelta(t, 1.0, RMSE(obs, pred), 1e-12)

	pred = []float64{2, 2, 2, 2}
	assert.InDelta(t, 2.0, RMSE(obs, pred), 1e-12)
}

func TestR2_MeanPredictor(t *testing.T) {
	obs := []float64{1, 2, 3, 4}
	pred := []float64{2.5, 2.5, 2.5, 2.5}
	// Predicting the mean explains no variance.
	assert.InDelta(t, 0.0, R2(obs, pred), 1e-12)
}

func TestPearson_SignAndScale(t *testing.T) {
	obs := []float64{1, 2, 3, 4}
	up := []float64{10, 20, 30, 40}
	down := []float64{4, 3, 2, 1}
	assert.InDelta(t, 1.0, PearsonR(obs, up), 1e-12)
	assert.InDelta(t, -1.0, PearsonR(obs, down), 1e-12)
}

func TestEvaluate_Errors(t *testing.T) {
	_, err := Evaluate(nil, nil)
	assert.Error(t, err)
	_, err = Evaluate([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
}
