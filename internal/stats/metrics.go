// Package stats wraps the evaluation metrics used in training reports.
package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// R2 returns the coefficient of determination of predicted against
// observed values.
func R2(observed, predicted []float64) float64 {
	return stat.RSquaredFrom(predicted, observed, nil)
}

// PearsonR returns the Pearson correlation coefficient.
func PearsonR(observed, predicted []float64) float64 {
	return stat.Correlation(observed, predicted, nil)
}

// RMSE returns the root-mean-squared error.
func RMSE(observed, predicted []float64) float64 {
	if len(observed) == 0 {
		return math.NaN()
	}
	var sum float64
	for i := range observed {
		d := observed[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(observed)))
}

// Report bundles the three metrics reported for every evaluation set.
type Report struct {
	R2   float64
	Rp   float64
	RMSE float64
}

// Evaluate computes the standard report for one set. It returns an error
// when the slices disagree in length or are empty, which would otherwise
// surface as NaNs deep inside the metric math.
func Evaluate(observed, predicted []float64) (Report, error) {
	if len(observed) == 0 {
		return Report{}, fmt.Errorf("empty evaluation set")
	}
	if len(observed) != len(predicted) {
		return Report{}, fmt.Errorf("length mismatch: %d observed vs %d predicted",
			len(observed), len(predicted))
	}
	return Report{
		R2:   R2(observed, predicted),
		Rp:   PearsonR(observed, predicted),
		RMSE: RMSE(observed, predicted),
	}, nil
}
