// Package model implements the three regressors behind the PLEC scoring
// function. The variant set is closed: adding a variant means adding a
// constructor here and a serializer in the scoring package, so a variant
// without an export path is visible at compile time instead of failing in
// reflective attribute lookup.
package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Variant identifies one of the supported regressor families.
type Variant string

const (
	// VariantLinear is the online stochastic linear model.
	VariantLinear Variant = "linear"
	// VariantNeuralNet is the feed-forward network.
	VariantNeuralNet Variant = "nn"
	// VariantRandomForest is the tree ensemble.
	VariantRandomForest Variant = "rf"
)

// ErrNotFit is returned by Predict on a model that has not been fit or
// restored from persisted parameters.
var ErrNotFit = errors.New("model has not been fit")

// ParseVariant validates a variant tag. Unknown tags are a configuration
// error naming the offending value.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantLinear, VariantNeuralNet, VariantRandomForest:
		return v, nil
	default:
		return "", fmt.Errorf("invalid configuration: version %q is not supported (want linear, nn or rf)", s)
	}
}

// Regressor is the uniform surface the scoring layer programs against.
// Fit replaces any previous state; Predict requires a fit model.
type Regressor interface {
	Fit(X mat.Matrix, y []float64) error
	Predict(X mat.Matrix) ([]float64, error)
	IsFit() bool
}

// rowNonZeroDoer matches the sparse matrix types that can enumerate the
// non-zero entries of a single row without materializing it.
type rowNonZeroDoer interface {
	DoRowNonZero(i int, fn func(i, j int, v float64))
}

// forEachNonZero visits the non-zero entries of row i, using the sparse
// fast path when the matrix offers one.
func forEachNonZero(X mat.Matrix, i int, fn func(j int, v float64)) {
	if s, ok := X.(rowNonZeroDoer); ok {
		s.DoRowNonZero(i, func(_, j int, v float64) { fn(j, v) })
		return
	}
	_, p := X.Dims()
	for j := 0; j < p; j++ {
		if v := X.At(i, j); v != 0 {
			fn(j, v)
		}
	}
}

// nonZeroCounter matches sparse matrix types. Used to reject sparse input
// where an implementation only supports dense matrices.
type nonZeroCounter interface {
	NNZ() int
}

func isSparse(X mat.Matrix) bool {
	_, ok := X.(nonZeroCounter)
	return ok
}
