package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// SGDConfig fixes the hyperparameters of the online linear model. The
// defaults follow the published linear PLEC parameterization: huber loss,
// elastic-net penalty, no intercept fitting, 100 passes, deterministic
// seed.
type SGDConfig struct {
	Alpha        float64 // regularization strength
	L1Ratio      float64 // elastic-net mixing, 0 = ridge, 1 = lasso
	Epsilon      float64 // huber transition width
	Eta0         float64 // initial learning rate
	PowerT       float64 // inverse-scaling exponent for the learning rate
	NIter        int     // passes over the training set
	FitIntercept bool
	Seed         int64
}

// DefaultSGDConfig returns the fixed linear-variant hyperparameters.
func DefaultSGDConfig() SGDConfig {
	return SGDConfig{
		Alpha:        1e-4,
		L1Ratio:      0.15,
		Epsilon:      1e-1,
		Eta0:         0.01,
		PowerT:       0.25,
		NIter:        100,
		FitIntercept: false,
		Seed:         0,
	}
}

// SGDRegressor is a linear model fit by per-sample stochastic gradient
// descent with a robust huber loss and elastic-net regularization. It
// consumes sparse rows directly; only coordinates present in a sample are
// touched during its gradient step, with the penalty applied in one
// accumulated shrinkage pass per epoch.
type SGDRegressor struct {
	Config SGDConfig

	Coef      []float64
	Intercept float64
	Fitted    bool
}

// NewSGDRegressor builds an unfit linear model.
func NewSGDRegressor(cfg SGDConfig) *SGDRegressor {
	return &SGDRegressor{Config: cfg}
}

// Fit trains from scratch, discarding any previous coefficients.
func (r *SGDRegressor) Fit(X mat.Matrix, y []float64) error {
	n, p := X.Dims()
	if n != len(y) {
		return fmt.Errorf("sgd: %d samples but %d targets", n, len(y))
	}
	if n == 0 {
		return fmt.Errorf("sgd: empty training set")
	}

	r.Coef = make([]float64, p)
	r.Intercept = 0
	rng := rand.New(rand.NewSource(r.Config.Seed))

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	t := 1.0
	for epoch := 0; epoch < r.Config.NIter; epoch++ {
		rng.Shuffle(n, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })

		etaSum := 0.0
		for _, i := range perm {
			eta := r.Config.Eta0 / math.Pow(t, r.Config.PowerT)
			etaSum += eta

			g := huberGradient(r.decision(X, i)-y[i], r.Config.Epsilon)
			forEachNonZero(X, i, func(j int, v float64) {
				r.Coef[j] -= eta * g * v
			})
			if r.Config.FitIntercept {
				r.Intercept -= eta * g
			}
			t++
		}

		r.shrink(etaSum)
	}

	r.Fitted = true
	return nil
}

// shrink applies the elastic-net penalty accumulated over one epoch:
// multiplicative L2 decay followed by L1 soft thresholding.
func (r *SGDRegressor) shrink(etaSum float64) {
	l2Factor := 1 - r.Config.Alpha*(1-r.Config.L1Ratio)*etaSum
	if l2Factor < 0 {
		l2Factor = 0
	}
	l1Step := r.Config.Alpha * r.Config.L1Ratio * etaSum
	for j, w := range r.Coef {
		w *= l2Factor
		switch {
		case w > l1Step:
			w -= l1Step
		case w < -l1Step:
			w += l1Step
		default:
			w = 0
		}
		r.Coef[j] = w
	}
}

func (r *SGDRegressor) decision(X mat.Matrix, i int) float64 {
	s := r.Intercept
	forEachNonZero(X, i, func(j int, v float64) {
		s += r.Coef[j] * v
	})
	return s
}

// Predict evaluates the linear decision function row by row.
func (r *SGDRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if !r.IsFit() {
		return nil, ErrNotFit
	}
	n, p := X.Dims()
	if p != len(r.Coef) {
		return nil, fmt.Errorf("sgd: input has %d features, model has %d", p, len(r.Coef))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.decision(X, i)
	}
	return out, nil
}

// IsFit reports whether coefficients are available, either from Fit or
// from a parameter restore.
func (r *SGDRegressor) IsFit() bool {
	return r.Fitted && len(r.Coef) > 0
}

// SetParams installs externally trained coefficients, marking the model
// fit without running gradient descent.
func (r *SGDRegressor) SetParams(coef []float64, intercept float64) {
	r.Coef = append([]float64(nil), coef...)
	r.Intercept = intercept
	r.Fitted = true
}

// huberGradient is the derivative of the huber loss with respect to the
// residual: linear inside the epsilon band, clipped outside it.
func huberGradient(residual, epsilon float64) float64 {
	if residual > epsilon {
		return epsilon
	}
	if residual < -epsilon {
		return -epsilon
	}
	return residual
}
