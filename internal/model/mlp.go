package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// MLPConfig fixes the hyperparameters of the feed-forward network. The
// defaults follow the published nn-variant parameterization: three hidden
// layers of 200 units, quasi-Newton solver, deterministic seed. BatchSize
// bounds how many samples are materialized as dense rows at once while
// evaluating the full-batch objective.
type MLPConfig struct {
	HiddenLayerSizes []int
	BatchSize        int
	Alpha            float64 // L2 penalty
	MaxIter          int
	Tol              float64
	Seed             int64
}

// DefaultMLPConfig returns the fixed nn-variant hyperparameters.
func DefaultMLPConfig() MLPConfig {
	return MLPConfig{
		HiddenLayerSizes: []int{200, 200, 200},
		BatchSize:        10,
		Alpha:            1e-4,
		MaxIter:          200,
		Tol:              1e-4,
		Seed:             0,
	}
}

// MLPRegressor is a fully connected network with ReLU hidden activations
// and an identity output, trained by minimizing the L2-penalized halved
// mean squared error with L-BFGS. The first layer consumes sparse rows
// without densifying the whole matrix.
//
// Coefs[l] is the weight matrix of layer l in row-major [fanIn][fanOut]
// orientation; Intercepts[l] its bias vector. The layout matches the
// exported parameter document.
type MLPRegressor struct {
	Config MLPConfig

	Coefs         [][][]float64
	Intercepts    [][]float64
	Loss          float64
	NIterations   int
	NLayers       int // input + hidden + output
	NOutputs      int
	OutActivation string
	NFeatures     int
	Fitted        bool
}

// NewMLPRegressor builds an unfit network.
func NewMLPRegressor(cfg MLPConfig) *MLPRegressor {
	if len(cfg.HiddenLayerSizes) == 0 {
		cfg.HiddenLayerSizes = []int{100}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &MLPRegressor{Config: cfg}
}

// layerSizes returns the full unit counts, input through output.
func (r *MLPRegressor) layerSizes(nFeatures int) []int {
	sizes := make([]int, 0, len(r.Config.HiddenLayerSizes)+2)
	sizes = append(sizes, nFeatures)
	sizes = append(sizes, r.Config.HiddenLayerSizes...)
	return append(sizes, 1)
}

// nParams returns the flattened parameter vector length.
func nParams(sizes []int) int {
	n := 0
	for l := 0; l < len(sizes)-1; l++ {
		n += sizes[l]*sizes[l+1] + sizes[l+1]
	}
	return n
}

// Fit trains the network from a Glorot-initialized state.
func (r *MLPRegressor) Fit(X mat.Matrix, y []float64) error {
	n, p := X.Dims()
	if n != len(y) {
		return fmt.Errorf("mlp: %d samples but %d targets", n, len(y))
	}
	if n == 0 {
		return fmt.Errorf("mlp: empty training set")
	}

	sizes := r.layerSizes(p)
	x0 := glorotInit(sizes, r.Config.Seed)

	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			loss, _ := r.objective(theta, sizes, X, y, nil)
			return loss
		},
		Grad: func(grad, theta []float64) {
			r.objective(theta, sizes, X, y, grad)
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   r.Config.MaxIter,
		GradientThreshold: r.Config.Tol,
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return fmt.Errorf("mlp: optimization failed: %w", err)
	}
	// Line-search stalls near a flat optimum still leave a usable
	// parameter vector; only a missing result is fatal.

	r.unflatten(result.X, sizes)
	r.Loss = result.F
	r.NIterations = result.Stats.MajorIterations
	r.NLayers = len(sizes)
	r.NOutputs = 1
	r.OutActivation = "identity"
	r.NFeatures = p
	r.Fitted = true
	return nil
}

// objective computes the penalized loss and, when grad is non-nil, its
// gradient via backpropagation. Samples are processed in batches of
// Config.BatchSize dense rows.
func (r *MLPRegressor) objective(theta []float64, sizes []int, X mat.Matrix, y []float64, grad []float64) (float64, []float64) {
	n, _ := X.Dims()
	nLayers := len(sizes) - 1

	// Views into theta (and grad) per layer, no copying.
	w := make([][]float64, nLayers)
	b := make([][]float64, nLayers)
	var gw, gb [][]float64
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
		gw = make([][]float64, nLayers)
		gb = make([][]float64, nLayers)
	}
	off := 0
	for l := 0; l < nLayers; l++ {
		wn := sizes[l] * sizes[l+1]
		w[l] = theta[off : off+wn]
		if grad != nil {
			gw[l] = grad[off : off+wn]
		}
		off += wn
		b[l] = theta[off : off+sizes[l+1]]
		if grad != nil {
			gb[l] = grad[off : off+sizes[l+1]]
		}
		off += sizes[l+1]
	}

	loss := 0.0
	batch := r.Config.BatchSize
	acts := make([][]float64, nLayers+1)
	for i := 0; i < n; i += batch {
		hi := min(i+batch, n)
		for s := i; s < hi; s++ {
			// Forward pass. The input layer stays sparse.
			for l := 1; l <= nLayers; l++ {
				if cap(acts[l]) < sizes[l] {
					acts[l] = make([]float64, sizes[l])
				}
				acts[l] = acts[l][:sizes[l]]
				copy(acts[l], b[l-1])
			}
			forEachNonZero(X, s, func(j int, v float64) {
				row := w[0][j*sizes[1] : (j+1)*sizes[1]]
				for k, wv := range row {
					acts[1][k] += wv * v
				}
			})
			relu(acts[1])
			for l := 2; l <= nLayers; l++ {
				for j, av := range acts[l-1] {
					if av == 0 {
						continue
					}
					row := w[l-1][j*sizes[l] : (j+1)*sizes[l]]
					for k, wv := range row {
						acts[l][k] += wv * av
					}
				}
				if l < nLayers {
					relu(acts[l])
				}
			}

			residual := acts[nLayers][0] - y[s]
			loss += 0.5 * residual * residual

			if grad == nil {
				continue
			}

			// Backward pass.
			delta := []float64{residual}
			for l := nLayers; l >= 1; l-- {
				if l == 1 {
					forEachNonZero(X, s, func(j int, v float64) {
						row := gw[0][j*sizes[1] : (j+1)*sizes[1]]
						for k, dv := range delta {
							row[k] += dv * v
						}
					})
					for k, dv := range delta {
						gb[0][k] += dv
					}
					break
				}
				prev := acts[l-1]
				nextDelta := make([]float64, sizes[l-1])
				for j, av := range prev {
					row := w[l-1][j*sizes[l] : (j+1)*sizes[l]]
					grow := gw[l-1][j*sizes[l] : (j+1)*sizes[l]]
					var back float64
					for k, dv := range delta {
						grow[k] += dv * av
						back += dv * row[k]
					}
					if av > 0 { // ReLU derivative
						nextDelta[j] = back
					}
				}
				for k, dv := range delta {
					gb[l-1][k] += dv
				}
				delta = nextDelta
			}
		}
	}

	// L2 penalty on weights only, scaled by the sample count the way
	// scikit-learn does.
	penalty := 0.0
	for l := 0; l < nLayers; l++ {
		for _, wv := range w[l] {
			penalty += wv * wv
		}
	}
	loss = loss/float64(n) + 0.5*r.Config.Alpha*penalty/float64(n)

	if grad != nil {
		inv := 1.0 / float64(n)
		for i := range grad {
			grad[i] *= inv
		}
		scale := r.Config.Alpha * inv
		for l := 0; l < nLayers; l++ {
			for i, wv := range w[l] {
				gw[l][i] += scale * wv
			}
		}
	}
	return loss, grad
}

func (r *MLPRegressor) unflatten(theta []float64, sizes []int) {
	nLayers := len(sizes) - 1
	r.Coefs = make([][][]float64, nLayers)
	r.Intercepts = make([][]float64, nLayers)
	off := 0
	for l := 0; l < nLayers; l++ {
		r.Coefs[l] = make([][]float64, sizes[l])
		for j := 0; j < sizes[l]; j++ {
			r.Coefs[l][j] = append([]float64(nil), theta[off:off+sizes[l+1]]...)
			off += sizes[l+1]
		}
		r.Intercepts[l] = append([]float64(nil), theta[off:off+sizes[l+1]]...)
		off += sizes[l+1]
	}
}

// Predict runs the forward pass on each row.
func (r *MLPRegressor) Predict(X mat.Matrix) ([]float64, error) {
	if !r.IsFit() {
		return nil, ErrNotFit
	}
	n, p := X.Dims()
	if p != r.NFeatures {
		return nil, fmt.Errorf("mlp: input has %d features, model has %d", p, r.NFeatures)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = r.forwardRow(X, i)
	}
	return out, nil
}

func (r *MLPRegressor) forwardRow(X mat.Matrix, i int) float64 {
	nLayers := len(r.Coefs)
	act := append([]float64(nil), r.Intercepts[0]...)
	forEachNonZero(X, i, func(j int, v float64) {
		for k, wv := range r.Coefs[0][j] {
			act[k] += wv * v
		}
	})
	relu(act)
	for l := 1; l < nLayers; l++ {
		next := append([]float64(nil), r.Intercepts[l]...)
		for j, av := range act {
			if av == 0 {
				continue
			}
			for k, wv := range r.Coefs[l][j] {
				next[k] += wv * av
			}
		}
		if l < nLayers-1 {
			relu(next)
		}
		act = next
	}
	return act[0]
}

// IsFit reports whether layer weights are available.
func (r *MLPRegressor) IsFit() bool {
	return r.Fitted && len(r.Coefs) > 0
}

// SetParams installs externally trained layer weights, marking the model
// fit. Metadata fields accompany the weights in the parameter document and
// are restored with them.
func (r *MLPRegressor) SetParams(coefs [][][]float64, intercepts [][]float64, loss float64, nIter, nLayers, nOutputs int, outActivation string) error {
	if len(coefs) == 0 || len(coefs) != len(intercepts) {
		return fmt.Errorf("mlp: %d coefficient layers but %d intercept layers", len(coefs), len(intercepts))
	}
	r.Coefs = coefs
	r.Intercepts = intercepts
	r.Loss = loss
	r.NIterations = nIter
	r.NLayers = nLayers
	r.NOutputs = nOutputs
	r.OutActivation = outActivation
	r.NFeatures = len(coefs[0])
	r.Fitted = true
	return nil
}

func relu(v []float64) {
	for i, x := range v {
		if x < 0 {
			v[i] = 0
		}
	}
}

// glorotInit draws uniform weights scaled per layer fan-in/fan-out.
func glorotInit(sizes []int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	theta := make([]float64, nParams(sizes))
	off := 0
	for l := 0; l < len(sizes)-1; l++ {
		bound := math.Sqrt(6.0 / float64(sizes[l]+sizes[l+1]))
		wn := sizes[l] * sizes[l+1]
		for i := 0; i < wn; i++ {
			theta[off+i] = (rng.Float64()*2 - 1) * bound
		}
		off += wn + sizes[l+1] // biases start at zero
	}
	return theta
}
