package scoring

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sawpanic/plecscore/internal/model"
)

// ErrUnsupportedExport is returned when a variant has no parameter
// document defined. Only the linear and nn variants publish their
// parameters; a tree ensemble has no flat numeric form.
var ErrUnsupportedExport = errors.New("variant does not support parameter export")

// linearParams is the parameter document of the linear variant. The field
// names match the documents published for the upstream implementation, so
// the same JSON restores either one. intercept_ stays an array of one, as
// published.
type linearParams struct {
	Coef      []float64 `json:"coef_"`
	Intercept []float64 `json:"intercept_"`
}

// nnParams is the parameter document of the feed-forward variant.
type nnParams struct {
	Loss          float64       `json:"loss_"`
	Coefs         [][][]float64 `json:"coefs_"`
	Intercepts    [][]float64   `json:"intercepts_"`
	NIter         int           `json:"n_iter_"`
	NLayers       int           `json:"n_layers_"`
	NOutputs      int           `json:"n_outputs_"`
	OutActivation string        `json:"out_activation_"`
}

// marshalParams serializes the variant-appropriate parameter subset as an
// indented JSON document. Each supported variant has its own serializer;
// there is deliberately no reflective attribute walk.
func marshalParams(variant model.Variant, m model.Regressor) ([]byte, error) {
	switch variant {
	case model.VariantLinear:
		sgd, ok := m.(*model.SGDRegressor)
		if !ok {
			return nil, fmt.Errorf("scoring: linear variant holds %T", m)
		}
		if !sgd.IsFit() {
			return nil, model.ErrNotFit
		}
		return json.MarshalIndent(linearParams{
			Coef:      sgd.Coef,
			Intercept: []float64{sgd.Intercept},
		}, "", "  ")

	case model.VariantNeuralNet:
		mlp, ok := m.(*model.MLPRegressor)
		if !ok {
			return nil, fmt.Errorf("scoring: nn variant holds %T", m)
		}
		if !mlp.IsFit() {
			return nil, model.ErrNotFit
		}
		return json.MarshalIndent(nnParams{
			Loss:          mlp.Loss,
			Coefs:         mlp.Coefs,
			Intercepts:    mlp.Intercepts,
			NIter:         mlp.NIterations,
			NLayers:       mlp.NLayers,
			NOutputs:      mlp.NOutputs,
			OutActivation: mlp.OutActivation,
		}, "", "  ")

	case model.VariantRandomForest:
		return nil, fmt.Errorf("scoring: %w: %s", ErrUnsupportedExport, variant)

	default:
		return nil, fmt.Errorf("scoring: unknown variant %q", variant)
	}
}

// unmarshalParams restores a parameter document into the model, marking it
// fit without touching the training data.
func unmarshalParams(variant model.Variant, m model.Regressor, data []byte) error {
	switch variant {
	case model.VariantLinear:
		sgd, ok := m.(*model.SGDRegressor)
		if !ok {
			return fmt.Errorf("scoring: linear variant holds %T", m)
		}
		var p linearParams
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("scoring: bad linear parameter document: %w", err)
		}
		if len(p.Coef) == 0 {
			return fmt.Errorf("scoring: linear parameter document has no coefficients")
		}
		intercept := 0.0
		if len(p.Intercept) > 0 {
			intercept = p.Intercept[0]
		}
		sgd.SetParams(p.Coef, intercept)
		return nil

	case model.VariantNeuralNet:
		mlp, ok := m.(*model.MLPRegressor)
		if !ok {
			return fmt.Errorf("scoring: nn variant holds %T", m)
		}
		var p nnParams
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("scoring: bad nn parameter document: %w", err)
		}
		return mlp.SetParams(p.Coefs, p.Intercepts, p.Loss, p.NIter, p.NLayers, p.NOutputs, p.OutActivation)

	case model.VariantRandomForest:
		return fmt.Errorf("scoring: %w: %s", ErrUnsupportedExport, variant)

	default:
		return fmt.Errorf("scoring: unknown variant %q", variant)
	}
}
