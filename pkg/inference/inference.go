// Package inference provides the probabilistic half of the analysis: a
// deterministic Predictor mapping a feature vector to a CSRF exploitation
// probability.
//
// The default predictor is a logistic model whose coefficients come from a
// JSON model file. A built-in coefficient set ships embedded so the tool
// works without an external model; training is out of scope.
package inference

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/csrfshield/csrfshield/pkg/features"
	"github.com/csrfshield/csrfshield/pkg/jsonutil"
)

// ErrModelUnavailable indicates no usable model is configured. The protocol
// boundary maps it to DEPENDENCY_ERROR.
var ErrModelUnavailable = errors.New("inference: model unavailable")

// Predictor maps a feature vector to a probability in [0,1]. Predictions
// must be deterministic for identical input.
type Predictor interface {
	Predict(v features.Vector) (float64, error)
}

//go:embed model_default.json
var defaultModelJSON []byte

// modelFile is the JSON shape of a model file.
type modelFile struct {
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
}

// LogisticModel is a logistic-regression predictor over the fixed feature
// set. Immutable after construction.
type LogisticModel struct {
	intercept float64
	weights   map[string]float64
}

var _ Predictor = (*LogisticModel)(nil)

// LoadModel reads a logistic model from a JSON file. An empty path yields
// ErrModelUnavailable.
func LoadModel(path string) (*LogisticModel, error) {
	if path == "" {
		return nil, ErrModelUnavailable
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return parseModel(data)
}

// DefaultModel returns the embedded built-in model.
func DefaultModel() *LogisticModel {
	m, err := parseModel(defaultModelJSON)
	if err != nil {
		// The embedded model is validated by tests; reaching this is a
		// build defect, not a runtime condition.
		panic("inference: embedded model invalid: " + err.Error())
	}
	return m
}

func parseModel(data []byte) (*LogisticModel, error) {
	var mf modelFile
	if err := jsonutil.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	if len(mf.Weights) == 0 {
		return nil, fmt.Errorf("%w: model has no weights", ErrModelUnavailable)
	}

	known := make(map[string]bool, len(features.Names()))
	for _, name := range features.Names() {
		known[name] = true
	}
	for name := range mf.Weights {
		if !known[name] {
			return nil, fmt.Errorf("%w: unknown feature %q in model", ErrModelUnavailable, name)
		}
	}
	return &LogisticModel{intercept: mf.Intercept, weights: mf.Weights}, nil
}

// Predict computes sigmoid(intercept + Σ wᵢ·xᵢ) over the numeric view of
// the vector. The error return is always nil for a constructed model; it
// exists for predictors backed by external processes.
func (m *LogisticModel) Predict(v features.Vector) (float64, error) {
	// Accumulate in wire order: float addition is not associative, and map
	// iteration order would make repeated predictions drift in the last bit.
	z := m.intercept
	values := v.Values()
	for _, name := range features.Names() {
		z += m.weights[name] * values[name]
	}
	return 1 / (1 + math.Exp(-z)), nil
}
