package classifier

import (
	"errors"
	"fmt"
	"math"

	"water-quality-api/models"

	"gonum.org/v1/gonum/floats"
)

// LogisticParams score p(Safe) = sigmoid(w·z + b) on standardized features
// z = (x - mean) / scale.
type LogisticParams struct {
	Mean      []float64 `json:"mean"`
	Scale     []float64 `json:"scale"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"`
}

// zLimit bounds each standardized feature. Beyond a million standard
// deviations the sigmoid is saturated anyway, and the bound keeps the score
// finite for every finite input.
const zLimit = 1e6

type logistic struct {
	params LogisticParams
}

func newLogistic(p LogisticParams) (*logistic, error) {
	n := len(FeatureOrder)
	if len(p.Mean) != n || len(p.Scale) != n || len(p.Weights) != n {
		return nil, fmt.Errorf("logistic: mean, scale and weights need %d entries", n)
	}
	if !allFinite(p.Mean) || !allFinite(p.Scale) || !allFinite(p.Weights) || !allFinite([]float64{p.Bias, p.Threshold}) {
		return nil, errors.New("logistic: non-finite coefficient")
	}
	for i, s := range p.Scale {
		if s <= 0 {
			return nil, fmt.Errorf("logistic: scale[%d] must be positive", i)
		}
	}
	if p.Threshold == 0 {
		p.Threshold = 0.5
	}
	if p.Threshold <= 0 || p.Threshold >= 1 {
		return nil, fmt.Errorf("logistic: threshold %v outside (0, 1)", p.Threshold)
	}
	return &logistic{params: p}, nil
}

func (l *logistic) probability(x []float64) float64 {
	z := make([]float64, len(x))
	floats.SubTo(z, x, l.params.Mean)
	floats.Div(z, l.params.Scale)
	for i, v := range z {
		z[i] = math.Max(-zLimit, math.Min(zLimit, v))
	}
	// Each term may still overflow to ±Inf for extreme weights; clamping the
	// terms keeps their sum away from Inf - Inf.
	floats.Mul(z, l.params.Weights)
	for i, v := range z {
		z[i] = math.Max(-math.MaxFloat64/4, math.Min(math.MaxFloat64/4, v))
	}
	return sigmoid(floats.Sum(z) + l.params.Bias)
}

func (l *logistic) predict(x []float64) (models.Label, error) {
	p := l.probability(x)
	if math.IsNaN(p) {
		return "", fmt.Errorf("%w: score is NaN", ErrClassify)
	}
	if p >= l.params.Threshold {
		return models.LabelSafe, nil
	}
	return models.LabelUnsafe, nil
}

func sigmoid(s float64) float64 {
	if s >= 0 {
		return 1 / (1 + math.Exp(-s))
	}
	e := math.Exp(s)
	return e / (1 + e)
}
