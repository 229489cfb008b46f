// Package classifier wraps the trained water-quality model. The model is an
// opaque artifact loaded once at startup; Classify is safe for concurrent use.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"water-quality-api/models"
)

var (
	// ErrArtifact means the model file is missing, unreadable or malformed.
	ErrArtifact = errors.New("classifier artifact invalid")
	// ErrClassify means a loaded model failed to produce a label.
	ErrClassify = errors.New("classifier failed")
)

// FeatureOrder is the column order every artifact must be trained on.
var FeatureOrder = []string{"ph", "turbidity", "temperature"}

const (
	KindLogistic = "logistic"
	KindForest   = "forest"
)

type Classifier interface {
	Classify(ph, turbidity, temperature float64) (models.Label, error)
}

type Artifact struct {
	Version  string          `json:"version"`
	Kind     string          `json:"kind"`
	Features []string        `json:"features"`
	Logistic *LogisticParams `json:"logistic,omitempty"`
	Forest   *ForestParams   `json:"forest,omitempty"`
}

type predictor interface {
	predict(x []float64) (models.Label, error)
}

type Model struct {
	version string
	kind    string
	p       predictor
}

// Load reads and validates a JSON artifact from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifact, err)
	}
	return LoadBytes(data)
}

func LoadBytes(data []byte) (*Model, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrArtifact, err)
	}
	return FromArtifact(&a)
}

func FromArtifact(a *Artifact) (*Model, error) {
	if len(a.Features) != len(FeatureOrder) {
		return nil, fmt.Errorf("%w: expected features %v, got %v", ErrArtifact, FeatureOrder, a.Features)
	}
	for i, f := range FeatureOrder {
		if a.Features[i] != f {
			return nil, fmt.Errorf("%w: expected features %v, got %v", ErrArtifact, FeatureOrder, a.Features)
		}
	}

	var (
		p   predictor
		err error
	)
	switch a.Kind {
	case KindLogistic:
		if a.Logistic == nil {
			return nil, fmt.Errorf("%w: missing logistic parameters", ErrArtifact)
		}
		p, err = newLogistic(*a.Logistic)
	case KindForest:
		if a.Forest == nil {
			return nil, fmt.Errorf("%w: missing forest parameters", ErrArtifact)
		}
		p, err = newForest(*a.Forest)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrArtifact, a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifact, err)
	}

	version := a.Version
	if version == "" {
		version = "unversioned"
	}
	return &Model{version: version, kind: a.Kind, p: p}, nil
}

func (m *Model) Version() string { return m.version }

func (m *Model) Kind() string { return m.kind }

// Classify never inspects physical plausibility; any finite triple gets a label.
func (m *Model) Classify(ph, turbidity, temperature float64) (models.Label, error) {
	x := []float64{ph, turbidity, temperature}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("%w: non-finite %s", ErrClassify, FeatureOrder[i])
		}
	}
	return m.p.predict(x)
}

func allFinite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
