package classifier

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"water-quality-api/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

type Sample struct {
	PH          float64
	Turbidity   float64
	Temperature float64
	Label       models.Label
}

func (s Sample) features() []float64 {
	return []float64{s.PH, s.Turbidity, s.Temperature}
}

// SampleData is a small standards-based training set, enough to bootstrap a
// model before field data exists.
var SampleData = []Sample{
	{7.2, 2.1, 25, models.LabelSafe},
	{6.8, 3.5, 26, models.LabelSafe},
	{8.0, 4.0, 24, models.LabelSafe},
	{5.9, 12.0, 32, models.LabelUnsafe},
	{9.1, 8.5, 35, models.LabelUnsafe},
	{7.4, 1.5, 22, models.LabelSafe},
	{6.3, 6.0, 29, models.LabelUnsafe},
	{8.7, 11.2, 31, models.LabelUnsafe},
}

type TrainOptions struct {
	Version string
	// Lambda is the L2 penalty on the weights (not the bias).
	Lambda        float64
	MaxIterations int
}

// Train fits a logistic artifact by minimising regularised log-loss with BFGS.
func Train(samples []Sample, opts TrainOptions) (*Artifact, error) {
	if len(samples) < 2 {
		return nil, errors.New("train: need at least two samples")
	}
	var safe int
	for _, s := range samples {
		if !s.Label.Valid() {
			return nil, fmt.Errorf("train: unknown label %q", s.Label)
		}
		if s.Label == models.LabelSafe {
			safe++
		}
	}
	if safe == 0 || safe == len(samples) {
		return nil, errors.New("train: samples must contain both labels")
	}
	if opts.Lambda < 0 {
		return nil, errors.New("train: lambda must be non-negative")
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 500
	}

	nf := len(FeatureOrder)
	mean := make([]float64, nf)
	scale := make([]float64, nf)
	col := make([]float64, len(samples))
	for j := 0; j < nf; j++ {
		for i, s := range samples {
			col[i] = s.features()[j]
		}
		m, sd := stat.MeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		mean[j], scale[j] = m, sd
	}

	z := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		row := make([]float64, nf)
		floats.SubTo(row, s.features(), mean)
		floats.Div(row, scale)
		z[i] = row
		if s.Label == models.LabelSafe {
			y[i] = 1
		}
	}

	n := float64(len(samples))
	// x = [w_0 .. w_{nf-1}, b]
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w, b := x[:nf], x[nf]
			var loss float64
			for i := range z {
				s := floats.Dot(w, z[i]) + b
				loss += softplus(s) - y[i]*s
			}
			return loss/n + opts.Lambda/2*floats.Dot(w, w)
		},
		Grad: func(grad, x []float64) {
			w, b := x[:nf], x[nf]
			for k := range grad {
				grad[k] = 0
			}
			for i := range z {
				r := sigmoid(floats.Dot(w, z[i])+b) - y[i]
				floats.AddScaled(grad[:nf], r/n, z[i])
				grad[nf] += r / n
			}
			floats.AddScaled(grad[:nf], opts.Lambda, w)
		},
	}

	settings := &optimize.Settings{MajorIterations: opts.MaxIterations}
	result, err := optimize.Minimize(problem, make([]float64, nf+1), settings, &optimize.BFGS{})
	if result == nil {
		return nil, fmt.Errorf("train: optimize: %w", err)
	}
	if !allFinite(result.X) {
		return nil, errors.New("train: optimizer diverged")
	}

	version := opts.Version
	if version == "" {
		version = "logistic-v1"
	}
	return &Artifact{
		Version:  version,
		Kind:     KindLogistic,
		Features: append([]string(nil), FeatureOrder...),
		Logistic: &LogisticParams{
			Mean:      mean,
			Scale:     scale,
			Weights:   append([]float64(nil), result.X[:nf]...),
			Bias:      result.X[nf],
			Threshold: 0.5,
		},
	}, nil
}

// Accuracy is the share of samples c labels correctly; classifier errors
// count as misses.
func Accuracy(c Classifier, samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var hits int
	for _, s := range samples {
		got, err := c.Classify(s.PH, s.Turbidity, s.Temperature)
		if err == nil && got == s.Label {
			hits++
		}
	}
	return float64(hits) / float64(len(samples))
}

// ReadSamplesCSV expects a header naming ph, turbidity, temperature and label
// columns in any order.
func ReadSamplesCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range append(append([]string(nil), FeatureOrder...), "label") {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var out []Sample
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		vals := make([]float64, len(FeatureOrder))
		for j, col := range FeatureOrder {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[col]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, col, err)
			}
			vals[j] = v
		}
		label, err := models.ParseLabel(strings.TrimSpace(rec[idx["label"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, Sample{PH: vals[0], Turbidity: vals[1], Temperature: vals[2], Label: label})
	}
	return out, nil
}

func softplus(s float64) float64 {
	if s > 0 {
		return s + math.Log1p(math.Exp(-s))
	}
	return math.Log1p(math.Exp(s))
}
