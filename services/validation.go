package services

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// FieldBody identifies problems with the payload as a whole.
const FieldBody = "body"

const (
	ReasonEmpty     = "no data received"
	ReasonMalformed = "malformed JSON"
	ReasonNotObject = "must be a JSON object"
	ReasonTrailing  = "unexpected data after JSON object"
	maxPayloadBytes = 1 << 20
)

const (
	FieldPH          = "ph"
	FieldTurbidity   = "turbidity"
	FieldTemperature = "temperature"
)

const (
	ReasonMissing   = "missing"
	ReasonNotNumber = "must be a number"
	ReasonNotFinite = "must be finite"
	ReasonPHRange   = "must be between 0 and 14"
	ReasonNegative  = "must not be negative"
)

type Measurement struct {
	PH          float64
	Turbidity   float64
	Temperature float64
}

// Validate turns an untrusted decoded JSON object into a Measurement. Every
// failing field is reported, not only the first.
func Validate(payload map[string]any) (Measurement, error) {
	fields := map[string]string{}
	values := map[string]float64{}

	for _, name := range []string{FieldPH, FieldTurbidity, FieldTemperature} {
		raw, ok := payload[name]
		if !ok || raw == nil {
			fields[name] = ReasonMissing
			continue
		}
		v, reason := parseNumber(raw)
		if reason != "" {
			fields[name] = reason
			continue
		}
		values[name] = v
	}

	if v, ok := values[FieldPH]; ok && (v < 0 || v > 14) {
		fields[FieldPH] = ReasonPHRange
	}
	if v, ok := values[FieldTurbidity]; ok && v < 0 {
		fields[FieldTurbidity] = ReasonNegative
	}

	if len(fields) > 0 {
		return Measurement{}, &ValidationError{Fields: fields}
	}
	return Measurement{
		PH:          values[FieldPH],
		Turbidity:   values[FieldTurbidity],
		Temperature: values[FieldTemperature],
	}, nil
}

// DecodePayload reads exactly one JSON object from r, keeping numbers as
// json.Number so Validate sees what the client sent.
func DecodePayload(r io.Reader) (map[string]any, error) {
	if r == nil {
		return nil, bodyError(ReasonEmpty)
	}
	dec := json.NewDecoder(io.LimitReader(r, maxPayloadBytes))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, bodyError(ReasonEmpty)
		}
		return nil, bodyError(ReasonMalformed)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, bodyError(ReasonNotObject)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, bodyError(ReasonTrailing)
	}
	return obj, nil
}

func bodyError(reason string) error {
	return &ValidationError{Fields: map[string]string{FieldBody: reason}}
}

func parseNumber(raw any) (float64, string) {
	var v float64
	switch n := raw.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, ReasonNotNumber
		}
		v = f
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, ReasonNotNumber
		}
		v = f
	default:
		return 0, ReasonNotNumber
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ReasonNotFinite
	}
	return v, ""
}
