// Package rules holds the hand-authored safety thresholds. Their verdict is
// final: the classifier label never changes it.
package rules

import (
	"fmt"

	"water-quality-api/models"
)

type Thresholds struct {
	PHMin          float64
	PHMax          float64
	TurbidityMax   float64
	TemperatureMin float64
	TemperatureMax float64
}

// DefaultThresholds are inclusive: a value equal to a bound is safe.
var DefaultThresholds = Thresholds{
	PHMin:          6.5,
	PHMax:          8.5,
	TurbidityMax:   5.0,
	TemperatureMin: 10.0,
	TemperatureMax: 35.0,
}

type Rule string

const (
	RulePHLow           Rule = "ph_low"
	RulePHHigh          Rule = "ph_high"
	RuleTurbidityHigh   Rule = "turbidity_high"
	RuleTemperatureLow  Rule = "temperature_low"
	RuleTemperatureHigh Rule = "temperature_high"
)

type Violation struct {
	Rule  Rule
	Value float64
	Limit float64
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %.2f (limit %.2f)", v.Rule, v.Value, v.Limit)
}

type Engine struct {
	t Thresholds
}

func New() *Engine {
	return &Engine{t: DefaultThresholds}
}

func (e *Engine) Thresholds() Thresholds {
	return e.t
}

func (e *Engine) Evaluate(ph, turbidity, temperature float64) models.Label {
	if len(e.Violations(ph, turbidity, temperature)) > 0 {
		return models.LabelUnsafe
	}
	return models.LabelSafe
}

// Violations lists every threshold the sample breaks, in a fixed order.
func (e *Engine) Violations(ph, turbidity, temperature float64) []Violation {
	var out []Violation
	if ph < e.t.PHMin {
		out = append(out, Violation{Rule: RulePHLow, Value: ph, Limit: e.t.PHMin})
	}
	if ph > e.t.PHMax {
		out = append(out, Violation{Rule: RulePHHigh, Value: ph, Limit: e.t.PHMax})
	}
	if turbidity > e.t.TurbidityMax {
		out = append(out, Violation{Rule: RuleTurbidityHigh, Value: turbidity, Limit: e.t.TurbidityMax})
	}
	if temperature < e.t.TemperatureMin {
		out = append(out, Violation{Rule: RuleTemperatureLow, Value: temperature, Limit: e.t.TemperatureMin})
	}
	if temperature > e.t.TemperatureMax {
		out = append(out, Violation{Rule: RuleTemperatureHigh, Value: temperature, Limit: e.t.TemperatureMax})
	}
	return out
}
