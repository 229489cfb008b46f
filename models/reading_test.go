package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"Safe", LabelSafe, false},
		{"Unsafe", LabelUnsafe, false},
		{"safe", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLabel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLabel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReadingOverridden(t *testing.T) {
	safe := LabelSafe
	unsafe := LabelUnsafe

	if (Reading{MLLabel: nil, FinalStatus: LabelUnsafe}).Overridden() {
		t.Error("missing ml_label should not count as an override")
	}
	if (Reading{MLLabel: &unsafe, FinalStatus: LabelUnsafe}).Overridden() {
		t.Error("agreeing labels should not count as an override")
	}
	if !(Reading{MLLabel: &safe, FinalStatus: LabelUnsafe}).Overridden() {
		t.Error("disagreeing labels should count as an override")
	}
}

func TestReadingJSONShape(t *testing.T) {
	safe := LabelSafe
	r := Reading{
		ID:          42,
		PH:          9.1,
		Turbidity:   2.0,
		Temperature: 25,
		MLLabel:     &safe,
		FinalStatus: LabelUnsafe,
		RecordedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, key := range []string{"ph", "turbidity", "temperature", "ml_label", "final_status", "recorded_at"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("JSON missing %q: %s", key, data)
		}
	}
	if len(fields) != 6 {
		t.Errorf("JSON has %d fields, want 6: %s", len(fields), data)
	}
	if strings.Contains(string(data), "42") {
		t.Errorf("surrogate id leaked into JSON: %s", data)
	}
}

func TestReadingJSONNullLabel(t *testing.T) {
	data, err := json.Marshal(Reading{FinalStatus: LabelSafe})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"ml_label":null`) {
		t.Errorf("expected null ml_label, got %s", data)
	}
}
