package models

import "fmt"

type Label string

const (
	LabelSafe   Label = "Safe"
	LabelUnsafe Label = "Unsafe"
)

func (l Label) Valid() bool {
	return l == LabelSafe || l == LabelUnsafe
}

func ParseLabel(s string) (Label, error) {
	l := Label(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown label %q", s)
	}
	return l, nil
}
