package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"water-quality-api/store"
)

// Kind is the machine-readable error category returned to clients.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindNotFound         Kind = "not_found"
	KindStoreUnavailable Kind = "store_unavailable"
	KindStore            Kind = "store_error"
	KindCanceled         Kind = "canceled"
	KindInternal         Kind = "internal_error"
)

var (
	ErrNoData   = errors.New("no readings recorded yet")
	ErrCanceled = errors.New("request canceled")
)

// ValidationError maps each rejected field to the reason it was rejected.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid reading: " + strings.Join(parts, "; ")
}

func KindOf(err error) Kind {
	var ve *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrNoData), errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, store.ErrUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, store.ErrStore), errors.Is(err, store.ErrSchema):
		return KindStore
	default:
		return KindInternal
	}
}

// PublicMessage is the client-facing text for err. Only validation errors
// carry their own detail; everything else gets a fixed sentence.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return err.Error()
	case KindNotFound:
		return "no data found"
	case KindStoreUnavailable:
		return "reading store temporarily unavailable, retry later"
	case KindStore:
		return "reading store failed"
	case KindCanceled:
		return "request canceled"
	default:
		return "internal error"
	}
}
