// Package store persists classified readings. Readings are append-only and
// ordered by a store-assigned insertion sequence.
package store

import (
	"context"
	"errors"

	"water-quality-api/models"
)

var (
	ErrNotFound = errors.New("no readings stored")
	// ErrUnavailable is transient: connectivity loss, timeouts, server
	// shutdown. Callers may retry; the store never does.
	ErrUnavailable = errors.New("store unavailable")
	// ErrSchema is fatal at startup: the table is missing or has the wrong shape.
	ErrSchema = errors.New("store schema mismatch")
	// ErrStore covers any other failure reported by the backend.
	ErrStore = errors.New("store error")
)

type Store interface {
	// Append persists r and sets r.ID to the assigned sequence number and
	// r.RecordedAt to the commit time in UTC. Commit times never decrease
	// along the insertion sequence.
	Append(ctx context.Context, r *models.Reading) (int64, error)
	// Latest returns the most recently appended reading or ErrNotFound.
	Latest(ctx context.Context) (*models.Reading, error)
	// History returns up to limit of the newest readings, oldest first.
	History(ctx context.Context, limit int) ([]models.Reading, error)
	Ping(ctx context.Context) error
	Close() error
}
