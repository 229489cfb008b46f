package services

import (
	"context"
	"errors"

	"water-quality-api/models"
	"water-quality-api/store"
)

// QueryService serves the read projections. It never writes.
type QueryService struct {
	store        store.Store
	defaultLimit int
	maxLimit     int
}

func NewQueryService(st store.Store, defaultLimit, maxLimit int) *QueryService {
	if maxLimit <= 0 {
		maxLimit = 200
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(50, maxLimit)
	}
	return &QueryService{store: st, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Latest returns ErrNoData, not an error kind of its own, when nothing has
// been stored yet.
func (q *QueryService) Latest(ctx context.Context) (*models.Reading, error) {
	r, err := q.store.Latest(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ClampLimit maps a requested limit onto [1, max]; non-positive means default.
func (q *QueryService) ClampLimit(limit int) int {
	if limit <= 0 {
		return q.defaultLimit
	}
	if limit > q.maxLimit {
		return q.maxLimit
	}
	return limit
}

// History returns the newest readings oldest-first. An empty store yields an
// empty, non-nil slice.
func (q *QueryService) History(ctx context.Context, limit int) ([]models.Reading, error) {
	rows, err := q.store.History(ctx, q.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Reading{}
	}
	return rows, nil
}

func (q *QueryService) Ping(ctx context.Context) error {
	return q.store.Ping(ctx)
}
