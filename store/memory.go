package store

import (
	"context"
	"sync"
	"time"

	"water-quality-api/models"
)

// Memory keeps readings in process. It is meant for local runs and tests;
// nothing survives a restart.
type Memory struct {
	mu   sync.RWMutex
	rows []models.Reading
	seq  int64
	now  func() time.Time
}

type MemoryOption func(*Memory)

func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Append(ctx context.Context, r *models.Reading) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, classify("append", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock().UTC()
	if n := len(m.rows); n > 0 && now.Before(m.rows[n-1].RecordedAt) {
		now = m.rows[n-1].RecordedAt
	}
	m.seq++
	r.ID = m.seq
	r.RecordedAt = now
	m.rows = append(m.rows, clone(*r))
	return r.ID, nil
}

func (m *Memory) Latest(ctx context.Context) (*models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("latest", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.rows) == 0 {
		return nil, ErrNotFound
	}
	r := clone(m.rows[len(m.rows)-1])
	return &r, nil
}

func (m *Memory) History(ctx context.Context, limit int) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify("history", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		return []models.Reading{}, nil
	}
	start := max(len(m.rows)-limit, 0)
	out := make([]models.Reading, 0, len(m.rows)-start)
	for _, r := range m.rows[start:] {
		out = append(out, clone(r))
	}
	return out, nil
}

func (m *Memory) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func clone(r models.Reading) models.Reading {
	if r.MLLabel != nil {
		l := *r.MLLabel
		r.MLLabel = &l
	}
	return r
}
