package services

import (
	"context"
	"sync"
	"sync/atomic"

	"water-quality-api/models"
	"water-quality-api/store"
)

type fakeClassifier struct {
	label models.Label
	err   error
	calls atomic.Int32
}

func (f *fakeClassifier) Classify(ph, turbidity, temperature float64) (models.Label, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.label, nil
}

// recordingStore wraps the in-memory store, counting appends and optionally
// failing them or running a hook inside Append.
type recordingStore struct {
	*store.Memory
	appends   atomic.Int32
	appendErr error
	onAppend  func(ctx context.Context)
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Memory: store.NewMemory()}
}

func (s *recordingStore) Append(ctx context.Context, r *models.Reading) (int64, error) {
	s.appends.Add(1)
	if s.onAppend != nil {
		s.onAppend(ctx)
	}
	if s.appendErr != nil {
		return 0, s.appendErr
	}
	return s.Memory.Append(ctx, r)
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages []any
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message)
	return p.err
}
