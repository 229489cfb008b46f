package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"water-quality-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	versions map[string]int64
	down     bool
	gets     int
	hits     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}, versions: map[string]int64{}}
}

var errCacheDown = errors.New("cache down")

func (f *fakeCache) Get(_ context.Context, key string, dest any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return false, errCacheDown
	}
	f.gets++
	raw, ok := f.data[key]
	if !ok {
		return false, nil
	}
	f.hits++
	return true, json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errCacheDown
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = raw
	return nil
}

func (f *fakeCache) Version(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return 0, errCacheDown
	}
	return f.versions[key], nil
}

func (f *fakeCache) BumpVersion(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return 0, errCacheDown
	}
	f.versions[key]++
	return f.versions[key], nil
}

func TestCachedReadYourWrites(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	s := NewCached(NewMemory(), cache, time.Minute, "test")

	_, err := s.Append(ctx, reading(7.0))
	require.NoError(t, err)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.0, latest.PH)

	latest, err = s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.0, latest.PH)
	assert.Equal(t, 1, cache.hits)

	_, err = s.Append(ctx, reading(8.0))
	require.NoError(t, err)

	latest, err = s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8.0, latest.PH, "append must invalidate the cached latest")

	rows, err := s.History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 7.0, rows[0].PH)
	assert.Equal(t, 8.0, rows[1].PH)
}

func TestCachedHistoryEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewCached(NewMemory(), newFakeCache(), time.Minute, "")

	for i := 0; i < 2; i++ {
		rows, err := s.History(ctx, 50)
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	}

	_, err := s.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedFallsThroughWhenCacheDown(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	cache.down = true
	s := NewCached(NewMemory(), cache, time.Minute, "test")

	_, err := s.Append(ctx, reading(7.3))
	require.NoError(t, err)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7.3, latest.PH)

	rows, err := s.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type failingStore struct {
	Memory
	err error
}

func (f *failingStore) Append(context.Context, *models.Reading) (int64, error) {
	return 0, f.err
}

func TestCachedAppendFailureKeepsVersion(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	s := NewCached(&failingStore{err: ErrUnavailable}, cache, time.Minute, "test")

	_, err := s.Append(ctx, reading(7.0))
	assert.ErrorIs(t, err, ErrUnavailable)

	v, _ := cache.Version(ctx, "test:version")
	assert.Equal(t, int64(0), v)
}
