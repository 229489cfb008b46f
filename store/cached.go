package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"water-quality-api/models"
)

// VersionedCache is the subset of a key-value cache the read-through layer
// needs. Get reports a miss with ok=false and a nil error.
type VersionedCache interface {
	Get(ctx context.Context, key string, dest any) (ok bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Version(ctx context.Context, key string) (int64, error)
	BumpVersion(ctx context.Context, key string) (int64, error)
}

// Cached serves Latest and History from a cache keyed by a write version.
// Append bumps the version after the inner write succeeds, so once an append
// has returned no reader is served a projection cached before it.
type Cached struct {
	inner  Store
	cache  VersionedCache
	ttl    time.Duration
	prefix string
}

func NewCached(inner Store, cache VersionedCache, ttl time.Duration, prefix string) *Cached {
	if prefix == "" {
		prefix = "readings"
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl, prefix: prefix}
}

func (c *Cached) versionKey() string {
	return c.prefix + ":version"
}

func (c *Cached) Append(ctx context.Context, r *models.Reading) (int64, error) {
	id, err := c.inner.Append(ctx, r)
	if err != nil {
		return 0, err
	}
	if _, err := c.cache.BumpVersion(ctx, c.versionKey()); err != nil {
		slog.WarnContext(ctx, "cache version bump failed", "error", err)
	}
	return id, nil
}

func (c *Cached) Latest(ctx context.Context) (*models.Reading, error) {
	v, err := c.cache.Version(ctx, c.versionKey())
	if err != nil {
		return c.inner.Latest(ctx)
	}
	key := fmt.Sprintf("%s:latest:v%d", c.prefix, v)

	var cached models.Reading
	if ok, err := c.cache.Get(ctx, key, &cached); err == nil && ok {
		return &cached, nil
	}

	r, err := c.inner.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, r, c.ttl); err != nil {
		slog.DebugContext(ctx, "cache set failed", "key", key, "error", err)
	}
	return r, nil
}

func (c *Cached) History(ctx context.Context, limit int) ([]models.Reading, error) {
	v, err := c.cache.Version(ctx, c.versionKey())
	if err != nil {
		return c.inner.History(ctx, limit)
	}
	key := fmt.Sprintf("%s:history:v%d:%d", c.prefix, v, limit)

	var cached []models.Reading
	if ok, err := c.cache.Get(ctx, key, &cached); err == nil && ok && cached != nil {
		return cached, nil
	}

	rows, err := c.inner.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, rows, c.ttl); err != nil {
		slog.DebugContext(ctx, "cache set failed", "key", key, "error", err)
	}
	return rows, nil
}

func (c *Cached) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

func (c *Cached) Close() error {
	return c.inner.Close()
}
