package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"water-quality-api/config"

	"github.com/redis/go-redis/v9"
)

var ErrCacheUnavailable = errors.New("cache unavailable")

const connectRetryDelay = 2 * time.Second

// CacheService is the optional Redis dependency: read-through cache storage
// and the live-reading pub/sub channel. A CacheService without a client turns
// every operation into a miss or no-op.
type CacheService struct {
	client *redis.Client
}

func NewCacheService(ctx context.Context, cfg config.RedisConfig) (*CacheService, error) {
	if cfg.URL == "" {
		return &CacheService{}, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return &CacheService{}, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	attempts := max(cfg.ConnectAttempts, 1)
	var lastErr error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()
		if lastErr == nil {
			return &CacheService{client: client}, nil
		}
		slog.Warn("redis ping failed", "attempt", i+1, "of", attempts, "error", lastErr)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				client.Close()
				return &CacheService{}, ctx.Err()
			case <-time.After(connectRetryDelay):
			}
		}
	}

	client.Close()
	return &CacheService{}, fmt.Errorf("redis ping failed after %d attempts: %w", attempts, lastErr)
}

func (s *CacheService) Client() *redis.Client {
	return s.client
}

func (s *CacheService) Available() bool {
	return s != nil && s.client != nil
}

func (s *CacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	if s.client == nil {
		return false, nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Version reads a write counter; a missing key is version 0.
func (s *CacheService) Version(ctx context.Context, key string) (int64, error) {
	if s.client == nil {
		return 0, ErrCacheUnavailable
	}
	v, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}

func (s *CacheService) BumpVersion(ctx context.Context, key string) (int64, error) {
	if s.client == nil {
		return 0, ErrCacheUnavailable
	}
	return s.client.Incr(ctx, key).Result()
}

func (s *CacheService) Publish(ctx context.Context, channel string, message any) error {
	if s.client == nil {
		return nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, channel, data).Err()
}

func (s *CacheService) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if s.client == nil {
		return nil
	}
	return s.client.Subscribe(ctx, channel)
}

func (s *CacheService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
