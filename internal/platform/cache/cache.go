// Package cache provides a small key/value cache with a Redis backend for
// multi-instance deployments and an in-process backend otherwise.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ordena_backend/internal/config"

	"go.uber.org/zap"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is the cache contract shared by both backends.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// New picks Redis when REDIS_ADDR is set and the in-process cache otherwise.
func New(cfg *config.Config, logger *zap.Logger) (Store, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using in-memory cache")
		return NewMemoryStore(cfg.CacheTTL, 10*time.Minute), nil
	}
	store, err := NewRedisStore(cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("Connected to Redis cache", zap.String("addr", cfg.RedisAddr))
	return store, nil
}

// GetJSON reads key and decodes it into dst.
func GetJSON(ctx context.Context, s Store, key string, dst interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return s.Set(ctx, key, raw, ttl)
}

// Remember returns the cached value for key, computing and storing it on a
// miss. Cache failures are not fatal: the value is computed and returned.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	if err := GetJSON(ctx, s, key, &cached); err == nil {
		return cached, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}
	_ = SetJSON(ctx, s, key, value, ttl)
	return value, nil
}
