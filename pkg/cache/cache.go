// Package cache provides the keyed TTL store shared by the rate limiter and the response cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"storefront-service/pkg/config"
)

// Store is a keyed byte store with TTLs and fixed-window counters.
type Store interface {
	// Get returns the value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	// Incr bumps the counter for key and returns the count inside the current window.
	// The window starts with the first increment and is never extended by later ones.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Close() error
}

// New builds the store selected by configuration.
func New(cfg *config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case "redis":
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}
