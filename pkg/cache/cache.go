package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the cache GapScout reads fundamentals, historical stats and
// API responses through. TryLock doubles as the per-symbol alert cooldown.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	// TryLock sets key only if it is absent and reports whether it did.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Close() error
}
