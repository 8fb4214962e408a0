package cache

import (
	"context"
	"time"
)

// LayeredCache reads through a process-local MemoryCache (L1) before Redis
// (L2). Writes go to Redis first. Entries promoted from Redis live in L1
// for at most MemoryTTL so a value never outlives its Redis copy by much.
type LayeredCache struct {
	mem    *MemoryCache
	redis  *RedisCache
	memTTL time.Duration
}

// NewLayeredCache wraps rc. The caller keeps ownership of rc and closes it.
func NewLayeredCache(rc *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		MemoryTTL:     time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &LayeredCache{
		mem:    NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		redis:  rc,
		memTTL: cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.redis.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, lc.l1TTL(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.redis.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, dest, lc.memTTL)
	return nil
}

// TryLock always goes to Redis; a cooldown must hold across instances.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.redis.TryLock(ctx, key, ttl)
}

// Close releases L1 only.
func (lc *LayeredCache) Close() error {
	return lc.mem.Close()
}

func (lc *LayeredCache) l1TTL(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.memTTL {
		return expiration
	}
	return lc.memTTL
}
