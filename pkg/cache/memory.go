package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// defaultMemoryTTL applies when Set is called without an expiration.
const defaultMemoryTTL = 7 * 24 * time.Hour

type memoryEntry struct {
	value    []byte
	expireAt time.Time
	lastUsed time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache is the in-process Service used when Redis is off and as the
// L1 of LayeredCache. Values are stored JSON-encoded so Get decodes the
// same way RedisCache does. The least recently used entry is evicted once
// MaxSize is reached.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	maxSize   int
	ticker    *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

// NewMemoryCache creates an in-memory cache and starts its expiry sweep.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memoryEntry),
		maxSize: cfg.MaxSize,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go mc.sweep()
	return mc
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case *string:
		return []byte(*v), nil
	case []byte:
		return append([]byte(nil), v...), nil
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	if s, ok := dest.(*string); ok {
		*s = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if expiration <= 0 {
		expiration = defaultMemoryTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.put(key, data, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	e, ok := mc.lookup(key)
	var data []byte
	if ok {
		data = e.value
	}
	mc.mu.Unlock()

	if !ok {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

// TryLock stores key for ttl unless a live entry already holds it.
func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, held := mc.lookup(key); held {
		return false, nil
	}
	mc.put(key, []byte("locked"), ttl)
	return true, nil
}

// Len returns the number of stored entries, expired or not.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.entries)
}

// Close stops the expiry sweep.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.ticker.Stop()
		close(mc.done)
	})
	return nil
}

// lookup returns a live entry and marks it used. Expired entries are dropped.
func (mc *MemoryCache) lookup(key string) (*memoryEntry, bool) {
	e, ok := mc.entries[key]
	if !ok {
		return nil, false
	}
	now := mc.now()
	if e.expired(now) {
		delete(mc.entries, key)
		return nil, false
	}
	e.lastUsed = now
	return e, true
}

func (mc *MemoryCache) put(key string, data []byte, ttl time.Duration) {
	if _, exists := mc.entries[key]; !exists && len(mc.entries) >= mc.maxSize {
		mc.evictOldest()
	}
	now := mc.now()
	mc.entries[key] = &memoryEntry{value: data, expireAt: now.Add(ttl), lastUsed: now}
}

func (mc *MemoryCache) evictOldest() {
	var (
		oldest   string
		oldestAt time.Time
	)
	for key, e := range mc.entries {
		if oldest == "" || e.lastUsed.Before(oldestAt) {
			oldest, oldestAt = key, e.lastUsed
		}
	}
	if oldest != "" {
		delete(mc.entries, oldest)
	}
}

func (mc *MemoryCache) sweep() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.ticker.C:
		}

		mc.mu.Lock()
		now := mc.now()
		for key, e := range mc.entries {
			if e.expired(now) {
				delete(mc.entries, key)
			}
		}
		mc.mu.Unlock()
	}
}
