package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	capacity   float64
	refillRate float64 // tokens per second
	last       time.Time
}

// Limiter is a keyed token bucket.
type Limiter struct {
	mu  sync.Mutex
	m   map[string]*bucket
	now func() time.Time
}

func New() *Limiter { return &Limiter{m: make(map[string]*bucket), now: time.Now} }

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string, capacity, refillPerSec float64) bool {
	ok, _ := l.reserve(key, capacity, refillPerSec)
	return ok
}

// Wait blocks until a token for key is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string, capacity, refillPerSec float64) error {
	for {
		ok, wait := l.reserve(key, capacity, refillPerSec)
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Limiter) reserve(key string, capacity, refillPerSec float64) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		b = &bucket{tokens: capacity, capacity: capacity, refillRate: refillPerSec, last: now}
		l.m[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, time.Second
	}
	return false, time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
}

// Window allows at most limit events in any trailing period.
type Window struct {
	mu     sync.Mutex
	limit  int
	period time.Duration
	events []time.Time
	now    func() time.Time
}

func NewWindow(limit int, period time.Duration) *Window {
	if limit <= 0 {
		limit = 1
	}
	return &Window{limit: limit, period: period, now: time.Now}
}

// Allow records an event if the window has room.
func (w *Window) Allow() bool {
	ok, _ := w.reserve()
	return ok
}

// Wait blocks until the window has room or ctx is done.
func (w *Window) Wait(ctx context.Context) error {
	for {
		ok, wait := w.reserve()
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Len returns the number of events still inside the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(w.now())
	return len(w.events)
}

func (w *Window) reserve() (bool, time.Duration) {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(now)
	if len(w.events) < w.limit {
		w.events = append(w.events, now)
		return true, 0
	}
	return false, w.events[0].Add(w.period).Sub(now) + time.Millisecond
}

func (w *Window) evict(now time.Time) {
	cut := now.Add(-w.period)
	i := 0
	for i < len(w.events) && !w.events[i].After(cut) {
		i++
	}
	w.events = w.events[i:]
}
