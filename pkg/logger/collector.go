package logger

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"sync"
	"time"
)

const (
	defaultCollectInterval  = 30 * time.Second
	defaultCollectThreshold = 100
	publishTimeout          = 30 * time.Second
)

// Publisher ships a flushed Batch somewhere durable, e.g. a Redis queue.
type Publisher interface {
	PublishMessage(ctx context.Context, topic string, payload interface{}) error
}

type CollectionConfig struct {
	TimeInterval   time.Duration // flush at least this often
	CountThreshold int           // flush once this many distinct errors are pending
	Topic          string
	Publisher      Publisher
}

// LogDigest is one distinct error and how often it repeated since the last
// flush. Repeats of the same level, message and fields merge regardless of
// call site; Caller is the most recent one.
type LogDigest struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Symbol    string                 `json:"symbol,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// Batch is the payload of one flush.
type Batch struct {
	FlushedAt time.Time   `json:"flushed_at"`
	Entries   []LogDigest `json:"entries"`
}

// LogCollector aggregates repeated errors, so a provider outage during a
// scan produces one digest per symbol instead of a flood.
type LogCollector struct {
	config  CollectionConfig
	mu      sync.Mutex
	pending map[uint64]*LogDigest
	order   []uint64
	now     func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	publish sync.WaitGroup
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	cfg := *config
	if cfg.TimeInterval <= 0 {
		cfg.TimeInterval = defaultCollectInterval
	}
	if cfg.CountThreshold <= 0 {
		cfg.CountThreshold = defaultCollectThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &LogCollector{
		config:  cfg,
		pending: make(map[uint64]*LogDigest),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}
	c.loop.Add(1)
	go c.run()
	return c
}

func (c *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	key := digestKey(level, message, fields)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.pending[key]; ok {
		d.Count++
		d.LastSeen = now
		d.Caller = caller
		return
	}

	sym, _ := fields["symbol"].(string)
	c.pending[key] = &LogDigest{
		Level:     level,
		Message:   message,
		Symbol:    sym,
		Fields:    fields,
		Caller:    caller,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	c.order = append(c.order, key)
	if len(c.pending) >= c.config.CountThreshold {
		c.flushLocked()
	}
}

// digestKey hashes level, message and the fields in key order.
func digestKey(level, message string, fields map[string]interface{}) uint64 {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%s", level, message)
	for _, k := range keys {
		fmt.Fprintf(h, "\x00%s=%v", k, fields[k])
	}
	return h.Sum64()
}

func (c *LogCollector) run() {
	defer c.loop.Done()
	ticker := time.NewTicker(c.config.TimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-c.ctx.Done():
			c.mu.Lock()
			c.flushLocked()
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.flushLocked()
		c.mu.Unlock()
	}
}

// flushLocked hands pending digests, oldest first, to the publisher.
func (c *LogCollector) flushLocked() {
	if len(c.pending) == 0 {
		return
	}
	batch := Batch{FlushedAt: c.now(), Entries: make([]LogDigest, 0, len(c.order))}
	for _, k := range c.order {
		batch.Entries = append(batch.Entries, *c.pending[k])
	}
	c.pending = make(map[uint64]*LogDigest)
	c.order = c.order[:0]

	c.publish.Add(1)
	go func() {
		defer c.publish.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := c.config.Publisher.PublishMessage(ctx, c.config.Topic, batch); err != nil {
			// the logger cannot log its own failure
			fmt.Fprintf(os.Stderr, "log collector: publish %d digests: %v\n", len(batch.Entries), err)
		}
	}()
}

// Close flushes what is pending and waits for in-flight publishes.
func (c *LogCollector) Close() {
	c.cancel()
	c.loop.Wait()
	c.publish.Wait()
}
