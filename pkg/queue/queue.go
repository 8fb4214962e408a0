package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPermanent marks a job failure that retrying cannot fix, such as a
// payload that does not decode. Such messages go straight to the dead list.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err with ErrPermanent.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Stats is a point-in-time view of queue depth.
type Stats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Dead     int64 `json:"dead"`
}

// QueueConfig tunes the consumer side.
type QueueConfig struct {
	Workers       int
	RetryLimit    int
	RetryDelay    time.Duration // first retry; doubles per attempt
	MaxRetryDelay time.Duration
	// MaxAge drops messages that waited longer than this. Zero keeps them.
	MaxAge time.Duration
}

// Message is the JSON envelope stored in Redis.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}

// Decode unmarshals a job payload into T. Failures are permanent.
func Decode[T any](payload json.RawMessage) (*T, error) {
	if len(payload) == 0 {
		return nil, Permanent(errors.New("empty payload"))
	}
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, Permanent(fmt.Errorf("decode %T: %w", v, err))
	}
	return &v, nil
}

func (c *QueueConfig) backoff(attempt int) time.Duration {
	d := c.RetryDelay
	for i := 1; i < attempt && d < c.MaxRetryDelay; i++ {
		d *= 2
	}
	if d > c.MaxRetryDelay {
		d = c.MaxRetryDelay
	}
	return d
}
