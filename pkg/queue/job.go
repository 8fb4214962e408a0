package queue

import (
	"context"
	"encoding/json"
)

// Job handles every message of one Type pulled off a RedisQueue. A Handle
// error schedules a retry unless it wraps ErrPermanent.
type Job interface {
	Type() string
	Handle(ctx context.Context, payload json.RawMessage) error
}
