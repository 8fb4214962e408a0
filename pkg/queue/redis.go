package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"GapScout/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	popTimeout    = time.Second
	retryInterval = 5 * time.Second
)

// QueueMode defines the operation mode of the queue.
type QueueMode int

const (
	ModeProducerConsumer QueueMode = iota
	ModeProducerOnly
)

func (m QueueMode) String() string {
	if m == ModeProducerOnly {
		return "producer-only"
	}
	return "producer-consumer"
}

// RedisQueue is a list-backed job queue. Messages wait in <prefix>:messages,
// failed ones in the <prefix>:retry sorted set scored by due time, and those
// out of attempts or too old in <prefix>:dlq.
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	mode      QueueMode
	keyPrefix string
	now       func() time.Time

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets the key namespace, e.g. "gapscout:alerts".
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, mode QueueMode, opts ...RedisQueueOption) *RedisQueue {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 10 * time.Second
	}
	if config.MaxRetryDelay < config.RetryDelay {
		config.MaxRetryDelay = 8 * config.RetryDelay
	}

	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr.With(logger.String("component", "queue")),
		config:    config,
		client:    client,
		mode:      mode,
		keyPrefix: "gapscout:queue",
		now:       time.Now,
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// NewRedisPublisher creates and starts a producer-only queue, used to ship
// aggregated error logs.
func NewRedisPublisher(lgr *logger.Logger, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	q := NewRedisQueue(lgr, &QueueConfig{}, client, ModeProducerOnly, opts...)
	if err := q.Start(); err != nil {
		q.logger.Error("redis publisher start failed", logger.Error(err))
	}
	return q
}

// RegisterJob routes messages of job.Type() to job. Call before Start.
func (r *RedisQueue) RegisterJob(job Job) {
	if r.mode == ModeProducerOnly {
		r.logger.Warn("job ignored by producer-only queue", logger.String("type", job.Type()))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered", logger.String("type", job.Type()))
}

// Start pings Redis and, for consumers, launches the workers and the retry
// promoter.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("queue already running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.running = true

	if r.mode == ModeProducerOnly {
		r.logger.Info("redis publisher started", logger.String("key", r.queueKey()))
		return nil
	}
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.promoteRetries()

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("key", r.queueKey()),
		logger.String("mode", r.mode.String()))
	return nil
}

// Stop cancels in-flight handlers and waits for workers until ctx expires.
// Messages still in Redis stay there for the next start.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue workers did not stop: %w", ctx.Err())
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	}
}

// Enqueue JSON-encodes payload and pushes it for the job of msgType.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()

	if !running {
		return errors.New("queue not running")
	}
	if r.mode != ModeProducerOnly && !known {
		return fmt.Errorf("no job registered for type %s", msgType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Message{
		ID:         uuid.NewString(),
		Type:       msgType,
		Payload:    body,
		EnqueuedAt: r.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", r.queueKey(), err)
	}
	return nil
}

// PublishMessage satisfies logger.Publisher.
func (r *RedisQueue) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return r.Enqueue(ctx, topic, payload)
}

// Stats reports the pending, retry and dead-letter depths.
func (r *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := r.client.Pipeline()
	pending := pipe.LLen(ctx, r.queueKey())
	retry := pipe.ZCard(ctx, r.retryKey())
	dead := pipe.LLen(ctx, r.deadKey())
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return Stats{Pending: pending.Val(), Retrying: retry.Val(), Dead: dead.Val()}, nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	for r.ctx.Err() == nil {
		res, err := r.client.BRPop(r.ctx, popTimeout, r.queueKey()).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil), r.ctx.Err() != nil:
			continue
		default:
			r.logger.Error("brpop failed", logger.Int("worker", id), logger.Error(err))
			select {
			case <-r.ctx.Done():
			case <-time.After(popTimeout):
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("dropping undecodable message", logger.Error(err))
			continue
		}
		r.process(msg)
	}
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()

	log := r.logger.With(logger.String("id", msg.ID), logger.String("type", msg.Type))
	if !ok {
		msg.LastError = "no job registered"
		r.bury(msg, log)
		return
	}
	if age := r.now().Sub(msg.EnqueuedAt); r.config.MaxAge > 0 && age > r.config.MaxAge {
		msg.LastError = fmt.Sprintf("stale after %s", age.Round(time.Second))
		r.bury(msg, log)
		return
	}

	start := r.now()
	err := job.Handle(r.ctx, msg.Payload)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) && r.ctx.Err() != nil {
		// shutting down; retry on next start
		r.schedule(msg, r.now(), log)
		return
	}

	msg.Attempts++
	msg.LastError = err.Error()
	log.Warn("job failed",
		logger.Int("attempt", msg.Attempts),
		logger.Duration("elapsed", r.now().Sub(start)),
		logger.Error(err))

	if errors.Is(err, ErrPermanent) || msg.Attempts > r.config.RetryLimit {
		r.bury(msg, log)
		return
	}
	r.schedule(msg, r.now().Add(r.config.backoff(msg.Attempts)), log)
}

func (r *RedisQueue) schedule(msg Message, at time.Time, log *logger.Logger) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("encode retry", logger.Error(err))
		return
	}
	// the worker context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.ZAdd(ctx, r.retryKey(), redis.Z{Score: float64(at.Unix()), Member: data}).Err(); err != nil {
		log.Error("schedule retry", logger.Error(err))
	}
}

func (r *RedisQueue) bury(msg Message, log *logger.Logger) {
	log.Error("message moved to dead letters", logger.String("reason", msg.LastError))
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.LPush(ctx, r.deadKey(), data).Err(); err != nil {
		log.Error("push dead letter", logger.Error(err))
	}
}

func (r *RedisQueue) promoteRetries() {
	defer r.wg.Done()
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
		}

		due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
			Min: "-inf",
			Max: strconv.FormatInt(r.now().Unix(), 10),
		}).Result()
		if err != nil {
			if r.ctx.Err() == nil {
				r.logger.Error("read due retries", logger.Error(err))
			}
			continue
		}
		for _, member := range due {
			// only the instance whose ZREM wins re-queues the message
			removed, err := r.client.ZRem(r.ctx, r.retryKey(), member).Result()
			if err != nil || removed == 0 {
				continue
			}
			if err := r.client.LPush(r.ctx, r.queueKey(), member).Err(); err != nil {
				r.logger.Error("requeue retry", logger.Error(err))
			}
		}
	}
}

func (r *RedisQueue) queueKey() string { return r.keyPrefix + ":messages" }

func (r *RedisQueue) retryKey() string { return r.keyPrefix + ":retry" }

func (r *RedisQueue) deadKey() string { return r.keyPrefix + ":dlq" }
