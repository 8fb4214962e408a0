package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/logger"
	"GapScout/pkg/metrics"
	"GapScout/pkg/queue"
)

const (
	AlertJobType = "alert.send"

	defaultSpacing     = time.Second
	defaultAlertBuffer = 64
	sendTimeout        = 15 * time.Second
)

var ErrDispatcherClosed = errors.New("alert dispatcher closed")

// AlertMessage is the unit handed from the scan cycle to a sink.
type AlertMessage struct {
	Symbol string `json:"symbol"`
	Text   string `json:"text"`
}

// Enqueuer is the producer side of a job queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

type DispatcherOption func(*AlertDispatcher)

// WithSpacing sets the minimum gap between two in-process sends.
func WithSpacing(d time.Duration) DispatcherOption {
	return func(a *AlertDispatcher) { a.spacing = d }
}

func WithBuffer(n int) DispatcherOption {
	return func(a *AlertDispatcher) {
		if n > 0 {
			a.buffer = n
		}
	}
}

// WithQueue routes alerts through a job queue instead of the local sender.
func WithQueue(q Enqueuer) DispatcherOption {
	return func(a *AlertDispatcher) { a.queue = q }
}

// AlertDispatcher decouples alert delivery from scoring.
type AlertDispatcher struct {
	sink    drepo.AlertSink
	name    string
	metrics drepo.Metrics
	log     *logger.Logger

	spacing time.Duration
	buffer  int
	queue   Enqueuer

	mu      sync.RWMutex
	ch      chan AlertMessage
	closed  bool
	started bool
	wg      sync.WaitGroup
}

var _ Dispatcher = (*AlertDispatcher)(nil)

func NewAlertDispatcher(sink drepo.AlertSink, m drepo.Metrics, log *logger.Logger, opts ...DispatcherOption) *AlertDispatcher {
	if m == nil {
		m = metrics.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	a := &AlertDispatcher{
		sink:    sink,
		name:    sinkName(sink),
		metrics: m,
		log:     log.With(logger.String("component", "dispatcher")),
		spacing: defaultSpacing,
		buffer:  defaultAlertBuffer,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan AlertMessage, a.buffer)
	return a
}

func sinkName(s drepo.AlertSink) string {
	if n, ok := s.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "sink"
}

// Start launches the in-process sender. It is a no-op in queue mode.
func (a *AlertDispatcher) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started || a.queue != nil {
		return
	}
	a.started = true
	a.wg.Add(1)
	go a.run()
}

func (a *AlertDispatcher) Dispatch(ctx context.Context, symbol, text string) error {
	msg := AlertMessage{Symbol: symbol, Text: text}
	if a.queue != nil {
		if err := a.queue.Enqueue(ctx, AlertJobType, msg); err != nil {
			return fmt.Errorf("enqueue alert: %w", err)
		}
		return nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrDispatcherClosed
	}
	select {
	case a.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting alerts and waits for buffered ones to be sent.
func (a *AlertDispatcher) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("alert drain: %w", ctx.Err())
	}
}

func (a *AlertDispatcher) run() {
	defer a.wg.Done()
	var last time.Time
	for msg := range a.ch {
		if !last.IsZero() {
			if wait := a.spacing - time.Since(last); wait > 0 {
				time.Sleep(wait)
			}
		}
		a.deliver(msg)
		last = time.Now()
	}
}

func (a *AlertDispatcher) deliver(msg AlertMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := deliver(ctx, a.sink, a.name, a.metrics, msg); err != nil {
		a.log.Warn("alert send failed", logger.String("symbol", msg.Symbol), logger.Error(err))
	}
}

func deliver(ctx context.Context, sink drepo.AlertSink, name string, m drepo.Metrics, msg AlertMessage) error {
	if err := sink.Send(ctx, msg.Text); err != nil {
		m.RecordError("alert_send")
		return err
	}
	m.RecordAlertSent(name)
	return nil
}

// SendAlertJob delivers queued alerts.
type SendAlertJob struct {
	sink    drepo.AlertSink
	name    string
	metrics drepo.Metrics
	log     *logger.Logger
}

var _ queue.Job = (*SendAlertJob)(nil)

func NewSendAlertJob(sink drepo.AlertSink, m drepo.Metrics, log *logger.Logger) *SendAlertJob {
	if m == nil {
		m = metrics.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SendAlertJob{sink: sink, name: sinkName(sink), metrics: m, log: log}
}

func (j *SendAlertJob) Type() string { return AlertJobType }

func (j *SendAlertJob) Handle(ctx context.Context, payload json.RawMessage) error {
	msg, err := queue.Decode[AlertMessage](payload)
	if err != nil {
		return err
	}
	if msg.Symbol == "" || msg.Text == "" {
		return queue.Permanent(fmt.Errorf("incomplete alert %+v", *msg))
	}
	if err := deliver(ctx, j.sink, j.name, j.metrics, *msg); err != nil {
		j.log.Warn("queued alert send failed", logger.String("symbol", msg.Symbol), logger.Error(err))
		return err
	}
	return nil
}
