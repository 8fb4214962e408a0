package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/logger"
	"GapScout/pkg/metrics"
)

// TradeTracker keeps the last streamed trade per symbol and overlays it on
// snapshots from the base quote source.
type TradeTracker struct {
	stream  drepo.MarketStream
	base    drepo.QuoteSource
	metrics drepo.Metrics
	maxAge  time.Duration
	now     func() time.Time
	log     *logger.Logger

	mu   sync.RWMutex
	last map[string]models.Trade

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

var _ drepo.QuoteSource = (*TradeTracker)(nil)

func NewTradeTracker(stream drepo.MarketStream, base drepo.QuoteSource, m drepo.Metrics, maxAge time.Duration, log *logger.Logger) *TradeTracker {
	if m == nil {
		m = metrics.Nop{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &TradeTracker{
		stream:  stream,
		base:    base,
		metrics: m,
		maxAge:  maxAge,
		now:     time.Now,
		log:     log,
		last:    make(map[string]models.Trade),
	}
}

func (t *TradeTracker) IsConnected() bool { return t.stream.IsConnected() }

// Start connects the stream, subscribes to symbols and consumes trades until ctx ends.
func (t *TradeTracker) Start(ctx context.Context, symbols []string) error {
	if err := t.stream.Connect(ctx); err != nil {
		return err
	}
	if err := t.stream.Subscribe(ctx, symbols); err != nil {
		_ = t.stream.Close()
		return err
	}
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.consume(ctx)
	}()
	return nil
}

func (t *TradeTracker) consume(ctx context.Context) {
	for {
		trCh, errCh := t.stream.Read(ctx)
		if !t.drain(ctx, trCh, errCh) {
			return
		}
		t.metrics.RecordError("stream")
		for ctx.Err() == nil {
			err := t.stream.Reconnect(ctx)
			if err == nil {
				break
			}
			t.log.Warn("stream reconnect failed", logger.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// drain returns false once ctx is done and true when the stream needs a reconnect.
func (t *TradeTracker) drain(ctx context.Context, trCh <-chan *models.Trade, errCh <-chan error) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case err, ok := <-errCh:
			if ok && err != nil {
				t.log.Warn("stream error", logger.Error(err))
				return true
			}
			if !ok {
				errCh = nil
			}
		case tr, ok := <-trCh:
			if !ok {
				return ctx.Err() == nil
			}
			if tr != nil {
				t.Observe(tr)
			}
		}
	}
}

// Observe records a trade, keeping only the newest per symbol.
func (t *TradeTracker) Observe(tr *models.Trade) {
	sym := strings.ToUpper(tr.Symbol)
	t.mu.Lock()
	if prev, ok := t.last[sym]; !ok || tr.Timestamp >= prev.Timestamp {
		cp := *tr
		cp.Symbol = sym
		t.last[sym] = cp
	}
	t.mu.Unlock()
	t.metrics.RecordLastPrice(sym, tr.Price)
}

// LastTrade returns the newest trade if it is no older than maxAge.
func (t *TradeTracker) LastTrade(symbol string) (models.Trade, bool) {
	t.mu.RLock()
	tr, ok := t.last[strings.ToUpper(symbol)]
	t.mu.RUnlock()
	if !ok || tr.Price <= 0 {
		return models.Trade{}, false
	}
	if t.now().Sub(time.Unix(tr.Timestamp, 0)) > t.maxAge {
		return models.Trade{}, false
	}
	return tr, true
}

func (t *TradeTracker) Snapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	s, err := t.base.Snapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	tr, ok := t.LastTrade(symbol)
	if !ok {
		return s, nil
	}
	at := time.Unix(tr.Timestamp, 0).UTC()
	if at.After(s.Timestamp) {
		out := *s
		out.LatestPrice = tr.Price
		out.Timestamp = at
		return &out, nil
	}
	return s, nil
}

// Shutdown closes the stream and waits for the consumer to exit.
func (t *TradeTracker) Shutdown(ctx context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}
	err := t.stream.Close()
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
