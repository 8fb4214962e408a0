package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"GapScout/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	mu         sync.Mutex
	trades     chan *models.Trade
	subscribed []string
	connected  bool
}

func newFakeStream() *fakeStream { return &fakeStream{trades: make(chan *models.Trade, 8)} }

func (f *fakeStream) Connect(context.Context) error {
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Subscribe(_ context.Context, symbols []string) error {
	f.mu.Lock()
	f.subscribed = append(f.subscribed, symbols...)
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) Read(context.Context) (<-chan *models.Trade, <-chan error) {
	return f.trades, make(chan error)
}

func (f *fakeStream) Reconnect(context.Context) error { return nil }

func (f *fakeStream) Close() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	return nil
}

func (f *fakeStream) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func TestTradeTrackerOverlay(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)
	base := &fakeQuotes{snaps: map[string]*models.Snapshot{
		"KLTO": {Symbol: "KLTO", PreviousClose: 2.15, LatestPrice: 2.60, Volume: 850_000, Timestamp: now.Add(-5 * time.Minute)},
	}}
	tr := NewTradeTracker(newFakeStream(), base, nil, 2*time.Minute, nil)
	tr.now = func() time.Time { return now }

	tr.Observe(&models.Trade{Symbol: "klto", Price: 2.72, Timestamp: now.Add(-30 * time.Second).Unix()})
	tr.Observe(&models.Trade{Symbol: "KLTO", Price: 2.50, Timestamp: now.Add(-60 * time.Second).Unix()})

	s, err := tr.Snapshot(context.Background(), "KLTO")
	require.NoError(t, err)
	assert.Equal(t, 2.72, s.LatestPrice)
	assert.Equal(t, 2.15, s.PreviousClose)
	assert.Equal(t, int64(850_000), s.Volume)
	assert.Equal(t, 2.60, base.snaps["KLTO"].LatestPrice)
}

func TestTradeTrackerIgnoresStaleTrades(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC)
	base := &fakeQuotes{snaps: map[string]*models.Snapshot{
		"ABC": {Symbol: "ABC", PreviousClose: 1, LatestPrice: 1.2, Timestamp: now.Add(-time.Hour)},
	}}
	tr := NewTradeTracker(newFakeStream(), base, nil, 2*time.Minute, nil)
	tr.now = func() time.Time { return now }
	tr.Observe(&models.Trade{Symbol: "ABC", Price: 9, Timestamp: now.Add(-10 * time.Minute).Unix()})

	_, ok := tr.LastTrade("ABC")
	assert.False(t, ok)
	s, err := tr.Snapshot(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 1.2, s.LatestPrice)
}

func TestTradeTrackerConsumesStream(t *testing.T) {
	stream := newFakeStream()
	tr := NewTradeTracker(stream, &fakeQuotes{}, nil, time.Hour, nil)

	require.NoError(t, tr.Start(context.Background(), []string{"KLTO"}))
	assert.True(t, tr.IsConnected())
	assert.Equal(t, []string{"KLTO"}, stream.subscribed)

	stream.trades <- &models.Trade{Symbol: "KLTO", Price: 3.1, Timestamp: time.Now().Unix()}
	assert.Eventually(t, func() bool {
		tt, ok := tr.LastTrade("KLTO")
		return ok && tt.Price == 3.1
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tr.Shutdown(ctx))
	assert.False(t, tr.IsConnected())
}
