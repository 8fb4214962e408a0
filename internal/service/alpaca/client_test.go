package alpaca

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/config"
	"GapScout/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Alpaca.DataURL = srv.URL
	cfg.Alpaca.APIKey = "key"
	cfg.Alpaca.SecretKey = "secret"
	return New(cfg, logger.NewNop())
}

func TestSnapshot(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stocks/KLTO/snapshot", r.URL.Path)
		assert.Equal(t, "iex", r.URL.Query().Get("feed"))
		assert.Equal(t, "key", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		_, _ = w.Write([]byte(`{
			"latestTrade": {"p": 2.72, "s": 100, "t": "2026-10-19T12:15:00Z"},
			"minuteBar": {"c": 2.70, "v": 850000, "t": "2026-10-19T12:14:00Z"},
			"dailyBar": {"c": 2.70, "v": 900000, "t": "2026-10-19T04:00:00Z"},
			"prevDailyBar": {"c": 2.15, "v": 120000, "t": "2026-10-16T04:00:00Z"}
		}`))
	})

	s, err := c.Snapshot(context.Background(), "klto")
	require.NoError(t, err)
	assert.Equal(t, "KLTO", s.Symbol)
	assert.Equal(t, 2.15, s.PreviousClose)
	assert.Equal(t, 2.72, s.LatestPrice)
	assert.Equal(t, int64(850_000), s.Volume)
	assert.False(t, s.Timestamp.IsZero())
}

func TestSnapshotFallsBackToDailyVolume(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"latestTrade": {"p": 5.5},
			"dailyBar": {"c": 5.4, "v": 42000},
			"prevDailyBar": {"c": 5.0}
		}`))
	})
	s, err := c.Snapshot(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, int64(42_000), s.Volume)
}

func TestSnapshotNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/stocks/GONE/snapshot" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"latestTrade": {"p": 1.2}}`))
	})

	_, err := c.Snapshot(context.Background(), "GONE")
	assert.ErrorIs(t, err, drepo.ErrNoData)

	_, err = c.Snapshot(context.Background(), "NOPREV")
	assert.ErrorIs(t, err, drepo.ErrNoData)
}

func TestSnapshotServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.Snapshot(context.Background(), "ABC")
	require.Error(t, err)
	assert.NotErrorIs(t, err, drepo.ErrNoData)
}
