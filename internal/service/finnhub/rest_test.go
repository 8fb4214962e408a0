package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/cache"
	"GapScout/pkg/config"
	"GapScout/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFundamentals struct {
	s     *models.ShareStructure
	err   error
	calls int
}

func (f *stubFundamentals) Fundamentals(context.Context, string) (*models.ShareStructure, error) {
	f.calls++
	return f.s, f.err
}

func newREST(t *testing.T, h http.HandlerFunc, opts ...RESTOption) *REST {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Finnhub.BaseURL = srv.URL
	cfg.Finnhub.APIKey = "tok"
	return NewREST(cfg, logger.NewNop(), opts...)
}

func TestFundamentalsScalesMillions(t *testing.T) {
	var hits int32
	mc := cache.NewMemoryCache()
	defer mc.Close()

	c := newREST(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "tok", r.Header.Get("X-Finnhub-Token"))
		assert.Equal(t, "/stock/metric", r.URL.Path)
		assert.Equal(t, "all", r.URL.Query().Get("metric"))
		assert.Equal(t, "KLTO", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"metric":{"sharesOutstanding":12.5,"floatShares":3.2,"marketCapitalization":27,"sharesShort":0.8,"shortRatio":1.5}}`))
	}, WithCache(mc))

	s, err := c.Fundamentals(context.Background(), "klto")
	require.NoError(t, err)
	assert.Equal(t, 12.5e6, s.SharesOutstanding)
	assert.InDelta(t, 3.2e6, s.FloatShares, 1e-6)
	assert.Equal(t, 27e6, s.MarketCap)
	assert.InDelta(t, 0.8e6, s.SharesShort, 1e-6)
	assert.Equal(t, 1.5, s.ShortRatio)
	assert.Equal(t, "finnhub", s.Source)

	again, err := c.Fundamentals(context.Background(), "KLTO")
	require.NoError(t, err)
	assert.Equal(t, s.FloatShares, again.FloatShares)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFundamentalsProfileAndFallback(t *testing.T) {
	fb := &stubFundamentals{s: &models.ShareStructure{FloatShares: 4e6, SharesOutstanding: 4e6, Source: "yahoo"}}
	c := newREST(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/stock/metric":
			_, _ = w.Write([]byte(`{"metric":{}}`))
		case "/stock/profile2":
			_, _ = w.Write([]byte(`{"shareOutstanding":6,"marketCapitalization":15}`))
		default:
			http.NotFound(w, r)
		}
	}, WithFallback(fb))

	s, err := c.Fundamentals(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 6e6, s.SharesOutstanding)
	assert.Equal(t, 4e6, s.FloatShares)
	assert.Equal(t, 15e6, s.MarketCap)
	assert.Equal(t, "finnhub+yahoo", s.Source)
	assert.Equal(t, 1, fb.calls)
}

func TestFundamentalsNoData(t *testing.T) {
	fb := &stubFundamentals{err: drepo.ErrNoData}
	c := newREST(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, WithFallback(fb))

	_, err := c.Fundamentals(context.Background(), "NONE")
	assert.ErrorIs(t, err, drepo.ErrNoData)
}

func TestRateLimitedRetriesOnce(t *testing.T) {
	var hits int32
	c := newREST(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"metric":{"sharesOutstanding":2,"floatShares":1}}`))
	}, WithBackoff(10*time.Millisecond))

	s, err := c.Fundamentals(context.Background(), "ABC")
	require.NoError(t, err)
	assert.Equal(t, 1e6, s.FloatShares)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestNewsFiltersAndSorts(t *testing.T) {
	to := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	from := to.Add(-48 * time.Hour)

	c := newREST(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/company-news", r.URL.Path)
		assert.Equal(t, "2026-10-17", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-10-19", r.URL.Query().Get("to"))
		older := to.Add(-10 * time.Hour).Unix()
		newer := to.Add(-1 * time.Hour).Unix()
		stale := to.Add(-72 * time.Hour).Unix()
		_, _ = w.Write([]byte(`[
			{"headline":"Older","datetime":` + itoa(older) + `},
			{"headline":"Stale","datetime":` + itoa(stale) + `},
			{"headline":"Newer","summary":"s","source":"Reuters","url":"u","datetime":` + itoa(newer) + `}
		]`))
	})

	items, err := c.News(context.Background(), "abc", from, to)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Newer", items[0].Headline)
	assert.Equal(t, "Reuters", items[0].Source)
	assert.Equal(t, "Older", items[1].Headline)
}

func TestNewsError(t *testing.T) {
	c := newREST(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.News(context.Background(), "ABC", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
