package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"GapScout/internal/domain/models"
	"GapScout/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cycleTime = time.Date(2026, 10, 19, 12, 15, 0, 0, time.UTC)

func snap(sym string, prev, last float64, vol int64) *models.Snapshot {
	return &models.Snapshot{Symbol: sym, PreviousClose: prev, LatestPrice: last, Volume: vol, Timestamp: cycleTime}
}

func newTestScan(t *testing.T, q *fakeQuotes, cfg ScanConfig, mut func(*ScanDeps)) (*ScanUseCase, *recordDispatcher) {
	t.Helper()
	d := &recordDispatcher{}
	deps := ScanDeps{
		Quotes: q,
		Fundamentals: &fakeFundamentals{shares: map[string]models.ShareStructure{
			"KLTO": {Symbol: "KLTO", FloatShares: 3_200_000, SharesOutstanding: 8_000_000, MarketCap: 17_200_000},
		}},
		News: &fakeNews{items: map[string][]models.NewsItem{
			"KLTO": {{Headline: "KLTO receives FDA approval for lead candidate", PublishedAt: cycleTime.Add(-time.Hour)}},
		}},
		History:    &fakeHistory{},
		Dispatcher: d,
	}
	if mut != nil {
		mut(&deps)
	}
	uc := NewScanUseCase(cfg, deps, nil)
	uc.now = func() time.Time { return cycleTime }
	return uc, d
}

func watchlist() *fakeQuotes {
	return &fakeQuotes{
		snaps: map[string]*models.Snapshot{
			"KLTO": snap("KLTO", 2.15, 2.72, 850_000),
			"ABC":  snap("ABC", 4.00, 4.60, 300_000),
			"XYZ":  snap("XYZ", 10.00, 8.50, 120_000),
			"FLAT": snap("FLAT", 5.00, 5.05, 90_000),
			"BIG":  snap("BIG", 100, 130, 5_000_000),
		},
		errs: map[string]error{"ERR": errors.New("upstream 500")},
	}
}

func TestRunCycleRanksAndDispatchesTopN(t *testing.T) {
	pub := &recordPublisher{}
	uc, d := newTestScan(t, watchlist(), ScanConfig{
		Symbols: []string{"klto", "ABC", "XYZ", "FLAT", "BIG", "ERR", "NONE"},
		Workers: 3,
		TopN:    2,
	}, func(deps *ScanDeps) { deps.Publisher = pub })

	report, err := uc.RunCycle(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, 7, report.Scanned)
	assert.Equal(t, 3, report.Gaps)
	require.Len(t, report.Opportunities, 3)
	for i := 1; i < len(report.Opportunities); i++ {
		assert.GreaterOrEqual(t, report.Opportunities[i-1].RankScore, report.Opportunities[i].RankScore)
	}
	assert.Contains(t, report.Errors, "ERR")
	assert.NotContains(t, report.Errors, "NONE")

	assert.Len(t, report.Alerted, 2)
	assert.Equal(t, report.Alerted, d.symbols())
	assert.Equal(t, report.Opportunities[0].Gap.Symbol, report.Alerted[0])

	require.Len(t, pub.reports, 1)
	assert.Same(t, report, pub.reports[0])
	assert.Same(t, report, uc.Latest())
}

func TestRunCycleEnrichesKLTO(t *testing.T) {
	uc, _ := newTestScan(t, watchlist(), ScanConfig{Symbols: []string{"KLTO"}, TopN: 1}, nil)

	report, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)

	o := report.Opportunities[0]
	assert.Equal(t, models.DirectionUp, o.Gap.Direction)
	assert.InDelta(t, 26.51, o.Gap.GapPercent, 0.01)
	require.NotNil(t, o.Float)
	assert.Equal(t, models.FloatNano, o.Float.Category)
	require.NotNil(t, o.News)
	assert.True(t, o.News.HasCatalyst)
	require.NotNil(t, o.History)
	assert.True(t, o.Pattern.PatternType.Valid())
	assert.Equal(t, RankScore(o.Edge.TotalEdgeScore, o.Gap.AbsGap()), o.RankScore)
	assert.Contains(t, o.Alert, "KLTO")
	assert.Contains(t, o.Alert, "Float:")
}

func TestRunCycleDegradesWhenEnrichmentFails(t *testing.T) {
	uc, _ := newTestScan(t, watchlist(), ScanConfig{Symbols: []string{"KLTO"}, TopN: 1}, func(deps *ScanDeps) {
		deps.Fundamentals = &fakeFundamentals{err: errors.New("finnhub down")}
		deps.News = nil
		deps.History = nil
	})

	report, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)
	o := report.Opportunities[0]
	assert.Nil(t, o.Float)
	assert.Nil(t, o.News)
	assert.Nil(t, o.History)
	assert.NotContains(t, o.Alert, "Float:")
	assert.Empty(t, report.Errors)
}

func TestRunCycleIsolatesPanics(t *testing.T) {
	q := watchlist()
	q.panics = map[string]bool{"BOOM": true}
	uc, _ := newTestScan(t, q, ScanConfig{Symbols: []string{"BOOM", "KLTO"}, TopN: 3}, nil)

	report, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Errors["BOOM"], "panic")
	require.Len(t, report.Opportunities, 1)
	assert.Equal(t, "KLTO", report.Opportunities[0].Gap.Symbol)
}

func TestRunCycleIsolatesEnrichmentPanics(t *testing.T) {
	m := &countMetrics{}
	uc, d := newTestScan(t, watchlist(), ScanConfig{Symbols: []string{"ABC", "KLTO"}, TopN: 3}, func(deps *ScanDeps) {
		deps.News = &fakeNews{panics: map[string]bool{"ABC": true}}
		deps.Metrics = m
	})

	report, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.Errors["ABC"], "panic in news")
	require.Len(t, report.Opportunities, 1)
	assert.Equal(t, "KLTO", report.Opportunities[0].Gap.Symbol)
	assert.Equal(t, []string{"KLTO"}, d.symbols())
	assert.Equal(t, 1, m.errors["panic"])
}

func TestRunCycleCooldown(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	uc, d := newTestScan(t, watchlist(), ScanConfig{
		Symbols:  []string{"KLTO", "ABC"},
		TopN:     2,
		Cooldown: 30 * time.Minute,
	}, func(deps *ScanDeps) { deps.Cache = mc })

	first, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.Alerted, 2)

	second, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Alerted)
	assert.Len(t, d.symbols(), 2)
	assert.Len(t, second.Opportunities, 2)
}

func TestRunCycleSummary(t *testing.T) {
	uc, d := newTestScan(t, watchlist(), ScanConfig{
		Symbols: []string{"KLTO", "ABC", "XYZ"},
		TopN:    2,
		Summary: true,
	}, nil)

	_, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, d.sent, 3)
	assert.Contains(t, d.sent[2].text, "Scan Summary")
}

func TestRunCycleSummaryListsOnlySentAlerts(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	ok, err := mc.TryLock(context.Background(), cache.CooldownKey("KLTO"), time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	uc, d := newTestScan(t, watchlist(), ScanConfig{
		Symbols:  []string{"KLTO", "ABC"},
		TopN:     2,
		Cooldown: time.Hour,
		Summary:  true,
	}, func(deps *ScanDeps) { deps.Cache = mc })

	report, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 2)
	assert.Equal(t, []string{"ABC"}, report.Alerted)

	require.Len(t, d.sent, 2)
	summary := d.sent[1].text
	assert.Contains(t, summary, "Opportunities: 1")
	assert.Contains(t, summary, "$ABC")
	assert.NotContains(t, summary, "$KLTO")
}

func TestRunCycleDispatchFailureNotAlerted(t *testing.T) {
	uc, d := newTestScan(t, watchlist(), ScanConfig{Symbols: []string{"KLTO"}, TopN: 1}, nil)
	d.err = errors.New("queue full")

	report, err := uc.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Opportunities, 1)
	assert.Empty(t, report.Alerted)
}

func TestRunCycleCancelledIsDiscarded(t *testing.T) {
	uc, d := newTestScan(t, watchlist(), ScanConfig{Symbols: []string{"KLTO", "ABC"}, TopN: 2}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := uc.RunCycle(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, report)
	assert.Nil(t, uc.Latest())
	assert.Empty(t, d.symbols())
}

func TestAnalyzeForceBypassesThresholds(t *testing.T) {
	uc, d := newTestScan(t, watchlist(), ScanConfig{TopN: 3}, nil)

	report, err := uc.Analyze(context.Background(), []string{"FLAT"}, false)
	require.NoError(t, err)
	assert.Empty(t, report.Opportunities)

	report, err = uc.Analyze(context.Background(), []string{"FLAT"}, true)
	require.NoError(t, err)
	require.Len(t, report.Opportunities, 1)
	assert.InDelta(t, 1.0, report.Opportunities[0].Gap.GapPercent, 1e-9)
	assert.Empty(t, d.symbols())
	assert.Nil(t, uc.Latest())

	_, err = uc.Analyze(context.Background(), nil, false)
	assert.Error(t, err)
}

func TestRankScore(t *testing.T) {
	assert.Equal(t, 0.7*80+0.3*26.5, RankScore(80, 26.5))
	assert.Equal(t, 0.7*50+30.0, RankScore(50, 250))
}

func TestRankTies(t *testing.T) {
	opps := []models.Opportunity{
		{Gap: models.GapEvent{Symbol: "B", GapPercent: 10}, RankScore: 50},
		{Gap: models.GapEvent{Symbol: "A", GapPercent: -10}, RankScore: 50},
		{Gap: models.GapEvent{Symbol: "C", GapPercent: 12}, RankScore: 50},
		{Gap: models.GapEvent{Symbol: "D", GapPercent: 5}, RankScore: 70},
	}
	Rank(opps)

	var got []string
	for _, o := range opps {
		got = append(got, o.Gap.Symbol)
	}
	assert.Equal(t, []string{"D", "C", "A", "B"}, got)
}
