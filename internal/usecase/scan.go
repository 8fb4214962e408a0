package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/internal/services/alert"
	"GapScout/internal/services/edge"
	"GapScout/internal/services/float"
	"GapScout/internal/services/gap"
	"GapScout/internal/services/news"
	"GapScout/internal/services/pattern"
	"GapScout/internal/services/session"
	"GapScout/pkg/cache"
	"GapScout/pkg/logger"
	"GapScout/pkg/metrics"

	"github.com/google/uuid"
)

// Dispatcher hands formatted alerts to a sink, possibly asynchronously.
type Dispatcher interface {
	Dispatch(ctx context.Context, symbol, text string) error
}

// ScanConfig holds the cycle knobs.
type ScanConfig struct {
	Symbols       []string
	Workers       int
	SymbolTimeout time.Duration
	NewsLookback  time.Duration
	TopN          int
	Cooldown      time.Duration
	Summary       bool
}

// ScanDeps are the collaborators of a scan cycle. Fundamentals, News,
// History, Cache and Publisher are optional.
type ScanDeps struct {
	Quotes       drepo.QuoteSource
	Fundamentals drepo.FundamentalsSource
	News         drepo.NewsSource
	History      drepo.HistoricalStatsSource
	Detector     *gap.Detector
	Analyzer     pattern.Analyzer
	Scorer       *edge.Scorer
	Formatter    *alert.Formatter
	Clock        *session.Clock
	Dispatcher   Dispatcher
	Publisher    drepo.ResultPublisher
	Cache        cache.Service
	Metrics      drepo.Metrics
}

// ScanUseCase runs the detect → enrich → classify → score → alert pipeline
// over a watchlist.
type ScanUseCase struct {
	cfg  ScanConfig
	deps ScanDeps

	floats *float.Classifier
	news   *news.Scanner
	log    *logger.Logger
	now    func() time.Time

	mu     sync.RWMutex
	latest *models.ScanReport
}

func NewScanUseCase(cfg ScanConfig, deps ScanDeps, log *logger.Logger) *ScanUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.SymbolTimeout <= 0 {
		cfg.SymbolTimeout = 20 * time.Second
	}
	if cfg.NewsLookback <= 0 {
		cfg.NewsLookback = 48 * time.Hour
	}
	if deps.Detector == nil {
		deps.Detector = gap.NewDetector()
	}
	if deps.Analyzer == nil {
		deps.Analyzer = pattern.NewLocalAnalyzer()
	}
	if log == nil {
		log = logger.NewNop()
	}
	if deps.Scorer == nil {
		deps.Scorer = edge.NewScorer(log)
	}
	if deps.Formatter == nil {
		deps.Formatter = alert.NewFormatter()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	return &ScanUseCase{
		cfg:    cfg,
		deps:   deps,
		floats: float.NewClassifier(),
		news:   news.NewScanner(),
		log:    log.With(logger.String("component", "scan")),
		now:    time.Now,
	}
}

// Latest returns the most recent completed report, or nil.
func (uc *ScanUseCase) Latest() *models.ScanReport {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.latest
}

// RunCycle scans the watchlist, dispatches the top alerts, publishes the report
// and keeps it as the latest. A cancelled cycle is discarded.
func (uc *ScanUseCase) RunCycle(ctx context.Context) (*models.ScanReport, error) {
	report, err := uc.evaluate(ctx, uc.cfg.Symbols, false)
	if err != nil {
		return nil, err
	}

	var sent []models.Opportunity
	for _, o := range report.Top(uc.cfg.TopN) {
		if !uc.claim(ctx, o.Gap.Symbol) {
			uc.log.Debug("alert suppressed by cooldown", logger.String("symbol", o.Gap.Symbol))
			continue
		}
		if err := uc.dispatch(ctx, o.Gap.Symbol, o.Alert); err != nil {
			continue
		}
		report.Alerted = append(report.Alerted, o.Gap.Symbol)
		sent = append(sent, o)
	}
	if uc.cfg.Summary && len(sent) > 0 {
		_ = uc.dispatch(ctx, "", uc.deps.Formatter.Summary(sent, report.FinishedAt))
	}

	if uc.deps.Publisher != nil {
		if err := uc.deps.Publisher.PublishReport(ctx, report); err != nil {
			uc.deps.Metrics.RecordError("publish")
			uc.log.Warn("publish report failed", logger.String("id", report.ID), logger.Error(err))
		}
	}

	uc.mu.Lock()
	uc.latest = report
	uc.mu.Unlock()

	uc.log.Info("scan cycle complete",
		logger.String("id", report.ID),
		logger.String("session", report.Session),
		logger.Int("scanned", report.Scanned),
		logger.Int("gaps", report.Gaps),
		logger.Int("alerted", len(report.Alerted)),
		logger.Int("errors", len(report.Errors)),
		logger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// Analyze runs the pipeline on symbols without dispatching or publishing.
// With force the gap thresholds are bypassed.
func (uc *ScanUseCase) Analyze(ctx context.Context, symbols []string, force bool) (*models.ScanReport, error) {
	if len(symbols) == 0 {
		return nil, errors.New("at least one symbol required")
	}
	return uc.evaluate(ctx, symbols, force)
}

func (uc *ScanUseCase) dispatch(ctx context.Context, symbol, text string) error {
	if uc.deps.Dispatcher == nil {
		return errors.New("no dispatcher")
	}
	if err := uc.deps.Dispatcher.Dispatch(ctx, symbol, text); err != nil {
		uc.deps.Metrics.RecordError("dispatch")
		uc.log.Warn("alert dispatch failed", logger.String("symbol", symbol), logger.Error(err))
		return err
	}
	return nil
}

// claim takes the per-symbol cooldown lock. Cache failures never block alerts.
func (uc *ScanUseCase) claim(ctx context.Context, symbol string) bool {
	if uc.deps.Cache == nil || uc.cfg.Cooldown <= 0 {
		return true
	}
	ok, err := uc.deps.Cache.TryLock(ctx, cache.CooldownKey(symbol), uc.cfg.Cooldown)
	if err != nil {
		uc.log.Warn("cooldown lock failed", logger.String("symbol", symbol), logger.Error(err))
		return true
	}
	return ok
}

type symbolResult struct {
	symbol string
	gap    bool
	opp    *models.Opportunity
	err    error
}

func (uc *ScanUseCase) evaluate(ctx context.Context, symbols []string, force bool) (*models.ScanReport, error) {
	start := uc.now()
	report := &models.ScanReport{
		ID:        uuid.NewString(),
		StartedAt: start,
		Scanned:   len(symbols),
		Errors:    map[string]string{},
	}
	if uc.deps.Clock != nil {
		report.Session = string(uc.deps.Clock.Status(start))
	}

	jobs := make(chan string)
	out := make(chan symbolResult, len(symbols))
	var wg sync.WaitGroup
	for i := 0; i < min(uc.cfg.Workers, max(len(symbols), 1)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				out <- uc.processSymbol(ctx, sym, force)
			}
		}()
	}

feed:
	for _, s := range symbols {
		select {
		case jobs <- strings.ToUpper(strings.TrimSpace(s)):
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(out)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan cycle aborted: %w", err)
	}

	for r := range out {
		if r.err != nil {
			report.Errors[r.symbol] = r.err.Error()
		}
		if r.gap {
			report.Gaps++
		}
		if r.opp != nil {
			report.Opportunities = append(report.Opportunities, *r.opp)
		}
	}
	Rank(report.Opportunities)
	if len(report.Errors) == 0 {
		report.Errors = nil
	}

	report.FinishedAt = uc.now()
	uc.deps.Metrics.RecordScan(report.Session, report.FinishedAt.Sub(start).Seconds())
	return report, nil
}

func (uc *ScanUseCase) processSymbol(ctx context.Context, symbol string, force bool) (res symbolResult) {
	res.symbol = symbol
	defer func() {
		if r := recover(); r != nil {
			uc.deps.Metrics.RecordError("panic")
			uc.log.Error("symbol pipeline panicked", logger.String("symbol", symbol), logger.Any("panic", r))
			res = symbolResult{symbol: symbol, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.SymbolTimeout)
	defer cancel()

	started := time.Now()
	snap, err := uc.deps.Quotes.Snapshot(ctx, symbol)
	uc.deps.Metrics.RecordLatency("snapshot", time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, drepo.ErrNoData) {
			uc.log.Debug("no market data", logger.String("symbol", symbol))
			return res
		}
		uc.deps.Metrics.RecordError("snapshot")
		res.err = err
		return res
	}

	var g *models.GapEvent
	if force {
		g, err = uc.deps.Detector.Evaluate(*snap)
	} else {
		g, err = uc.deps.Detector.Detect(*snap)
	}
	if err != nil {
		uc.log.Warn("degenerate snapshot", logger.String("symbol", symbol), logger.Error(err))
		res.err = err
		return res
	}
	if g == nil {
		return res
	}
	res.gap = true
	uc.deps.Metrics.RecordGap(g.Symbol, string(g.Direction))

	fl, nw, hist, err := uc.enrich(ctx, *g)
	if err != nil {
		res.err = err
		return res
	}

	in := pattern.Input{Gap: g, Float: fl, News: nw, History: hist}
	pr, err := uc.deps.Analyzer.Analyze(ctx, in)
	if err != nil {
		uc.log.Warn("pattern analysis failed", logger.String("symbol", symbol), logger.Error(err))
		pr = pattern.Fallback(g)
	}

	es := uc.deps.Scorer.Score(edge.Input{Gap: g, History: hist, Float: fl, News: nw, Pattern: &pr})
	text := uc.deps.Formatter.Format(alert.Input{Gap: *g, Pattern: pr, Edge: es, History: hist, Float: fl})

	uc.deps.Metrics.RecordOpportunity(string(pr.PatternType), es.TotalEdgeScore)
	res.opp = &models.Opportunity{
		Gap:       *g,
		Float:     fl,
		News:      nw,
		History:   hist,
		Pattern:   pr,
		Edge:      es,
		RankScore: RankScore(es.TotalEdgeScore, g.AbsGap()),
		Alert:     text,
	}
	return res
}

// enrich fetches float, news and history concurrently. Each degrades to nil
// on error; a panicking source fails the symbol.
func (uc *ScanUseCase) enrich(ctx context.Context, g models.GapEvent) (*models.FloatProfile, *models.NewsCatalyst, *models.HistoricalGapStats, error) {
	type item struct {
		name     string
		val      interface{}
		err      error
		panicked bool
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup
	guard := func(name string) {
		if r := recover(); r != nil {
			ch <- item{name: name, err: fmt.Errorf("panic in %s: %v", name, r), panicked: true}
		}
	}

	if uc.deps.Fundamentals != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer guard("float")
			s, err := uc.deps.Fundamentals.Fundamentals(ctx, g.Symbol)
			if err != nil {
				ch <- item{name: "float", err: err}
				return
			}
			ch <- item{name: "float", val: uc.floats.Classify(*s)}
		}()
	}
	if uc.deps.News != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer guard("news")
			to := uc.now()
			items, err := uc.deps.News.News(ctx, g.Symbol, to.Add(-uc.cfg.NewsLookback), to)
			if err != nil {
				ch <- item{name: "news", err: err}
				return
			}
			cat := uc.news.Scan(g.Symbol, items)
			ch <- item{name: "news", val: &cat}
		}()
	}
	if uc.deps.History != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer guard("history")
			ch <- item{name: "history", val: uc.deps.History.Stats(ctx, g.Symbol)}
		}()
	}

	go func() { wg.Wait(); close(ch) }()

	var (
		fl     *models.FloatProfile
		nw     *models.NewsCatalyst
		hist   *models.HistoricalGapStats
		failed error
	)
	for it := range ch {
		if it.panicked {
			uc.deps.Metrics.RecordError("panic")
			uc.log.Error("enrichment panicked", logger.String("symbol", g.Symbol),
				logger.String("source", it.name), logger.Error(it.err))
			failed = errors.Join(failed, it.err)
			continue
		}
		if it.err != nil {
			if !errors.Is(it.err, drepo.ErrNoData) {
				uc.deps.Metrics.RecordError(it.name)
				uc.log.Warn("enrichment failed", logger.String("symbol", g.Symbol),
					logger.String("source", it.name), logger.Error(it.err))
			}
			continue
		}
		switch v := it.val.(type) {
		case *models.FloatProfile:
			fl = v
		case *models.NewsCatalyst:
			nw = v
		case *models.HistoricalGapStats:
			hist = v
		}
	}
	return fl, nw, hist, failed
}

// RankScore blends edge with gap size: 0.7×edge + 0.3×min(|gap|, 100).
func RankScore(edgeScore, absGap float64) float64 {
	return gap.Round(0.7*edgeScore+0.3*math.Min(absGap, 100), 2)
}

// Rank orders opportunities by rank score, then |gap|, then symbol.
func Rank(opps []models.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.RankScore != b.RankScore {
			return a.RankScore > b.RankScore
		}
		if a.Gap.AbsGap() != b.Gap.AbsGap() {
			return a.Gap.AbsGap() > b.Gap.AbsGap()
		}
		return a.Gap.Symbol < b.Gap.Symbol
	})
}
