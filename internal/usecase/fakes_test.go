package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
)

type fakeQuotes struct {
	snaps  map[string]*models.Snapshot
	errs   map[string]error
	panics map[string]bool
}

func (f *fakeQuotes) Snapshot(_ context.Context, symbol string) (*models.Snapshot, error) {
	if f.panics[symbol] {
		panic("boom")
	}
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	s, ok := f.snaps[strings.ToUpper(symbol)]
	if !ok {
		return nil, drepo.ErrNoData
	}
	cp := *s
	return &cp, nil
}

type fakeFundamentals struct {
	shares map[string]models.ShareStructure
	err    error
}

func (f *fakeFundamentals) Fundamentals(_ context.Context, symbol string) (*models.ShareStructure, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.shares[symbol]
	if !ok {
		return nil, drepo.ErrNoData
	}
	return &s, nil
}

type fakeNews struct {
	items  map[string][]models.NewsItem
	panics map[string]bool
}

func (f *fakeNews) News(_ context.Context, symbol string, _, _ time.Time) ([]models.NewsItem, error) {
	if f.panics[symbol] {
		panic("news feed exploded")
	}
	return f.items[symbol], nil
}

type fakeHistory struct {
	stats map[string]*models.HistoricalGapStats
}

func (f *fakeHistory) Stats(_ context.Context, symbol string) *models.HistoricalGapStats {
	if s, ok := f.stats[symbol]; ok {
		return s
	}
	return &models.HistoricalGapStats{Symbol: symbol, Source: models.StatsSourceSimulated}
}

type sentAlert struct {
	symbol string
	text   string
}

type recordDispatcher struct {
	mu   sync.Mutex
	sent []sentAlert
	err  error
}

func (r *recordDispatcher) Dispatch(_ context.Context, symbol, text string) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentAlert{symbol, text})
	return nil
}

func (r *recordDispatcher) symbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.sent {
		out = append(out, s.symbol)
	}
	return out
}

type recordSink struct {
	mu    sync.Mutex
	texts []string
	at    []time.Time
	fail  bool
}

func (s *recordSink) Name() string { return "record" }

func (s *recordSink) Send(_ context.Context, text string) error {
	if s.fail {
		return errors.New("sink down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	s.at = append(s.at, time.Now())
	return nil
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}

type recordPublisher struct {
	mu      sync.Mutex
	reports []*models.ScanReport
}

func (p *recordPublisher) PublishReport(_ context.Context, r *models.ScanReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return nil
}

func (p *recordPublisher) Close() error { return nil }

type countMetrics struct {
	mu     sync.Mutex
	alerts int
	errors map[string]int
}

func (m *countMetrics) RecordScan(string, float64)        {}
func (m *countMetrics) RecordGap(string, string)          {}
func (m *countMetrics) RecordOpportunity(string, float64) {}
func (m *countMetrics) RecordLastPrice(string, float64)   {}
func (m *countMetrics) RecordLatency(string, float64)     {}
func (m *countMetrics) RecordAlertSent(string)            { m.mu.Lock(); m.alerts++; m.mu.Unlock() }
func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

var _ drepo.Metrics = (*countMetrics)(nil)
