package repository

import (
	"context"
	"errors"
	"time"

	"GapScout/internal/domain/models"
)

// ErrNoData is returned by sources that have nothing for a symbol.
var ErrNoData = errors.New("no data")

// QuoteSource returns the latest snapshot for a symbol.
type QuoteSource interface {
	Snapshot(ctx context.Context, symbol string) (*models.Snapshot, error)
}

// FundamentalsSource returns raw share structure for a symbol.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (*models.ShareStructure, error)
}

// NewsSource returns company news published in [from, to], newest first.
type NewsSource interface {
	News(ctx context.Context, symbol string, from, to time.Time) ([]models.NewsItem, error)
}

// HistoricalStatsSource returns aggregated gap history. It never fails:
// implementations substitute values tagged HasData=false instead.
type HistoricalStatsSource interface {
	Stats(ctx context.Context, symbol string) *models.HistoricalGapStats
}

// PatternAdvisor is an optional external classifier combined with the local one.
type PatternAdvisor interface {
	Classify(ctx context.Context, gap models.GapEvent, float *models.FloatProfile, news *models.NewsCatalyst, hist *models.HistoricalGapStats) (*models.PatternResult, error)
}

// AlertSink delivers formatted alert text.
type AlertSink interface {
	Send(ctx context.Context, text string) error
}

// ResultPublisher fans finished scan reports out to downstream consumers.
type ResultPublisher interface {
	PublishReport(ctx context.Context, report *models.ScanReport) error
	Close() error
}

// MarketStream is a realtime trade feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan *models.Trade, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Metrics interface {
	RecordScan(session string, seconds float64)
	RecordGap(symbol string, direction string)
	RecordOpportunity(pattern string, edge float64)
	RecordAlertSent(sink string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
