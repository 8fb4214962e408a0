package gap

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"GapScout/internal/domain/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrDegenerateClose is returned when the previous close is zero or negative.
	ErrDegenerateClose = errors.New("previous close must be positive")
	// ErrNoPrice is returned when the current price is missing.
	ErrNoPrice = errors.New("current price must be positive")
)

// Thresholds filter which gaps are reported.
type Thresholds struct {
	MinGapPercent float64
	MinPrice      float64
	MaxPrice      float64
	MinVolume     int64 // 0 disables
}

// DefaultThresholds returns the standard small-cap filter.
func DefaultThresholds() Thresholds {
	return Thresholds{MinGapPercent: 5, MinPrice: 0.50, MaxPrice: 20}
}

type Option func(*Thresholds)

func WithMinGapPercent(p float64) Option { return func(t *Thresholds) { t.MinGapPercent = p } }

func WithPriceRange(lo, hi float64) Option {
	return func(t *Thresholds) { t.MinPrice, t.MaxPrice = lo, hi }
}

func WithMinVolume(v int64) Option { return func(t *Thresholds) { t.MinVolume = v } }

// Detector turns snapshots into gap events.
type Detector struct {
	th Thresholds
}

func NewDetector(opts ...Option) *Detector {
	th := DefaultThresholds()
	for _, o := range opts {
		o(&th)
	}
	return &Detector{th: th}
}

// Thresholds returns the active filter.
func (d *Detector) Thresholds() Thresholds { return d.th }

// Percent returns the signed gap percentage.
func Percent(current, previousClose float64) (float64, error) {
	if previousClose <= 0 {
		return 0, ErrDegenerateClose
	}
	if current <= 0 {
		return 0, ErrNoPrice
	}
	return (current - previousClose) / previousClose * 100, nil
}

// Detect returns the gap for s, nil if s is filtered out, or an error for
// degenerate input.
func (d *Detector) Detect(s models.Snapshot) (*models.GapEvent, error) {
	pct, err := Percent(s.LatestPrice, s.PreviousClose)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Symbol, err)
	}
	if s.LatestPrice < d.th.MinPrice || s.LatestPrice > d.th.MaxPrice {
		return nil, nil
	}
	if math.Abs(pct) < d.th.MinGapPercent {
		return nil, nil
	}
	if d.th.MinVolume > 0 && s.Volume < d.th.MinVolume {
		return nil, nil
	}
	return Event(s, pct), nil
}

// Evaluate builds a gap event for s without applying thresholds.
func (d *Detector) Evaluate(s models.Snapshot) (*models.GapEvent, error) {
	pct, err := Percent(s.LatestPrice, s.PreviousClose)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Symbol, err)
	}
	return Event(s, pct), nil
}

func Event(s models.Snapshot, pct float64) *models.GapEvent {
	dir := models.DirectionDown
	if pct > 0 {
		dir = models.DirectionUp
	}
	return &models.GapEvent{
		Symbol:        strings.ToUpper(s.Symbol),
		PreviousClose: s.PreviousClose,
		CurrentPrice:  s.LatestPrice,
		GapPercent:    pct,
		Direction:     dir,
		Volume:        s.Volume,
		Timestamp:     s.Timestamp,
	}
}

// SortByMagnitude orders gaps by |gap| descending, then symbol.
func SortByMagnitude(gaps []models.GapEvent) {
	sort.SliceStable(gaps, func(i, j int) bool {
		ai, aj := gaps[i].AbsGap(), gaps[j].AbsGap()
		if ai != aj {
			return ai > aj
		}
		return gaps[i].Symbol < gaps[j].Symbol
	})
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// FormatPercent renders a percentage with places decimals.
func FormatPercent(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
