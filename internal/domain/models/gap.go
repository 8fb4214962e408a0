package models

import (
	"math"
	"time"
)

// Direction is the sign of a gap.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Snapshot is the per-symbol market data a quote source returns.
type Snapshot struct {
	Symbol        string    `json:"symbol"`
	PreviousClose float64   `json:"previous_close"`
	LatestPrice   float64   `json:"latest_price"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// GapEvent is a detected gap that passed all filters.
type GapEvent struct {
	Symbol        string    `json:"symbol"`
	PreviousClose float64   `json:"previous_close"`
	CurrentPrice  float64   `json:"current_price"`
	GapPercent    float64   `json:"gap_percent"` // signed, unrounded
	Direction     Direction `json:"gap_direction"`
	Volume        int64     `json:"volume"`
	Timestamp     time.Time `json:"timestamp"`
}

// AbsGap returns the unsigned gap percentage.
func (g GapEvent) AbsGap() float64 { return math.Abs(g.GapPercent) }

// IsUp reports whether the gap is upward.
func (g GapEvent) IsUp() bool { return g.Direction == DirectionUp }
