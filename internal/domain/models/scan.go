package models

import "time"

// Opportunity is one fully analysed gap.
type Opportunity struct {
	Gap       GapEvent            `json:"gap"`
	Float     *FloatProfile       `json:"float,omitempty"`
	News      *NewsCatalyst       `json:"news,omitempty"`
	History   *HistoricalGapStats `json:"history,omitempty"`
	Pattern   PatternResult       `json:"pattern"`
	Edge      EdgeScore           `json:"edge"`
	RankScore float64             `json:"rank_score"`
	Alert     string              `json:"alert"`
}

// ScanReport is the outcome of a single scan cycle.
type ScanReport struct {
	ID            string            `json:"id"`
	Session       string            `json:"session"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	Scanned       int               `json:"scanned"`
	Gaps          int               `json:"gaps"`
	Opportunities []Opportunity     `json:"opportunities"`
	Alerted       []string          `json:"alerted,omitempty"`
	Errors        map[string]string `json:"errors,omitempty"`
}

// Top returns at most n leading opportunities.
func (r *ScanReport) Top(n int) []Opportunity {
	if r == nil || n <= 0 {
		return nil
	}
	if n > len(r.Opportunities) {
		n = len(r.Opportunities)
	}
	return r.Opportunities[:n]
}
