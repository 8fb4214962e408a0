package models

const (
	StatsSourceResearch  = "research"
	StatsSourceCache     = "cache"
	StatsSourceSimulated = "simulated"
)

// HistoricalGapStats aggregates how a symbol's past gaps behaved.
// HasData is false when the values were substituted.
type HistoricalGapStats struct {
	Symbol              string   `json:"symbol"`
	PeriodDays          int      `json:"period_days"`
	TotalGaps           int      `json:"total_gaps"`
	GapFrequencyPct     float64  `json:"gap_frequency_pct"`
	ContinuationRatePct float64  `json:"continuation_rate_pct"`
	FillRatePct         float64  `json:"fill_rate_pct"`
	ReversalRatePct     float64  `json:"reversal_rate_pct"`
	AvgGapSizePct       float64  `json:"avg_gap_size_pct"`
	MaxGapPct           float64  `json:"max_gap_pct"`
	GapsUp              int      `json:"gaps_up"`
	GapsDown            int      `json:"gaps_down"`
	AvgHoursToFill      float64  `json:"avg_hours_to_fill"`
	VolumeFactor        float64  `json:"volume_factor"`
	GapEdgeScore        int      `json:"gap_edge_score"`
	OverallEdgeScore    int      `json:"overall_edge_score"`
	StatisticalEdge     string   `json:"statistical_edge"`
	Performance         string   `json:"performance"`
	Recommendations     []string `json:"recommendations,omitempty"`
	HasData             bool     `json:"has_data"`
	Source              string   `json:"source"`
}

// Real reports whether the stats came from the upstream source. Safe on nil.
func (h *HistoricalGapStats) Real() bool { return h != nil && h.HasData }
