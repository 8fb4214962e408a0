package gap

import (
	"fmt"

	"GapScout/internal/domain/models"
)

// EdgeScoreFromStats scores a symbol's gap history on 0-100.
func EdgeScoreFromStats(h models.HistoricalGapStats) int {
	score := 50

	switch {
	case h.GapFrequencyPct > 15:
		score += 15
	case h.GapFrequencyPct > 10:
		score += 10
	case h.GapFrequencyPct > 5:
		score += 5
	}

	switch {
	case h.ContinuationRatePct > 70:
		score += 20
	case h.ContinuationRatePct > 60:
		score += 15
	case h.ContinuationRatePct > 50:
		score += 10
	}

	switch {
	case h.FillRatePct < 30:
		score += 15
	case h.FillRatePct < 50:
		score += 10
	case h.FillRatePct > 80:
		score -= 10
	}

	switch {
	case h.VolumeFactor > 3:
		score += 10
	case h.VolumeFactor > 2:
		score += 5
	}

	switch {
	case h.AvgGapSizePct > 15:
		score += 10
	case h.AvgGapSizePct > 10:
		score += 5
	}

	return clampInt(score, 0, 100)
}

// StatisticalEdge describes the dominant behaviour of past gaps.
func StatisticalEdge(cont, fill float64) string {
	switch {
	case cont > 70 && fill < 40:
		return "Strong bullish momentum"
	case cont > 60 && fill < 50:
		return "Moderate momentum bias"
	case fill > 80:
		return "Gap fill tendency"
	default:
		return "Neutral statistical profile"
	}
}

// Performance labels an edge score.
func Performance(edge int) string {
	switch {
	case edge >= 80:
		return "Excellent"
	case edge >= 70:
		return "Good"
	case edge >= 60:
		return "Fair"
	default:
		return "Poor"
	}
}

// Recommendations returns trading notes derived from gap history.
func Recommendations(h models.HistoricalGapStats) []string {
	var recs []string
	if h.ContinuationRatePct > 70 {
		recs = append(recs, fmt.Sprintf("High %.0f%% continuation rate supports momentum", h.ContinuationRatePct))
	}
	if h.FillRatePct < 40 {
		recs = append(recs, "Low gap fill tendency")
	}
	if h.VolumeFactor > 2 {
		recs = append(recs, "Above average volume during gaps")
	}
	if len(recs) == 0 {
		recs = append(recs, "Standard gap trading approach")
	}
	return recs
}

// Enrich fills the derived fields of h from its raw rates.
func Enrich(h *models.HistoricalGapStats) {
	h.GapEdgeScore = EdgeScoreFromStats(*h)
	if h.OverallEdgeScore == 0 {
		h.OverallEdgeScore = h.GapEdgeScore
	}
	h.StatisticalEdge = StatisticalEdge(h.ContinuationRatePct, h.FillRatePct)
	h.Performance = Performance(h.OverallEdgeScore)
	h.Recommendations = Recommendations(*h)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
