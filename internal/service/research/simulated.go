package research

import (
	"hash/fnv"
	"math/rand/v2"

	"GapScout/internal/domain/models"
	"GapScout/internal/services/gap"
)

const simulatedPeriod = 90

// Simulated returns plausible gap history for symbol, stable for a given seed.
// The result is tagged HasData=false so scoring treats it as neutral.
func Simulated(symbol string, seed uint64) *models.HistoricalGapStats {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	r := rand.New(rand.NewPCG(h.Sum64()^seed, seed))

	cont := 60 + r.IntN(21)
	fill := 25 + r.IntN(21)
	total := 30 + r.IntN(31)
	vf := gap.Round(1.5+r.Float64()*2, 1)
	avg := gap.Round(12+r.Float64()*13, 1)
	edge := 65 + r.IntN(21)

	s := &models.HistoricalGapStats{
		Symbol:              symbol,
		PeriodDays:          simulatedPeriod,
		TotalGaps:           total,
		ContinuationRatePct: float64(cont),
		FillRatePct:         float64(fill),
		VolumeFactor:        vf,
		AvgGapSizePct:       avg,
		GapEdgeScore:        edge,
		OverallEdgeScore:    edge,
		HasData:             false,
		Source:              models.StatsSourceSimulated,
	}
	s.StatisticalEdge = gap.StatisticalEdge(s.ContinuationRatePct, s.FillRatePct)
	s.Performance = gap.Performance(edge)
	s.Recommendations = gap.Recommendations(*s)
	return s
}
