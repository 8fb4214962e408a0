package pattern

import (
	"testing"

	"GapScout/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gapEvent(sym string, pct float64, vol int64) *models.GapEvent {
	dir := models.DirectionUp
	if pct < 0 {
		dir = models.DirectionDown
	}
	return &models.GapEvent{Symbol: sym, PreviousClose: 2, CurrentPrice: 2 * (1 + pct/100), GapPercent: pct, Direction: dir, Volume: vol}
}

func floatOf(shares float64, cat models.FloatCategory, squeeze int) *models.FloatProfile {
	return &models.FloatProfile{FloatShares: shares, Category: cat, SqueezePotential: squeeze}
}

func catalyst(strength int, typ models.CatalystType) *models.NewsCatalyst {
	return &models.NewsCatalyst{HasCatalyst: true, CatalystStrength: strength, CatalystType: typ, CatalystScore: 35}
}

func realHistory(edge int, cont, fill, vf float64) *models.HistoricalGapStats {
	return &models.HistoricalGapStats{
		HasData: true, GapEdgeScore: edge, ContinuationRatePct: cont, FillRatePct: fill,
		VolumeFactor: vf, TotalGaps: 45, StatisticalEdge: "Strong bullish momentum",
	}
}

func kltoInput() Input {
	return Input{
		Gap:     gapEvent("KLTO", 26.5116, 850_000),
		Float:   floatOf(3_200_000, models.FloatNano, 95),
		News:    catalyst(70, models.CatalystModerate),
		History: realHistory(85, 72, 35, 2.8),
	}
}

func TestTypePriority(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want models.PatternType
	}{
		{"nano squeeze", Input{Gap: gapEvent("A", 12, 0), Float: floatOf(3e6, models.FloatNano, 95)}, models.PatternFloatSqueeze},
		{"micro squeeze", Input{Gap: gapEvent("A", 16, 0), Float: floatOf(7e6, models.FloatMicro, 80)}, models.PatternFloatSqueeze},
		{"micro below squeeze", Input{Gap: gapEvent("A", 12, 60_000), Float: floatOf(7e6, models.FloatMicro, 80)}, models.PatternGapAndGo},
		{"news", Input{Gap: gapEvent("A", 9, 0), News: catalyst(70, models.CatalystModerate)}, models.PatternNewsCatalyst},
		{"weak news", Input{Gap: gapEvent("A", 9, 0), News: catalyst(50, models.CatalystWeak)}, models.PatternStandardGap},
		{"mega", Input{Gap: gapEvent("A", -35, 0)}, models.PatternMegaGap},
		{"stat edge", Input{Gap: gapEvent("A", 9, 0), History: realHistory(80, 60, 50, 1)}, models.PatternStatisticalEdge},
		{"simulated history ignored", Input{Gap: gapEvent("A", 9, 0), History: &models.HistoricalGapStats{GapEdgeScore: 85}}, models.PatternStandardGap},
		{"gap and go", Input{Gap: gapEvent("A", 10, 50_001)}, models.PatternGapAndGo},
		{"gap and go needs volume", Input{Gap: gapEvent("A", 10, 50_000)}, models.PatternStandardGap},
		{"micro float", Input{Gap: gapEvent("A", 6, 0), Float: floatOf(7e6, models.FloatMicro, 80)}, models.PatternMicroFloat},
		{"standard", Input{Gap: gapEvent("A", 6, 0)}, models.PatternStandardGap},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Type(c.in))
		})
	}
}

func TestTypeDeterministic(t *testing.T) {
	in := kltoInput()
	first := NewClassifier().Classify(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, NewClassifier().Classify(in))
	}
}

func TestClassifyKLTO(t *testing.T) {
	res := NewClassifier().Classify(kltoInput())

	assert.Equal(t, "KLTO", res.Symbol)
	assert.Equal(t, models.PatternFloatSqueeze, res.PatternType)
	// 35 + 28 + 14 + 10 + 15 + 2 capped
	assert.Equal(t, 100, res.SetupQuality)
	assert.Equal(t, 100, res.Confidence)
	assert.Equal(t, models.AnalysisLocal, res.AnalysisSource)
	assert.Equal(t, []string{
		"Large gap", "Nano float", "Moderate catalyst",
		"High statistical edge", "72% continuation rate", "Low gap fill tendency", "High volume multiplier",
	}, res.KeyFactors)
	// 2 (gap) + 2 (nano) + 1 (news) - 1 (history) = 4
	assert.Equal(t, models.RiskHigh, res.RiskLevel)
	assert.Equal(t, "Small float (3.2M) with 26.5% gap. Limited supply can amplify moves. "+
		"Watch for volume confirmation and momentum continuation. Nano float (<5M) increases volatility potential. "+
		"News catalyst adds momentum factor. Historically shows 72% continuation rate. Only 35% of gaps typically fill.",
		res.Playbook)
}

func TestSetupQualityMinimal(t *testing.T) {
	in := Input{Gap: gapEvent("A", 6, 60_000)}
	assert.Equal(t, 18, SetupQuality(in))
	res := NewClassifier().Classify(in)
	assert.Equal(t, 28, res.Confidence)
	assert.Equal(t, []string{"Moderate gap"}, res.KeyFactors)
}

func TestRiskLevels(t *testing.T) {
	assert.Equal(t, models.RiskHigh, Risk(Input{Gap: gapEvent("A", 35, 0), Float: floatOf(3e6, models.FloatNano, 95)}))
	assert.Equal(t, models.RiskMedium, Risk(Input{
		Gap: gapEvent("A", 35, 0), Float: floatOf(3e6, models.FloatNano, 95), History: realHistory(85, 80, 20, 1),
	}))
	assert.Equal(t, models.RiskLow, Risk(Input{Gap: gapEvent("A", 12, 0)}))
	assert.Equal(t, models.RiskLow, Risk(Input{Gap: gapEvent("A", 12, 0), News: catalyst(50, models.CatalystWeak), History: realHistory(72, 60, 50, 1)}))
}

func TestPlaybookTemplates(t *testing.T) {
	assert.Equal(t, "Classic 12.0% down gap setup. Look for volume confirmation and clean breakout above/below gap levels.",
		Playbook(models.PatternGapAndGo, Input{Gap: gapEvent("A", -12, 60_000)}))
	assert.Equal(t, "News-driven 9.0% gap with strong catalyst. Event-based momentum often creates follow-through opportunities in first hour.",
		Playbook(models.PatternNewsCatalyst, Input{Gap: gapEvent("A", 9, 0), News: catalyst(90, models.CatalystStrong)}))
	assert.Equal(t, "9.0% gap with strong historical edge (Score: 80/100). Statistics show Strong bullish momentum.",
		Playbook(models.PatternStatisticalEdge, Input{Gap: gapEvent("A", 9, 0), History: realHistory(80, 60, 50, 1)}))
}

func TestFallback(t *testing.T) {
	res := NewClassifier().Classify(Input{})
	assert.Equal(t, models.PatternAnalysisError, res.PatternType)
	assert.Equal(t, 50, res.SetupQuality)
	assert.Equal(t, 25, res.Confidence)
	assert.Equal(t, models.RiskMedium, res.RiskLevel)
	assert.Equal(t, []string{"gap_detected"}, res.KeyFactors)
	assert.Equal(t, "0.0% gap detected. Analysis temporarily unavailable.", res.Playbook)

	again := Fallback(gapEvent("B", -12.34, 0))
	assert.Equal(t, "B", again.Symbol)
	assert.Equal(t, "12.3% gap detected. Analysis temporarily unavailable.", again.Playbook)
	assert.Equal(t, again, Fallback(gapEvent("B", -12.34, 0)))
}

func TestClassifyResultsAlwaysValid(t *testing.T) {
	gaps := []float64{-40, -12, 5, 8, 10, 15, 20, 31}
	floats := []*models.FloatProfile{nil, floatOf(3e6, models.FloatNano, 95), floatOf(7e6, models.FloatMicro, 80), floatOf(80e6, models.FloatMedium, 20)}
	for _, g := range gaps {
		for _, f := range floats {
			res := NewClassifier().Classify(Input{Gap: gapEvent("A", g, 120_000), Float: f})
			require.True(t, res.PatternType.Valid())
			require.True(t, res.RiskLevel.Valid())
			require.GreaterOrEqual(t, res.SetupQuality, 0)
			require.LessOrEqual(t, res.SetupQuality, 100)
			require.LessOrEqual(t, res.Confidence, 100)
		}
	}
}
