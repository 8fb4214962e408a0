package edge

import (
	"fmt"

	"GapScout/internal/domain/models"
	"GapScout/internal/services/gap"
	"GapScout/pkg/logger"
)

const neutral = 50.0

// Weights sets how much each component contributes to the total.
type Weights struct {
	Historical float64
	Gap        float64
	Float      float64
	AI         float64
	News       float64
}

// DefaultWeights puts historical statistics first.
func DefaultWeights() Weights {
	return Weights{Historical: 0.40, Gap: 0.25, Float: 0.20, AI: 0.10, News: 0.05}
}

// Input is everything the scorer combines. Only Gap is required.
type Input struct {
	Gap     *models.GapEvent
	History *models.HistoricalGapStats
	Float   *models.FloatProfile
	News    *models.NewsCatalyst
	Pattern *models.PatternResult
}

type Option func(*Scorer)

func WithWeights(w Weights) Option { return func(s *Scorer) { s.weights = w } }

// Scorer computes the composite edge score for a gap.
type Scorer struct {
	weights Weights
	log     *logger.Logger
}

func NewScorer(log *logger.Logger, opts ...Option) *Scorer {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Scorer{weights: DefaultWeights(), log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scorer) Weights() Weights { return s.weights }

// Score never panics; a failure yields the fallback score.
func (s *Scorer) Score(in Input) (res models.EdgeScore) {
	if in.Gap == nil {
		return Fallback("")
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("edge scoring panicked",
				logger.String("symbol", in.Gap.Symbol), logger.Any("panic", r))
			res = Fallback(in.Gap.Symbol)
		}
	}()

	raw := models.ComponentScores{
		Historical: HistoricalComponent(in.History),
		Gap:        GapComponent(in.Gap),
		Float:      FloatComponent(in.Float, in.Gap.Volume),
		AI:         AIComponent(in.Pattern),
		News:       NewsComponent(in.News),
	}
	res = grade(raw, s.weights, Confidence(in), in.History)
	res.Symbol = in.Gap.Symbol

	s.log.Debug("edge score calculated",
		logger.String("symbol", in.Gap.Symbol),
		logger.Float64("total", res.TotalEdgeScore),
		logger.String("class", string(res.Classification)))
	return res
}

// grade classifies and describes the unrounded total. Only the stored
// scores are rounded, so 84.96 stays Strong rather than becoming 85.0.
func grade(raw models.ComponentScores, w Weights, conf models.ConfidenceLevel, h *models.HistoricalGapStats) models.EdgeScore {
	total := clamp(raw.Historical*w.Historical + raw.Gap*w.Gap + raw.Float*w.Float + raw.AI*w.AI + raw.News*w.News)
	return models.EdgeScore{
		TotalEdgeScore: round1(total),
		Confidence:     conf,
		Classification: Classify(total, conf),
		Components: models.ComponentScores{
			Historical: round1(raw.Historical),
			Gap:        round1(raw.Gap),
			Float:      round1(raw.Float),
			AI:         round1(raw.AI),
			News:       round1(raw.News),
		},
		Recommendations: Recommendations(total, conf, h),
		Summary:         Summary(total, conf, h),
	}
}

// HistoricalComponent scores the symbol's past gap behaviour. No data is neutral.
func HistoricalComponent(h *models.HistoricalGapStats) float64 {
	if !h.Real() {
		return neutral
	}
	score := float64(h.GapEdgeScore)

	switch {
	case h.ContinuationRatePct > 80:
		score += 15
	case h.ContinuationRatePct > 70:
		score += 10
	case h.ContinuationRatePct > 60:
		score += 5
	}

	switch {
	case h.FillRatePct < 20:
		score += 10
	case h.FillRatePct < 30:
		score += 5
	case h.FillRatePct > 80:
		score -= 10
	}

	switch {
	case h.VolumeFactor > 4:
		score += 8
	case h.VolumeFactor > 2.5:
		score += 5
	case h.VolumeFactor > 1.5:
		score += 2
	}

	switch {
	case h.OverallEdgeScore > 75:
		score += 5
	case h.OverallEdgeScore > 65:
		score += 3
	}
	return clamp(score)
}

// GapComponent scores size, direction and volume of the gap itself.
func GapComponent(g *models.GapEvent) float64 {
	score := neutral
	switch abs := g.AbsGap(); {
	case abs >= 30:
		score += 25
	case abs >= 20:
		score += 20
	case abs >= 15:
		score += 15
	case abs >= 10:
		score += 10
	case abs >= 7:
		score += 5
	case abs >= 5:
		score += 2
	default:
		score -= 10
	}

	if g.IsUp() {
		score += 2
	}

	switch v := g.Volume; {
	case v > 1_000_000:
		score += 15
	case v > 500_000:
		score += 10
	case v > 200_000:
		score += 5
	case v > 100_000:
		score += 2
	case v < 10_000:
		score -= 5
	}
	return clamp(score)
}

// FloatComponent rewards small floats and heavy turnover.
func FloatComponent(f *models.FloatProfile, volume int64) float64 {
	if f == nil {
		return neutral
	}
	score := neutral
	if f.IsNano() {
		score += 30
	} else if f.IsMicro() {
		score += 20
	}

	switch {
	case f.SqueezePotential > 90:
		score += 15
	case f.SqueezePotential > 80:
		score += 10
	case f.SqueezePotential > 70:
		score += 5
	}

	if f.FloatShares > 0 {
		switch turnover := float64(volume) / f.FloatShares; {
		case turnover > 0.5:
			score += 15
		case turnover > 0.3:
			score += 10
		case turnover > 0.1:
			score += 5
		}
	}
	return clamp(score)
}

// AIComponent blends setup quality and confidence. A missing or fallback
// pattern is neutral.
func AIComponent(p *models.PatternResult) float64 {
	if !usable(p) {
		return neutral
	}
	score := float64(p.SetupQuality)*0.7 + float64(p.Confidence)*0.3
	switch p.PatternType {
	case models.PatternFloatSqueeze, models.PatternStatisticalEdge:
		score += 10
	case models.PatternNewsCatalyst, models.PatternMegaGap:
		score += 5
	}
	return clamp(score)
}

// NewsComponent uses catalyst strength with a bonus for the stronger types.
func NewsComponent(n *models.NewsCatalyst) float64 {
	if !n.Active() {
		return neutral
	}
	score := float64(n.CatalystStrength)
	switch n.CatalystType {
	case models.CatalystStrong:
		score += 10
	case models.CatalystModerate:
		score += 5
	}
	return clamp(score)
}

// Confidence grades how much real data backs the score.
func Confidence(in Input) models.ConfidenceLevel {
	pts := 10 // gap volume is always known

	if h := in.History; h.Real() {
		switch {
		case h.TotalGaps > 50:
			pts += 40
		case h.TotalGaps > 20:
			pts += 30
		case h.TotalGaps > 10:
			pts += 20
		default:
			pts += 10
		}
	}
	if in.Float.HasFloat() {
		pts += 20
	}
	if usable(in.Pattern) {
		if in.Pattern.Confidence > 60 {
			pts += 20
		} else {
			pts += 10
		}
	}
	if in.News.Active() {
		pts += 10
	}

	switch {
	case pts >= 80:
		return models.ConfidenceVeryHigh
	case pts >= 60:
		return models.ConfidenceHigh
	case pts >= 40:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Classify discounts the score by confidence and buckets it.
func Classify(total float64, conf models.ConfidenceLevel) models.EdgeClass {
	switch adj := total * conf.Multiplier(); {
	case adj >= 85:
		return models.EdgeExceptional
	case adj >= 75:
		return models.EdgeStrong
	case adj >= 65:
		return models.EdgeGood
	case adj >= 55:
		return models.EdgeModest
	case adj >= 45:
		return models.EdgeNeutral
	default:
		return models.EdgeNegative
	}
}

func Recommendations(total float64, conf models.ConfidenceLevel, h *models.HistoricalGapStats) []string {
	var out []string
	switch {
	case total >= 80:
		out = append(out,
			"High probability setup - consider larger position size",
			"Strong statistical backing supports aggressive entry")
	case total >= 70:
		out = append(out, "Good edge detected - standard position sizing appropriate")
	case total >= 60:
		out = append(out, "Modest edge - use conservative position sizing")
	default:
		out = append(out, "Limited edge - consider passing or very small position")
	}

	if h.Real() {
		if h.ContinuationRatePct > 75 {
			out = append(out, fmt.Sprintf("Strong %.0f%% historical continuation rate", h.ContinuationRatePct))
		}
		switch {
		case h.FillRatePct < 30:
			out = append(out, "Low gap fill tendency supports momentum plays")
		case h.FillRatePct > 80:
			out = append(out, "High gap fill risk - watch for reversal")
		}
	}

	switch conf {
	case models.ConfidenceVeryHigh, models.ConfidenceHigh:
		out = append(out, "High confidence in analysis - reliable data backing")
	case models.ConfidenceMedium:
		out = append(out, "Moderate confidence - monitor carefully")
	default:
		out = append(out, "Low confidence - trade with extreme caution")
	}
	return out
}

// Summary is the one-line edge description used in alerts.
func Summary(total float64, conf models.ConfidenceLevel, h *models.HistoricalGapStats) string {
	class := Classify(total, conf)
	if h.Real() {
		return fmt.Sprintf("%s (Score: %.0f/100, Hist: %d/100, Cont: %.0f%%)",
			class, total, h.GapEdgeScore, h.ContinuationRatePct)
	}
	return fmt.Sprintf("%s (Score: %.0f/100, Confidence: %s)", class, total, conf)
}

// Fallback is the neutral score used when scoring cannot complete.
func Fallback(symbol string) models.EdgeScore {
	return models.EdgeScore{
		Symbol:         symbol,
		TotalEdgeScore: neutral,
		Confidence:     models.ConfidenceLow,
		Classification: models.EdgeAnalysisError,
		Components: models.ComponentScores{
			Historical: neutral, Gap: neutral, Float: neutral, AI: neutral, News: neutral,
		},
		Recommendations: []string{"Analysis error - use standard risk management"},
		Summary:         "Edge analysis unavailable",
	}
}

func usable(p *models.PatternResult) bool {
	return p != nil && p.AnalysisSource != models.AnalysisFallback && p.PatternType != models.PatternAnalysisError
}

func clamp(v float64) float64 {
	return max(0, min(100, v))
}

func round1(v float64) float64 { return gap.Round(v, 1) }
