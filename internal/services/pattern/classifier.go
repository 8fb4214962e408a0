package pattern

import (
	"fmt"
	"strings"

	"GapScout/internal/domain/models"
)

const (
	megaGap        = 30.0
	gapAndGoVolume = 50_000
)

// Input bundles everything the classifier looks at. Only Gap is required.
type Input struct {
	Gap     *models.GapEvent
	Float   *models.FloatProfile
	News    *models.NewsCatalyst
	History *models.HistoricalGapStats
}

// Classifier labels a gap with a setup type using ordered rules.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

// Classify never panics; degenerate input yields Fallback.
func (c *Classifier) Classify(in Input) (res models.PatternResult) {
	if in.Gap == nil {
		return Fallback(in.Gap)
	}
	defer func() {
		if r := recover(); r != nil {
			res = Fallback(in.Gap)
		}
	}()

	pt := Type(in)
	quality := SetupQuality(in)

	return models.PatternResult{
		Symbol:         in.Gap.Symbol,
		PatternType:    pt,
		SetupQuality:   quality,
		Confidence:     min(quality+10, 100),
		Playbook:       Playbook(pt, in),
		KeyFactors:     KeyFactors(in),
		RiskLevel:      Risk(in),
		AnalysisSource: models.AnalysisLocal,
		SimilarSetups:  similarSetups(pt),
	}
}

// Type applies the priority rules; the first match wins.
func Type(in Input) models.PatternType {
	gap := in.Gap.AbsGap()
	switch {
	case (in.Float.IsNano() && gap >= 10) || (in.Float.IsMicro() && gap >= 15):
		return models.PatternFloatSqueeze
	case in.News.Active() && in.News.CatalystStrength >= 70 && gap >= 8:
		return models.PatternNewsCatalyst
	case gap >= megaGap:
		return models.PatternMegaGap
	case in.History.Real() && in.History.GapEdgeScore >= 75 && gap >= 8:
		return models.PatternStatisticalEdge
	case gap >= 10 && in.Gap.Volume > gapAndGoVolume:
		return models.PatternGapAndGo
	case in.Float.IsMicro() && gap >= 5:
		return models.PatternMicroFloat
	default:
		return models.PatternStandardGap
	}
}

// SetupQuality scores the setup on 0-100.
func SetupQuality(in Input) int {
	gap := in.Gap.AbsGap()
	score := 0

	switch {
	case gap >= 30:
		score += 40
	case gap >= 20:
		score += 35
	case gap >= 15:
		score += 30
	case gap >= 10:
		score += 25
	case gap >= 7:
		score += 20
	case gap >= 5:
		score += 15
	default:
		score += 10
	}

	if in.Float != nil {
		score += int(float64(in.Float.SqueezePotential) * 0.3)
	}
	if in.News.Active() {
		score += int(float64(in.News.CatalystStrength) * 0.2)
	}

	switch v := in.Gap.Volume; {
	case v > 500_000:
		score += 10
	case v > 200_000:
		score += 7
	case v > 100_000:
		score += 5
	case v > 50_000:
		score += 3
	}

	if h := in.History; h.Real() {
		switch {
		case h.GapEdgeScore >= 80:
			score += 15
		case h.GapEdgeScore >= 70:
			score += 12
		case h.GapEdgeScore >= 60:
			score += 8
		case h.GapEdgeScore >= 55:
			score += 5
		}
		switch {
		case h.ContinuationRatePct > 75:
			score += 3
		case h.ContinuationRatePct > 65:
			score += 2
		}
	}

	return min(score, 100)
}

// KeyFactors lists the drivers of the setup.
func KeyFactors(in Input) []string {
	gap := in.Gap.AbsGap()
	var f []string

	switch {
	case gap >= 20:
		f = append(f, "Large gap")
	case gap >= 10:
		f = append(f, "Significant gap")
	default:
		f = append(f, "Moderate gap")
	}

	if in.Float.IsNano() {
		f = append(f, "Nano float")
	} else if in.Float.IsMicro() {
		f = append(f, "Micro float")
	}

	if in.News.Active() {
		f = append(f, fmt.Sprintf("%s catalyst", in.News.CatalystType))
	}

	if h := in.History; h.Real() {
		if h.GapEdgeScore >= 75 {
			f = append(f, "High statistical edge")
		}
		if h.ContinuationRatePct > 70 {
			f = append(f, fmt.Sprintf("%.0f%% continuation rate", h.ContinuationRatePct))
		}
		if h.FillRatePct < 40 {
			f = append(f, "Low gap fill tendency")
		}
		if h.VolumeFactor > 2.5 {
			f = append(f, "High volume multiplier")
		}
	}
	return f
}

// Risk grades the setup. Strong history lowers the grade.
func Risk(in Input) models.RiskLevel {
	gap := in.Gap.AbsGap()
	r := 0

	switch {
	case gap >= 30:
		r += 3
	case gap >= 20:
		r += 2
	case gap >= 10:
		r += 1
	}

	if in.Float.IsNano() {
		r += 2
	} else if in.Float.IsMicro() {
		r++
	}

	if in.News.Active() {
		r++
	}

	if h := in.History; h.Real() {
		if h.GapEdgeScore >= 80 && h.ContinuationRatePct > 75 {
			r -= 2
		} else if h.GapEdgeScore >= 70 {
			r--
		}
	}

	switch {
	case r >= 4:
		return models.RiskHigh
	case r >= 2:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

// Playbook renders the short narrative for an alert.
func Playbook(pt models.PatternType, in Input) string {
	gap := in.Gap.AbsGap()
	var b strings.Builder

	switch pt {
	case models.PatternFloatSqueeze:
		fmt.Fprintf(&b, "Small float (%.1fM) with %.1f%% gap. Limited supply can amplify moves. "+
			"Watch for volume confirmation and momentum continuation.", in.Float.FloatMillions(), gap)
	case models.PatternNewsCatalyst:
		fmt.Fprintf(&b, "News-driven %.1f%% gap with %s catalyst. "+
			"Event-based momentum often creates follow-through opportunities in first hour.",
			gap, strings.ToLower(string(in.News.CatalystType)))
	case models.PatternMegaGap:
		fmt.Fprintf(&b, "Exceptional %.1f%% gap suggests significant development. "+
			"Large gaps often see initial profit-taking followed by potential resumption.", gap)
	case models.PatternGapAndGo:
		fmt.Fprintf(&b, "Classic %.1f%% %s gap setup. "+
			"Look for volume confirmation and clean breakout above/below gap levels.",
			gap, strings.ToLower(string(in.Gap.Direction)))
	case models.PatternMicroFloat:
		fmt.Fprintf(&b, "Micro float (%.1fM shares) with %.1f%% move. "+
			"Small supply can create volatile price action on modest volume.", in.Float.FloatMillions(), gap)
	case models.PatternStatisticalEdge:
		fmt.Fprintf(&b, "%.1f%% gap with strong historical edge (Score: %d/100). Statistics show %s.",
			gap, in.History.GapEdgeScore, in.History.StatisticalEdge)
	default:
		fmt.Fprintf(&b, "%.1f%% gap - monitor for volume and momentum confirmation. "+
			"Standard gap setups require technical confirmation for continuation.", gap)
	}

	if in.Float.IsNano() {
		b.WriteString(" Nano float (<5M) increases volatility potential.")
	}
	if in.News.Active() && pt != models.PatternNewsCatalyst {
		b.WriteString(" News catalyst adds momentum factor.")
	}
	if h := in.History; h.Real() {
		if h.ContinuationRatePct > 70 {
			fmt.Fprintf(&b, " Historically shows %.0f%% continuation rate.", h.ContinuationRatePct)
		}
		if h.FillRatePct < 40 {
			fmt.Fprintf(&b, " Only %.0f%% of gaps typically fill.", h.FillRatePct)
		}
	}
	return b.String()
}

// Fallback is returned when classification cannot complete.
func Fallback(g *models.GapEvent) models.PatternResult {
	res := models.PatternResult{
		PatternType:    models.PatternAnalysisError,
		SetupQuality:   50,
		Confidence:     25,
		RiskLevel:      models.RiskMedium,
		KeyFactors:     []string{"gap_detected"},
		AnalysisSource: models.AnalysisFallback,
		SimilarSetups:  "N/A",
	}
	var gap float64
	if g != nil {
		res.Symbol = g.Symbol
		gap = g.AbsGap()
	}
	res.Playbook = fmt.Sprintf("%.1f%% gap detected. Analysis temporarily unavailable.", gap)
	return res
}

func similarSetups(pt models.PatternType) string {
	if s, ok := similar[pt]; ok {
		return s
	}
	return "Standard gap pattern seen regularly in small-cap trading"
}
