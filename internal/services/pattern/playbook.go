package pattern

import (
	"fmt"

	"GapScout/internal/domain/models"
)

type template struct {
	description      string
	typicalBehavior  string
	keyLevels        string
	volumeImportance string
	timing           string
	riskFactors      []string
	educationalNotes string
}

var templates = map[models.PatternType]template{
	models.PatternFloatSqueeze: {
		description:      "Low float stock with significant gap creating supply/demand imbalance",
		typicalBehavior:  "Initial spike, possible pullback, then momentum continuation if volume sustains",
		keyLevels:        "Gap fill level, previous resistance/support",
		volumeImportance: "Critical - low float needs volume to move significantly",
		timing:           "Best in first 30-60 minutes, watch for momentum shifts",
		riskFactors:      []string{"Extreme volatility", "Low liquidity", "Quick reversals"},
		educationalNotes: "Float squeezes can create explosive moves but require careful timing and risk management",
	},
	models.PatternNewsCatalyst: {
		description:      "Gap driven by specific news or catalyst event",
		typicalBehavior:  "Initial reaction, consolidation, then follow-through based on news significance",
		keyLevels:        "Pre-news levels, gap support/resistance",
		volumeImportance: "High volume confirms news impact and continuation potential",
		timing:           "First hour typically most volatile, watch for institutional response",
		riskFactors:      []string{"News interpretation", "Market sentiment", "Sector rotation"},
		educationalNotes: "News-driven gaps often see multiple waves as different market participants react",
	},
	models.PatternGapAndGo: {
		description:      "Classic gap setup with potential for momentum continuation",
		typicalBehavior:  "Gap open, possible test of gap level, continuation on volume",
		keyLevels:        "Gap fill zone, previous day's high/low, round numbers",
		volumeImportance: "Volume above average confirms strength and continuation potential",
		timing:           "First 15-30 minutes critical for direction, then hourly momentum shifts",
		riskFactors:      []string{"Gap fill risk", "Momentum failure", "Sector weakness"},
		educationalNotes: "Most reliable when accompanied by above-average volume and clean technical levels",
	},
	models.PatternMegaGap: {
		description:      "Exceptional gap (30%+) suggesting major development or event",
		typicalBehavior:  "Extreme volatility, multiple waves, profit-taking followed by reassessment",
		keyLevels:        "Multiple resistance/support zones due to size of move",
		volumeImportance: "Extremely high volume expected, watch for distribution vs accumulation",
		timing:           "All day event, multiple entry/exit opportunities",
		riskFactors:      []string{"Extreme volatility", "Halt risk", "Overnight developments"},
		educationalNotes: "Mega gaps often create all-day momentum but require constant risk assessment",
	},
	models.PatternMicroFloat: {
		description:      "Very small float stock with moderate gap showing early momentum",
		typicalBehavior:  "Volatile price action, sensitive to small volume changes",
		keyLevels:        "Previous highs/lows more important due to limited supply",
		volumeImportance: "Even small volume can create significant moves",
		timing:           "Watch for volume spikes that can accelerate moves quickly",
		riskFactors:      []string{"Low liquidity", "Wide spreads", "Manipulation risk"},
		educationalNotes: "Micro floats require smaller position sizes but can offer explosive potential",
	},
	models.PatternStatisticalEdge: {
		description:      "Gap in a name whose past gaps have tended to continue rather than fill",
		typicalBehavior:  "Follows its historical profile more often than not; early holds above the gap matter",
		keyLevels:        "Gap fill level, historical average gap extension",
		volumeImportance: "Volume near the historical gap-day multiplier supports the statistical read",
		timing:           "Compare the first hour against typical historical follow-through",
		riskFactors:      []string{"Regime change", "Small sample", "Gap fill risk"},
		educationalNotes: "Historical statistics describe tendencies, not certainties; size for the miss",
	},
	models.PatternStandardGap: {
		description:      "Moderate gap requiring technical confirmation for continuation",
		typicalBehavior:  "Initial move, consolidation, then direction based on market factors",
		keyLevels:        "Standard technical levels, moving averages, trend lines",
		volumeImportance: "Above-average volume needed to confirm move sustainability",
		timing:           "Monitor first hour, then look for technical breakouts/breakdowns",
		riskFactors:      []string{"Lack of catalyst", "Market conditions", "Sector performance"},
		educationalNotes: "Standard gaps rely more on technical analysis and market conditions",
	},
}

var similar = map[models.PatternType]string{
	models.PatternFloatSqueeze: "Similar to micro-cap momentum plays like IMPP, PROG, ATER during their major runs",
	models.PatternNewsCatalyst: "Comparable to biotech FDA approvals or tech earnings surprises",
	models.PatternGapAndGo:     "Classic setup seen in quality small-caps during sector rotation",
	models.PatternMegaGap:      "Reminiscent of major catalyst plays like DWAC, GME during peak momentum",
	models.PatternMicroFloat:   "Similar to other sub-10M float runners during momentum phases",
}

var mitigation = []string{
	"Use appropriate position sizing",
	"Set stop losses before entry",
	"Monitor volume for confirmation",
	"Watch for momentum shifts",
}

// Guide expands a classified setup into an educational playbook.
func Guide(res models.PatternResult, in Input) models.PlaybookGuide {
	if in.Gap == nil || res.PatternType == models.PatternAnalysisError {
		return fallbackGuide(res)
	}

	tpl, ok := templates[res.PatternType]
	if !ok {
		tpl = templates[models.PatternStandardGap]
	}
	gap := in.Gap.AbsGap()

	desc := tpl.description
	if in.Float.IsNano() {
		desc += fmt.Sprintf(" %s has nano float (<5M shares) amplifying move potential.", in.Gap.Symbol)
	} else if in.Float.IsMicro() {
		desc += fmt.Sprintf(" %s has micro float amplifying volatility.", in.Gap.Symbol)
	}
	if in.News.Active() {
		desc += " News catalyst adds fundamental driver to technical setup."
	}

	behavior := tpl.typicalBehavior
	if gap >= 20 {
		behavior = "Extreme initial volatility expected, " + behavior
	}

	return models.PlaybookGuide{
		Symbol:           in.Gap.Symbol,
		PatternType:      res.PatternType,
		SetupQuality:     res.SetupQuality,
		Description:      desc,
		ExpectedBehavior: behavior,
		KeyLevels:        tpl.keyLevels,
		VolumeImportance: tpl.volumeImportance,
		Timing:           tpl.timing,
		RiskFactors:      append([]string(nil), tpl.riskFactors...),
		EducationalNotes: tpl.educationalNotes,
		Observations:     observations(res, in),
		Considerations:   considerations(res, in),
		Risk:             riskAssessment(res, in),
		SimilarPatterns:  similarSetups(res.PatternType),
		AlertSummary:     AlertSummary(res, in),
	}
}

func observations(res models.PatternResult, in Input) []string {
	gap := in.Gap.AbsGap()
	var out []string

	switch {
	case gap >= 30:
		out = append(out, fmt.Sprintf("Exceptional %.1f%% gap indicates major development", gap))
	case gap >= 15:
		out = append(out, fmt.Sprintf("Significant %.1f%% gap shows strong momentum", gap))
	default:
		out = append(out, fmt.Sprintf("Moderate %.1f%% gap requires confirmation", gap))
	}

	if in.Float.IsNano() {
		out = append(out, fmt.Sprintf("Nano float (%.0fK shares) creates explosive potential", in.Float.FloatShares/1000))
	} else if in.Float.IsMicro() {
		out = append(out, fmt.Sprintf("Micro float (%.1fM shares) amplifies moves", in.Float.FloatMillions()))
	}

	if in.News.Active() {
		out = append(out, fmt.Sprintf("%s news catalyst provides fundamental support", in.News.CatalystType))
	}

	if h := in.History; h.Real() && h.TotalGaps > 0 {
		out = append(out, fmt.Sprintf("%d historical gaps: %.0f%% continued, %.0f%% filled",
			h.TotalGaps, h.ContinuationRatePct, h.FillRatePct))
	}

	switch {
	case res.SetupQuality >= 80:
		out = append(out, "High quality setup with multiple confirming factors")
	case res.SetupQuality >= 60:
		out = append(out, "Solid setup with good risk/reward characteristics")
	default:
		out = append(out, "Moderate setup requiring careful risk management")
	}
	return out
}

func considerations(res models.PatternResult, in Input) []string {
	var out []string
	switch res.PatternType {
	case models.PatternFloatSqueeze:
		out = append(out, "Position size carefully due to low liquidity", "Monitor Level 2 for thin order book areas")
	case models.PatternNewsCatalyst:
		out = append(out, "Watch for additional news developments", "Monitor sector response to gauge sustainability")
	case models.PatternMegaGap:
		out = append(out, "Expect multiple waves of volatility", "Consider scaling in/out of positions")
	case models.PatternStatisticalEdge:
		out = append(out, "Compare intraday action to the historical continuation profile")
	}
	if in.Float.IsNano() {
		out = append(out, "Use smaller position sizes due to extreme volatility", "Expect wide bid/ask spreads")
	}
	if in.Gap.AbsGap() >= 20 {
		out = append(out, "High volatility expected - adjust position sizing")
	}
	return append(out, "Set alerts for key technical levels", "Monitor overall market sentiment")
}

func riskAssessment(res models.PatternResult, in Input) models.RiskAssessment {
	var risks []string
	switch res.PatternType {
	case models.PatternFloatSqueeze:
		risks = append(risks, "Low liquidity", "Extreme volatility", "Quick reversals")
	case models.PatternNewsCatalyst:
		risks = append(risks, "News interpretation risk", "Sector sentiment")
	case models.PatternMegaGap:
		risks = append(risks, "Extreme volatility", "Halt risk", "Overnight gaps")
	}
	if in.Float.IsNano() {
		risks = append(risks, "Manipulation risk", "Wide spreads")
	}
	risks = append(risks, "Market conditions", "Gap fill potential")

	level := res.RiskLevel
	if !level.Valid() {
		level = models.RiskMedium
	}
	return models.RiskAssessment{
		Level:      level,
		TopRisks:   risks[:min(3, len(risks))],
		Mitigation: append([]string(nil), mitigation...),
	}
}

// AlertSummary renders the one-line setup summary.
func AlertSummary(res models.PatternResult, in Input) string {
	emoji := "📊"
	switch {
	case res.SetupQuality >= 80:
		emoji = "🔥"
	case res.SetupQuality >= 60:
		emoji = "⚡"
	}
	s := fmt.Sprintf("%s %s Setup (Q:%d/100)", emoji, res.PatternType, res.SetupQuality)
	if in.Float.IsNano() {
		s += " • Nano Float"
	} else if in.Float.IsMicro() {
		s += " • Micro Float"
	}
	if in.News.Active() {
		s += " • News Catalyst"
	}
	return s
}

func fallbackGuide(res models.PatternResult) models.PlaybookGuide {
	return models.PlaybookGuide{
		Symbol:           res.Symbol,
		PatternType:      models.PatternAnalysisError,
		SetupQuality:     50,
		Description:      "Gap detected but detailed analysis unavailable",
		ExpectedBehavior: "Monitor for volume and momentum confirmation",
		KeyLevels:        "Gap fill level, previous support/resistance",
		Observations:     []string{"Gap detected", "Analysis temporarily unavailable"},
		Considerations:   []string{"Use standard gap trading rules", "Monitor volume"},
		Risk: models.RiskAssessment{
			Level:      models.RiskMedium,
			TopRisks:   []string{"Analysis incomplete", "Standard gap risks"},
			Mitigation: []string{"Conservative position sizing", "Standard risk management"},
		},
		AlertSummary: "📊 Gap Setup (Analysis Limited)",
	}
}
