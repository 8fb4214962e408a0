package alert

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"GapScout/internal/domain/models"

	"github.com/dustin/go-humanize"
)

const minHistoryGaps = 10

// Input is what a single alert renders. Gap, Pattern and Edge are required;
// History and Float are optional.
type Input struct {
	Gap     models.GapEvent
	Pattern models.PatternResult
	Edge    models.EdgeScore
	History *models.HistoricalGapStats
	Float   *models.FloatProfile
}

type Option func(*Formatter)

// WithClock overrides the footer time source.
func WithClock(now func() time.Time) Option { return func(f *Formatter) { f.now = now } }

func WithLocation(loc *time.Location) Option { return func(f *Formatter) { f.loc = loc } }

// Formatter renders Markdown alert messages.
type Formatter struct {
	now func() time.Time
	loc *time.Location
}

func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{now: time.Now, loc: eastern()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func eastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("ET", -5*3600)
	}
	return loc
}

// Header returns the priority banner for an edge score.
func Header(score float64) string {
	switch {
	case score >= 85:
		return "🚨🔥💎 *EXCEPTIONAL EDGE* 🚨🔥💎"
	case score >= 75:
		return "🔥⚡🎯 *STRONG EDGE* 🔥⚡🎯"
	case score >= 65:
		return "⚡📊🔍 *GOOD EDGE* ⚡📊🔍"
	default:
		return "📊📈 *MODERATE EDGE* 📊📈"
	}
}

// Format renders one alert. Sections without data are left out.
func (f *Formatter) Format(in Input) string {
	var b strings.Builder
	g := in.Gap

	dirEmoji := "🟢"
	if !g.IsUp() {
		dirEmoji = "🔴"
	}

	b.WriteString(Header(in.Edge.TotalEdgeScore))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s *$%s* - %s %s\n", dirEmoji, g.Symbol, in.Pattern.PatternType, dirEmoji)
	fmt.Fprintf(&b, "Gap: *%s %.1f%%* | Edge: *%.0f/100*\n", g.Direction, g.AbsGap(), in.Edge.TotalEdgeScore)
	fmt.Fprintf(&b, "Price: $%.2f → $%.2f\n\n", g.PreviousClose, g.CurrentPrice)

	if h := in.History; h != nil {
		switch {
		case h.Real() && h.TotalGaps > minHistoryGaps:
			writeHistory(&b, g, h)
		case !h.Real():
			b.WriteString("📊 *Historical Data:* unavailable (estimates only)\n\n")
		}
	}

	if fl := in.Float; (fl.IsNano() || fl.IsMicro()) && fl.FloatShares > 0 {
		turnover := float64(g.Volume) / fl.FloatShares * 100
		fmt.Fprintf(&b, "🔥 *Float:* %.1fM shares (%.1f%% turnover)\n", fl.FloatMillions(), turnover)
	}

	switch {
	case g.Volume > 500_000:
		fmt.Fprintf(&b, "📊 *Volume:* %s (high)\n", humanize.Comma(g.Volume))
	case g.Volume > 100_000:
		fmt.Fprintf(&b, "📊 *Volume:* %s (moderate)\n", humanize.Comma(g.Volume))
	}

	fmt.Fprintf(&b, "🧠 *Analysis:* %d%% quality, %d%% confidence\n", in.Pattern.SetupQuality, in.Pattern.Confidence)
	if insight := FirstSentence(in.Pattern.Playbook); insight != "" {
		fmt.Fprintf(&b, "💡 *Insight:* %s\n", insight)
	}
	if len(in.Edge.Recommendations) > 0 {
		fmt.Fprintf(&b, "🎯 *Rec:* %s\n", in.Edge.Recommendations[0])
	}

	fmt.Fprintf(&b, "\n⏰ %s", f.now().In(f.loc).Format("15:04:05")+" ET")
	return b.String()
}

func writeHistory(b *strings.Builder, g models.GapEvent, h *models.HistoricalGapStats) {
	cont := h.ContinuationRatePct
	green, red := cont, 100-cont
	if !g.IsUp() {
		green, red = 100-cont, cont
	}
	fmt.Fprintf(b, "📊 *Historical Data (%d gaps):*\n", h.TotalGaps)
	fmt.Fprintf(b, "   • Continued: %.0f%% | Reversed: %.0f%%\n", cont, 100-cont)
	fmt.Fprintf(b, "   • Red Close: %.0f%% | Green Close: %.0f%%\n", red, green)
	fmt.Fprintf(b, "   • Gap Fill Rate: %.0f%%\n", h.FillRatePct)
	fmt.Fprintf(b, "   • Avg Gap Size: %.1f%%\n", h.AvgGapSizePct)
	if h.VolumeFactor > 1.5 {
		fmt.Fprintf(b, "   • Volume Spike: %.1fx normal\n", h.VolumeFactor)
	}
	b.WriteString("\n")
}

// FirstSentence returns text up to and including the first period.
func FirstSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// skip decimal points such as "26.5%"
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			continue
		}
		if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			continue
		}
		return s[:i+1]
	}
	return s + "."
}

var medals = []string{"🥇", "🥈", "🥉"}

// Summary renders the end-of-cycle digest of the top opportunities.
func (f *Formatter) Summary(opps []models.Opportunity, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Scan Summary* (%s ET)\n\n", at.In(f.loc).Format("15:04"))
	if len(opps) == 0 {
		b.WriteString("No significant gaps detected.")
		return b.String()
	}
	fmt.Fprintf(&b, "Opportunities: %d\n\n", len(opps))
	b.WriteString("*Top Setups:*\n")
	for i, o := range opps[:min(len(medals), len(opps))] {
		fmt.Fprintf(&b, "%s $%s: %s %.1f%% | Edge %.0f | %s\n",
			medals[i], o.Gap.Symbol, o.Gap.Direction, o.Gap.AbsGap(), o.Edge.TotalEdgeScore, o.Pattern.PatternType)
	}
	return strings.TrimRight(b.String(), "\n")
}
