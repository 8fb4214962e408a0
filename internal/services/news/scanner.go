package news

import (
	"strings"

	"GapScout/internal/domain/models"
)

const (
	maxItems       = 5
	maxHeadlines   = 3
	headlineRunes  = 100
	positivePoints = 10
	negativePoints = 15
	catalystCutoff = 20
)

var (
	PositiveKeywords = []string{
		"fda approval", "fda", "approved", "breakthrough", "patent",
		"contract", "partnership", "merger", "acquisition", "buyout",
		"earnings beat", "revenue", "guidance raised", "upgrade",
		"phase 3", "phase 2", "clinical trial", "results", "efficacy",
		"designation", "clearance", "milestone",
		"offering", "dilution", "warrants", "direct offering",
		"short squeeze", "short interest", "squeeze",
	}
	NegativeKeywords = []string{
		"bankruptcy", "delisting", "investigation", "lawsuit",
		"downgrade", "missed", "lowered guidance",
	}
)

// Scanner scores recent headlines for catalyst keywords.
type Scanner struct {
	positive []string
	negative []string
}

func NewScanner() *Scanner {
	return &Scanner{positive: PositiveKeywords, negative: NegativeKeywords}
}

// Scan scores items, which are expected newest first. Only the first five
// are inspected.
func (s *Scanner) Scan(symbol string, items []models.NewsItem) models.NewsCatalyst {
	out := models.NewsCatalyst{
		Symbol:        strings.ToUpper(symbol),
		HeadlineCount: len(items),
		CatalystType:  models.CatalystNone,
	}

	score := 0
	for i, it := range items {
		if i == maxItems {
			break
		}
		text := strings.ToLower(it.Headline + " " + it.Summary)
		hit := false
		for _, kw := range s.positive {
			if strings.Contains(text, kw) {
				score += positivePoints
				hit = true
			}
		}
		for _, kw := range s.negative {
			if strings.Contains(text, kw) {
				score -= negativePoints
			}
		}
		if hit && len(out.KeyHeadlines) < maxHeadlines {
			out.KeyHeadlines = append(out.KeyHeadlines, truncate(it.Headline, headlineRunes))
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	out.CatalystScore = score
	out.HasCatalyst = score >= catalystCutoff
	out.CatalystType, out.CatalystStrength = Classify(score, out.HasCatalyst)
	return out
}

// Classify maps a catalyst score to its type and strength.
func Classify(score int, hasCatalyst bool) (models.CatalystType, int) {
	if !hasCatalyst {
		return models.CatalystNone, 0
	}
	switch {
	case score >= 50:
		return models.CatalystStrong, 90
	case score >= 30:
		return models.CatalystModerate, 70
	case score >= 20:
		return models.CatalystWeak, 50
	default:
		return models.CatalystMinimal, 20
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
