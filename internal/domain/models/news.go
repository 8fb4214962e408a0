package models

import "time"

// CatalystType buckets a catalyst score.
type CatalystType string

const (
	CatalystNone     CatalystType = "None"
	CatalystMinimal  CatalystType = "Minimal"
	CatalystWeak     CatalystType = "Weak"
	CatalystModerate CatalystType = "Moderate"
	CatalystStrong   CatalystType = "Strong"
)

type NewsItem struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary"`
	Source      string    `json:"source,omitempty"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsCatalyst is the keyword-scored view of recent headlines.
type NewsCatalyst struct {
	Symbol           string       `json:"symbol"`
	HasCatalyst      bool         `json:"has_catalyst"`
	CatalystScore    int          `json:"catalyst_score"`
	CatalystStrength int          `json:"catalyst_strength"`
	CatalystType     CatalystType `json:"catalyst_type"`
	HeadlineCount    int          `json:"headline_count"`
	KeyHeadlines     []string     `json:"key_headlines,omitempty"`
}

// Active reports whether a catalyst is present. Safe on nil.
func (n *NewsCatalyst) Active() bool { return n != nil && n.HasCatalyst }
