package models

type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "Low"
	ConfidenceMedium   ConfidenceLevel = "Medium"
	ConfidenceHigh     ConfidenceLevel = "High"
	ConfidenceVeryHigh ConfidenceLevel = "Very High"
)

// Multiplier discounts a raw edge score by how much data backs it.
func (c ConfidenceLevel) Multiplier() float64 {
	switch c {
	case ConfidenceVeryHigh:
		return 1.0
	case ConfidenceHigh:
		return 0.95
	case ConfidenceMedium:
		return 0.85
	default:
		return 0.7
	}
}

type EdgeClass string

const (
	EdgeExceptional   EdgeClass = "Exceptional Edge"
	EdgeStrong        EdgeClass = "Strong Edge"
	EdgeGood          EdgeClass = "Good Edge"
	EdgeModest        EdgeClass = "Modest Edge"
	EdgeNeutral       EdgeClass = "Neutral"
	EdgeNegative      EdgeClass = "Negative Edge"
	EdgeAnalysisError EdgeClass = "Analysis Error"
)

// ComponentScores holds the five 0-100 inputs of the weighted total.
type ComponentScores struct {
	Historical float64 `json:"historical"`
	Gap        float64 `json:"gap"`
	Float      float64 `json:"float"`
	AI         float64 `json:"ai_pattern"`
	News       float64 `json:"news"`
}

// EdgeScore is the composite statistical-favourability estimate for a gap.
type EdgeScore struct {
	Symbol          string          `json:"symbol"`
	TotalEdgeScore  float64         `json:"total_edge_score"`
	Confidence      ConfidenceLevel `json:"confidence_level"`
	Classification  EdgeClass       `json:"edge_classification"`
	Components      ComponentScores `json:"component_scores"`
	Recommendations []string        `json:"recommendations"`
	Summary         string          `json:"summary"`
}
