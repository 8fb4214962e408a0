package models

// PatternType is the closed set of setup labels.
type PatternType string

const (
	PatternFloatSqueeze    PatternType = "Float Squeeze"
	PatternNewsCatalyst    PatternType = "News Catalyst"
	PatternMegaGap         PatternType = "Mega Gap"
	PatternStatisticalEdge PatternType = "Statistical Edge"
	PatternGapAndGo        PatternType = "Gap & Go"
	PatternMicroFloat      PatternType = "Micro Float"
	PatternStandardGap     PatternType = "Standard Gap"
	PatternAnalysisError   PatternType = "Analysis Error"
)

// Valid reports whether p is a known pattern type.
func (p PatternType) Valid() bool {
	switch p {
	case PatternFloatSqueeze, PatternNewsCatalyst, PatternMegaGap, PatternStatisticalEdge,
		PatternGapAndGo, PatternMicroFloat, PatternStandardGap, PatternAnalysisError:
		return true
	}
	return false
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool { return r == RiskLow || r == RiskMedium || r == RiskHigh }

const (
	AnalysisLocal    = "local"
	AnalysisAI       = "ai_enhanced"
	AnalysisFallback = "fallback"
)

// PatternResult is the classified setup for one gap.
type PatternResult struct {
	Symbol         string      `json:"symbol"`
	PatternType    PatternType `json:"pattern_type"`
	SetupQuality   int         `json:"setup_quality"`
	Confidence     int         `json:"confidence"`
	Playbook       string      `json:"playbook"`
	KeyFactors     []string    `json:"key_factors"`
	RiskLevel      RiskLevel   `json:"risk_level"`
	SimilarSetups  string      `json:"similar_setups,omitempty"`
	AnalysisSource string      `json:"analysis_source"`
}

// RiskAssessment summarises the main risks of a setup.
type RiskAssessment struct {
	Level      RiskLevel `json:"level"`
	TopRisks   []string  `json:"top_risks"`
	Mitigation []string  `json:"mitigation"`
}

// PlaybookGuide is the educational write-up for a classified setup.
type PlaybookGuide struct {
	Symbol           string         `json:"symbol"`
	PatternType      PatternType    `json:"pattern_type"`
	SetupQuality     int            `json:"setup_quality"`
	Description      string         `json:"description"`
	ExpectedBehavior string         `json:"expected_behavior"`
	KeyLevels        string         `json:"key_levels"`
	VolumeImportance string         `json:"volume_importance"`
	Timing           string         `json:"timing"`
	RiskFactors      []string       `json:"risk_factors"`
	EducationalNotes string         `json:"educational_notes"`
	Observations     []string       `json:"observations"`
	Considerations   []string       `json:"considerations"`
	Risk             RiskAssessment `json:"risk_assessment"`
	SimilarPatterns  string         `json:"similar_patterns"`
	AlertSummary     string         `json:"alert_summary"`
}
