package pattern

import (
	"context"
	"errors"
	"testing"

	"GapScout/internal/domain/models"
	"GapScout/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdvisor struct {
	res *models.PatternResult
	err error
}

func (s stubAdvisor) Classify(context.Context, models.GapEvent, *models.FloatProfile, *models.NewsCatalyst, *models.HistoricalGapStats) (*models.PatternResult, error) {
	return s.res, s.err
}

func TestCombinePrefersAdvisor(t *testing.T) {
	local := models.PatternResult{
		Symbol: "KLTO", PatternType: models.PatternGapAndGo, SetupQuality: 60, Confidence: 70,
		Playbook: "local", KeyFactors: []string{"Large gap", "Nano float"}, RiskLevel: models.RiskLow,
		AnalysisSource: models.AnalysisLocal,
	}
	ai := models.PatternResult{
		PatternType: models.PatternFloatSqueeze, SetupQuality: 81, Confidence: 88,
		Playbook: "ai", KeyFactors: []string{"Nano float", "Volume surge"}, RiskLevel: models.RiskHigh,
	}

	out := Combine(local, ai)
	assert.Equal(t, "KLTO", out.Symbol)
	assert.Equal(t, models.PatternFloatSqueeze, out.PatternType)
	assert.Equal(t, 70, out.SetupQuality)
	assert.Equal(t, 88, out.Confidence)
	assert.Equal(t, "ai", out.Playbook)
	assert.Equal(t, models.RiskHigh, out.RiskLevel)
	assert.Equal(t, models.AnalysisAI, out.AnalysisSource)
	assert.Equal(t, []string{"Nano float", "Volume surge", "Large gap"}, out.KeyFactors)
}

func TestCombineIgnoresInvalidAdvisorFields(t *testing.T) {
	local := models.PatternResult{PatternType: models.PatternMegaGap, SetupQuality: 50, Confidence: 60, Playbook: "p", RiskLevel: models.RiskHigh}
	out := Combine(local, models.PatternResult{PatternType: "Moon Shot", RiskLevel: "Extreme", SetupQuality: 250})

	assert.Equal(t, models.PatternMegaGap, out.PatternType)
	assert.Equal(t, models.RiskHigh, out.RiskLevel)
	assert.Equal(t, "p", out.Playbook)
	assert.Equal(t, 60, out.Confidence)
	assert.Equal(t, 100, out.SetupQuality)
}

func TestAdvisedAnalyzerFallsBackOnError(t *testing.T) {
	a := NewAdvisedAnalyzer(stubAdvisor{err: errors.New("timeout")}, logger.NewNop())
	res, err := a.Analyze(context.Background(), kltoInput())
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisLocal, res.AnalysisSource)
	assert.Equal(t, models.PatternFloatSqueeze, res.PatternType)
}

func TestAdvisedAnalyzerCombines(t *testing.T) {
	ai := &models.PatternResult{PatternType: models.PatternMegaGap, SetupQuality: 80, Confidence: 90, RiskLevel: models.RiskHigh}
	a := NewAdvisedAnalyzer(stubAdvisor{res: ai}, logger.NewNop())
	res, err := a.Analyze(context.Background(), kltoInput())
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisAI, res.AnalysisSource)
	assert.Equal(t, models.PatternMegaGap, res.PatternType)
	assert.Equal(t, 90, res.SetupQuality)
}

func TestAdvisedAnalyzerSkipsFallback(t *testing.T) {
	a := NewAdvisedAnalyzer(stubAdvisor{res: &models.PatternResult{PatternType: models.PatternMegaGap}}, logger.NewNop())
	res, err := a.Analyze(context.Background(), Input{})
	require.NoError(t, err)
	assert.Equal(t, models.PatternAnalysisError, res.PatternType)
}
