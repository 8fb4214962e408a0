package pattern

import (
	"context"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/logger"
)

// Analyzer produces a PatternResult for a gap.
type Analyzer interface {
	Analyze(ctx context.Context, in Input) (models.PatternResult, error)
}

// LocalAnalyzer wraps the rule classifier.
type LocalAnalyzer struct {
	c *Classifier
}

func NewLocalAnalyzer() *LocalAnalyzer { return &LocalAnalyzer{c: NewClassifier()} }

func (a *LocalAnalyzer) Analyze(_ context.Context, in Input) (models.PatternResult, error) {
	return a.c.Classify(in), nil
}

// AdvisedAnalyzer combines the local result with an external advisor.
// Advisor errors fall back to the local result.
type AdvisedAnalyzer struct {
	local   *LocalAnalyzer
	advisor drepo.PatternAdvisor
	log     *logger.Logger
}

func NewAdvisedAnalyzer(advisor drepo.PatternAdvisor, log *logger.Logger) *AdvisedAnalyzer {
	return &AdvisedAnalyzer{local: NewLocalAnalyzer(), advisor: advisor, log: log}
}

func (a *AdvisedAnalyzer) Analyze(ctx context.Context, in Input) (models.PatternResult, error) {
	local, _ := a.local.Analyze(ctx, in)
	if a.advisor == nil || in.Gap == nil || local.PatternType == models.PatternAnalysisError {
		return local, nil
	}
	ai, err := a.advisor.Classify(ctx, *in.Gap, in.Float, in.News, in.History)
	if err != nil || ai == nil {
		if err != nil {
			a.log.Warn("pattern advisor failed, using local analysis",
				logger.String("symbol", in.Gap.Symbol), logger.Error(err))
		}
		return local, nil
	}
	return Combine(local, *ai), nil
}

// Combine merges an advisor result into the local one. The advisor's
// pattern, playbook, confidence and risk win when valid; quality is averaged;
// key factors are merged without duplicates.
func Combine(local, ai models.PatternResult) models.PatternResult {
	out := local
	out.AnalysisSource = models.AnalysisAI

	if ai.PatternType.Valid() && ai.PatternType != models.PatternAnalysisError {
		out.PatternType = ai.PatternType
	}
	if ai.Playbook != "" {
		out.Playbook = ai.Playbook
	}
	if ai.Confidence > 0 {
		out.Confidence = clamp(ai.Confidence)
	}
	if ai.RiskLevel.Valid() {
		out.RiskLevel = ai.RiskLevel
	}
	if ai.SimilarSetups != "" {
		out.SimilarSetups = ai.SimilarSetups
	}
	out.SetupQuality = clamp((ai.SetupQuality + local.SetupQuality) / 2)

	seen := make(map[string]struct{}, len(local.KeyFactors)+len(ai.KeyFactors))
	merged := make([]string, 0, len(local.KeyFactors)+len(ai.KeyFactors))
	for _, f := range append(append([]string(nil), ai.KeyFactors...), local.KeyFactors...) {
		if _, ok := seen[f]; ok || f == "" {
			continue
		}
		seen[f] = struct{}{}
		merged = append(merged, f)
	}
	out.KeyFactors = merged
	return out
}

func clamp(v int) int {
	return max(0, min(v, 100))
}
