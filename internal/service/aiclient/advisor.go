package aiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/pkg/config"
	xhttp "GapScout/pkg/http"
	"GapScout/pkg/logger"

	"github.com/dustin/go-humanize"
)

const (
	completionsPath = "/chat/completions"
	maxTokens       = 800
	temperature     = 0.3
)

var ErrNoJSON = errors.New("ai reply has no JSON object")

const systemPrompt = `You are an expert small-cap day trading analyst specializing in premarket gap patterns and float analysis.

Classify the setup for intraday trading. Do NOT provide entry/exit signals or price targets. Focus on:
1. Pattern classification
2. Setup quality for intraday moves
3. An educational playbook description
4. Historical context for same-day patterns

Respond in this exact JSON format:
{
  "pattern_type": "Float Squeeze" | "News Catalyst" | "Mega Gap" | "Statistical Edge" | "Gap & Go" | "Micro Float" | "Standard Gap",
  "confidence": 0-100,
  "setup_quality": 0-100,
  "playbook": "Brief educational description of the pattern and what typically happens",
  "key_factors": ["factor1", "factor2", "factor3"],
  "risk_level": "Low" | "Medium" | "High",
  "similar_setups": "Historical reference if applicable"
}`

// Advisor classifies gaps with an OpenAI-compatible chat completions endpoint.
type Advisor struct {
	base     *HTTPServiceBase
	model    string
	attempts int
	log      *logger.Logger
}

var _ drepo.PatternAdvisor = (*Advisor)(nil)

func New(cfg *config.Config, log *logger.Logger, opts ...xhttp.ClientOption) *Advisor {
	a := cfg.AI
	if log == nil {
		log = logger.NewNop()
	}
	return &Advisor{
		base: NewHTTPServiceBase(strings.TrimRight(a.BaseURL, "/"), a.Timeout,
			map[string]string{"Authorization": "Bearer " + a.APIKey}, opts...),
		model:    a.Model,
		attempts: a.Retries + 1,
		log:      log.With(logger.String("client", "ai")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type reply struct {
	PatternType   string   `json:"pattern_type"`
	Confidence    float64  `json:"confidence"`
	SetupQuality  float64  `json:"setup_quality"`
	Playbook      string   `json:"playbook"`
	KeyFactors    []string `json:"key_factors"`
	RiskLevel     string   `json:"risk_level"`
	SimilarSetups string   `json:"similar_setups"`
}

func (a *Advisor) Classify(ctx context.Context, gap models.GapEvent, float *models.FloatProfile, news *models.NewsCatalyst, hist *models.HistoricalGapStats) (*models.PatternResult, error) {
	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: Prompt(gap, float, news, hist)},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	var resp chatResponse
	if err := a.base.PostJSONWithRetry(ctx, completionsPath, req, &resp, a.attempts); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ai reply: no choices")
	}

	r, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		a.log.Debug("unparseable ai reply", logger.String("symbol", gap.Symbol), logger.Error(err))
		return nil, err
	}

	out := &models.PatternResult{
		Symbol:         gap.Symbol,
		Confidence:     toScore(r.Confidence),
		SetupQuality:   toScore(r.SetupQuality),
		Playbook:       strings.TrimSpace(r.Playbook),
		KeyFactors:     r.KeyFactors,
		SimilarSetups:  strings.TrimSpace(r.SimilarSetups),
		AnalysisSource: models.AnalysisAI,
	}
	// Labels outside the closed sets are dropped so the local result keeps them.
	if pt := models.PatternType(strings.TrimSpace(r.PatternType)); pt.Valid() {
		out.PatternType = pt
	}
	if rl := models.RiskLevel(strings.TrimSpace(r.RiskLevel)); rl.Valid() {
		out.RiskLevel = rl
	}
	return out, nil
}

// Prompt renders the user message describing one setup.
func Prompt(gap models.GapEvent, float *models.FloatProfile, news *models.NewsCatalyst, hist *models.HistoricalGapStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TRADING SETUP ANALYSIS REQUEST\n\n")
	fmt.Fprintf(&b, "Symbol: %s\n", gap.Symbol)
	fmt.Fprintf(&b, "Gap: %s %.1f%%\n", gap.Direction, gap.AbsGap())
	fmt.Fprintf(&b, "Price Movement: $%.2f → $%.2f\n", gap.PreviousClose, gap.CurrentPrice)
	fmt.Fprintf(&b, "Current Volume: %s\n", humanize.Comma(gap.Volume))

	if float.HasFloat() {
		fmt.Fprintf(&b, "\nFloat Analysis:\n- Float Size: %.1fM shares\n- Category: %s\n", float.FloatMillions(), float.Category)
		if float.MarketCap > 0 {
			fmt.Fprintf(&b, "- Market Cap: $%s\n", humanize.Comma(int64(float.MarketCap)))
		}
	}
	if news.Active() {
		fmt.Fprintf(&b, "\nNews Catalyst:\n- Catalyst Score: %d/100\n- Recent Headlines: %s\n- News Count: %d\n",
			news.CatalystScore, strings.Join(news.KeyHeadlines, " | "), news.HeadlineCount)
	}
	if hist.Real() {
		fmt.Fprintf(&b, "\nGap History (%d days):\n- Total Gaps: %d\n- Continuation Rate: %.0f%%\n- Fill Rate: %.0f%%\n- Edge Score: %d/100\n",
			hist.PeriodDays, hist.TotalGaps, hist.ContinuationRatePct, hist.FillRatePct, hist.GapEdgeScore)
	}
	b.WriteString("\nPlease analyze this setup and classify the pattern. Focus on educational value and pattern recognition rather than trading signals.\n")
	return b.String()
}

// parseReply decodes the outermost JSON object embedded in a model reply.
func parseReply(content string) (*reply, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}
	var r reply
	if err := json.Unmarshal([]byte(content[start:end+1]), &r); err != nil {
		return nil, fmt.Errorf("decode ai reply: %w", err)
	}
	return &r, nil
}

func toScore(v float64) int {
	return int(math.Max(0, math.Min(100, math.Round(v))))
}
