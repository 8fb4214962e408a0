package aiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"GapScout/internal/domain/models"
	"GapScout/pkg/config"
	"GapScout/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var klto = models.GapEvent{
	Symbol:        "KLTO",
	PreviousClose: 2.15,
	CurrentPrice:  2.72,
	GapPercent:    26.51,
	Direction:     models.DirectionUp,
	Volume:        850_000,
	Timestamp:     time.Date(2026, 10, 19, 12, 15, 0, 0, time.UTC),
}

func newAdvisor(t *testing.T, h http.HandlerFunc) *Advisor {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.AI.BaseURL = srv.URL
	cfg.AI.APIKey = "sk-test"
	cfg.AI.Retries = 2
	return New(cfg, logger.NewNop())
}

func chatReply(content string) []byte {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{{"message": map[string]string{"role": "assistant", "content": content}}},
	})
	return b
}

func TestClassify(t *testing.T) {
	a := newAdvisor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Contains(t, req.Messages[1].Content, "Symbol: KLTO")
			assert.Contains(t, req.Messages[1].Content, "Current Volume: 850,000")
		}
		_, _ = w.Write(chatReply("Here you go:\n```json\n{\"pattern_type\":\"Float Squeeze\",\"confidence\":88.6,\"setup_quality\":91,\"playbook\":\" Tight float squeeze. \",\"key_factors\":[\"Nano float\"],\"risk_level\":\"High\",\"similar_setups\":\"n/a\"}\n```"))
	})

	res, err := a.Classify(context.Background(), klto, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PatternFloatSqueeze, res.PatternType)
	assert.Equal(t, 89, res.Confidence)
	assert.Equal(t, 91, res.SetupQuality)
	assert.Equal(t, "Tight float squeeze.", res.Playbook)
	assert.Equal(t, models.RiskHigh, res.RiskLevel)
	assert.Equal(t, models.AnalysisAI, res.AnalysisSource)
}

func TestClassifyDropsUnknownLabels(t *testing.T) {
	a := newAdvisor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(chatReply(`{"pattern_type":"Breakout","confidence":150,"setup_quality":-5,"risk_level":"Extreme"}`))
	})
	res, err := a.Classify(context.Background(), klto, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.PatternType)
	assert.Empty(t, res.RiskLevel)
	assert.Equal(t, 100, res.Confidence)
	assert.Equal(t, 0, res.SetupQuality)
}

func TestClassifyNoJSON(t *testing.T) {
	a := newAdvisor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(chatReply("I cannot help with that."))
	})
	_, err := a.Classify(context.Background(), klto, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestClassifyRetriesServerErrors(t *testing.T) {
	var hits int32
	a := newAdvisor(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(chatReply(`{"pattern_type":"Mega Gap","confidence":70,"setup_quality":60,"risk_level":"Medium"}`))
	})
	res, err := a.Classify(context.Background(), klto, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PatternMegaGap, res.PatternType)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestClassifyDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	a := newAdvisor(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := a.Classify(context.Background(), klto, nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestPromptSections(t *testing.T) {
	f := &models.FloatProfile{FloatShares: 3_200_000, Category: models.FloatNano, MarketCap: 17_200_000}
	n := &models.NewsCatalyst{HasCatalyst: true, CatalystScore: 80, HeadlineCount: 2, KeyHeadlines: []string{"FDA approval"}}
	h := &models.HistoricalGapStats{HasData: true, PeriodDays: 90, TotalGaps: 14, ContinuationRatePct: 72, FillRatePct: 30, GapEdgeScore: 85}

	p := Prompt(klto, f, n, h)
	assert.Contains(t, p, "Gap: UP 26.5%")
	assert.Contains(t, p, "Price Movement: $2.15 → $2.72")
	assert.Contains(t, p, "Float Size: 3.2M shares")
	assert.Contains(t, p, "Market Cap: $17,200,000")
	assert.Contains(t, p, "Recent Headlines: FDA approval")
	assert.Contains(t, p, "Continuation Rate: 72%")

	bare := Prompt(klto, nil, &models.NewsCatalyst{}, &models.HistoricalGapStats{})
	assert.NotContains(t, bare, "Float Analysis")
	assert.NotContains(t, bare, "News Catalyst")
	assert.NotContains(t, bare, "Gap History")
}
