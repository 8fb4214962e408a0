package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"sync"
	"time"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/internal/services/gap"
	"GapScout/pkg/cache"
	"GapScout/pkg/config"
	xhttp "GapScout/pkg/http"
	"GapScout/pkg/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	loginPath = "/api/auth/login"
	statsPath = "/api/stats/gaps"
)

var (
	ErrUnauthorized = errors.New("research: unauthorized")
	errNoGaps       = errors.New("research: no gaps in period")
)

// Client fetches aggregated gap history. Stats never fails: on any error it
// returns a deterministic substitute tagged HasData=false.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	email    string
	password string
	days     int
	minGap   float64
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	cache    cache.Service
	ttl      time.Duration
	seed     uint64
	log      *logger.Logger

	mu     sync.Mutex
	token  string
	authed bool
}

var _ drepo.HistoricalStatsSource = (*Client)(nil)

type Option func(*Client)

func WithCache(c cache.Service) Option { return func(cl *Client) { cl.cache = c } }

func New(cfg *config.Config, log *logger.Logger, opts ...Option) *Client {
	r := cfg.Research
	if log == nil {
		log = logger.NewNop()
	}
	jar, _ := cookiejar.New(nil)

	interval := r.MinInterval
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	c := &Client{
		http:     xhttp.NewClient(xhttp.WithTimeout(r.Timeout), xhttp.WithHTTPClient(&http.Client{Jar: jar})),
		baseURL:  strings.TrimRight(r.BaseURL, "/"),
		email:    r.Email,
		password: r.Password,
		days:     r.Days,
		minGap:   r.MinGapPercent,
		limiter:  rate.NewLimiter(limit, 1),
		ttl:      r.CacheTTL,
		seed:     r.SimulationSeed,
		log:      log.With(logger.String("client", "research")),
	}

	failures := r.BreakerFailures
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "research",
		Timeout: r.BreakerCoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoGaps) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit state change", logger.String("from", from.String()), logger.String("to", to.String()))
		},
	})

	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether credentials and an endpoint are configured.
func (c *Client) Enabled() bool {
	return c.baseURL != "" && c.email != "" && c.password != ""
}

func (c *Client) Stats(ctx context.Context, symbol string) *models.HistoricalGapStats {
	symbol = strings.ToUpper(symbol)
	if !c.Enabled() {
		return Simulated(symbol, c.seed)
	}

	key := cache.HistoryKey(symbol, c.days)
	if c.cache != nil {
		var cached models.HistoricalGapStats
		if err := c.cache.Get(ctx, key, &cached); err == nil {
			cached.Source = models.StatsSourceCache
			return &cached
		}
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, symbol)
	})
	if err != nil {
		c.log.Warn("historical stats unavailable, using estimate",
			logger.String("symbol", symbol), logger.String("endpoint", statsPath), logger.Error(err))
		return Simulated(symbol, c.seed)
	}

	h := res.(*models.HistoricalGapStats)
	if c.cache != nil {
		if err := c.cache.Set(ctx, key, h, c.ttl); err != nil {
			c.log.Debug("cache stats", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return h
}

func (c *Client) fetch(ctx context.Context, symbol string) (*models.HistoricalGapStats, error) {
	if err := c.ensureAuth(ctx); err != nil {
		return nil, err
	}

	raw, err := c.getStats(ctx, symbol)
	if errors.Is(err, ErrUnauthorized) {
		c.mu.Lock()
		c.authed, c.token = false, ""
		c.mu.Unlock()
		if err := c.ensureAuth(ctx); err != nil {
			return nil, err
		}
		raw, err = c.getStats(ctx, symbol)
	}
	if err != nil {
		return nil, err
	}
	if raw.TotalGaps <= 0 {
		return nil, errNoGaps
	}
	return raw.toModel(symbol, c.days), nil
}

type loginResponse struct {
	APIKey string `json:"api_key"`
	Token  string `json:"token"`
}

func (c *Client) ensureAuth(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authed {
		return nil
	}

	var resp loginResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + loginPath,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    map[string]string{"email": c.email, "password": c.password},
	}, &resp)
	if err != nil {
		if code := xhttp.StatusCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
			return ErrUnauthorized
		}
		return fmt.Errorf("research login: %w", err)
	}

	// A login without a token relies on the session cookie.
	c.token = resp.APIKey
	if c.token == "" {
		c.token = resp.Token
	}
	c.authed = true
	return nil
}

type statsResponse struct {
	PeriodDays          int      `json:"period_days"`
	TotalGaps           int      `json:"total_gaps"`
	GapFrequency        float64  `json:"gap_frequency_percent"`
	AverageGap          float64  `json:"average_gap_percent"`
	MaxGap              float64  `json:"max_gap_percent"`
	GapsUp              int      `json:"gaps_up"`
	GapsDown            int      `json:"gaps_down"`
	FillRate            float64  `json:"gap_fill_rate_percent"`
	AvgHoursToFill      float64  `json:"avg_hours_to_fill"`
	ContinuationRate    float64  `json:"continuation_rate_percent"`
	ReversalRate        float64  `json:"reversal_rate_percent"`
	AvgVolumeMultiplier *float64 `json:"avg_volume_multiplier"`
}

func (r statsResponse) toModel(symbol string, days int) *models.HistoricalGapStats {
	h := &models.HistoricalGapStats{
		Symbol:              symbol,
		PeriodDays:          r.PeriodDays,
		TotalGaps:           r.TotalGaps,
		GapFrequencyPct:     r.GapFrequency,
		ContinuationRatePct: r.ContinuationRate,
		FillRatePct:         r.FillRate,
		ReversalRatePct:     r.ReversalRate,
		AvgGapSizePct:       r.AverageGap,
		MaxGapPct:           r.MaxGap,
		GapsUp:              r.GapsUp,
		GapsDown:            r.GapsDown,
		AvgHoursToFill:      r.AvgHoursToFill,
		VolumeFactor:        1.0,
		HasData:             true,
		Source:              models.StatsSourceResearch,
	}
	if h.PeriodDays == 0 {
		h.PeriodDays = days
	}
	if r.AvgVolumeMultiplier != nil {
		h.VolumeFactor = *r.AvgVolumeMultiplier
	}
	gap.Enrich(h)
	return h
}

func (c *Client) getStats(ctx context.Context, symbol string) (*statsResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	headers := map[string]string{"Accept": "application/json"}
	c.mu.Lock()
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}
	c.mu.Unlock()

	var resp statsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + statsPath,
		Headers: headers,
		QueryParams: map[string][]string{
			"symbol":          {symbol},
			"days":            {strconv.Itoa(c.days)},
			"include_gaps":    {"true"},
			"min_gap_percent": {strconv.FormatFloat(c.minGap, 'f', -1, 64)},
		},
	}, &resp)
	if err != nil {
		if xhttp.StatusCode(err) == http.StatusUnauthorized {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("research stats %s: %w", symbol, err)
	}
	return &resp, nil
}
