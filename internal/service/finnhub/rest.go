package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/internal/service/ratelimit"
	"GapScout/pkg/cache"
	"GapScout/pkg/config"
	xhttp "GapScout/pkg/http"
	"GapScout/pkg/logger"
)

const (
	source        = "finnhub"
	millions      = 1_000_000
	dateLayout    = "2006-01-02"
	defaultPause  = 60 * time.Second
	maxRetryAfter = 2 * time.Minute
)

// REST is the Finnhub HTTP client for fundamentals and company news.
type REST struct {
	http     *xhttp.Client
	baseURL  string
	token    string
	window   *ratelimit.Window
	cache    cache.Service
	ttl      time.Duration
	fallback drepo.FundamentalsSource
	backoff  time.Duration
	log      *logger.Logger
}

var (
	_ drepo.FundamentalsSource = (*REST)(nil)
	_ drepo.NewsSource         = (*REST)(nil)
)

type RESTOption func(*REST)

// WithCache stores fundamentals in c for the configured TTL.
func WithCache(c cache.Service) RESTOption { return func(r *REST) { r.cache = c } }

// WithFallback is consulted when Finnhub has no float count.
func WithFallback(src drepo.FundamentalsSource) RESTOption {
	return func(r *REST) { r.fallback = src }
}

// WithBackoff sets the pause after a 429 without Retry-After.
func WithBackoff(d time.Duration) RESTOption { return func(r *REST) { r.backoff = d } }

func NewREST(cfg *config.Config, log *logger.Logger, opts ...RESTOption) *REST {
	f := cfg.Finnhub
	if log == nil {
		log = logger.NewNop()
	}
	r := &REST{
		http:    xhttp.NewClient(xhttp.WithTimeout(f.Timeout)),
		baseURL: strings.TrimRight(f.BaseURL, "/"),
		token:   f.APIKey,
		window:  ratelimit.NewWindow(f.RatePerMin, time.Minute),
		ttl:     f.CacheTTL,
		backoff: defaultPause,
		log:     log.With(logger.String("client", source)),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *REST) get(ctx context.Context, path string, q map[string][]string, dest interface{}) error {
	req := &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         r.baseURL + path,
		Headers:     map[string]string{"X-Finnhub-Token": r.token, "Accept": "application/json"},
		QueryParams: q,
	}

	for attempt := 0; ; attempt++ {
		if err := r.window.Wait(ctx); err != nil {
			return err
		}
		err := r.http.SendAndParse(ctx, req, dest)
		if err == nil || attempt > 0 || xhttp.StatusCode(err) != http.StatusTooManyRequests {
			return err
		}

		pause := r.retryAfter(err)
		r.log.Warn("rate limited, backing off", logger.String("path", path), logger.Duration("pause", pause))
		t := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *REST) retryAfter(err error) time.Duration {
	var se *xhttp.StatusError
	if errors.As(err, &se) && se.RetryAfter != "" {
		if secs, perr := strconv.Atoi(se.RetryAfter); perr == nil && secs >= 0 {
			d := time.Duration(secs) * time.Second
			if d > maxRetryAfter {
				d = maxRetryAfter
			}
			return d
		}
	}
	return r.backoff
}

type metricResponse struct {
	Metric struct {
		SharesOutstanding    *float64 `json:"sharesOutstanding"`
		FloatShares          *float64 `json:"floatShares"`
		MarketCapitalization *float64 `json:"marketCapitalization"`
		SharesShort          *float64 `json:"sharesShort"`
		ShortRatio           *float64 `json:"shortRatio"`
	} `json:"metric"`
}

type profileResponse struct {
	ShareOutstanding     float64 `json:"shareOutstanding"`
	MarketCapitalization float64 `json:"marketCapitalization"`
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Fundamentals merges /stock/metric and /stock/profile2. Finnhub reports
// share counts and market cap in millions.
func (r *REST) Fundamentals(ctx context.Context, symbol string) (*models.ShareStructure, error) {
	symbol = strings.ToUpper(symbol)
	key := cache.FundamentalsKey(symbol)

	if r.cache != nil {
		var cached models.ShareStructure
		if err := r.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	s := &models.ShareStructure{Symbol: symbol, Source: source}

	var m metricResponse
	err := r.get(ctx, "/stock/metric", map[string][]string{"symbol": {symbol}, "metric": {"all"}}, &m)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.log.Debug("metric lookup failed", logger.String("symbol", symbol), logger.Error(err))
	} else {
		s.SharesOutstanding = val(m.Metric.SharesOutstanding) * millions
		s.FloatShares = val(m.Metric.FloatShares) * millions
		s.MarketCap = val(m.Metric.MarketCapitalization) * millions
		s.SharesShort = val(m.Metric.SharesShort) * millions
		s.ShortRatio = val(m.Metric.ShortRatio)
	}

	if s.SharesOutstanding <= 0 {
		var p profileResponse
		if perr := r.get(ctx, "/stock/profile2", map[string][]string{"symbol": {symbol}}, &p); perr == nil {
			s.SharesOutstanding = p.ShareOutstanding * millions
			if s.MarketCap <= 0 {
				s.MarketCap = p.MarketCapitalization * millions
			}
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if s.FloatShares <= 0 && r.fallback != nil {
		if fb, ferr := r.fallback.Fundamentals(ctx, symbol); ferr == nil && fb != nil {
			s.FloatShares = fb.FloatShares
			if s.SharesOutstanding <= 0 {
				s.SharesOutstanding = fb.SharesOutstanding
			}
			if s.MarketCap <= 0 {
				s.MarketCap = fb.MarketCap
			}
			s.Source = source + "+" + fb.Source
		} else if ferr != nil && !errors.Is(ferr, drepo.ErrNoData) {
			r.log.Debug("fallback fundamentals failed", logger.String("symbol", symbol), logger.Error(ferr))
		}
	}

	if s.SharesOutstanding <= 0 && s.FloatShares <= 0 {
		return nil, drepo.ErrNoData
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, s, r.ttl); err != nil {
			r.log.Warn("cache fundamentals", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return s, nil
}

type newsItem struct {
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"`
}

// News returns company news published within [from, to], newest first.
func (r *REST) News(ctx context.Context, symbol string, from, to time.Time) ([]models.NewsItem, error) {
	symbol = strings.ToUpper(symbol)
	var raw []newsItem
	err := r.get(ctx, "/company-news", map[string][]string{
		"symbol": {symbol},
		"from":   {from.UTC().Format(dateLayout)},
		"to":     {to.UTC().Format(dateLayout)},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("finnhub news %s: %w", symbol, err)
	}

	out := make([]models.NewsItem, 0, len(raw))
	for _, n := range raw {
		at := time.Unix(n.Datetime, 0).UTC()
		if at.Before(from) || at.After(to) {
			continue
		}
		out = append(out, models.NewsItem{
			Headline:    n.Headline,
			Summary:     n.Summary,
			Source:      n.Source,
			URL:         n.URL,
			PublishedAt: at,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return out, nil
}
