package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"
	"GapScout/internal/service/ratelimit"
	"GapScout/pkg/config"
	xhttp "GapScout/pkg/http"
	"GapScout/pkg/logger"
)

const limiterKey = "alpaca"

type bar struct {
	Close  float64   `json:"c"`
	Volume int64     `json:"v"`
	Time   time.Time `json:"t"`
}

type trade struct {
	Price float64   `json:"p"`
	Size  int64     `json:"s"`
	Time  time.Time `json:"t"`
}

type snapshotResponse struct {
	LatestTrade  *trade `json:"latestTrade"`
	MinuteBar    *bar   `json:"minuteBar"`
	DailyBar     *bar   `json:"dailyBar"`
	PrevDailyBar *bar   `json:"prevDailyBar"`
}

// Client reads stock snapshots from the Alpaca market data API.
type Client struct {
	http      *xhttp.Client
	baseURL   string
	feed      string
	headers   map[string]string
	limiter   *ratelimit.Limiter
	capacity  float64
	perSecond float64
	log       *logger.Logger
}

var _ drepo.QuoteSource = (*Client)(nil)

func New(cfg *config.Config, log *logger.Logger, opts ...xhttp.ClientOption) *Client {
	a := cfg.Alpaca
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(a.Timeout)}, opts...)
	return &Client{
		http:    xhttp.NewClient(opts...),
		baseURL: strings.TrimRight(a.DataURL, "/"),
		feed:    a.Feed,
		headers: map[string]string{
			"APCA-API-KEY-ID":     a.APIKey,
			"APCA-API-SECRET-KEY": a.SecretKey,
			"Accept":              "application/json",
		},
		limiter:   ratelimit.New(),
		capacity:  float64(a.RateCapacity),
		perSecond: float64(a.RatePerMin) / 60,
		log:       log,
	}
}

// Snapshot returns previous close, latest trade and recent volume.
// Symbols without a previous bar or a latest trade yield ErrNoData.
func (c *Client) Snapshot(ctx context.Context, symbol string) (*models.Snapshot, error) {
	symbol = strings.ToUpper(symbol)
	if err := c.limiter.Wait(ctx, limiterKey, c.capacity, c.perSecond); err != nil {
		return nil, fmt.Errorf("alpaca rate limit: %w", err)
	}

	q := map[string][]string{}
	if c.feed != "" {
		q["feed"] = []string{c.feed}
	}

	var resp snapshotResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         fmt.Sprintf("%s/v2/stocks/%s/snapshot", c.baseURL, symbol),
		Headers:     c.headers,
		QueryParams: q,
	}, &resp)
	if err != nil {
		if xhttp.StatusCode(err) == http.StatusNotFound {
			return nil, drepo.ErrNoData
		}
		return nil, fmt.Errorf("alpaca snapshot %s: %w", symbol, err)
	}

	if resp.PrevDailyBar == nil || resp.PrevDailyBar.Close <= 0 || resp.LatestTrade == nil || resp.LatestTrade.Price <= 0 {
		c.log.Debug("incomplete snapshot", logger.String("symbol", symbol))
		return nil, drepo.ErrNoData
	}

	s := &models.Snapshot{
		Symbol:        symbol,
		PreviousClose: resp.PrevDailyBar.Close,
		LatestPrice:   resp.LatestTrade.Price,
		Timestamp:     resp.LatestTrade.Time,
	}
	switch {
	case resp.MinuteBar != nil:
		s.Volume = resp.MinuteBar.Volume
	case resp.DailyBar != nil:
		s.Volume = resp.DailyBar.Volume
	}
	return s, nil
}
