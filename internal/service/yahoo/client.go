package yahoo

import (
	"context"
	"fmt"
	"strings"

	"GapScout/internal/domain/models"
	drepo "GapScout/internal/domain/repository"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
)

const source = "yahoo"

// Client is a fundamentals fallback backed by Yahoo Finance quotes.
// Yahoo does not expose a float count here, so shares outstanding stands in.
type Client struct {
	get func(symbol string) (*finance.Equity, error)
}

var _ drepo.FundamentalsSource = (*Client)(nil)

func New() *Client { return &Client{get: equity.Get} }

func (c *Client) Fundamentals(ctx context.Context, symbol string) (*models.ShareStructure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	type result struct {
		eq  *finance.Equity
		err error
	}
	ch := make(chan result, 1)
	go func() {
		eq, err := c.get(symbol)
		ch <- result{eq, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-ch:
	}
	if r.err != nil {
		return nil, fmt.Errorf("yahoo equity %s: %w", symbol, r.err)
	}
	if r.eq == nil || r.eq.SharesOutstanding <= 0 {
		return nil, drepo.ErrNoData
	}

	shares := float64(r.eq.SharesOutstanding)
	return &models.ShareStructure{
		Symbol:            symbol,
		SharesOutstanding: shares,
		FloatShares:       shares,
		MarketCap:         float64(r.eq.MarketCap),
		Source:            source,
	}, nil
}
