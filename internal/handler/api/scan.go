package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"GapScout/internal/domain/models"
	"GapScout/internal/service/ratelimit"
	"GapScout/internal/services/session"
	"GapScout/pkg/cache"
	xhttp "GapScout/pkg/http"
	xlogger "GapScout/pkg/logger"
	"GapScout/pkg/util"

	"github.com/labstack/echo/v4"
)

const (
	edgeCacheTTL = 30 * time.Second

	// per client: burst of 2 triggered scans, one more every 30s
	scanBurst  = 2
	scanRefill = 1.0 / 30
)

// Scanner is the part of the scan use case the API drives.
type Scanner interface {
	Latest() *models.ScanReport
	RunCycle(ctx context.Context) (*models.ScanReport, error)
	Analyze(ctx context.Context, symbols []string, force bool) (*models.ScanReport, error)
}

// ScanHandler serves scan results, on-demand edge analysis and session state.
type ScanHandler struct {
	logger *xlogger.Logger
	scan   Scanner
	clock  *session.Clock
	cache  cache.Service
	rl     *ratelimit.Limiter
	now    func() time.Time
}

func NewScanHandler(logger *xlogger.Logger, scan Scanner, clock *session.Clock, c cache.Service) *ScanHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ScanHandler{logger: logger, scan: scan, clock: clock, cache: c, rl: ratelimit.New(), now: time.Now}
}

func (h *ScanHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/scan/latest", h.Latest)
	g.POST("/scan", h.Scan)
	g.GET("/edge", h.Edge)
	g.GET("/session", h.Session)
}

func (h *ScanHandler) Health(c echo.Context) error {
	res := map[string]interface{}{"status": "ok"}
	if r := h.scan.Latest(); r != nil {
		res["last_scan"] = r.FinishedAt
	}
	return c.JSON(http.StatusOK, res)
}

// Latest returns the last completed cycle, trimmed to limit opportunities.
func (h *ScanHandler) Latest(c echo.Context) error {
	req := &models.LatestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	r := h.scan.Latest()
	if r == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no completed scan yet"))
	}
	out := *r
	out.Opportunities = r.Top(req.Limit)
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, out)
}

// Scan runs a full cycle over the watchlist, or analyses the given symbols
// without dispatching alerts.
func (h *ScanHandler) Scan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":scan", scanBurst, scanRefill) {
		h.logger.Warn("scan trigger rate limited", xlogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.RateLimitedError("too many scan requests"))
	}

	ctx := c.Request().Context()
	var (
		report *models.ScanReport
		err    error
	)
	if symbols := util.NormalizeSymbols(req.Symbols); len(symbols) > 0 {
		report, err = h.scan.Analyze(ctx, symbols, req.Force)
	} else {
		report, err = h.scan.RunCycle(ctx)
	}
	if err != nil {
		h.logger.Error("scan request failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("scan failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

// Edge runs the pipeline for one symbol. Results are cached briefly.
func (h *ScanHandler) Edge(c echo.Context) error {
	req := &models.EdgeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbols := util.NormalizeSymbols([]string{req.Symbol})
	if len(symbols) != 1 {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid symbol %q", req.Symbol))
	}
	symbol := symbols[0]
	ctx := c.Request().Context()
	key := cache.EdgeKey(symbol, req.Force)

	if h.cache != nil {
		var cached models.Opportunity
		err := h.cache.Get(ctx, key, &cached)
		if err == nil {
			h.logger.Debug("edge cache hit", xlogger.String("key", key))
			return xhttp.SuccessResponse(c, cached)
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			h.logger.Warn("edge cache get failed", xlogger.Error(err))
		}
	}

	report, err := h.scan.Analyze(ctx, []string{symbol}, req.Force)
	if err != nil {
		h.logger.Error("edge request failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("analysis failed").WithError(err))
	}
	if msg, failed := report.Errors[symbol]; failed {
		return xhttp.AppErrorResponse(c, xhttp.UpstreamError("symbol", msg))
	}
	if len(report.Opportunities) == 0 {
		return xhttp.AppErrorResponse(c,
			xhttp.NotFoundErrorf("no qualifying gap for %s", symbol).WithParam("force", req.Force))
	}

	opp := report.Opportunities[0]
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, opp, edgeCacheTTL); err != nil {
			h.logger.Warn("edge cache set failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, opp)
}

// Session reports the market session at ?at= (RFC3339 or unix), default now.
func (h *ScanHandler) Session(c echo.Context) error {
	req := &models.SessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	at := util.ParseTimeDefault(req.At, h.now())
	return xhttp.SuccessResponse(c, h.clock.Info(at))
}
