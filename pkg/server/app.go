package server

import (
	"context"
	"fmt"
	"io"
	"time"

	drepo "GapScout/internal/domain/repository"
	"GapScout/internal/usecase"
	"GapScout/pkg/cache"
	"GapScout/pkg/config"
	xhttp "GapScout/pkg/http"
	applogger "GapScout/pkg/logger"
	"GapScout/pkg/queue"
)

const drainTimeout = 30 * time.Second

// Components are the long-lived parts the App starts and stops.
// AlertQueue, Tracker and Redis may be nil.
type Components struct {
	Scan       *usecase.ScanUseCase
	Scheduler  *usecase.Scheduler
	Dispatcher *usecase.AlertDispatcher
	AlertQueue *queue.RedisQueue
	Tracker    *usecase.TradeTracker
	Publisher  drepo.ResultPublisher
	Cache      cache.Service
	Redis      *cache.RedisCache
	Handler    xhttp.Handler
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	c          Components
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, log: l, c: c}
}

// Logger returns the application logger.
func (a *App) Logger() *applogger.Logger { return a.log }

// Serve runs the scheduler, live trade stream, alert delivery and the HTTP
// API until ctx is cancelled, then shuts everything down.
func (a *App) Serve(ctx context.Context) error {
	if err := a.startDelivery(); err != nil {
		return err
	}

	if a.c.Tracker != nil {
		if err := a.c.Tracker.Start(ctx, a.cfg.Scanner.Symbols); err != nil {
			a.log.Warn("trade stream unavailable, using snapshots only", applogger.Error(err))
		} else {
			a.log.Info("trade stream started", applogger.Int("symbols", len(a.cfg.Scanner.Symbols)))
		}
	}

	if a.cfg.Server.Enabled {
		a.httpServer = xhttp.NewServer(a.c.Handler,
			xhttp.WithPort(a.cfg.Server.Port),
			xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
			xhttp.WithLogger(a.log),
		)
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			a.httpServer = nil
			_ = a.shutdown()
			return err
		}
	}

	if err := a.c.Scheduler.Start(ctx); err != nil {
		_ = a.shutdown()
		return err
	}
	a.log.Info("gapscout running",
		applogger.Int("symbols", len(a.cfg.Scanner.Symbols)),
		applogger.Duration("interval", a.cfg.Scanner.Interval),
		applogger.String("alerts", a.cfg.Alerts.Mode))

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// ScanOnce runs a single cycle regardless of market session, waits for its
// alerts to be handed off and shuts down.
func (a *App) ScanOnce(ctx context.Context) (err error) {
	if err := a.startDelivery(); err != nil {
		return err
	}
	defer func() {
		if serr := a.shutdown(); err == nil {
			err = serr
		}
	}()

	report, err := a.c.Scan.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	a.log.Info("single scan finished",
		applogger.String("id", report.ID),
		applogger.Int("opportunities", len(report.Opportunities)),
		applogger.Strings("alerted", report.Alerted))
	return nil
}

// Analyze prints the alert for each given symbol without dispatching.
func (a *App) Analyze(ctx context.Context, symbols []string, force bool, w io.Writer) error {
	defer func() { _ = a.closeInfra() }()

	report, err := a.c.Scan.Analyze(ctx, symbols, force)
	if err != nil {
		return err
	}
	for sym, msg := range report.Errors {
		fmt.Fprintf(w, "%s: error: %s\n", sym, msg)
	}
	if len(report.Opportunities) == 0 {
		fmt.Fprintln(w, "No qualifying gaps. Use --force to analyse anyway.")
		return nil
	}
	for _, o := range report.Opportunities {
		fmt.Fprintf(w, "%s\n\n", o.Alert)
	}
	return nil
}

func (a *App) startDelivery() error {
	if a.c.AlertQueue != nil {
		if err := a.c.AlertQueue.Start(); err != nil {
			return fmt.Errorf("alert queue: %w", err)
		}
	}
	a.c.Dispatcher.Start()
	return nil
}

// shutdown stops producers before consumers: scheduler, trade stream,
// dispatcher, queue, HTTP, then infrastructure.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := a.c.Scheduler.Stop(ctx); err != nil {
		a.log.Warn("scheduler stop error", applogger.Error(err))
	}
	if a.c.Tracker != nil {
		if err := a.c.Tracker.Shutdown(ctx); err != nil {
			a.log.Warn("trade stream stop error", applogger.Error(err))
		}
	}
	if err := a.c.Dispatcher.Close(ctx); err != nil {
		a.log.Warn("alert drain incomplete", applogger.Error(err))
	}
	if a.c.AlertQueue != nil {
		if st, err := a.c.AlertQueue.Stats(ctx); err == nil && (st.Pending > 0 || st.Dead > 0) {
			a.log.Warn("alerts left in queue",
				applogger.Int64("pending", st.Pending),
				applogger.Int64("retrying", st.Retrying),
				applogger.Int64("dead", st.Dead))
		}
		if err := a.c.AlertQueue.Stop(ctx); err != nil {
			a.log.Warn("alert queue stop error", applogger.Error(err))
		}
	}
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if err := a.closeInfra(); err != nil {
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}

func (a *App) closeInfra() error {
	if a.c.Publisher != nil {
		if err := a.c.Publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	a.log.RemoveCollector()
	if a.c.Cache != nil {
		if err := a.c.Cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.c.Redis != nil {
		if err := a.c.Redis.Close(); err != nil {
			return fmt.Errorf("redis close: %w", err)
		}
	}
	return nil
}
