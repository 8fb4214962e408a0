package di

import (
	"fmt"
	"os"
	"time"

	drepo "GapScout/internal/domain/repository"
	"GapScout/internal/handler/api"
	"GapScout/internal/service/aiclient"
	"GapScout/internal/service/alpaca"
	"GapScout/internal/service/console"
	"GapScout/internal/service/finnhub"
	"GapScout/internal/service/kafkapub"
	"GapScout/internal/service/research"
	"GapScout/internal/service/telegram"
	"GapScout/internal/service/yahoo"
	"GapScout/internal/services/alert"
	"GapScout/internal/services/edge"
	"GapScout/internal/services/gap"
	"GapScout/internal/services/pattern"
	"GapScout/internal/services/session"
	"GapScout/internal/usecase"
	"GapScout/pkg/cache"
	"GapScout/pkg/config"
	"GapScout/pkg/logger"
	"GapScout/pkg/metrics"
	"GapScout/pkg/queue"
	"GapScout/pkg/server"
)

// ProvideRedis connects to Redis when enabled. A nil client means
// in-memory caching and in-process alert delivery.
func ProvideRedis(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
		// each worker may hold a fundamentals, history and cooldown call at once
		cache.WithRedisPool(3*cfg.Scanner.Workers+2, 2, 30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideLogger builds the application logger. With Redis available and the
// collector enabled, aggregated error logs are shipped to a Redis queue.
func ProvideLogger(cfg *config.Config, rc *cache.RedisCache) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && rc != nil {
		pub := queue.NewRedisPublisher(l, rc.Client(),
			queue.WithKeyPrefix(cache.GenerateKey(cfg.Redis.Prefix, cfg.Log.Collector.Queue)))
		l.AddCollector(&logger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Queue,
			Publisher:      pub,
		})
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideCache layers memory over Redis when Redis is up, otherwise memory only.
// L1 holds a few entries per watched symbol.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	size := 4*len(cfg.Scanner.Symbols) + 64
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(size))
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemory(size, time.Minute))
}

func ProvideClock(cfg *config.Config) (*session.Clock, error) {
	return session.NewClock(cfg.Session.Timezone,
		session.WithPremarket(cfg.PremarketEnabled()),
		session.WithAfterhours(cfg.AfterhoursEnabled()),
	)
}

func ProvideAlpaca(cfg *config.Config, l *logger.Logger) *alpaca.Client {
	return alpaca.New(cfg, l)
}

// ProvideTradeTracker returns nil unless the Finnhub trade stream is enabled.
func ProvideTradeTracker(cfg *config.Config, l *logger.Logger, m drepo.Metrics, quotes *alpaca.Client) *usecase.TradeTracker {
	if !cfg.Finnhub.Stream.Enabled || cfg.Finnhub.APIKey == "" {
		return nil
	}
	return usecase.NewTradeTracker(finnhub.NewStream(cfg, l), quotes, m, cfg.Finnhub.Stream.MaxAge, l)
}

// ProvideQuoteSource overlays live trades on Alpaca snapshots when streaming.
func ProvideQuoteSource(quotes *alpaca.Client, tracker *usecase.TradeTracker) drepo.QuoteSource {
	if tracker != nil {
		return tracker
	}
	return quotes
}

func ProvideFinnhub(cfg *config.Config, l *logger.Logger, c cache.Service) *finnhub.REST {
	opts := []finnhub.RESTOption{finnhub.WithCache(c)}
	if cfg.Yahoo.Enabled {
		opts = append(opts, finnhub.WithFallback(yahoo.New()))
	}
	return finnhub.NewREST(cfg, l, opts...)
}

// ProvideFundamentals prefers Finnhub (with Yahoo fallback) and uses Yahoo
// alone without a Finnhub key.
func ProvideFundamentals(cfg *config.Config, fh *finnhub.REST) drepo.FundamentalsSource {
	switch {
	case cfg.Finnhub.APIKey != "":
		return fh
	case cfg.Yahoo.Enabled:
		return yahoo.New()
	default:
		return nil
	}
}

func ProvideNews(cfg *config.Config, fh *finnhub.REST) drepo.NewsSource {
	if cfg.Finnhub.APIKey == "" {
		return nil
	}
	return fh
}

func ProvideHistory(cfg *config.Config, l *logger.Logger, c cache.Service) drepo.HistoricalStatsSource {
	return research.New(cfg, l, research.WithCache(c))
}

func ProvideDetector(cfg *config.Config) *gap.Detector {
	return gap.NewDetector(
		gap.WithMinGapPercent(cfg.Thresholds.MinGapPercent),
		gap.WithPriceRange(cfg.Thresholds.MinPrice, cfg.Thresholds.MaxPrice),
		gap.WithMinVolume(cfg.Thresholds.MinVolume),
	)
}

// ProvideAnalyzer combines the rule classifier with the AI advisor when a key is set.
func ProvideAnalyzer(cfg *config.Config, l *logger.Logger) pattern.Analyzer {
	if !cfg.AI.Enabled || cfg.AI.APIKey == "" {
		return pattern.NewLocalAnalyzer()
	}
	return pattern.NewAdvisedAnalyzer(aiclient.New(cfg, l), l)
}

func ProvideScorer(l *logger.Logger) *edge.Scorer {
	return edge.NewScorer(l)
}

func ProvideFormatter(clock *session.Clock) *alert.Formatter {
	return alert.NewFormatter(alert.WithLocation(clock.Location()))
}

// ProvideSink sends to Telegram when configured, otherwise to the terminal.
func ProvideSink(cfg *config.Config, l *logger.Logger) drepo.AlertSink {
	if cfg.TelegramEnabled() {
		return telegram.New(cfg, l)
	}
	l.Info("telegram not configured, alerts go to the console")
	return console.New(os.Stdout)
}

// ProvideAlertQueue builds the Redis alert queue in redis mode, nil otherwise.
func ProvideAlertQueue(cfg *config.Config, l *logger.Logger, rc *cache.RedisCache, sink drepo.AlertSink, m drepo.Metrics) *queue.RedisQueue {
	if cfg.Alerts.Mode != "redis" || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l,
		&queue.QueueConfig{
			Workers:    cfg.Alerts.Concurrency,
			RetryLimit: cfg.Alerts.RetryLimit,
			// a newer alert for the symbol may go out once the cooldown lapses
			MaxAge: cfg.Alerts.Cooldown,
		},
		rc.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix(cache.GenerateKey(cfg.Redis.Prefix, cfg.Alerts.Queue)))
	q.RegisterJob(usecase.NewSendAlertJob(sink, m, l))
	return q
}

func ProvideDispatcher(cfg *config.Config, l *logger.Logger, sink drepo.AlertSink, m drepo.Metrics, q *queue.RedisQueue) *usecase.AlertDispatcher {
	opts := []usecase.DispatcherOption{
		usecase.WithSpacing(cfg.Alerts.Spacing),
		usecase.WithBuffer(cfg.Alerts.BufferSize),
	}
	if q != nil {
		opts = append(opts, usecase.WithQueue(q))
	}
	return usecase.NewAlertDispatcher(sink, m, l, opts...)
}

func ProvidePublisher(cfg *config.Config, l *logger.Logger) (drepo.ResultPublisher, error) {
	return kafkapub.NewFromConfig(cfg, l)
}

func ProvideScanConfig(cfg *config.Config) usecase.ScanConfig {
	return usecase.ScanConfig{
		Symbols:       cfg.Scanner.Symbols,
		Workers:       cfg.Scanner.Workers,
		SymbolTimeout: cfg.Scanner.SymbolTimeout,
		NewsLookback:  cfg.Scanner.NewsLookback,
		TopN:          cfg.Alerts.TopN,
		Cooldown:      cfg.Alerts.Cooldown,
		Summary:       cfg.Alerts.Summary,
	}
}

func ProvideScanUseCase(sc usecase.ScanConfig, deps usecase.ScanDeps, l *logger.Logger) *usecase.ScanUseCase {
	return usecase.NewScanUseCase(sc, deps, l)
}

func ProvideScheduler(cfg *config.Config, uc *usecase.ScanUseCase, clock *session.Clock, l *logger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(uc, clock, cfg.Scanner.Interval, l)
}

func ProvideScanHandler(l *logger.Logger, uc *usecase.ScanUseCase, clock *session.Clock, c cache.Service) *api.ScanHandler {
	return api.NewScanHandler(l, uc, clock, c)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	uc *usecase.ScanUseCase,
	scheduler *usecase.Scheduler,
	dispatcher *usecase.AlertDispatcher,
	q *queue.RedisQueue,
	tracker *usecase.TradeTracker,
	pub drepo.ResultPublisher,
	c cache.Service,
	rc *cache.RedisCache,
	h *api.ScanHandler,
) *server.App {
	return server.New(cfg, l, server.Components{
		Scan:       uc,
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		AlertQueue: q,
		Tracker:    tracker,
		Publisher:  pub,
		Cache:      c,
		Redis:      rc,
		Handler:    h,
	})
}
