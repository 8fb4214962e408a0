//go:build wireinject
// +build wireinject

package di

import (
	"GapScout/internal/usecase"
	"GapScout/pkg/config"
	"GapScout/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure
		ProvideRedis,
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,
		ProvideClock,

		// Market data and enrichment sources
		ProvideAlpaca,
		ProvideTradeTracker,
		ProvideQuoteSource,
		ProvideFinnhub,
		ProvideFundamentals,
		ProvideNews,
		ProvideHistory,

		// Analysis
		ProvideDetector,
		ProvideAnalyzer,
		ProvideScorer,
		ProvideFormatter,

		// Delivery
		ProvideSink,
		ProvideAlertQueue,
		ProvideDispatcher,
		wire.Bind(new(usecase.Dispatcher), new(*usecase.AlertDispatcher)),
		ProvidePublisher,

		// Use cases
		ProvideScanConfig,
		wire.Struct(new(usecase.ScanDeps), "*"),
		ProvideScanUseCase,
		ProvideScheduler,

		// Application server
		ProvideScanHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
