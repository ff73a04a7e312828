//go:build wireinject
// +build wireinject

package di

import (
	"MarketThermo/pkg/config"
	"MarketThermo/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideRegisterer,
		ProvideMetrics,

		// Upstream market data
		ProvideHTTPClient,
		ProvideRelayRacer,
		ProvideMarketSource,

		// Narrative
		ProvideCache,
		ProvideTextGenerator,
		ProvideNarrator,

		// Messaging
		ProvideKafkaProducer,
		ProvideReportPublisher,

		// Use cases
		ProvideReportUseCase,
		ProvideExportUseCase,
		ProvideBroadcaster,

		// HTTP
		ProvideRateLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
