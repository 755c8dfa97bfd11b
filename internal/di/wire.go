//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"StockPulse/pkg/config"
	"StockPulse/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideRegisterer,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisClient,
		ProvideCache,
		ProvideHTTPClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Repositories
		ProvideQuoteProvider,
		ProvideQuoteStore,
		ProvideCandleStore,
		ProvidePublisher,

		// Use cases
		ProvideSession,
		ProvideHub,
		ProvideQuoteProcessor,
		ProvideQuotePipeline,
		ProvideQuotePoller,
		ProvideMarketData,
		ProvideQueue,
		ProvideBackfill,
		ProvideKafkaConsumer,

		// HTTP
		ProvideLimiter,
		ProvideMarketHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
