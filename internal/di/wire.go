//go:build wireinject
// +build wireinject

package di

import (
	"MarketPhase/pkg/config"
	"MarketPhase/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Feeds and core
		ProvideHTTPClient,
		ProvideSources,
		ProvideClassifier,

		// Repositories
		ProvideReportStore,
		ProvideReportPublisher,

		// Use cases
		ProvidePhaseAnalyzer,
		ProvideScheduler,
		ProvideIndicatorConsumer,

		// HTTP
		ProvidePhaseHandler,
		ProvideStreamHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
