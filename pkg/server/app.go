package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketPhase/internal/domain/models"
	"MarketPhase/internal/handler/api"
	"MarketPhase/internal/usecase"
	"MarketPhase/pkg/config"
	xhttp "MarketPhase/pkg/http"
	pkgkafka "MarketPhase/pkg/kafka"
	applogger "MarketPhase/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	analyzer   *usecase.PhaseAnalyzer
	scheduler  *usecase.Scheduler
	consumer   *pkgkafka.Consumer // nil when no indicators topic is configured
	httpServer *xhttp.Server
	stream     *api.StreamHandler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	analyzer *usecase.PhaseAnalyzer,
	scheduler *usecase.Scheduler,
	consumer *pkgkafka.Consumer,
	httpServer *xhttp.Server,
	stream *api.StreamHandler,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		analyzer:   analyzer,
		scheduler:  scheduler,
		consumer:   consumer,
		httpServer: httpServer,
		stream:     stream,
	}
}

// Once runs a single live analysis without starting any background service.
func (a *App) Once(ctx context.Context) (*models.PhaseReport, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Analysis.FetchTimeout+5*time.Second)
	defer cancel()
	return a.analyzer.Analyze(ctx)
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	if a.cfg.AnySourceEnabled() {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	} else {
		a.log.Warn("no indicator source enabled, live analysis is off")
	}

	if a.consumer != nil {
		if err := a.consumer.Start(ctx); err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		a.log.Info("indicator consumer started", applogger.String("topic", a.cfg.Kafka.IndicatorsTopic))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh

	a.log.Info("shutdown signal received", applogger.String("signal", sig.String()))
	cancel()
	return a.shutdown()
}

// shutdown stops intake first, then the HTTP side.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.scheduler.Shutdown(ctx); err != nil {
		a.log.Warn("scheduler stop error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if err := a.stream.Close(); err != nil {
		a.log.Warn("stream close error", applogger.Error(err))
	}

	var shutdownErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		shutdownErr = err
	}

	a.log.Info("shutdown complete")
	return shutdownErr
}
