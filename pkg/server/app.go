package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MarketThermo/internal/domain/repository"
	"MarketThermo/internal/usecase"
	"MarketThermo/pkg/cache"
	"MarketThermo/pkg/config"
	xhttp "MarketThermo/pkg/http"
	applogger "MarketThermo/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	httpServer  *xhttp.Server
	reports     *usecase.ReportUseCase
	broadcaster *usecase.Broadcaster
	publisher   repository.ReportPublisher
	cache       cache.Service
}

// New creates a new App instance with all dependencies. broadcaster,
// publisher and cache may be nil.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	httpServer *xhttp.Server,
	reports *usecase.ReportUseCase,
	broadcaster *usecase.Broadcaster,
	publisher repository.ReportPublisher,
	c cache.Service,
) *App {
	return &App{
		cfg:         cfg,
		logger:      logger,
		httpServer:  httpServer,
		reports:     reports,
		broadcaster: broadcaster,
		publisher:   publisher,
		cache:       c,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.broadcaster != nil {
		if err := a.broadcaster.Start(); err != nil {
			a.logger.Error("broadcaster start error", applogger.Error(err))
			_ = a.shutdown()
			return err
		}
	}

	a.logger.Info("market thermometer ready",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("cache", a.cfg.Cache.Backend),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
		applogger.Bool("schedule", a.cfg.Schedule.Enabled),
		applogger.Bool("narrative", a.cfg.Narrative.APIKey != ""),
	)

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.broadcaster != nil {
		if err := a.broadcaster.Stop(ctx); err != nil {
			a.logger.Warn("broadcaster stop error", applogger.Error(err))
		}
	}

	if err := a.reports.Shutdown(ctx); err != nil {
		a.logger.Warn("pending report publishes dropped", applogger.Error(err))
	}

	// The collector publishes through the producer, so flush it first.
	a.logger.RemoveCollector()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
