package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/training-erp/internal/application"
	"github.com/example/training-erp/internal/config"
	"github.com/example/training-erp/internal/events"
	httptransport "github.com/example/training-erp/internal/http"
	"github.com/example/training-erp/internal/logging"
	"github.com/example/training-erp/internal/persistence/sqlite"
	"github.com/example/training-erp/internal/persistence/sqlite/migration"
	"github.com/example/training-erp/internal/provisioning"
	"github.com/example/training-erp/internal/scheduler"
	"github.com/example/training-erp/internal/telemetry"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		bootstrap.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type app struct {
	store             *sqlite.Store
	publisher         events.Publisher
	shutdownTelemetry telemetry.ShutdownFunc
	handler           http.Handler
}

// newApp opens and migrates the database and wires services and handlers.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	dbConfig := migration.DefaultSQLiteConfig(cfg.SQLitePath)
	dbConfig.BusyTimeout = cfg.DBBusyTimeout
	dbConfig.MaxOpenConns = cfg.DBMaxOpenConns
	if dbConfig.MaxIdleConns > dbConfig.MaxOpenConns {
		dbConfig.MaxIdleConns = dbConfig.MaxOpenConns
	}

	store, err := sqlite.Open(ctx, dbConfig, logger)
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		_ = shutdownTelemetry(ctx)
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.EventsEnabled() {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("publishing session events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	rules := cfg.Rules()
	if len(rules.PlannablePrefixes) == 0 {
		rules = provisioning.DefaultRules()
	}
	now := time.Now

	sessionService := application.NewSessionService(application.SessionServiceDeps{
		Store:       store,
		Reconciler:  provisioning.NewReconciler(store, rules, application.NewID, now),
		Finder:      scheduler.NewFinder(3),
		Publisher:   publisher,
		IDGenerator: application.NewID,
		Now:         now,
		Location:    location,
		Logger:      logger,
	})
	dealService := application.NewDealService(store, rules, application.NewID, now, logger)
	resourceService := application.NewResourceService(store, application.NewID, now, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Sessions:  httptransport.NewSessionHandler(sessionService, logger),
		Deals:     httptransport.NewDealHandler(dealService, logger),
		Resources: httptransport.NewResourceHandler(resourceService, logger),
		Health:    httptransport.NewHealthHandler(store, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.Tracing(),
			httptransport.RequestLogger(logger),
			httptransport.Recoverer(logger),
		},
	})

	return &app{
		store:             store,
		publisher:         publisher,
		shutdownTelemetry: shutdownTelemetry,
		handler:           handler,
	}, nil
}

// Close flushes events and traces, then closes the database.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(
		a.publisher.Close(),
		a.shutdownTelemetry(ctx),
		a.store.Close(),
	)
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("training ERP API listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	var runErr error
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
			runErr = err
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		logger.Error("failed to release resources", "error", err)
		runErr = errors.Join(runErr, err)
	}
	return runErr
}
