// Package main is the entry point for the PulseMetrics aggregation
// service. It initializes all components and starts the HTTP server and
// the consumption pipeline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pulsemetrics/internal/api"
	"pulsemetrics/internal/banner"
	"pulsemetrics/internal/cache"
	cachemem "pulsemetrics/internal/cache/memory"
	cacheredis "pulsemetrics/internal/cache/redis"
	"pulsemetrics/internal/config"
	"pulsemetrics/internal/dedup"
	"pulsemetrics/internal/domain"
	"pulsemetrics/internal/notification"
	"pulsemetrics/internal/pipeline"
	"pulsemetrics/internal/store"
	storemem "pulsemetrics/internal/store/memory"
	storepg "pulsemetrics/internal/store/postgres"
	"pulsemetrics/internal/stream"
	streammem "pulsemetrics/internal/stream/memory"
	streamredis "pulsemetrics/internal/stream/redis"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	banner.Print()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}

	logger := initLogger(&cfg.Logger)

	logger.Info("configuration loaded",
		"path", *configPath,
		"storage_mode", cfg.Storage.Mode,
		"consumer", cfg.Consumer.Name,
	)

	deps, cleanup, err := initDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// Create context that listens for shutdown signals
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start pipeline in background
	go func() {
		if err := deps.pipeline.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("pipeline error", "error", err)
			cancel()
		}
	}()

	// Start HTTP server
	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("PulseMetrics started",
		"address", cfg.Server.Address(),
		"storage_mode", cfg.Storage.Mode,
	)

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := deps.pipeline.Close(); err != nil {
		logger.Error("pipeline shutdown error", "error", err)
	}

	logger.Info("PulseMetrics stopped")
}

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server   *api.Server
	pipeline *pipeline.Service
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var (
		consumer     stream.Consumer
		metricsRepo  store.MetricsRepository
		alertRepo    store.AlertRepository
		hotCache     cache.HotCache
		notifier     notification.Notifier
		cleanupFuncs []func()
	)

	defaultPolicy := &domain.AlertPolicy{
		FailureRateThreshold:    cfg.Alerts.FailureRateThreshold,
		MinConsecutiveBuckets:   cfg.Alerts.MinConsecutiveBuckets,
		EvaluationWindowSeconds: cfg.Alerts.EvaluationWindowSeconds,
	}

	if cfg.Storage.UseMemory() {
		logger.Info("initializing in-memory backends")

		consumer = streammem.NewStream(cfg.Consumer.PollInterval)
		metricsRepo = storemem.NewMetricsRepository()
		alertRepo = storemem.NewAlertRepository(defaultPolicy)
		hotCache = cachemem.NewHotCache()
		notifier = notification.NewStubNotifier(logger)
	} else {
		logger.Info("initializing production backends (Redis, PostgreSQL, Kafka)")

		ctx := context.Background()
		db, err := storepg.NewDB(ctx, &cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		cleanupFuncs = append(cleanupFuncs, db.Close)

		if err := db.RunMigrations(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("database migrations completed")

		metricsRepo = storepg.NewMetricsRepository(db)
		alertRepo = storepg.NewAlertRepository(db, defaultPolicy)

		redisConsumer, err := streamredis.NewConsumer(&cfg.Redis, &cfg.Consumer)
		if err != nil {
			return nil, nil, err
		}
		consumer = redisConsumer
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisConsumer.Close() })

		redisCache, err := cacheredis.NewHotCache(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		hotCache = redisCache
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisCache.Close() })

		if cfg.Kafka.Enabled {
			kafkaNotifier := notification.NewKafkaNotifier(&cfg.Kafka, logger)
			notifier = kafkaNotifier
			cleanupFuncs = append(cleanupFuncs, func() { _ = kafkaNotifier.Close() })
		} else {
			notifier = notification.NewStubNotifier(logger)
		}
	}

	guard, err := dedup.NewCache(cfg.Consumer.DedupCacheSize)
	if err != nil {
		return nil, nil, err
	}

	pipelineService := pipeline.NewService(
		consumer,
		guard,
		metricsRepo,
		alertRepo,
		hotCache,
		notifier,
		&cfg.Consumer,
		logger,
	)

	pipelineHandler := api.NewPipelineHandler(pipelineService, logger)
	campaignHandler := api.NewCampaignHandler(metricsRepo, alertRepo, hotCache, logger)

	server := api.NewServer(api.ServerDeps{
		Config:          &cfg.Server,
		Logger:          logger,
		PipelineHandler: pipelineHandler,
		CampaignHandler: campaignHandler,
	})

	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	return &dependencies{
		server:   server,
		pipeline: pipelineService,
	}, cleanup, nil
}

// initLogger creates and configures the application logger.
func initLogger(cfg *config.LoggerConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
