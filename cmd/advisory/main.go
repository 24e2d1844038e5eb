package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/aqi-advisory-service/internal/adapter/airquality"
	"github.com/couchcryptid/aqi-advisory-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/aqi-advisory-service/internal/adapter/kafka"
	"github.com/couchcryptid/aqi-advisory-service/internal/adapter/profilefile"
	"github.com/couchcryptid/aqi-advisory-service/internal/adapter/sqlite"
	"github.com/couchcryptid/aqi-advisory-service/internal/config"
	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/couchcryptid/aqi-advisory-service/internal/observability"
	"github.com/couchcryptid/aqi-advisory-service/internal/pipeline"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.DBPath, metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()
	logger.Info("history store opened", "path", cfg.DBPath)

	if cfg.ProfilesFile != "" {
		n, err := profilefile.Seed(ctx, cfg.ProfilesFile, store)
		if err != nil {
			return err
		}
		logger.Info("profiles seeded", "path", cfg.ProfilesFile, "count", n)
	}

	// Air quality provider (feature-flagged via AIRQUALITY_ENABLED / AIRQUALITY_API_KEY).
	var provider domain.AirQualityProvider
	if cfg.AirQualityEnabled {
		client := airquality.NewClient(cfg.AirQualityAPIKey, cfg.AirQualityBaseURL, cfg.AirQualityTimeout, metrics, logger)
		provider = airquality.NewCachedProvider(client, cfg.AirQualityCacheSize, cfg.AirQualityCacheTTL, metrics)
		metrics.ProviderEnabled.Set(1)
		logger.Info("air quality provider enabled",
			"cache_size", cfg.AirQualityCacheSize, "cache_ttl", cfg.AirQualityCacheTTL, "timeout", cfg.AirQualityTimeout)
	} else {
		logger.Info("air quality provider disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}()

	transformer := pipeline.NewTransformer(store, provider, logger)
	// History first: its writes are idempotent, so a retried batch never
	// duplicates history even if the Kafka write is what failed.
	loader := pipeline.NewFanoutLoader().
		With("history", store).
		With("kafka", writer)

	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.ReadinessChecks{store, p}, store, provider, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	if cfg.ProfilesWatch {
		g.Go(func() error {
			return profilefile.Watch(gctx, cfg.ProfilesFile, store, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}
