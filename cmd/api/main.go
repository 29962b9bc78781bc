package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vidscreen/internal/analysis"
	"vidscreen/internal/cache"
	"vidscreen/internal/config"
	"vidscreen/internal/database"
	"vidscreen/internal/handlers"
	"vidscreen/internal/jobs"
	"vidscreen/internal/log"
	"vidscreen/internal/pipeline"
	"vidscreen/internal/progress"
	"vidscreen/internal/realtime"
	"vidscreen/internal/repository"
	"vidscreen/internal/server"
	"vidscreen/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	// A missing database degrades the service instead of killing it:
	// store-backed routes answer 503, everything else keeps working.
	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Error().Err(err).Msg("postgres unavailable, starting degraded")
		dbPool = nil
	} else if err := database.Migrate(cfg.Postgres.DSN); err != nil {
		logger.Error().Err(err).Msg("migrations failed")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, janitor lock disabled")
		redisClient = nil
	}

	blobStore, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init blob store")
	}
	if ms, ok := blobStore.(*storage.MinioStore); ok {
		if err := ms.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure bucket failed")
		}
	}

	bus := progress.NewBus()
	engine := analysis.NewStubEngine(cfg.Analysis)

	var (
		videos   handlers.VideoStore
		launcher handlers.JobLauncher
		runner   *pipeline.Runner
		janitor  *jobs.Janitor
	)
	if dbPool != nil {
		repo := repository.NewVideoRepository(dbPool)
		videos = repo

		runner = pipeline.NewRunner(pipeline.New(repo, bus, engine, logger), cfg.Pipeline.MaxConcurrent, logger)
		launcher = runner

		janitor = jobs.NewJanitor(repo, redisClient, cfg.Janitor, logger)
		if err := janitor.RecoverOrphans(ctx); err != nil {
			logger.Error().Err(err).Msg("orphan recovery failed")
		}
		if err := janitor.Start(); err != nil {
			logger.Error().Err(err).Msg("janitor start failed")
		}
	}

	rt := realtime.NewHandler(bus, cfg, logger)
	handlerSet := handlers.NewHandlerSet(logger, cfg, dbPool, redisClient, blobStore, videos, launcher, bus, rt)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, runner, janitor, dbPool, redisClient)
}

func waitForShutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	runner *pipeline.Runner,
	janitor *jobs.Janitor,
	dbPool *pgxpool.Pool,
	redisClient *redis.Client,
) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	// Cancel in-flight analysis jobs so their records land in failed
	// instead of sticking at a stale progress value.
	if runner != nil {
		runner.Shutdown(10 * time.Second)
	}
	if janitor != nil {
		janitor.Stop()
	}

	if dbPool != nil {
		dbPool.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
