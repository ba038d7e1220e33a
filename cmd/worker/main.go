package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"studio/internal/adapter/repo"
	"studio/internal/bootstrap"
	"studio/internal/config"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	if err := credentials.NewStore(runner).Apply(ctx, cfg); err != nil {
		logger.Warn().Err(err).Msg("worker: failed to load provider keys from store")
	}
	profile, err := config.Load(cfg.ProfilePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ProfilePath).Msg("worker: failed to load pipeline profile")
	}
	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}
	pl, err := bootstrap.Pipeline(cfg, profile, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to build pipeline")
	}

	w := &runWorker{
		runs:        repo.NewRunRepository(runner),
		projects:    repo.NewProjectRepository(runner),
		assets:      repo.NewAssetRepository(runner),
		pipeline:    pl,
		logger:      logger,
		concurrency: cfg.WorkerConcurrency,
		idleSleep:   cfg.WorkerIdleSleep,
		staleAfter:  staleAfter(cfg),
	}
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
