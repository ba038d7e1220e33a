package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"studio/internal/adapter/repo"
	"studio/internal/bootstrap"
	"studio/internal/config"
	"studio/internal/http/handlers"
	httpapi "studio/internal/http/httpapi"
	"studio/internal/infra"
	"studio/internal/infra/credentials"
	"studio/internal/infra/geoip"
	"studio/internal/middleware"
	"studio/internal/sqlinline"
	"studio/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv).With().Str("cmd", "api").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()
	runner := infra.NewSQLRunner(dbpool, logger)

	if _, err := runner.Exec(ctx, sqlinline.Schema); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}
	if err := credentials.NewStore(runner).Apply(ctx, cfg); err != nil {
		logger.Warn().Err(err).Msg("failed to load provider keys from store")
	}

	profile, err := config.Load(cfg.ProfilePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.ProfilePath).Msg("failed to load pipeline profile")
	}
	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}
	pl, err := bootstrap.Pipeline(cfg, profile, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build pipeline")
	}

	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer resolver.Close()
	var lookup middleware.CountryLookup
	if fn := resolver.Lookup(); fn != nil {
		lookup = fn
	}

	app := handlers.NewApp(
		repo.NewProjectRepository(runner),
		repo.NewRunRepository(runner),
		repo.NewAssetRepository(runner),
		pl,
		logger,
	)
	app.Defaults = handlers.Defaults{Canvas: profile.Canvas, Voice: cfg.TTSVoice}
	app.Checks = map[string]handlers.Check{
		"database": dbpool.Ping,
		"storage": func(context.Context) error {
			_, err := os.Stat(store.BasePath())
			return err
		},
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   lookup,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.AllowedOrigins,
		StoragePath:     store.BasePath(),

		GenerationLimitPerMin: cfg.GenerationLimit,
	})

	server := infra.NewHTTPServer(cfg, router, logger)
	if err := server.Run(ctx, 15*time.Second); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
	logger.Info().Msg("server stopped")
}
