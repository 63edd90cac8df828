package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/pageza/foodgram/backend/internal/app"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Info().Str("environment", string(cfg.Environment)).Msg("starting foodgram api")

	db, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logging.Warn().Msg("redis is not configured, rate limiting disabled")
	}

	store, err := app.NewStorage(ctx, cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize storage")
	}

	srv := server.NewServer(server.Deps{
		Config:   cfg,
		DB:       db,
		Redis:    redisClient,
		Services: app.NewServices(cfg, db, store),
	})
	if err := srv.Start(ctx); err != nil {
		logging.Fatal().Err(err).Msg("server error")
	}
	logging.Info().Msg("server stopped")
}
