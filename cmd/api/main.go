package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wheelhub-backend/bootstrap"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, comps, cfg, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	if err := comps.Rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	log.Info().Msg("Redis connected")
	log.Info().Str("store", cfg.StoreDriver).Str("blobs", cfg.BlobDriver).Msg("backends ready")

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msgf("Server running at http://localhost:%s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("listen")
		comps.Close(context.Background())
		os.Exit(1)
	}
	comps.Close(context.Background())
}
