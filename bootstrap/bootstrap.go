package bootstrap

import (
	"context"
	"io"
	"os"
	"time"

	"wheelhub-backend/internal/config"
	"wheelhub-backend/internal/interfaces/router"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New loads config, sets up logging and builds the app. The api handler imports this package, not internal.
func New(ctx context.Context) (*fiber.App, *router.Components, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	SetupLogging(cfg, os.Stdout)
	app, comps, err := router.CreateApp(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return app, comps, cfg, nil
}

// SetupLogging points the global zerolog logger at out. Outside production it writes human readable lines.
func SetupLogging(cfg *config.Config, out io.Writer) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "wheelhub-api").Logger()
}
