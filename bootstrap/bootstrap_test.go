package bootstrap

import (
	"bytes"
	"encoding/json"
	"testing"

	"wheelhub-backend/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging_ProductionJSON(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	SetupLogging(&config.Config{Env: "production", LogLevel: "warn"}, &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("listing_id", "l1").Msg("shown")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "l1", line["listing_id"])
	assert.Equal(t, "wheelhub-api", line["service"])
}

func TestSetupLogging_BadLevelFallsBackToInfo(t *testing.T) {
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	SetupLogging(&config.Config{Env: "development", LogLevel: "chatty"}, &buf)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	log.Info().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
}
