package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWritesToFile(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	defer func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	}()

	path := filepath.Join(t.TempDir(), "nested", "ocr.log")
	closer, err := SetupLogger(&LogConfig{
		Level:      "info",
		Format:     "json",
		OutputFile: path,
		Console:    false,
	})
	require.NoError(t, err)

	logger := GetLogger("gate")
	logger.Info().Msg("file accepted")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"component":"gate"`))
	assert.True(t, strings.Contains(string(data), "file accepted"))
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := SetupLogger(&LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.True(t, cfg.Console)
	assert.Empty(t, cfg.OutputFile)
}
