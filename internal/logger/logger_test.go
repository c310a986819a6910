package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/fx5204ps/internal/errors"
	"codeberg.org/mutker/fx5204ps/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		want  logger.LogLevel
		isErr bool
	}{
		{"debug", logger.DebugLevel, false},
		{"info", logger.InfoLevel, false},
		{"", logger.InfoLevel, false},
		{"warning", logger.WarnLevel, false},
		{"warn", logger.WarnLevel, false},
		{"error", logger.ErrorLevel, false},
		{"loud", logger.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := logger.ParseLevel(tt.name)
		if tt.isErr {
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "level %q", tt.name)
	}
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Level: "debug", IsService: true, Out: &buf}))

	log := logger.With("monitor")
	log.Info().Int("channel", 2).Msg("poll ok")

	out := buf.String()
	assert.Contains(t, out, "poll ok")
	assert.Contains(t, out, "component")
	assert.Contains(t, out, "monitor")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Level: "error", IsService: true, Out: &buf}))

	logger.Debug().Msg("hidden debug")
	logger.Warn().Msg("hidden warn")
	logger.Error().Msg("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown error")
}

func TestErrorWithCode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.Init(logger.Options{Level: "info", IsService: true, Out: &buf}))

	err := errors.New().New(errors.ErrTimeout)
	logger.ErrorWithCode(err).Msg("read failed")

	out := buf.String()
	assert.Contains(t, out, "read failed")
	assert.Contains(t, out, "operation_timeout")
}

func TestFileSink(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "fx5204ps.log")
	require.NoError(t, logger.Init(logger.Options{Level: "info", IsService: true, Out: &buf, File: path}))

	logger.With("metrics").Info().Msg("exporter listening")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"metrics"`)
	assert.Contains(t, string(data), `"message":"exporter listening"`)
	assert.Contains(t, buf.String(), "exporter listening")
}

func TestInitRejectsInvalidLevel(t *testing.T) {
	err := logger.Init(logger.Options{Level: "chatty"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}
