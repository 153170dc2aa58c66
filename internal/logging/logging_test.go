package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
	}
}

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"text", "json", "zerolog"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(&buf, format, "info")
			require.NoError(t, err)

			logger.Debug("hidden")
			logger.Info("task submitted", slog.Int64("points", 30))

			out := buf.String()
			assert.NotContains(t, out, "hidden")
			assert.Contains(t, out, "task submitted")
			assert.Contains(t, out, "30")
		})
	}

	_, err := New(&bytes.Buffer{}, "xml", "info")
	assert.Error(t, err)
}

// =========================================================================
// ZEROLOG HANDLER
// =========================================================================

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &m))
	return m
}

func TestZerologHandler_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "zerolog", "debug")
	require.NoError(t, err)

	logger.Warn("cache write failed",
		slog.String("key", "leaderboard:oct:"),
		slog.Bool("retry", false),
		slog.Duration("elapsed", 1500*time.Millisecond),
		slog.Any("error", errors.New("connection refused")),
	)

	m := decodeLine(t, &buf)
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "cache write failed", m["message"])
	assert.Equal(t, "leaderboard:oct:", m["key"])
	assert.Equal(t, false, m["retry"])
	assert.Equal(t, float64(1500), m["elapsed"])
	assert.Equal(t, "connection refused", m["error"])
	assert.Contains(t, m, "time")
}

func TestZerologHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "zerolog", "info")
	require.NoError(t, err)

	logger.With(slog.String("component", "scheduler")).
		WithGroup("job").
		Info("run finished",
			slog.String("name", "close-expired"),
			slog.Group("result", slog.Int("closed", 2)),
		)

	m := decodeLine(t, &buf)
	assert.Equal(t, "scheduler", m["component"])
	assert.Equal(t, "close-expired", m["job.name"])
	assert.Equal(t, float64(2), m["job.result.closed"])
}

func TestZerologHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "zerolog", "error")
	require.NoError(t, err)

	logger.Warn("not shown")
	assert.Empty(t, buf.String())

	logger.Error("shown")
	assert.Equal(t, "error", decodeLine(t, &buf)["level"])
}
