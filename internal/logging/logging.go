// Package logging builds the *slog.Logger every component receives.
//
// Three backends, picked by logging.format:
//
//	text    → slog.TextHandler   (key=value, for terminals)
//	json    → slog.JSONHandler   (one JSON object per line)
//	zerolog → ZerologHandler     (zerolog's encoder behind the slog API)
//
// Components only ever see *slog.Logger, so switching the backend is a
// config change.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a config string to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
}

// New returns a logger writing to w in the given format at the given level.
func New(w io.Writer, format, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case "zerolog":
		zl := zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(lvl))
		return slog.New(NewZerologHandler(zl)), nil
	}
	return nil, fmt.Errorf("logging: unknown format %q", format)
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
}
