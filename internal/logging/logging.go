// Package logging builds the structured loggers shared by the CLI and server.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New returns a slog.Logger writing text (default) or JSON records to w
func New(w io.Writer, format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard is a logger for tests and library defaults
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Stage scopes a logger to one pipeline stage
func Stage(log *slog.Logger, stage string) *slog.Logger {
	if log == nil {
		log = Discard()
	}
	return log.With("stage", stage)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
