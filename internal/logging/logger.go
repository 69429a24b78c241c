// Package logging builds the process-wide slog loggers. Every subsystem
// logs JSON with a component attribute so sync runs, scheduler ticks and
// API requests can be filtered apart in one stream.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Component names used across the server. Subsystems derive their logger
// with WithComponent so the attribute stays consistent.
const (
	ComponentMain      = "pmhub"
	ComponentAPI       = "api"
	ComponentSync      = "sync"
	ComponentScheduler = "scheduler"
)

type Options struct {
	Level     string
	Writer    io.Writer
	Component string
}

func NewLogger(opts Options) *slog.Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}
	h := slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: parseLevel(opts.Level)})
	lg := slog.New(h)
	if strings.TrimSpace(opts.Component) != "" {
		lg = lg.With("component", strings.TrimSpace(opts.Component))
	}
	return lg
}

// WithComponent returns a child logger tagged with the given component.
// Derive from an untagged base logger; slog appends attributes, so tagging
// an already-tagged logger would emit the attribute twice.
func WithComponent(lg *slog.Logger, component string) *slog.Logger {
	if strings.TrimSpace(component) == "" {
		return lg
	}
	return lg.With("component", strings.TrimSpace(component))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
