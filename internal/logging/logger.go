// Package logging provides structured logging for pageforge built on
// log/slog. Loggers are explicit values owned by the component that uses
// them; there is no package-level default and nothing writes through a
// process-wide logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the logging interface consumed by the pipeline, the watcher,
// and the server. It is a thin facade over slog so tests can substitute a
// recording implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// WithComponent returns a child logger tagged with a component name.
	WithComponent(component string) Logger
}

// Config holds logger construction options.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"
	Output io.Writer
}

// DefaultConfig returns the default logger configuration: text output on
// stderr at info level.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "text",
		Output: os.Stderr,
	}
}

// ParseLevel maps a level name to a slog.Level, defaulting to info for
// unrecognized names.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

type slogLogger struct {
	logger *slog.Logger
}

// New creates a logger from the given configuration.
func New(cfg Config) Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return &slogLogger{logger: slog.New(handler)}
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() Logger {
	return &slogLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) WithComponent(component string) Logger {
	return &slogLogger{logger: l.logger.With("component", component)}
}
