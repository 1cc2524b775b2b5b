// Package logging configures the structured logger shared by the server and CLI.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

type contextKey struct{}

// Config controls logger construction.
type Config struct {
	Debug  bool
	Format string // "text", "json" or "logfmt"
	Output io.Writer
}

// New builds a logger from cfg.
func New(cfg Config) *charmlog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := charmlog.InfoLevel
	if cfg.Debug {
		level = charmlog.DebugLevel
	}

	return charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter(cfg.Format),
		Prefix:          "supportbot",
	})
}

func formatter(format string) charmlog.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return charmlog.JSONFormatter
	case "logfmt":
		return charmlog.LogfmtFormatter
	default:
		return charmlog.TextFormatter
	}
}

// WithContext stores the logger on ctx.
func WithContext(ctx context.Context, logger *charmlog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored on ctx, or the package default.
func FromContext(ctx context.Context) *charmlog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(contextKey{}).(*charmlog.Logger); ok && logger != nil {
			return logger
		}
	}
	return charmlog.Default()
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *charmlog.Logger {
	return charmlog.NewWithOptions(io.Discard, charmlog.Options{})
}
