package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns the process logger. Every record carries the service
// name and environment so POS and worker output can share one sink.
func NewLogger(cfg *Config, service string) *slog.Logger {
	return newLogger(os.Stdout, cfg, service)
}

func newLogger(w io.Writer, cfg *Config, service string) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: parseLevel(cfg)}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	env := ""
	if cfg != nil {
		env = cfg.AppEnv
		if cfg.LogFormat == "json" {
			h = slog.NewJSONHandler(w, opts)
		}
	}
	return slog.New(h).With(slog.String("service", service), slog.String("env", env))
}

func parseLevel(cfg *Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(cfg.LogLevel) {
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
