package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/retail-banking-ledger/internal/config"
)

// ParseLevel maps a configured level name onto slog. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// NewLogger creates the process logger writing JSON to stdout
func NewLogger(cfg *config.Config) *slog.Logger {
	return New(os.Stdout, cfg)
}

// New creates a JSON logger on w tagged with the service name and environment.
// Debug level adds source locations.
func New(w io.Writer, cfg *config.Config) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}
	if cfg.Application.Env != "" {
		logger = logger.With("env", cfg.Application.Env)
	}

	logger.Info("logger initialized", "level", level)

	return logger
}
