package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the portal's slog logger. LOG_FORMAT=json switches to the
// JSON handler for production; anything else logs human-readable text.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
