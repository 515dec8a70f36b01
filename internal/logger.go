package internal

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger from the loaded configuration.
// Development gets human-readable text output; any other environment gets
// JSON lines for log aggregation.
func NewLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
