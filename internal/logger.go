package internal

import (
	"io"
	"log/slog"
	"time"
)

// NewLogger builds the process logger from a validated Config. Dev gets
// human-readable text output; prod gets JSON with RFC3339Nano timestamps
// for the log pipeline.
func NewLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.slogLevel()}

	if cfg.Env != "prod" {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == slog.TimeKey {
			return slog.String("time", a.Value.Time().Format(time.RFC3339Nano))
		}
		return a
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
