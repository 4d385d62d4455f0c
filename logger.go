package auction

import (
	"io"
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("component", "auction")

// SetLogger replaces the logger used by auctioneers created without WithLogger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// DiscardLogger returns a logger that drops every record, useful for benchmarks
// and large simulation runs.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
