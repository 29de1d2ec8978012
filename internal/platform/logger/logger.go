package logger

import (
	"log/slog"
	"os"
)

// New returns the application logger. JSON output for log shippers; level
// comes from config so dev runs can turn on debug.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
