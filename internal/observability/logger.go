package observability

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger tagged with the service name so log
// lines stay attributable once they are shipped alongside other
// services' output. Debug level is enabled in dev only.
func NewLogger(env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler).With("service", "lms-api", "env", env)
}
