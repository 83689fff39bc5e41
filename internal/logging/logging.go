package logging

import (
	"log/slog"
	"os"
)

// Init configures the default slog logger from the environment.
// LOG_LEVEL selects verbosity, LOG_FORMAT=json switches to JSON output
// (useful when the CLI runs under a supervisor).
func Init() {
	level := slog.LevelWarn // default: only surface problems on the terminal

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "dev", "development", "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error", "production", "prod":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// Component returns a logger tagged with a component name, so log lines
// from the signaling client, the mesh and the media layer can be told apart.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
