// Package log sets up structured logging and the shared field vocabulary.
package log

import (
	"log/slog"
	"os"
)

// Setup builds the root logger for a binary, tags it with the component
// name, and installs it as the slog default.
func Setup(component string) *slog.Logger {
	level := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(v)); err == nil {
			level = parsed
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})).With(FieldComponent, component)
	slog.SetDefault(logger)
	return logger
}
