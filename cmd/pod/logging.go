package main

import (
	"io"
	"log/slog"
	"strings"
)

// initLogger installs a JSON slog logger at the named level as the
// default and returns it. Unknown levels mean INFO.
func initLogger(w io.Writer, levelStr string) *slog.Logger {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
	slog.SetDefault(logger)
	return logger
}
