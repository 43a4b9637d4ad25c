package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup configures the process-wide logger at the given level and returns
// it. Components derive their own child loggers with logger.With.
func Setup(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

// parseLevel maps a level name to a slog.Level. Unrecognized names fall
// back to info so a typo in TALLY_LOG_LEVEL never silences the server.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
