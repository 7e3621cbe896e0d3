// Package logging builds the slog logger shared by the gateway and the CLI.
//
// LOG_FORMAT selects the handler: json (default), text, or tint for colored
// console output. LOG_LEVEL is one of debug, info, warn, error.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a logger writing to w in the given format at the given level.
func New(w io.Writer, format, level string) *slog.Logger {
	lvl := ParseLevel(level)
	switch strings.ToLower(format) {
	case "tint", "console":
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
		}))
	case "text":
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	}
}

// ParseLevel maps a level name onto slog; unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
