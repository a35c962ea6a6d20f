package slogx

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

// ParseLevel maps a level name (debug, info, warn, error) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// NewLogger builds a slog logger backed by zerolog. Format "json" writes one
// JSON object per line, anything else writes human-readable console output.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	var out io.Writer = w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}
	}
	zl := zerolog.New(out).With().Timestamp().Logger()
	return slog.New(zeroslog.NewHandler(zl, &zeroslog.HandlerOptions{Level: level}))
}

// Setup installs a zerolog-backed logger as the slog default.
func Setup(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(w, lvl, format)
	slog.SetDefault(logger)
	return logger, nil
}
