package cliconfig

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLogLevel converts a string log level to a zerolog.Level.
// Unknown levels map to info.
func ParseLogLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// NewLogger creates a logger writing to out, as JSON or as human readable
// console output.
func NewLogger(out io.Writer, level, format string) zerolog.Logger {
	if strings.ToLower(format) == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(ParseLogLevel(level)).With().Timestamp().Logger()
}
