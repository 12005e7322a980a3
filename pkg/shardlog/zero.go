package shardlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Zero = NewZeroLogger("", "info", false)

// NewZeroLogger builds the pipeline logger. JSON output is the default,
// pretty switches to the human-readable console writer.
func NewZeroLogger(filepath string, logLevel string, pretty bool) *zerolog.Logger {
	_, w, err := newWriter(filepath)
	if err != nil {
		w = os.Stdout
	}

	var out io.Writer = w
	if pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(logLevel))
	return &logger
}

// ReloadLogger replaces the package logger, used after config load.
func ReloadLogger(filepath string, logLevel string, pretty bool) {
	Zero = NewZeroLogger(filepath, logLevel, pretty)
}

func UpdateZeroLogLevel(logLevel string) error {
	level := parseLevel(logLevel)
	zeroLogger := Zero.With().Logger().Level(level)
	Zero = &zeroLogger
	return nil
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "disabled":
		return zerolog.Disabled
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
