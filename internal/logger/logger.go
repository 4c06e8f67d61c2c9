// Package logger provides leveled logging for the scanner, backed by zerolog.
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the package logger with the given level and output format.
// Format "text" uses a human-readable console writer; anything else emits JSON.
func Init(level string, format string) {
	var l zerolog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = zerolog.DebugLevel
	case "info":
		l = zerolog.InfoLevel
	case "warn":
		l = zerolog.WarnLevel
	case "error":
		l = zerolog.ErrorLevel
	default:
		l = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if strings.ToLower(format) == "text" {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		out = zerolog.New(os.Stderr)
	}
	log = out.Level(l).With().Timestamp().Logger()
}

func Debug(format string, args ...interface{}) {
	log.Debug().Msg(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	log.Info().Msg(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	log.Warn().Msg(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	log.Error().Msg(fmt.Sprintf(format, args...))
}

// Fatal logs at fatal level and exits the process.
func Fatal(format string, args ...interface{}) {
	log.Fatal().Msg(fmt.Sprintf(format, args...))
}
