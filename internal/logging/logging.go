// Package logging configures the global zerolog logger and hands out
// per-component loggers.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger based on verbosity level:
// 0 = warn, 1 = info, 2 = debug, 3+ = trace.
//
// Output goes to w through a console writer; a nil w means stderr.
func Setup(verbosity int, w io.Writer) {
	zerolog.SetGlobalLevel(LevelFor(verbosity))

	if w == nil {
		w = os.Stderr
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    w != io.Writer(os.Stderr),
	}
	log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()

	// Caller information for debug and trace levels
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", verbosity).Msg("Logger initialized")
}

// LevelFor maps a verbosity count to a zerolog level.
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// GetLogger returns a contextualized logger with the given component name.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
