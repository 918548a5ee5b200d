// Package logging adapts registry operation events to zerolog and sets up
// the process-wide logger used by the kbopts CLI.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	kbopts "github.com/goliatone/go-kbopts"
)

// Setup configures the global logger for verbosity: 0 warn, 1 info,
// 2 debug, 3+ trace. Debug and above include caller information.
func Setup(verbosity int) {
	switch verbosity {
	case 0:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case 1:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case 2:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}
	log.Debug().Int("verbosity", verbosity).Msg("Logger initialized")
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// Adapter writes kbopts operation events to a zerolog.Logger. Successful
// calls log at debug level, key errors at info, everything else at warn.
type Adapter struct {
	logger zerolog.Logger
}

// New wraps logger as a kbopts.Logger.
func New(logger zerolog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// LogOperation implements kbopts.Logger.
func (a *Adapter) LogOperation(event kbopts.OperationEvent) {
	var e *zerolog.Event
	switch event.Status {
	case kbopts.StatusOk:
		e = a.logger.Debug()
	case kbopts.StatusKeyError:
		e = a.logger.Info()
	default:
		e = a.logger.Warn()
	}

	e = e.Str("instance", event.Instance).
		Str("operation", event.Op).
		Str("status", event.Status.String()).
		Dur("duration", event.Duration)
	if event.Scope.Valid() {
		e = e.Str("scope", event.Scope.String())
	}
	if event.Key != "" {
		e = e.Str("key", event.Key)
	}
	switch event.Op {
	case kbopts.OpUpdate:
		e = e.Int("applied", event.Applied)
	case kbopts.OpSerialize:
		e = e.Int("size", event.Size)
	case kbopts.OpEvaluate:
		e = e.Str("engine", event.Engine).Str("expr", event.Expr)
	}
	if event.Err != nil {
		e = e.Err(event.Err)
	}
	e.Msg("Options operation")
}

var _ kbopts.Logger = (*Adapter)(nil)
