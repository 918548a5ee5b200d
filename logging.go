package kbopts

import "time"

// Operation names reported in OperationEvent.Op.
const (
	OpListSize  = "list_size"
	OpLookup    = "lookup"
	OpUpdate    = "update"
	OpSerialize = "serialize"
	OpEvaluate  = "evaluate"
)

// OperationEvent describes one completed registry call.
type OperationEvent struct {
	Instance string
	Op       string
	Scope    Scope
	Key      string
	Status   Status
	// Applied counts batch entries written by Update before it returned.
	Applied int
	// Size is the required buffer size reported by Serialize.
	Size     int
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// Logger records operation events.
type Logger interface {
	LogOperation(OperationEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(OperationEvent)

// LogOperation implements Logger.
func (f LoggerFunc) LogOperation(event OperationEvent) {
	if f != nil {
		f(event)
	}
}

// MultiLogger fans events out to every non-nil logger.
type MultiLogger []Logger

// LogOperation implements Logger.
func (m MultiLogger) LogOperation(event OperationEvent) {
	for _, logger := range m {
		if logger != nil {
			logger.LogOperation(event)
		}
	}
}

type noopLogger struct{}

func (noopLogger) LogOperation(OperationEvent) {}

// WithLogger attaches loggers to the registry. Multiple loggers are
// combined into a MultiLogger.
func WithLogger(loggers ...Logger) Option {
	return func(cfg *optionsConfig) {
		switch len(loggers) {
		case 0:
			cfg.logger = noopLogger{}
		case 1:
			if loggers[0] == nil {
				cfg.logger = noopLogger{}
				return
			}
			cfg.logger = loggers[0]
		default:
			cfg.logger = MultiLogger(loggers)
		}
	}
}
