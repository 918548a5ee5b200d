package kbopts

import (
	"github.com/goliatone/go-kbopts/internal/docwriter"
	"github.com/goliatone/go-kbopts/pkg/store"
)

// Scope partitions the option keyspace.
type Scope uint8

const (
	// ScopeUnknown is never a valid scope; it guards against zero values.
	ScopeUnknown Scope = iota
	// ScopeKeyboard holds options declared by the active keyboard.
	ScopeKeyboard
	// ScopeEnvironment holds options supplied by the host environment.
	ScopeEnvironment

	scopeEnd
)

// Scopes lists every valid scope in declaration order.
func Scopes() []Scope {
	out := make([]Scope, 0, scopeEnd-1)
	for s := ScopeUnknown + 1; s < scopeEnd; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s is inside the declared range.
func (s Scope) Valid() bool {
	return s > ScopeUnknown && s < scopeEnd
}

func (s Scope) String() string {
	switch s {
	case ScopeKeyboard:
		return "keyboard"
	case ScopeEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// ParseScope converts a scope name into a Scope. Returns ScopeUnknown for
// unrecognised values.
func ParseScope(value string) Scope {
	switch value {
	case "keyboard", "KEYBOARD":
		return ScopeKeyboard
	case "environment", "ENVIRONMENT":
		return ScopeEnvironment
	default:
		return ScopeUnknown
	}
}

// Item is one (scope, key, value) option entry. An Item with an empty Key
// marks the end of a batch.
type Item struct {
	Scope Scope
	Key   string
	Value string
}

// Format identifies the encoding produced by Serialize.
type Format = docwriter.Format

const (
	FormatJSON = docwriter.FormatJSON
	FormatYAML = docwriter.FormatYAML
	FormatTOML = docwriter.FormatTOML
)

// Option configures an Options instance.
type Option func(*optionsConfig)

type optionsConfig struct {
	store        store.Store
	storeOptions []store.MemoryStoreOption
	format       Format
	maxDocument  int
	logger       Logger
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	// functionErrs collects WithRuleFunction registration failures.
	functionErrs []error
}

func applyOptions(opts []Option) optionsConfig {
	cfg := optionsConfig{format: FormatJSON}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithStore replaces the default MemoryStore. Capacity and declared key
// options only apply to the default store.
func WithStore(s store.Store) Option {
	return func(cfg *optionsConfig) {
		cfg.store = s
	}
}

// WithCapacity caps the number of entries the default store accepts.
// Updates past the cap fail with ErrNoMemory.
func WithCapacity(n int) Option {
	return func(cfg *optionsConfig) {
		cfg.storeOptions = append(cfg.storeOptions, store.WithCapacity(n))
	}
}

// WithDeclaredKeys restricts scope to keys. Updating any other key in that
// scope fails with ErrKeyError.
func WithDeclaredKeys(scope Scope, keys ...string) Option {
	return func(cfg *optionsConfig) {
		cfg.storeOptions = append(cfg.storeOptions, store.WithDeclaredKeys(uint8(scope), keys...))
	}
}

// WithFormat selects the document format written by Serialize.
func WithFormat(format Format) Option {
	return func(cfg *optionsConfig) {
		if format == "" {
			format = FormatJSON
		}
		cfg.format = format
	}
}

// WithMaxDocumentSize caps serialized documents at n bytes. Larger
// documents fail with ErrNoMemory.
func WithMaxDocumentSize(n int) Option {
	return func(cfg *optionsConfig) {
		cfg.maxDocument = n
	}
}

// WithEvaluator configures the engine used by Evaluate.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *optionsConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a cache for the default evaluator's compiled
// programs.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *optionsConfig) {
		cfg.programCache = cache
	}
}
