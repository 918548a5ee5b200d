package kbopts

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-kbopts/pkg/store"
)

// Options is the registry handle owned by one engine instance. It is not
// safe for concurrent use; the owner serializes access.
type Options struct {
	id    string
	store store.Store
	cfg   optionsConfig
}

// New constructs an empty registry.
func New(opts ...Option) *Options {
	cfg := applyOptions(opts)
	s := cfg.store
	if s == nil {
		s = store.NewMemoryStore(cfg.storeOptions...)
	}
	return &Options{
		id:    uuid.NewString(),
		store: s,
		cfg:   cfg,
	}
}

// ID returns the instance identifier attached to every logged event.
func (o *Options) ID() string {
	if o == nil {
		return ""
	}
	return o.id
}

// Format returns the configured document format.
func (o *Options) Format() Format {
	if o == nil {
		return FormatJSON
	}
	return o.cfg.format
}

// Len returns the number of entries held for scope.
func (o *Options) Len(scope Scope) int {
	if o == nil || !scope.Valid() {
		return 0
	}
	return o.store.Len(uint8(scope))
}

// Snapshot copies the store into scope name -> key -> value. Every valid
// scope is present, empty or not.
func (o *Options) Snapshot() map[string]map[string]string {
	out := make(map[string]map[string]string, len(Scopes()))
	for _, scope := range Scopes() {
		out[scope.String()] = map[string]string{}
	}
	if o == nil {
		return out
	}
	for entry := range o.store.All() {
		scope := Scope(entry.Scope)
		if !scope.Valid() {
			continue
		}
		out[scope.String()][entry.Key] = entry.Value
	}
	return out
}

func (o *Options) logger() Logger {
	if o != nil && o.cfg.logger != nil {
		return o.cfg.logger
	}
	return noopLogger{}
}

func (o *Options) log(event OperationEvent) {
	event.Instance = o.ID()
	o.logger().LogOperation(event)
}
