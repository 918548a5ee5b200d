package kbopts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// RuleFunc is a host-supplied function callable from rule expressions.
type RuleFunc func(args ...any) (any, error)

// FunctionRegistry stores rule functions keyed by case-insensitive name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]RuleFunc
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]RuleFunc{}}
}

var (
	// ErrFunctionReserved reports a name taken by a builtin rule helper.
	ErrFunctionReserved = errors.New("kbopts: function name is reserved")
	// ErrFunctionExists reports a second registration under the same name.
	ErrFunctionExists = errors.New("kbopts: function already registered")
	// ErrFunctionNotFound reports a call to an unregistered name.
	ErrFunctionNotFound = errors.New("kbopts: function not registered")
)

// reservedNames are bound by the engines themselves.
var reservedNames = map[string]struct{}{builtinOpt: {}, "call": {}}

// Register stores fn under name. Names compare case-insensitively.
func (r *FunctionRegistry) Register(name string, fn RuleFunc) error {
	if name == "" {
		return fmt.Errorf("kbopts: function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("kbopts: function %q is nil", name)
	}
	key := strings.ToLower(name)
	if _, reserved := reservedNames[key]; reserved {
		return fmt.Errorf("%w: %q", ErrFunctionReserved, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]RuleFunc{}
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q", ErrFunctionExists, name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]RuleFunc, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("kbopts: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry makes the functions in registry callable from rules.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *optionsConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithRuleFunction registers fn under name for the default evaluator.
// A registration error (duplicate or reserved name) is reported by every
// later Evaluate and Compile call.
func WithRuleFunction(name string, fn RuleFunc) Option {
	return func(cfg *optionsConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.functionErrs = append(cfg.functionErrs, err)
		}
	}
}
