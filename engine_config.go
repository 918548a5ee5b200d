package kbopts

// engineConfig holds the collaborators shared by every rule engine.
type engineConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// cachedProgram returns the program cached under key if it has type P.
func cachedProgram[P any](cfg engineConfig, key string) (P, bool) {
	var zero P
	if cfg.cache == nil {
		return zero, false
	}
	cached, ok := cfg.cache.Get(key)
	if !ok {
		return zero, false
	}
	program, ok := cached.(P)
	return program, ok
}

func (c engineConfig) storeProgram(key string, program any) {
	if c.cache != nil {
		c.cache.Set(key, program)
	}
}

// JSEvaluatorOption configures the JS evaluator. Options are accepted in
// every build so callers compile without the js_eval tag.
type JSEvaluatorOption func(*engineConfig)

// JSWithProgramCache applies a ProgramCache to the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry applies a copy of registry to the JS evaluator.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *engineConfig) {
		cfg.registry = registry.Clone()
	}
}
