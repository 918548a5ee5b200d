package kbopts

import (
	"errors"
	"time"
)

var ErrNoEvaluator = errors.New("kbopts: evaluator not configured")

var errEmptyExpr = errors.New("expression must not be empty")

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	// Snapshot is exposed to expressions as top-level variables. Evaluate
	// fills it with one map per scope ("keyboard", "environment").
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Scope, when valid, is bound as the "scope" variable and labels errors.
	Scope Scope
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope.Valid() {
		return ctx.Scope.String()
	}
	return "all"
}

func (ctx RuleContext) scopeBinding() (string, bool) {
	if !ctx.Scope.Valid() {
		return "", false
	}
	return ctx.Scope.String(), true
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// Evaluate executes expr against the current store contents. Each scope is
// bound as a map variable, so `keyboard.layout == "dvorak"` reads the
// keyboard scope.
func (o *Options) Evaluate(expr string) (any, error) {
	return o.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith executes expr using ctx, falling back to the store snapshot
// when ctx.Snapshot is nil.
func (o *Options) EvaluateWith(ctx RuleContext, expr string) (any, error) {
	if o == nil {
		return nil, statusError(OpEvaluate, StatusInvalidArgument, ScopeUnknown, "", errNilHandle)
	}
	evaluator, err := o.prepareRule(expr)
	if err != nil {
		o.log(OperationEvent{
			Op:     OpEvaluate,
			Scope:  ctx.Scope,
			Status: StatusOf(err),
			Expr:   expr,
			Err:    err,
		})
		return nil, err
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = o.ruleSnapshot()
	}
	ctx = ctx.withDefaults()
	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	value, evalErr := evaluator.Evaluate(ctx, expr)
	evalErr = wrapEvaluationError(engine, expr, ctx.scopeLabel(), evalErr)
	status := StatusOk
	if evalErr != nil {
		status = StatusInvalidArgument
	}
	o.log(OperationEvent{
		Op:       OpEvaluate,
		Scope:    ctx.Scope,
		Status:   status,
		Engine:   engine,
		Expr:     expr,
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		return nil, evalErr
	}
	return value, nil
}

// Compile prepares expr with the configured evaluator for repeated use
// against Options.RuleContext.
func (o *Options) Compile(expr string) (CompiledRule, error) {
	if o == nil {
		return nil, statusError(OpEvaluate, StatusInvalidArgument, ScopeUnknown, "", errNilHandle)
	}
	evaluator, err := o.prepareRule(expr)
	if err != nil {
		return nil, err
	}
	return evaluator.Compile(expr)
}

// prepareRule validates expr and the rule configuration and returns the
// evaluator to run it with.
func (o *Options) prepareRule(expr string) (Evaluator, error) {
	if expr == "" {
		return nil, statusError(OpEvaluate, StatusInvalidArgument, ScopeUnknown, "", errEmptyExpr)
	}
	if err := errors.Join(o.cfg.functionErrs...); err != nil {
		return nil, statusError(OpEvaluate, StatusInvalidArgument, ScopeUnknown, "", err)
	}
	evaluator, err := o.resolveEvaluator()
	if err != nil {
		return nil, statusError(OpEvaluate, StatusInvalidArgument, ScopeUnknown, "", err)
	}
	return evaluator, nil
}

// RuleContext returns a context bound to the current store contents.
func (o *Options) RuleContext() RuleContext {
	return RuleContext{Snapshot: o.ruleSnapshot()}.withDefaults()
}

func (o *Options) ruleSnapshot() map[string]any {
	snapshot := o.Snapshot()
	out := make(map[string]any, len(snapshot))
	for scope, pairs := range snapshot {
		values := make(map[string]any, len(pairs))
		for key, value := range pairs {
			values[key] = value
		}
		out[scope] = values
	}
	return out
}

func (o *Options) resolveEvaluator() (Evaluator, error) {
	if o.cfg.evaluator != nil {
		return o.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := o.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := o.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	o.cfg.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}
