package kbopts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

func skipUnavailable(t *testing.T, name string) {
	t.Helper()
	if name == "js" && !jsEvaluatorAvailable() {
		t.Skip("js evaluator requires the js_eval build tag")
	}
}

type rulesFixture struct {
	Description string             `json:"description"`
	Items       []Item             `json:"items"`
	Cases       []rulesFixtureCase `json:"cases"`
}

type rulesFixtureCase struct {
	Name   string `json:"name"`
	Rule   string `json:"rule"`
	Expect bool   `json:"expect"`
}

func loadRulesFixture(t *testing.T) rulesFixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", "rules.json"))
	if err != nil {
		t.Fatalf("failed to read rules fixture: %v", err)
	}
	var fx rulesFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal rules fixture: %v", err)
	}
	return fx
}

func TestRulesFixtureAcrossEvaluators(t *testing.T) {
	fx := loadRulesFixture(t)

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			opts := New(WithEvaluator(factory.new(nil, nil)))
			if err := opts.Update(fx.Items); err != nil {
				t.Fatalf("unexpected update error: %v", err)
			}

			for _, tc := range fx.Cases {
				tc := tc
				t.Run(tc.Name, func(t *testing.T) {
					value, err := opts.Evaluate(tc.Rule)
					if err != nil {
						t.Fatalf("unexpected error from Evaluate: %v", err)
					}
					got, ok := value.(bool)
					if !ok {
						t.Fatalf("expected bool response, got %T", value)
					}
					if got != tc.Expect {
						t.Fatalf("expected %v, got %v", tc.Expect, got)
					}
				})
			}
		})
	}
}

func TestRuleContextDefaults(t *testing.T) {
	capture := &capturingEvaluator{}
	opts := New(WithEvaluator(capture))
	if err := opts.Update([]Item{{Scope: ScopeKeyboard, Key: "layout", Value: "dvorak"}}); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	if _, err := opts.Evaluate("true"); err != nil {
		t.Fatalf("unexpected error from Evaluate: %v", err)
	}
	if len(capture.contexts) != 1 {
		t.Fatalf("expected evaluator to receive one context, got %d", len(capture.contexts))
	}
	ctx := capture.contexts[0]
	if ctx.Now == nil || ctx.Now.IsZero() {
		t.Fatalf("expected Evaluate to default RuleContext.Now")
	}
	if ctx.Args == nil || ctx.Metadata == nil {
		t.Fatalf("expected Evaluate to default Args and Metadata")
	}
	snapshot, ok := ctx.Snapshot.(map[string]any)
	if !ok {
		t.Fatalf("expected map snapshot, got %T", ctx.Snapshot)
	}
	keyboard, ok := snapshot["keyboard"].(map[string]any)
	if !ok || keyboard["layout"] != "dvorak" {
		t.Fatalf("expected keyboard scope in snapshot, got %#v", snapshot["keyboard"])
	}
	if _, ok := snapshot["environment"]; !ok {
		t.Fatalf("expected empty environment scope to be present")
	}
}

func TestEvaluateWithSnapshotOverride(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			opts := New(WithEvaluator(factory.new(nil, nil)))
			if err := opts.Update([]Item{{Scope: ScopeKeyboard, Key: "layout", Value: "qwerty"}}); err != nil {
				t.Fatalf("unexpected update error: %v", err)
			}

			ctx := RuleContext{
				Snapshot: map[string]any{"keyboard": map[string]any{"layout": "dvorak"}},
			}
			value, err := opts.EvaluateWith(ctx, `keyboard.layout == "dvorak"`)
			if err != nil {
				t.Fatalf("unexpected error from EvaluateWith: %v", err)
			}
			if value != true {
				t.Fatalf("expected EvaluateWith to respect the snapshot override, got %v", value)
			}
		})
	}
}

func TestEvaluateScopeBinding(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			opts := New(WithEvaluator(factory.new(nil, nil)))
			value, err := opts.EvaluateWith(RuleContext{Scope: ScopeEnvironment}, `scope == "environment"`)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if value != true {
				t.Fatalf("expected scope binding, got %v", value)
			}
		})
	}
}

func TestOptHelper(t *testing.T) {
	opts := New()
	if err := opts.Update([]Item{{Scope: ScopeEnvironment, Key: "platform", Value: "linux"}}); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	value, err := opts.Evaluate(`opt("environment", "platform") + "/" + opt("keyboard", "missing")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "linux/" {
		t.Fatalf("expected %q, got %v", "linux/", value)
	}
}

func TestEvaluatorProgramCache(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			cache := &fakeProgramCache{}
			opts := New(WithEvaluator(factory.new(cache, nil)))
			if err := opts.Update([]Item{{Scope: ScopeKeyboard, Key: "layout", Value: "dvorak"}}); err != nil {
				t.Fatalf("unexpected update error: %v", err)
			}

			for i := 0; i < 3; i++ {
				if _, err := opts.Evaluate(`keyboard.layout == "dvorak"`); err != nil {
					t.Fatalf("unexpected error on iteration %d: %v", i, err)
				}
			}

			if cache.misses != 1 {
				t.Fatalf("expected one cache miss, got %d", cache.misses)
			}
			if cache.hits != 2 {
				t.Fatalf("expected two cache hits, got %d", cache.hits)
			}
		})
	}
}

func TestCustomFunctionsAcrossEvaluators(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("upper", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("upper expects one argument")
		}
		text, _ := args[0].(string)
		out := []rune(text)
		for i, r := range out {
			if r >= 'a' && r <= 'z' {
				out[i] = r - 'a' + 'A'
			}
		}
		return string(out), nil
	}); err != nil {
		t.Fatalf("unexpected register error: %v", err)
	}

	rules := map[string]string{
		"expr": `call("upper", keyboard.layout) == "DVORAK"`,
		"cel":  `call("upper", [keyboard.layout]) == "DVORAK"`,
		"js":   `call("upper", keyboard.layout) === "DVORAK"`,
	}

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			skipUnavailable(t, factory.name)
			opts := New(WithEvaluator(factory.new(nil, registry)))
			if err := opts.Update([]Item{{Scope: ScopeKeyboard, Key: "layout", Value: "dvorak"}}); err != nil {
				t.Fatalf("unexpected update error: %v", err)
			}
			value, err := opts.Evaluate(rules[factory.name])
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if value != true {
				t.Fatalf("expected custom function result, got %v", value)
			}
		})
	}
}

func TestWithRuleFunctionOnDefaultEvaluator(t *testing.T) {
	opts := New(WithRuleFunction("double", func(args ...any) (any, error) {
		text, _ := args[0].(string)
		return text + text, nil
	}))
	value, err := opts.Evaluate(`double("ab")`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "abab" {
		t.Fatalf("expected %q, got %v", "abab", value)
	}
}

func TestFunctionRegistryRejectsReservedAndDuplicates(t *testing.T) {
	registry := NewFunctionRegistry()
	noop := func(...any) (any, error) { return nil, nil }
	for _, name := range []string{"opt", "Call"} {
		if err := registry.Register(name, noop); !errors.Is(err, ErrFunctionReserved) {
			t.Fatalf("expected %q to be reserved, got %v", name, err)
		}
	}
	if err := registry.Register("Fn", noop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := registry.Register("fn", noop); !errors.Is(err, ErrFunctionExists) {
		t.Fatalf("expected case-insensitive duplicate to be rejected, got %v", err)
	}
	if _, err := registry.Call("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Fatalf("expected unknown function error, got %v", err)
	}
}

func TestEvaluationErrorsCarryMetadata(t *testing.T) {
	var events []OperationEvent
	opts := New(WithLogger(LoggerFunc(func(e OperationEvent) { events = append(events, e) })))

	_, err := opts.EvaluateWith(RuleContext{Scope: ScopeKeyboard}, `1 +`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T (%v)", err, err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "1 +" {
		t.Fatalf("unexpected evaluation metadata: %+v", evalErr)
	}
	if len(events) != 1 || events[0].Op != OpEvaluate || events[0].Err == nil {
		t.Fatalf("expected one failed evaluate event, got %+v", events)
	}
	if events[0].Engine != "expr" {
		t.Fatalf("expected engine in event, got %q", events[0].Engine)
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{Engine: "expr", Err: base}

	err := wrapEvaluationError("cel", "rule", "keyboard", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" || existing.Scope != "keyboard" {
		t.Fatalf("expression and scope should be filled, got %+v", existing)
	}
}

func TestCompiledRuleSeesLaterUpdates(t *testing.T) {
	opts := New()
	rule, err := opts.Compile(`keyboard.layout == "dvorak"`)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if err := opts.Update([]Item{{Scope: ScopeKeyboard, Key: "layout", Value: "dvorak"}}); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := opts.RuleContext()
	ctx.Now = &now
	value, err := rule.Evaluate(ctx)
	if err != nil {
		t.Fatalf("unexpected evaluate error: %v", err)
	}
	if value != true {
		t.Fatalf("expected compiled rule to see updated snapshot, got %v", value)
	}
}

type capturingEvaluator struct {
	contexts []RuleContext
}

func (c *capturingEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return nil, fmt.Errorf("capturing evaluator does not support compile")
}

type fakeProgramCache struct {
	values map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	if c.values == nil {
		c.misses++
		return nil, false
	}
	value, ok := c.values[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

func (c *fakeProgramCache) Set(key string, value any) {
	if c.values == nil {
		c.values = map[string]any{}
	}
	c.values[key] = value
}

func TestWithRuleFunctionReportsRegistrationErrors(t *testing.T) {
	noop := func(...any) (any, error) { return "x", nil }
	opts := New(WithRuleFunction("opt", noop), WithRuleFunction("up", noop), WithRuleFunction("UP", noop))

	_, err := opts.Evaluate(`true`)
	if !errors.Is(err, ErrFunctionReserved) || !errors.Is(err, ErrFunctionExists) {
		t.Fatalf("expected reserved and duplicate errors, got %v", err)
	}
	if StatusOf(err) != StatusInvalidArgument {
		t.Fatalf("expected invalid argument, got %s", StatusOf(err))
	}
	if _, err := opts.Compile(`true`); !errors.Is(err, ErrFunctionReserved) {
		t.Fatalf("expected compile to report registration error, got %v", err)
	}
}

func TestEvaluateEmptyExpression(t *testing.T) {
	var events []OperationEvent
	opts := New(WithLogger(LoggerFunc(func(e OperationEvent) { events = append(events, e) })))

	_, err := opts.EvaluateWith(RuleContext{Scope: ScopeEnvironment}, "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Op != OpEvaluate {
		t.Fatalf("expected evaluate StatusError, got %T (%v)", err, err)
	}
	if len(events) != 1 || events[0].Status != StatusInvalidArgument || events[0].Scope != ScopeEnvironment {
		t.Fatalf("expected one invalid argument event, got %+v", events)
	}

	if _, err := opts.Compile(""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected compile to reject empty expression, got %v", err)
	}
}
