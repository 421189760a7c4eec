package choices

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func labels(records []Record) []any {
	out := make([]any, len(records))
	for i, record := range records {
		out[i] = record.Label
		if record.Passthrough {
			out[i] = record.Raw
		}
	}
	return out
}

func assertLabels(t *testing.T, records []Record, want ...any) {
	t.Helper()
	got := labels(records)
	if len(got) != len(want) {
		t.Fatalf("expected labels %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected labels %v, got %v", want, got)
		}
	}
}

func TestFilterRuleExprDefault(t *testing.T) {
	n := New(WithFilterRule("masked"))
	records, err := n.Normalize([]any{"a", map[string]any{"label": "b", "value": 2}, "c"}, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	assertLabels(t, records, "b")
	if records[0].Value != "__mask_1" {
		t.Fatalf("filtering must not renumber masks, got %v", records[0].Value)
	}
}

func TestFilterRuleBindings(t *testing.T) {
	source := []any{
		map[string]any{"label": "x", "value": "x", "group": "warm"},
		map[string]any{"label": "y", "value": "y", "group": "cold"},
		map[string]any{"label": "z", "value": "z", "group": "warm"},
	}
	cases := []struct {
		name string
		opts []Option
		rule string
		want []any
	}{
		{name: "attrs", rule: `attrs.group == "warm"`, want: []any{"x", "z"}},
		{name: "index", rule: `index < 2`, want: []any{"x", "y"}},
		{name: "args", rule: `value != args.skip`, opts: []Option{WithRuleArgs(map[string]any{"skip": "y"})}, want: []any{"x", "z"}},
		{name: "metadata", rule: `metadata.tenant == "acme" && label == "z"`, opts: []Option{WithRuleMetadata(map[string]any{"tenant": "acme"})}, want: []any{"z"}},
		{name: "clock", rule: `now.Year() == 2024`, opts: []Option{WithClock(func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) })}, want: []any{"x", "y", "z"}},
		{name: "custom function", rule: `shout(label) == "Y"`, opts: []Option{WithCustomFunction("shout", func(args ...any) (any, error) {
			return strings.ToUpper(args[0].(string)), nil
		})}, want: []any{"y"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := New(append(tc.opts, WithFilterRule(tc.rule))...)
			records, err := n.Normalize(source, nil)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			assertLabels(t, records, tc.want...)
		})
	}
}

func TestFilterRuleCEL(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("shout", func(args ...any) (any, error) {
		return strings.ToUpper(args[0].(string)), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	n := New(
		WithEvaluator(NewCELEvaluator(CELWithFunctionRegistry(registry))),
		WithFilterRule(`call("shout", [label]) != "B" && index >= 0 && !masked`),
	)
	records, err := n.Normalize([]string{"a", "b", "c"}, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	assertLabels(t, records, "a", "c")
}

func TestFilterRuleCELAttrs(t *testing.T) {
	n := New(
		WithEvaluator(NewCELEvaluator()),
		WithFilterRule(`"hex" in attrs && attrs["hex"] == "#fff"`),
	)
	records, err := n.Normalize(List{
		Fields{{Key: "label", Value: "white"}, {Key: "value", Value: "w"}, {Key: "hex", Value: "#fff"}},
		Fields{{Key: "label", Value: "black"}, {Key: "value", Value: "b"}, {Key: "hex", Value: "#000"}},
		"plain",
	}, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	assertLabels(t, records, "white")
}

func TestFilterRuleKeepsPassthrough(t *testing.T) {
	n := New(WithFilterRule(`label == "keep"`))
	records, err := n.Normalize([]any{"keep", "drop", true}, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	assertLabels(t, records, "keep", true)
}

func TestFilterRuleSkippedForDeferredSource(t *testing.T) {
	n := New(WithFilterRule(`label ==`))
	records, err := n.Normalize(func() any { return NewFuture() }, nil)
	if err != nil {
		t.Fatalf("deferred sources are not filtered, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty list, got %+v", records)
	}
}

func TestFilterRuleCompileError(t *testing.T) {
	var logged []EvaluatorLogEvent
	n := New(
		WithFilterRule(`label ==`),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) { logged = append(logged, event) })),
	)
	_, err := n.Normalize([]string{"a"}, nil)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "label ==" {
		t.Fatalf("unexpected error metadata %+v", evalErr)
	}
	if len(logged) != 1 || logged[0].Err == nil {
		t.Fatalf("expected compile failure to be logged, got %+v", logged)
	}
}

func TestFilterRuleMustReturnBool(t *testing.T) {
	n := New(WithFilterRule(`label`))
	_, err := n.Normalize([]string{"a"}, nil)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %v", err)
	}
	if evalErr.Record != "#0" {
		t.Fatalf("expected record #0, got %q", evalErr.Record)
	}
	if !strings.Contains(err.Error(), "must return bool") {
		t.Fatalf("unexpected message %q", err)
	}
}

func TestFilterRuleLogsEveryEvaluation(t *testing.T) {
	var logged []EvaluatorLogEvent
	n := New(
		WithFilterRule(`true`),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) { logged = append(logged, event) })),
	)
	if _, err := n.Normalize([]string{"a", "b"}, nil); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(logged) != 2 || logged[1].Record != "#1" || logged[0].Engine != "expr" {
		t.Fatalf("unexpected log events %+v", logged)
	}
}

func TestFilterRuleUsesProgramCache(t *testing.T) {
	cache := NewMemoryProgramCache()
	n := New(WithProgramCache(cache), WithFilterRule(`value != "b"`))
	for i := 0; i < 2; i++ {
		if _, err := n.Normalize([]string{"a", "b"}, nil); err != nil {
			t.Fatalf("normalize: %v", err)
		}
	}
	if _, ok := cache.Get(`value != "b"`); !ok {
		t.Fatalf("expected compiled program to be cached")
	}
}

func TestEvaluatorEvaluateDirect(t *testing.T) {
	ctx := RuleContext{Record: Record{Label: "L", Value: "__mask_1", Original: 3, Masked: true}}
	for _, evaluator := range []Evaluator{NewExprEvaluator(), NewCELEvaluator()} {
		result, err := evaluator.Evaluate(ctx, `original == 3 && masked`)
		if err != nil {
			t.Fatalf("%s: evaluate: %v", evaluatorEngineName(evaluator), err)
		}
		if result != true {
			t.Fatalf("%s: expected true, got %v", evaluatorEngineName(evaluator), result)
		}
		if _, err := evaluator.Evaluate(ctx, ""); err == nil {
			t.Fatalf("%s: expected error for empty expression", evaluatorEngineName(evaluator))
		}
	}
}

func TestEngineEvaluator(t *testing.T) {
	for _, engine := range []string{"", "expr", " CEL "} {
		evaluator, err := EngineEvaluator(engine, nil, nil)
		if err != nil || evaluator == nil {
			t.Fatalf("engine %q: expected evaluator, got %v", engine, err)
		}
	}
	if _, err := EngineEvaluator("lua", nil, nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator for unknown engine, got %v", err)
	}
	evaluator, err := EngineEvaluator("js", nil, nil)
	if jsEvaluatorAvailable() {
		if err != nil || !isJSEvaluator(evaluator) {
			t.Fatalf("expected js evaluator, got %v", err)
		}
	} else if !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator without js_eval tag, got %v", err)
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(args ...any) (any, error) { return len(args), nil }
	if err := registry.Register("Count", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("count", fn); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if err := registry.Register("", fn); err == nil {
		t.Fatalf("expected empty name error")
	}
	result, err := registry.Clone().Call("COUNT", 1, 2)
	if err != nil || result != 2 {
		t.Fatalf("expected 2, got %v %v", result, err)
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected missing function error")
	}
	if names := registry.Names(); len(names) != 1 || names[0] != "count" {
		t.Fatalf("unexpected names %v", names)
	}
	for _, name := range []string{"call", "2fast", "has-dash"} {
		if err := registry.Register(name, fn); !errors.Is(err, ErrFunctionName) {
			t.Fatalf("expected ErrFunctionName for %q, got %v", name, err)
		}
	}
	if err := registry.Register("COUNT", fn); !errors.Is(err, ErrFunctionExists) {
		t.Fatalf("expected ErrFunctionExists, got %v", err)
	}
}

func TestBuiltinFunctions(t *testing.T) {
	registry := BuiltinFunctions()
	cases := []struct {
		name string
		args []any
		want any
	}{
		{name: "ismask", args: []any{"__mask_3"}, want: true},
		{name: "ismask", args: []any{"__mask_03"}, want: false},
		{name: "ismask", args: []any{"red"}, want: false},
		{name: "maskindex", args: []any{"__mask_12"}, want: 12},
		{name: "maskindex", args: []any{7}, want: 0},
		{name: "looseequal", args: []any{1, "1"}, want: true},
		{name: "selects", args: []any{map[string]any{"a": 1}, map[string]int{"a": 1}}, want: true},
	}
	for _, tc := range cases {
		got, err := registry.Call(tc.name, tc.args...)
		if err != nil || got != tc.want {
			t.Fatalf("%s(%v): expected %v, got %v %v", tc.name, tc.args, tc.want, got, err)
		}
	}
	if _, err := registry.Call("ismask"); err == nil {
		t.Fatalf("expected arity error")
	}
}

func TestFilterRuleBuiltinFunctions(t *testing.T) {
	source := []any{"red", map[string]any{"value": 1}, map[string]any{"value": 2}}
	n := New(WithBuiltinFunctions(), WithFilterRule(`!ismask(value) || maskindex(value) > 1`))
	records, err := n.Normalize(source, nil)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(records) != 2 || records[0].Value != "red" || records[1].Value != "__mask_2" {
		t.Fatalf("expected red and __mask_2 kept, got %+v", records)
	}

	kept := New(
		WithCustomFunction("ismask", func(...any) (any, error) { return true, nil }),
		WithBuiltinFunctions(),
		WithFilterRule(`ismask(value)`),
	)
	records, err = kept.Normalize(source, nil)
	if err != nil || len(records) != 3 {
		t.Fatalf("expected custom ismask to win, got %+v %v", records, err)
	}
}
