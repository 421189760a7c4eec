package choices

import (
	"fmt"
	"strings"
	"time"
)

// RuleContext carries the record under evaluation and caller supplied inputs.
type RuleContext struct {
	Record   Record
	Index    int
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
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

func (ctx RuleContext) recordLabel() string {
	return fmt.Sprintf("#%d", ctx.Index)
}

// binding returns the variables visible to rule expressions.
func (ctx RuleContext) binding() map[string]any {
	attrs := make(map[string]any, len(ctx.Record.Attrs))
	for _, attr := range ctx.Record.Attrs {
		attrs[attr.Key] = attr.Value
	}
	return map[string]any{
		"label":    ctx.Record.Label,
		"value":    ctx.Record.Value,
		"original": ctx.Record.Original,
		"masked":   ctx.Record.Masked,
		"index":    ctx.Index,
		"attrs":    attrs,
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
}

// Evaluator executes rule expressions against a record.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable rule program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// WithEvaluator selects the engine used for filter rules.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = e
	}
}

// filter keeps the records whose rule result is true. Pass-through records
// are not choices and are kept in place.
func (n *Normalizer) filter(records []Record) ([]Record, error) {
	evaluator, err := n.resolveEvaluator()
	if err != nil {
		return nil, err
	}
	engine := evaluatorEngineName(evaluator)
	rule, err := evaluator.Compile(n.cfg.filter)
	if err != nil {
		err = wrapEvaluationError(engine, n.cfg.filter, "", err)
		n.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{Engine: engine, Expr: n.cfg.filter, Err: err})
		return nil, err
	}

	kept := make([]Record, 0, len(records))
	for i, record := range records {
		if record.Passthrough {
			kept = append(kept, record)
			continue
		}
		ctx := n.ruleContext(record, i)
		start := time.Now()
		result, evalErr := rule.Evaluate(ctx)
		if evalErr == nil {
			if _, ok := result.(bool); !ok {
				evalErr = fmt.Errorf("filter rule must return bool, got %T", result)
			}
		}
		evalErr = wrapEvaluationError(engine, n.cfg.filter, ctx.recordLabel(), evalErr)
		n.evaluatorLogger().LogEvaluation(EvaluatorLogEvent{
			Engine:   engine,
			Expr:     n.cfg.filter,
			Record:   ctx.recordLabel(),
			Duration: time.Since(start),
			Err:      evalErr,
		})
		if evalErr != nil {
			return nil, evalErr
		}
		if result.(bool) {
			kept = append(kept, record)
		}
	}
	return kept, nil
}

func (n *Normalizer) ruleContext(record Record, index int) RuleContext {
	ctx := RuleContext{
		Record:   record,
		Index:    index,
		Args:     copyMap(n.cfg.args),
		Metadata: copyMap(n.cfg.metadata),
	}
	if n.cfg.now != nil {
		now := n.cfg.now()
		ctx.Now = &now
	}
	return ctx.withDefaults()
}

func (n *Normalizer) resolveEvaluator() (Evaluator, error) {
	if n.cfg.evaluator != nil {
		return n.cfg.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if cache := n.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := n.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
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

// EngineEvaluator builds the evaluator for a named engine: "expr" (also the
// empty name), "cel" or "js". The js engine needs the js_eval build tag.
func EngineEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "expr":
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case "cel":
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case "js":
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	}
	return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
}
