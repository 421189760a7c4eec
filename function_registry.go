package choices

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Function is a helper callable from filter rules.
type Function func(args ...any) (any, error)

var (
	// ErrFunctionName is returned for helper names rules cannot call.
	ErrFunctionName = errors.New("choices: invalid function name")
	// ErrFunctionExists is returned when a helper name is already taken.
	ErrFunctionExists = errors.New("choices: function already registered")
)

// FunctionRegistry stores rule helpers keyed by case-insensitive name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: make(map[string]Function)}
}

// BuiltinFunctions returns a registry holding the option helpers:
//
//	ismask(value)       true for a __mask_<n> token
//	maskindex(value)    n for a __mask_<n> token, 0 otherwise
//	looseequal(a, b)    LooseEqual
//	selects(a, b)       ShouldSelect
func BuiltinFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	registry.functions["ismask"] = unary(func(value any) any {
		_, ok := maskIndex(value)
		return ok
	})
	registry.functions["maskindex"] = unary(func(value any) any {
		n, _ := maskIndex(value)
		return n
	})
	registry.functions["looseequal"] = binary(func(a, b any) any { return LooseEqual(a, b) })
	registry.functions["selects"] = binary(func(a, b any) any { return ShouldSelect(a, b) })
	return registry
}

func unary(fn func(any) any) Function {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("expected 1 argument, got %d", len(args))
		}
		return fn(args[0]), nil
	}
}

func binary(fn func(a, b any) any) Function {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("expected 2 arguments, got %d", len(args))
		}
		return fn(args[0], args[1]), nil
	}
}

// maskIndex parses the counter out of a mask token.
func maskIndex(value any) (int, bool) {
	token, ok := value.(string)
	if !ok || !strings.HasPrefix(token, maskPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(token[len(maskPrefix):])
	if err != nil || n < 1 || strconv.Itoa(n) != token[len(maskPrefix):] {
		return 0, false
	}
	return n, true
}

// Register stores fn under name. Names must be identifiers because the expr
// engine binds them as top level functions.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("choices: function %q is nil", name)
	}
	if !validFunctionName(name) {
		return fmt.Errorf("%w: %q", ErrFunctionName, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("%w: %q", ErrFunctionExists, name)
	}
	r.functions[key] = fn
	return nil
}

func validFunctionName(name string) bool {
	if name == "" || name == "call" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]Function, len(r.functions))}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("choices: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("choices: function %q not registered", name)
	}
	result, err := fn(args...)
	if err != nil {
		return nil, fmt.Errorf("choices: function %q: %w", name, err)
	}
	return result, nil
}

// Names returns registered function names, lowercased and sorted.
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

// WithFunctionRegistry makes registry available to the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *config) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithBuiltinFunctions adds the option helpers of BuiltinFunctions to the
// default evaluator, keeping any helper already registered under a name.
func WithBuiltinFunctions() Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		builtins := BuiltinFunctions()
		for name, fn := range builtins.functions {
			_ = cfg.functions.Register(name, fn)
		}
	}
}

// WithCustomFunction registers fn under name for filter rules. Duplicate
// names keep the first registration.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}
