package choices

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptionsSource reports a value that is neither a sequence, a
// mapping nor a supplier.
var ErrInvalidOptionsSource = errors.New("choices: invalid options source")

// ErrNoEvaluator reports that no rule evaluator could be constructed.
var ErrNoEvaluator = errors.New("choices: evaluator not configured")

// SourceError describes the rejected value. It unwraps to
// ErrInvalidOptionsSource.
type SourceError struct {
	Type string
}

func (e *SourceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: got %s", ErrInvalidOptionsSource.Error(), e.Type)
}

func (e *SourceError) Unwrap() error {
	return ErrInvalidOptionsSource
}

func invalidSource(source any) error {
	if source == nil {
		return &SourceError{Type: "nil"}
	}
	return &SourceError{Type: fmt.Sprintf("%T", source)}
}

// EvaluationError captures rule metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Record string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("choices: %s evaluator %s record=%s: %v", e.Engine, describeExpression(e.Expr), e.Record, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "choices:") {
		return err
	}
	return fmt.Errorf("choices: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, record string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Record == "" {
			evalErr.Record = record
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Record: record,
		Err:    err,
	}
}
