package choices

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapEvaluationErrorCreatesMetadata(t *testing.T) {
	base := errors.New("boom")
	err := wrapEvaluationError("expr", "masked && missing", "#1", base)

	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
	if evalErr.Expr != "masked && missing" {
		t.Fatalf("expected expression metadata, got %q", evalErr.Expr)
	}
	if evalErr.Record != "#1" {
		t.Fatalf("expected record metadata, got %q", evalErr.Record)
	}
	if !errors.Is(evalErr.Err, base) {
		t.Fatalf("wrapped error should unwrap to base error")
	}
}

func TestWrapEvaluationErrorAugmentsExisting(t *testing.T) {
	base := errors.New("compile failure")
	existing := &EvaluationError{
		Engine: "expr",
		Err:    base,
	}

	err := wrapEvaluationError("cel", "rule", "#9", existing)
	if !errors.Is(err, base) {
		t.Fatalf("expected base error to unwrap")
	}
	if existing.Engine != "expr" {
		t.Fatalf("existing engine should not be overwritten, got %q", existing.Engine)
	}
	if existing.Expr != "rule" {
		t.Fatalf("expression should be filled, got %q", existing.Expr)
	}
	if existing.Record != "#9" {
		t.Fatalf("record should be filled, got %q", existing.Record)
	}
}

func TestWrapEvaluatorErrorPrefixesOnce(t *testing.T) {
	err := wrapEvaluatorError("cel", errors.New("env failure"))
	if !strings.HasPrefix(err.Error(), "choices: cel evaluator:") {
		t.Fatalf("expected prefixed error, got %q", err)
	}
	if again := wrapEvaluatorError("expr", err); again != err {
		t.Fatalf("expected already prefixed error to be returned as is, got %q", again)
	}
	if wrapEvaluatorError("expr", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestSourceErrorUnwrapsToSentinel(t *testing.T) {
	err := invalidSource(3.5)
	if !errors.Is(err, ErrInvalidOptionsSource) {
		t.Fatalf("expected ErrInvalidOptionsSource, got %v", err)
	}
	var sourceErr *SourceError
	if !errors.As(err, &sourceErr) || sourceErr.Type != "float64" {
		t.Fatalf("expected SourceError with type float64, got %#v", err)
	}
	if got := invalidSource(nil).Error(); got != "choices: invalid options source: got nil" {
		t.Fatalf("unexpected message %q", got)
	}
}
