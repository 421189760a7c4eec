package choices

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-choices/pkg/activity"
)

func TestWithActivityHooksClonesAndFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	n := New(WithActivityHooks(activity.Hooks{nil, hook}))
	hooks := n.ActivityHooks()
	if len(hooks) != 1 {
		t.Fatalf("expected 1 hook, got %d", len(hooks))
	}

	hooks[0] = nil
	again := n.ActivityHooks()
	if len(again) != 1 || again[0] == nil {
		t.Fatalf("expected cloned hooks unaffected by mutation, got %+v", again)
	}
}

func TestActivityHooksDefaultNil(t *testing.T) {
	if hooks := New().ActivityHooks(); hooks != nil {
		t.Fatalf("expected nil hooks by default, got %+v", hooks)
	}
}

func TestNormalizeEmitsNormalizedEvent(t *testing.T) {
	capture := &activity.CaptureHook{}
	n := New(WithActivityHooks(activity.Hooks{capture}), WithActivityChannel("forms"))

	if _, err := n.Normalize([]any{"a", map[string]any{"value": 1}}, nil); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if len(capture.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(capture.Events))
	}
	event := capture.Events[0]
	if event.Verb != activity.VerbNormalized {
		t.Fatalf("expected verb %q, got %q", activity.VerbNormalized, event.Verb)
	}
	if event.Channel != "forms" {
		t.Fatalf("expected channel forms, got %q", event.Channel)
	}
	if event.Metadata["kind"] != "sequence" || event.Metadata["records"] != 2 || event.Metadata["masked"] != 1 {
		t.Fatalf("unexpected metadata %+v", event.Metadata)
	}
}

func TestNormalizeEmitsLoaderRegisteredEvent(t *testing.T) {
	capture := &activity.CaptureHook{}
	n := New(WithActivityHooks(activity.Hooks{capture}))

	supplier := Supplier(func() any { return NewFuture() })
	if _, err := n.Normalize(supplier, func(Supplier) {}); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	verbs := capture.Verbs()
	if len(verbs) != 1 || verbs[0] != activity.VerbLoaderRegistered {
		t.Fatalf("expected loader registered event, got %v", verbs)
	}
	if capture.Events[0].Metadata["deferred"] != true {
		t.Fatalf("expected deferred metadata, got %+v", capture.Events[0].Metadata)
	}
}

func TestNormalizeDoesNotEmitOnError(t *testing.T) {
	capture := &activity.CaptureHook{}
	n := New(WithActivityHooks(activity.Hooks{capture}))
	if _, err := n.Normalize(7, nil); err == nil {
		t.Fatalf("expected error")
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(capture.Events))
	}
}

func TestHookFailureIsLoggedNotReturned(t *testing.T) {
	hookErr := errors.New("sink down")
	capture := &activity.CaptureHook{Err: hookErr}
	var logged []NormalizationLogEvent
	n := New(
		WithActivityHooks(activity.Hooks{capture}),
		WithLogger(NormalizationLoggerFunc(func(event NormalizationLogEvent) {
			logged = append(logged, event)
		})),
	)

	records, err := n.Normalize([]string{"a"}, nil)
	if err != nil {
		t.Fatalf("hook failure must not fail normalization: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if len(logged) != 2 {
		t.Fatalf("expected normalization and hook failure log events, got %d", len(logged))
	}
	if !errors.Is(logged[1].Err, hookErr) {
		t.Fatalf("expected hook error to be logged, got %v", logged[1].Err)
	}
}
