package activity

import (
	"context"
	"testing"
)

func TestBuildNormalizedEventIncludesListMetadata(t *testing.T) {
	meta := map[string]any{"form": "signup"}
	input := EventInput{
		ActorID:  " actor ",
		Metadata: meta,
		List:     ListContext{Name: "colors", Kind: "sequence", Records: 3, Masked: 1},
		Channel:  "forms",
	}

	event := BuildNormalizedEvent(input)

	if event.Verb != VerbNormalized {
		t.Fatalf("expected verb %s, got %s", VerbNormalized, event.Verb)
	}
	if event.ObjectType != "choices.list" || event.ObjectID != "colors" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" {
		t.Fatalf("expected trimmed actor, got %q", event.ActorID)
	}
	if event.Metadata["kind"] != "sequence" || event.Metadata["records"] != 3 || event.Metadata["masked"] != 1 {
		t.Fatalf("expected list metadata, got %+v", event.Metadata)
	}
	if event.Metadata["form"] != "signup" || event.Metadata["list"] != "colors" {
		t.Fatalf("expected caller metadata merged, got %+v", event.Metadata)
	}
	if _, ok := meta["kind"]; ok {
		t.Fatalf("expected input metadata untouched")
	}
}

func TestBuildLoaderRegisteredEventUsesFallbackObjectID(t *testing.T) {
	event := BuildLoaderRegisteredEvent(EventInput{List: ListContext{Kind: "supplier", Deferred: true}})
	if event.ObjectID != "choices.loader" {
		t.Fatalf("expected fallback object ID, got %q", event.ObjectID)
	}
	if event.Metadata["deferred"] != true {
		t.Fatalf("expected deferred flag, got %+v", event.Metadata)
	}
}

func TestBuildSelectedEventCarriesValue(t *testing.T) {
	event := BuildSelectedEvent(EventInput{ObjectID: "color", Value: 7})
	if event.Verb != VerbSelected || event.ObjectID != "color" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Metadata["value"] != 7 {
		t.Fatalf("expected selected value in metadata, got %+v", event.Metadata)
	}
}

func TestBuildEventsWorkWithHooks(t *testing.T) {
	capture := &CaptureHook{}
	hooks := Hooks{capture}

	if err := hooks.Notify(context.Background(), BuildLoadedEvent(EventInput{List: ListContext{Name: "cities"}})); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if verbs := capture.Verbs(); len(verbs) != 1 || verbs[0] != VerbLoaded {
		t.Fatalf("expected loaded verb captured, got %v", verbs)
	}
}
