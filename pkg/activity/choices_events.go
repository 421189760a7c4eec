package activity

import (
	"strings"
	"time"
)

const (
	VerbNormalized       = "choices.normalized"
	VerbLoaderRegistered = "choices.loader.registered"
	VerbLoaded           = "choices.loaded"
	VerbSelected         = "choices.selected"
)

// ListContext summarises the option list an event refers to.
type ListContext struct {
	Name     string
	Kind     string
	Records  int
	Masked   int
	Deferred bool
}

// EventInput describes the common fields for option list events.
type EventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	List       ListContext
	Value      any
	OccurredAt time.Time
}

// BuildNormalizedEvent describes a completed normalization pass.
func BuildNormalizedEvent(input EventInput) Event {
	return buildListEvent(VerbNormalized, "choices.list", input)
}

// BuildLoaderRegisteredEvent describes a deferred source handed to the host.
func BuildLoaderRegisteredEvent(input EventInput) Event {
	return buildListEvent(VerbLoaderRegistered, "choices.loader", input)
}

// BuildLoadedEvent describes a deferred source that resolved and was
// normalized.
func BuildLoadedEvent(input EventInput) Event {
	return buildListEvent(VerbLoaded, "choices.list", input)
}

// BuildSelectedEvent describes a selection change on a control.
func BuildSelectedEvent(input EventInput) Event {
	return buildListEvent(VerbSelected, "choices.selection", input)
}

func buildListEvent(verb, objectType string, input EventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.List.Kind != "" {
		metadata = ensureMetadata(metadata)
		metadata["kind"] = input.List.Kind
		metadata["records"] = input.List.Records
		metadata["masked"] = input.List.Masked
	}
	if input.List.Deferred {
		metadata = ensureMetadata(metadata)
		metadata["deferred"] = true
	}
	if input.List.Name != "" {
		metadata = ensureMetadata(metadata)
		metadata["list"] = input.List.Name
	}
	if input.Value != nil {
		metadata = ensureMetadata(metadata)
		metadata["value"] = input.Value
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.List.Name)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
