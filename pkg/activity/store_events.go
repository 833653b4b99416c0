package activity

import (
	"strings"
	"time"
)

// StoreEventInput describes the common fields for store lifecycle events.
type StoreEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	ObjectID   string
	Channel    string
	Path       string
	Key        string
	Action     string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildStoreWriteEvent constructs a normalized event for a successful write.
func BuildStoreWriteEvent(input StoreEventInput) Event {
	return buildStoreEvent("store.write", "store", input)
}

// BuildStoreWriteDeniedEvent constructs an event for a denied write.
func BuildStoreWriteDeniedEvent(input StoreEventInput) Event {
	return buildStoreEvent("store.write.denied", "store", input)
}

// BuildStoreReadDeniedEvent constructs an event for a denied read.
func BuildStoreReadDeniedEvent(input StoreEventInput) Event {
	return buildStoreEvent("store.read.denied", "store", input)
}

// BuildStoreSeededEvent constructs an event for a completed bulk seed.
func BuildStoreSeededEvent(input StoreEventInput) Event {
	return buildStoreEvent("store.seeded", "store", input)
}

func buildStoreEvent(verb, objectType string, input StoreEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.Path != "" {
		metadata = ensureMetadata(metadata)
		metadata["path"] = input.Path
	}
	if input.Key != "" {
		metadata = ensureMetadata(metadata)
		metadata["key"] = input.Key
	}
	if input.Action != "" {
		metadata = ensureMetadata(metadata)
		metadata["action"] = input.Action
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Path)
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
