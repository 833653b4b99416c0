package permstore

import (
	"context"
	"errors"

	"github.com/goliatone/go-permstore/pkg/activity"
)

// WithActivityHooks attaches activity hooks to the store configuration.
// Hooks are cloned and nil entries dropped to preserve immutability.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *storeConfig) {
		cfg.activityHooks = normalized
	}
}

// ActivityHooks returns a cloned slice of the hooks configured on the store.
// The returned slice can be safely mutated by the caller.
func (s *Store) ActivityHooks() activity.Hooks {
	if s == nil {
		return nil
	}
	return cloneActivityHooks(s.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

// eventEmitter wraps the activity emitter with store-level defaults.
type eventEmitter struct {
	emitter *activity.Emitter
	actorID string
}

func newEventEmitter(cfg storeConfig) *eventEmitter {
	return &eventEmitter{
		emitter: activity.NewEmitter(cfg.activityHooks, activity.Config{
			Enabled: len(cfg.activityHooks) > 0,
			Channel: cfg.channel,
		}),
		actorID: cfg.actorID,
	}
}

func (e *eventEmitter) enabled() bool {
	return e != nil && e.emitter.Enabled()
}

func (s *Store) emitWrite(path string, previous, merged any) {
	if !s.events.enabled() {
		return
	}
	event := activity.BuildStoreWriteEvent(activity.StoreEventInput{
		ActorID:  s.events.actorID,
		Path:     path,
		OldValue: previous,
		NewValue: merged,
	})
	s.notifyHooks(event)
}

func (s *Store) emitDenied(op, path string, err error) {
	if !s.events.enabled() {
		return
	}
	input := activity.StoreEventInput{
		ActorID: s.events.actorID,
		Path:    path,
	}
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		input.Key = accessErr.Key
		input.Action = string(accessErr.Action)
	}
	var event activity.Event
	if op == "write" {
		event = activity.BuildStoreWriteDeniedEvent(input)
	} else {
		event = activity.BuildStoreReadDeniedEvent(input)
	}
	s.notifyHooks(event)
}

func (s *Store) emitSeeded(count int) {
	if !s.events.enabled() {
		return
	}
	event := activity.BuildStoreSeededEvent(activity.StoreEventInput{
		ActorID: s.events.actorID,
		Metadata: map[string]any{
			"entry_count": count,
		},
	})
	s.notifyHooks(event)
}

func (s *Store) notifyHooks(event activity.Event) {
	if err := s.events.emitter.Emit(context.Background(), event); err != nil {
		s.accessLogger().LogAccess(AccessLogEvent{Op: "activity", Path: event.ObjectID, Err: err})
	}
}
