package activity

import (
	"context"
	"sync"
)

// CaptureHook records store events for assertions in tests. A non-empty Verbs
// list narrows capture to those store verbs; other events are acknowledged
// without being kept.
type CaptureHook struct {
	Events []Event
	Err    error
	Verbs  []string
	mu     sync.Mutex
}

// Notify records the normalized event when it passes the verb filter and
// returns any configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	normalized := NormalizeEvent(event)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.captures(normalized.Verb) {
		h.Events = append(h.Events, normalized)
	}
	return h.Err
}

// ByVerb returns the captured events carrying verb, in arrival order.
func (h *CaptureHook) ByVerb(verb string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var matched []Event
	for _, event := range h.Events {
		if event.Verb == verb {
			matched = append(matched, event)
		}
	}
	return matched
}

func (h *CaptureHook) captures(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	for _, candidate := range h.Verbs {
		if candidate == verb {
			return true
		}
	}
	return false
}
