package permstore

import (
	"encoding/json"
	"time"
)

// StepKind labels what a trace step crossed during path resolution.
type StepKind string

const (
	// StepField is a permission check on a top-level field.
	StepField StepKind = "field"
	// StepStore is a crossing into a child store.
	StepStore StepKind = "store"
	// StepLazy is a producer materialization.
	StepLazy StepKind = "lazy"
	// StepWalk is a plain-structure key walk with no permission check.
	StepWalk StepKind = "walk"
)

// Trace records how a read resolved a path: every permission boundary it
// crossed, every lazy materialization, and every plain key walked.
type Trace struct {
	Path  string `json:"path"`
	Steps []Step `json:"steps"`
}

// Step is a single resolution event inside a trace.
type Step struct {
	Key     string   `json:"key"`
	Kind    StepKind `json:"kind"`
	Allowed bool     `json:"allowed"`
	Found   bool     `json:"found"`
}

func (t *Trace) add(step Step) {
	if t == nil {
		return
	}
	t.Steps = append(t.Steps, step)
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload previously produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

// ReadWithTrace behaves like Read and additionally reports the resolution
// steps taken, including the step that denied access when err is non-nil.
func (s *Store) ReadWithTrace(path string) (any, Trace, error) {
	trace := Trace{Path: path}
	start := time.Now()
	value, err := s.read(path, &trace)
	s.logAccess("read", path, PermissionRead, time.Since(start), err)
	if err != nil {
		s.emitDenied("read", path, err)
	}
	return value, trace, err
}

func stepKindOf(value any) StepKind {
	switch value.(type) {
	case *Store:
		return StepStore
	case Lazy, func() any:
		return StepLazy
	default:
		return StepField
	}
}
