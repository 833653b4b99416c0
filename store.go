package permstore

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-permstore/internal/hydrate"
)

// PathSeparator splits a path into field segments. There is no escaping
// mechanism, so a key containing a colon cannot be addressed unambiguously.
const PathSeparator = ":"

// defaultPolicyField is the control field name excluded from serialization.
const defaultPolicyField = "defaultPolicy"

// Store is a permission-gated tree node. Fields may hold primitive leaves,
// plain nested structures, child stores, or lazy producers. Every read or
// write is checked against the restriction table at the boundary of the first
// path segment and at each crossing into a child store; keys inside plain
// structures are not re-checked.
//
// A Store has a single logical owner. Concurrent mutation is out of scope and
// must be serialized externally.
type Store struct {
	// DefaultPolicy is the permission applied to fields absent from the
	// restriction table. Mutable by the owner.
	DefaultPolicy Permission

	fields       map[string]any
	restrictions RestrictionSet
	cfg          storeConfig
	events       *eventEmitter
}

// New constructs a store, applying any seed entries through the bulk write
// path. Seed denials are silently dropped; use Load to surface them.
func New(opts ...Option) *Store {
	s := newStore(applyOptions(opts))
	_ = s.seed()
	return s
}

// Load constructs a store and returns the first permission failure hit while
// seeding, leaving already-applied entries in place.
func Load(opts ...Option) (*Store, error) {
	s := newStore(applyOptions(opts))
	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

// SeedFormat identifies the encoding of a seed document.
type SeedFormat string

const (
	// SeedJSON decodes a plain JSON object.
	SeedJSON SeedFormat = SeedFormat(hydrate.FormatJSON)
	// SeedJSONC decodes JSON with comments and trailing commas.
	SeedJSONC SeedFormat = SeedFormat(hydrate.FormatJSONC)
	// SeedYAML decodes a YAML mapping.
	SeedYAML SeedFormat = SeedFormat(hydrate.FormatYAML)
)

// FromDocument decodes an in-memory seed document into a flat entry map and
// constructs a store from it. Decoding is purely in-memory; callers own any
// file or network I/O.
func FromDocument(format SeedFormat, payload []byte, opts ...Option) (*Store, error) {
	decoder := hydrate.NewDecoder()
	entries, err := decoder.Decode(hydrate.Context{Format: hydrate.Format(format)}, payload)
	if err != nil {
		return nil, err
	}
	return Load(append(opts, WithEntries(entries))...)
}

func newStore(cfg storeConfig) *Store {
	s := &Store{
		DefaultPolicy: cfg.defaultPolicy,
		fields:        map[string]any{},
		restrictions:  cfg.restrictions,
		cfg:           cfg,
	}
	s.events = newEventEmitter(cfg)
	return s
}

func (s *Store) seed() error {
	if len(s.cfg.entries) == 0 {
		return nil
	}
	if err := s.WriteEntries(s.cfg.entries); err != nil {
		return err
	}
	s.emitSeeded(len(s.cfg.entries))
	return nil
}

// Read resolves path segment by segment. Structural misses (absent keys,
// non-indexable values) return nil without error; only permission failures
// error, wrapping ErrAccessDenied.
func (s *Store) Read(path string) (any, error) {
	start := time.Now()
	value, err := s.read(path, nil)
	s.logAccess("read", path, PermissionRead, time.Since(start), err)
	if err != nil {
		s.emitDenied("read", path, err)
	}
	return value, err
}

func (s *Store) read(path string, tr *Trace) (any, error) {
	if path == "" {
		return nil, nil
	}
	key, rest := splitPath(path)

	if !s.AllowedToRead(key) {
		tr.add(Step{Key: key, Kind: StepField})
		return nil, deniedError(PermissionRead, key, path)
	}
	current, found := s.fields[key]
	if sub, ok := current.(*Store); ok {
		// The child's table is consulted with the parent's field name.
		if !sub.AllowedToRead(key) {
			tr.add(Step{Key: key, Kind: StepStore})
			return nil, deniedError(PermissionRead, key, path)
		}
	}
	tr.add(Step{Key: key, Kind: stepKindOf(current), Allowed: true, Found: found})

	if len(rest) > 0 {
		if lazy, ok := asLazy(current); ok {
			produced := lazy()
			tr.add(Step{Key: key, Kind: StepLazy, Allowed: true, Found: produced != nil})
			if sub, ok := produced.(*Store); ok {
				return sub.read(strings.Join(rest, PathSeparator), tr)
			}
			return walkSegments(produced, rest, tr), nil
		}
	}
	if leaf, ok := current.(string); ok {
		// Strings cannot be indexed further; remaining segments are dropped.
		return leaf, nil
	}
	if lazy, ok := asLazy(current); ok {
		return lazy(), nil
	}
	if len(rest) == 0 {
		return current, nil
	}
	return walkSegments(current, rest, tr), nil
}

// Write merges value at path. The path is rebuilt as a single-branch nested
// map and merged only at the top level of this node, so sibling keys under a
// replaced plain field are lost. When the first segment holds a child store
// and further segments remain, the write is redirected through that child's
// own write path instead, preserving its other fields.
func (s *Store) Write(path string, value any) (any, error) {
	start := time.Now()
	merged, previous, err := s.write(path, value)
	s.logAccess("write", path, PermissionWrite, time.Since(start), err)
	if err != nil {
		s.emitDenied("write", path, err)
		return nil, err
	}
	if path != "" {
		s.emitWrite(path, previous, merged)
	}
	return merged, nil
}

func (s *Store) write(path string, value any) (merged, previous any, err error) {
	if path == "" {
		return nil, nil, nil
	}
	key, rest := splitPath(path)

	if len(rest) > 0 {
		if sub, ok := s.fields[key].(*Store); ok {
			// Same parent-key cross-check as read.
			if !sub.AllowedToWrite(key) {
				return nil, nil, deniedError(PermissionWrite, key, path)
			}
			return sub.write(strings.Join(rest, PathSeparator), value)
		}
	}
	if !s.AllowedToWrite(key) {
		return nil, nil, deniedError(PermissionWrite, key, path)
	}
	previous = s.fields[key]
	merged = buildBranch(rest, value)
	s.fields[key] = merged
	return merged, previous, nil
}

// WriteEntries applies one Write per entry. A nil or empty mapping is a
// silent no-op. The call is not transactional: the first denial aborts the
// remaining entries but already-written entries stay. Go maps carry no
// iteration order, so the application order across entries is unspecified.
func (s *Store) WriteEntries(entries map[string]any) error {
	if len(entries) == 0 {
		return nil
	}
	for key, value := range entries {
		if _, err := s.Write(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns a flat snapshot of this node's own fields, excluding the
// default-policy control field and any field whose read check fails. Child
// stores and lazy producers are returned as opaque references; there is no
// recursive expansion.
func (s *Store) Entries() map[string]any {
	snapshot := make(map[string]any, len(s.fields))
	for key, value := range s.fields {
		if key == defaultPolicyField {
			continue
		}
		if !s.AllowedToRead(key) {
			continue
		}
		snapshot[key] = value
	}
	return snapshot
}

// Len returns the number of fields held directly by this node, including
// fields the caller could not read.
func (s *Store) Len() int {
	return len(s.fields)
}

func (s *Store) logAccess(op, path string, action Permission, duration time.Duration, err error) {
	key := path
	if idx := strings.Index(path, PathSeparator); idx >= 0 {
		key = path[:idx]
	}
	s.accessLogger().LogAccess(AccessLogEvent{
		Op:       op,
		Path:     path,
		Key:      key,
		Action:   action,
		Duration: duration,
		Err:      err,
	})
}

func splitPath(path string) (string, []string) {
	segments := strings.Split(path, PathSeparator)
	return segments[0], segments[1:]
}

// buildBranch rebuilds the remaining segments as a single-branch nested map
// terminating in value.
func buildBranch(segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}
	return map[string]any{segments[0]: buildBranch(segments[1:], value)}
}

// walkSegments resolves segments against plain nested structures without
// further permission checks, returning nil on the first absent key.
func walkSegments(current any, segments []string, tr *Trace) any {
	for _, segment := range segments {
		next, found := indexSegment(current, segment)
		tr.add(Step{Key: segment, Kind: StepWalk, Allowed: true, Found: found})
		if !found {
			return nil
		}
		current = next
	}
	return current
}

func indexSegment(current any, segment string) (any, bool) {
	switch node := current.(type) {
	case map[string]any:
		value, ok := node[segment]
		return value, ok
	case *Store:
		value, ok := node.fields[segment]
		return value, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(node) {
			return nil, false
		}
		return node[idx], true
	default:
		return nil, false
	}
}

func asLazy(value any) (Lazy, bool) {
	switch fn := value.(type) {
	case Lazy:
		return fn, true
	case func() any:
		return fn, true
	}
	return nil, false
}
