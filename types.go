package permstore

import (
	"time"

	"github.com/goliatone/go-permstore/pkg/activity"
)

// Permission is a single access token attached to a store field.
type Permission string

const (
	// PermissionRead grants read access only.
	PermissionRead Permission = "r"
	// PermissionWrite grants write access only.
	PermissionWrite Permission = "w"
	// PermissionReadWrite grants both read and write access.
	PermissionReadWrite Permission = "rw"
	// PermissionNone denies both read and write. It is an explicit token so a
	// field stays locked down even under a permissive default policy.
	PermissionNone Permission = "none"
)

// DefaultPolicy is the permission applied to fields with no restriction entry.
const DefaultPolicy = PermissionReadWrite

// Lazy is a zero-argument producer held as a field value. It is invoked fresh
// on every access that reaches it; results are never memoized. A producer may
// yield a child *Store, a primitive, a plain structure, or nil.
type Lazy func() any

// GuardContext carries the inputs available to a guard expression when a
// guarded restriction is checked.
type GuardContext struct {
	Key      string
	Action   Permission
	Path     string
	Snapshot any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx GuardContext) withDefaultNow() GuardContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx GuardContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx GuardContext) withDefaultMaps() GuardContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx GuardContext) withDefaults() GuardContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx GuardContext) snapshotMap() map[string]any {
	if m, ok := ctx.Snapshot.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// GuardEvaluator executes guard expressions against a guard context.
type GuardEvaluator interface {
	Evaluate(ctx GuardContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledGuard, error)
}

// CompiledGuard represents a reusable guard program.
type CompiledGuard interface {
	Evaluate(ctx GuardContext) (any, error)
}

// CompileOption configures guard compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Option configures a Store at construction time.
type Option func(*storeConfig)

type storeConfig struct {
	defaultPolicy Permission
	restrictions  RestrictionSet
	entries       map[string]any
	guard         GuardEvaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	logger        AccessLogger
	activityHooks activity.Hooks
	channel       string
	actorID       string
}

func applyOptions(opts []Option) storeConfig {
	cfg := storeConfig{defaultPolicy: DefaultPolicy}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithDefaultPolicy sets the fallback permission for fields that have no
// restriction entry.
func WithDefaultPolicy(policy Permission) Option {
	return func(cfg *storeConfig) {
		cfg.defaultPolicy = policy
	}
}

// WithRestrictions seeds the restriction table. Repeated options union their
// entries instead of replacing earlier declarations.
func WithRestrictions(set RestrictionSet) Option {
	return func(cfg *storeConfig) {
		if len(set) == 0 {
			return
		}
		cfg.restrictions = cfg.restrictions.union(set)
	}
}

// WithEntries seeds the store from a flat mapping via the bulk write path.
// Seeding is subject to the same permission checks as WriteEntries.
func WithEntries(entries map[string]any) Option {
	return func(cfg *storeConfig) {
		if len(entries) == 0 {
			return
		}
		if cfg.entries == nil {
			cfg.entries = make(map[string]any, len(entries))
		}
		for key, value := range entries {
			cfg.entries[key] = value
		}
	}
}

// WithGuardEvaluator configures the evaluator used for guarded restrictions.
func WithGuardEvaluator(evaluator GuardEvaluator) Option {
	return func(cfg *storeConfig) {
		cfg.guard = evaluator
	}
}

// WithActorID tags activity events emitted by the store with an actor
// identifier, typically a UUID understood by downstream sinks.
func WithActorID(id string) Option {
	return func(cfg *storeConfig) {
		cfg.actorID = id
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *storeConfig) {
		cfg.channel = channel
	}
}

func (s *Store) guardEvaluatorOrNil() GuardEvaluator {
	return s.cfg.guard
}

func (s *Store) withGuardEvaluator(e GuardEvaluator) {
	s.cfg.guard = e
}

func (s *Store) accessLogger() AccessLogger {
	if s.cfg.logger != nil {
		return s.cfg.logger
	}
	return noopAccessLogger{}
}
