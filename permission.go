package permstore

import "time"

// Restriction is a reusable permission declaration. Build one with Restrict or
// RestrictWhen, then attach it to named fields via On. Token validity is not
// checked here; unknown tokens simply never satisfy a permission check.
type Restriction struct {
	tokens []Permission
	guard  string
}

// Restrict declares a permission token list that can be applied to any field.
func Restrict(tokens ...Permission) Restriction {
	return Restriction{tokens: append([]Permission(nil), tokens...)}
}

// RestrictWhen declares a guarded token list: the tokens grant access only
// while the guard expression evaluates to true at check time.
func RestrictWhen(guard string, tokens ...Permission) Restriction {
	return Restriction{
		tokens: append([]Permission(nil), tokens...),
		guard:  guard,
	}
}

// On binds the restriction to one or more field names, producing a set that
// can be passed to WithRestrictions or Store.Declare.
func (r Restriction) On(fields ...string) RestrictionSet {
	set := make(RestrictionSet, len(fields))
	for _, field := range fields {
		set[field] = r
	}
	return set
}

// RestrictionSet maps field names to their declared restrictions.
type RestrictionSet map[string]Restriction

// union merges other into a copy of the set. Token lists for the same field
// are appended in declaration order; a later non-empty guard replaces an
// earlier one.
func (set RestrictionSet) union(other RestrictionSet) RestrictionSet {
	if len(other) == 0 && set != nil {
		return set
	}
	merged := make(RestrictionSet, len(set)+len(other))
	for field, entry := range set {
		merged[field] = entry
	}
	for field, entry := range other {
		existing, ok := merged[field]
		if !ok {
			merged[field] = Restriction{
				tokens: append([]Permission(nil), entry.tokens...),
				guard:  entry.guard,
			}
			continue
		}
		existing.tokens = append(existing.tokens, entry.tokens...)
		if entry.guard != "" {
			existing.guard = entry.guard
		}
		merged[field] = existing
	}
	return merged
}

// Declare unions the given restrictions into the store's table at runtime.
// Existing entries for the same field keep their earlier tokens.
func (s *Store) Declare(set RestrictionSet) {
	if len(set) == 0 {
		return
	}
	s.restrictions = s.restrictions.union(set)
}

// EffectivePermission resolves the token list used to check key: the explicit
// restriction entry when present, otherwise the default policy.
func (s *Store) EffectivePermission(key string) []Permission {
	if entry, ok := s.restrictions[key]; ok {
		return append([]Permission(nil), entry.tokens...)
	}
	return []Permission{s.DefaultPolicy}
}

// AllowedToRead reports whether key may be read on this store.
func (s *Store) AllowedToRead(key string) bool {
	return s.allowed(PermissionRead, key)
}

// AllowedToWrite reports whether key may be written on this store.
func (s *Store) AllowedToWrite(key string) bool {
	return s.allowed(PermissionWrite, key)
}

func (s *Store) allowed(action Permission, key string) bool {
	entry, explicit := s.restrictions[key]
	tokens := entry.tokens
	if !explicit {
		tokens = []Permission{s.DefaultPolicy}
	}

	granted := false
	for _, token := range tokens {
		if token == PermissionReadWrite || token == action {
			granted = true
			break
		}
	}
	if !granted {
		return false
	}
	if explicit && entry.guard != "" {
		return s.guardAllows(entry.guard, key, action)
	}
	return true
}

// guardAllows evaluates a guard expression. Evaluation errors and non-boolean
// results deny access; both are surfaced through the access logger.
func (s *Store) guardAllows(guard string, key string, action Permission) bool {
	evaluator := s.resolveGuardEvaluator()
	ctx := GuardContext{
		Key:      key,
		Action:   action,
		Snapshot: s.guardSnapshot(),
	}
	start := time.Now()
	result, err := evaluator.Evaluate(ctx, guard)
	err = wrapGuardError("", guard, key, err)
	s.accessLogger().LogAccess(AccessLogEvent{
		Op:       "guard",
		Key:      key,
		Action:   action,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return false
	}
	allowed, ok := result.(bool)
	return ok && allowed
}

// guardSnapshot exposes the store's primitive and plain-structure fields to
// guard expressions. Child stores and lazy producers stay opaque.
func (s *Store) guardSnapshot() map[string]any {
	snapshot := make(map[string]any, len(s.fields))
	for key, value := range s.fields {
		switch value.(type) {
		case *Store, Lazy, func() any:
			continue
		default:
			snapshot[key] = value
		}
	}
	return snapshot
}

func (s *Store) resolveGuardEvaluator() GuardEvaluator {
	if evaluator := s.guardEvaluatorOrNil(); evaluator != nil {
		return evaluator
	}
	var exprOpts []ExprGuardOption
	if cache := s.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprGuardWithProgramCache(cache))
	}
	if registry := s.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprGuardWithFunctionRegistry(registry))
	}
	evaluator := NewExprGuard(exprOpts...)
	s.withGuardEvaluator(evaluator)
	return evaluator
}
