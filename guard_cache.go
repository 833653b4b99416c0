package permstore

// ProgramCache stores compiled guard programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache used by the default guard
// evaluator. Engine constructors accept caches directly through their own
// options.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *storeConfig) {
		cfg.programCache = cache
	}
}

// MemoryProgramCache is a minimal ProgramCache for single-owner stores. It
// carries no locking, matching the store's single logical owner model.
type MemoryProgramCache struct {
	programs map[string]any
}

// NewMemoryProgramCache constructs an empty in-memory cache.
func NewMemoryProgramCache() *MemoryProgramCache {
	return &MemoryProgramCache{programs: map[string]any{}}
}

// Get returns the cached program for key when present.
func (c *MemoryProgramCache) Get(key string) (any, bool) {
	program, ok := c.programs[key]
	return program, ok
}

// Set stores program under key, replacing any previous entry.
func (c *MemoryProgramCache) Set(key string, program any) {
	if c.programs == nil {
		c.programs = map[string]any{}
	}
	c.programs[key] = program
}
