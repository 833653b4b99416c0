package permstore

type jsGuardConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSGuardOption configures the JS guard.
type JSGuardOption func(*jsGuardConfig)

// JSGuardWithProgramCache applies a ProgramCache to the JS guard.
func JSGuardWithProgramCache(cache ProgramCache) JSGuardOption {
	return func(cfg *jsGuardConfig) {
		cfg.cache = cache
	}
}

// JSGuardWithFunctionRegistry applies a FunctionRegistry to the JS guard.
func JSGuardWithFunctionRegistry(registry *FunctionRegistry) JSGuardOption {
	return func(cfg *jsGuardConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

func applyJSGuardOptions(opts []JSGuardOption) jsGuardConfig {
	cfg := jsGuardConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
