package permstore

import "time"

// AccessLogEvent describes one read, write, or guard check for logging.
type AccessLogEvent struct {
	Op       string
	Path     string
	Key      string
	Action   Permission
	Duration time.Duration
	Err      error
}

// AccessLogger records store access events.
type AccessLogger interface {
	LogAccess(AccessLogEvent)
}

// AccessLoggerFunc adapts a function to AccessLogger.
type AccessLoggerFunc func(AccessLogEvent)

// LogAccess implements AccessLogger.
func (f AccessLoggerFunc) LogAccess(event AccessLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopAccessLogger struct{}

func (noopAccessLogger) LogAccess(AccessLogEvent) {}

// WithAccessLogger attaches an access logger to the store.
func WithAccessLogger(logger AccessLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.logger = noopAccessLogger{}
			return
		}
		cfg.logger = logger
	}
}
