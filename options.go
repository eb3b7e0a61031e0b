package fmgo

import "log/slog"

type options struct {
	params Params
	logger *Logger
}

// Option configures model constructors.
type Option func(*options)

// WithParams replaces the default hyperparameters.
func WithParams(p Params) Option {
	return func(o *options) {
		o.params = p
	}
}

// WithFieldMap sets the feature-to-field map used by the field-aware
// variants. Convenience wrapper for mutating Params.FieldMap.
func WithFieldMap(fieldMap []int32) Option {
	return func(o *options) {
		o.params.FieldMap = fieldMap
	}
}

// WithLogger configures structured logging for lifecycle operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		params: DefaultParams(),
		logger: NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
