package jsarray

import "github.com/sirupsen/logrus"

var defaultOptions = options{
	limits:    DefaultLimits(),
	fastPaths: true,
}

type Option interface {
	apply(*options)
}

type options struct {
	logger     logrus.FieldLogger
	limits     Limits
	fastPaths  bool
	arrayProto Object
}

type funcOption struct {
	f func(*options)
}

func (fdo *funcOption) apply(do *options) {
	fdo.f(do)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

// WithLogger makes the runtime report representation transitions, copy-on-write
// clones and declined fast paths at debug level.
func WithLogger(logger logrus.FieldLogger) Option {
	return newFuncOption(func(o *options) {
		o.logger = logger
	})
}

// WithLimits replaces the storage and sort thresholds.
func WithLimits(limits Limits) Option {
	return newFuncOption(func(o *options) {
		o.limits = limits
	})
}

// WithFastPaths enables or disables the representation-specific fast paths.
// With fast paths disabled every operation runs the generic algorithm, which
// must produce the same observable results.
func WithFastPaths(enabled bool) Option {
	return newFuncOption(func(o *options) {
		o.fastPaths = enabled
	})
}

// WithArrayPrototype sets the prototype of every array created by the runtime.
func WithArrayPrototype(proto Object) Option {
	return newFuncOption(func(o *options) {
		o.arrayProto = proto
	})
}
