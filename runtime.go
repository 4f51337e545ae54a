package jsarray

import (
	"github.com/sirupsen/logrus"
)

// Limits are the thresholds that drive representation choices and the sort engine.
type Limits struct {
	// MinSparseIndex is the smallest index (or length) at which a write that is
	// not dense enough moves the array to sparse storage.
	MinSparseIndex uint32
	// MaxVectorLength caps the dense vector. Growing past it fails with an
	// out-of-memory error.
	MaxVectorLength uint32
	// BaseVectorLength is the minimal capacity of a freshly allocated ArrayStorage vector.
	BaseVectorLength uint32
	// MinDensityMultiplier: a vector of length n must hold at least n/MinDensityMultiplier values.
	MinDensityMultiplier uint32
	// ShiftThreshold is the length above which shift() moves a dense array to
	// ArrayStorage so later shifts can slide the index bias instead of moving elements.
	ShiftThreshold uint32

	SortMinRun     int
	SortRunCutoff  int
	BucketCutoff   int
	BucketMaxDepth int

	// MaxRecursionDepth bounds flat() and nested join().
	MaxRecursionDepth int
}

func DefaultLimits() Limits {
	return Limits{
		MinSparseIndex:       100000,
		MaxVectorLength:      1 << 28,
		BaseVectorLength:     4,
		MinDensityMultiplier: 8,
		ShiftThreshold:       1000,
		SortMinRun:           64,
		SortRunCutoff:        8,
		BucketCutoff:         32,
		BucketMaxDepth:       32,
		MaxRecursionDepth:    10000,
	}
}

// Runtime owns the configuration shared by arrays and implements the Array
// operations. A Runtime is not goroutine-safe, arrays created by different
// runtimes may be used concurrently.
type Runtime struct {
	limits     Limits
	logger     logrus.FieldLogger
	fastPaths  bool
	arrayProto Object

	joinStack []Object
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	o := defaultOptions
	for _, opt := range opts {
		opt.apply(&o)
	}
	return &Runtime{
		limits:     o.limits,
		logger:     o.logger,
		fastPaths:  o.fastPaths,
		arrayProto: o.arrayProto,
	}
}

func (r *Runtime) Limits() Limits {
	return r.limits
}

// FastPaths reports whether representation-specific fast paths are enabled.
func (r *Runtime) FastPaths() bool {
	return r.fastPaths
}

func (r *Runtime) debug(msg string, fields logrus.Fields) {
	if r.logger == nil {
		return
	}
	r.logger.WithFields(fields).Debug(msg)
}

// declined records that a fast path handed over to the generic algorithm.
func (r *Runtime) declined(op string, o Object, reason string) {
	if r.logger == nil {
		return
	}
	fields := logrus.Fields{"op": op, "reason": reason}
	if a, ok := o.(*Array); ok {
		fields["shape"] = a.Shape().String()
	}
	r.logger.WithFields(fields).Debug("fast path declined")
}

// fastArray returns the receiver as an *Array if fast paths may be attempted on it.
func (r *Runtime) fastArray(o Object) (*Array, bool) {
	if !r.fastPaths {
		return nil, false
	}
	a, ok := o.(*Array)
	return a, ok
}

// arrayCreate implements ArrayCreate.
func (r *Runtime) arrayCreate(length uint64, msg string) (*Array, error) {
	if length > MaxArrayLength {
		return nil, rangeError(msg)
	}
	return r.NewArrayOfLength(length)
}

// arraySpeciesCreate returns the object derived operations write their result
// into. A nil object with a nil error means the caller should use a plain array,
// which allows the fast paths.
func (r *Runtime) arraySpeciesCreate(o Object, length uint64) (Object, error) {
	a, ok := o.(*Array)
	if !ok || a.species == nil {
		return nil, nil
	}
	res, err := a.species(length)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		if v := args[i]; v != nil {
			return v
		}
	}
	return _undefined
}

func (r *Runtime) enterRecursion(depth int) error {
	if depth > r.limits.MaxRecursionDepth {
		return stackOverflow()
	}
	return nil
}
