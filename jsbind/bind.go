// Package jsbind exposes jsarray arrays to goja scripts.
//
// After Enable, a script can create engine-backed arrays and call the
// operations on them:
//
//	const a = NativeArray(3, 1, 2);
//	a.sort();
//	a.shape();      // "Int32"
//	a.toArray();    // [1, 2, 3], a regular JS array
//
// Every operation name accepted by jsarray.Runtime.Invoke is a method of the
// returned objects. Errors raised by the engine are thrown as the matching
// ECMAScript error.
package jsbind

import (
	"errors"
	"math"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	"github.com/sirupsen/logrus"

	"github.com/dop251/jsarray"
)

// ModuleName is the name the binding registers under with require().
const ModuleName = "jsarray"

// Binding connects a goja runtime with a jsarray runtime. Both are
// single-goroutine, and so is the Binding.
type Binding struct {
	vm     *goja.Runtime
	r      *jsarray.Runtime
	logger logrus.FieldLogger

	// wrappers keeps the identity of arrays that cross the boundary: the same
	// *jsarray.Array is always the same script object.
	wrappers map[*jsarray.Array]*goja.Object
	arrays   map[*goja.Object]*jsarray.Array
}

// New creates a Binding. A nil logger disables logging.
func New(vm *goja.Runtime, r *jsarray.Runtime, logger logrus.FieldLogger) *Binding {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	return &Binding{
		vm:       vm,
		r:        r,
		logger:   logger,
		wrappers: make(map[*jsarray.Array]*goja.Object),
		arrays:   make(map[*goja.Object]*jsarray.Array),
	}
}

// Runtime returns the goja runtime the binding was created for.
func (b *Binding) Runtime() *goja.Runtime {
	return b.vm
}

// Enable sets the global NativeArray constructor.
func (b *Binding) Enable() {
	if err := b.vm.Set("NativeArray", b.constructor()); err != nil {
		panic(err)
	}
}

// Register makes the binding available to require(ModuleName) through registry.
func (b *Binding) Register(registry *require.Registry) {
	registry.RegisterNativeModule(ModuleName, b.Require)
}

// Require is a require.ModuleLoader that exports NativeArray, the method
// names and the engine version.
func (b *Binding) Require(vm *goja.Runtime, module *goja.Object) {
	if vm != b.vm {
		panic(vm.NewGoError(errors.New("jsarray module loaded into a foreign runtime")))
	}
	exports := module.Get("exports").(*goja.Object)
	_ = exports.Set("NativeArray", b.constructor())
	_ = exports.Set("methods", jsarray.Methods())
	_ = exports.Set("version", jsarray.Version)
}

func (b *Binding) constructor() *goja.Object {
	ctor := b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		return b.wrap(b.r.NewArray(b.nativeArgs(call.Arguments)...))
	}).(*goja.Object)

	_ = ctor.Set("from", func(call goja.FunctionCall) goja.Value {
		v := b.mustNative(call.Argument(0))
		if a, ok := v.(*jsarray.Array); ok {
			return b.wrap(a)
		}
		panic(b.vm.NewTypeError("NativeArray.from expects an array"))
	})
	_ = ctor.Set("ofLength", func(call goja.FunctionCall) goja.Value {
		n := call.Argument(0).ToInteger()
		if n < 0 {
			panic(b.throwable(&jsarray.Error{Kind: jsarray.RangeError, Message: "Invalid array length"}))
		}
		a, err := b.r.NewArrayOfLength(uint64(n))
		if err != nil {
			panic(b.throwable(err))
		}
		return b.wrap(a)
	})
	_ = ctor.Set("isNativeArray", func(call goja.FunctionCall) goja.Value {
		_, ok := b.Unwrap(call.Argument(0))
		return b.vm.ToValue(ok)
	})
	return ctor
}

// Wrap returns the script object for a.
func (b *Binding) Wrap(a *jsarray.Array) *goja.Object {
	return b.wrap(a)
}

// Unwrap returns the array behind a script object created by the binding.
func (b *Binding) Unwrap(v goja.Value) (*jsarray.Array, bool) {
	o, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	a, ok := b.arrays[o]
	return a, ok
}

func (b *Binding) wrap(a *jsarray.Array) *goja.Object {
	if o, exists := b.wrappers[a]; exists {
		return o
	}
	vm := b.vm
	o := vm.NewObject()
	b.wrappers[a] = o
	b.arrays[o] = a

	for _, name := range jsarray.Methods() {
		name := name
		_ = o.Set(name, func(call goja.FunctionCall) goja.Value {
			res, err := b.r.Invoke(name, a, b.nativeArgs(call.Arguments)...)
			if err != nil {
				b.logger.WithError(err).WithField("op", name).Debug("operation failed")
				panic(b.throwable(err))
			}
			return b.toJS(res)
		})
	}

	getLength := vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(a.Len())
	})
	setLength := vm.ToValue(func(call goja.FunctionCall) goja.Value {
		n := call.Argument(0).ToFloat()
		if n < 0 || n != float64(uint64(n)) {
			panic(b.throwable(&jsarray.Error{Kind: jsarray.RangeError, Message: "Invalid array length"}))
		}
		if err := a.SetLength(uint64(n)); err != nil {
			panic(b.throwable(err))
		}
		return goja.Undefined()
	})
	if err := o.DefineAccessorProperty("length", getLength, setLength, goja.FLAG_FALSE, goja.FLAG_FALSE); err != nil {
		panic(err)
	}

	_ = o.Set("get", func(call goja.FunctionCall) goja.Value {
		return b.toJS(a.Get(b.index(call.Argument(0))))
	})
	_ = o.Set("set", func(call goja.FunctionCall) goja.Value {
		if _, err := a.PutIndex(b.index(call.Argument(0)), b.mustNative(call.Argument(1)), true); err != nil {
			panic(b.throwable(err))
		}
		return o
	})
	_ = o.Set("has", func(call goja.FunctionCall) goja.Value {
		has, err := a.HasIndex(b.index(call.Argument(0)))
		if err != nil {
			panic(b.throwable(err))
		}
		return vm.ToValue(has)
	})
	_ = o.Set("remove", func(call goja.FunctionCall) goja.Value {
		ok, err := a.DeleteIndex(b.index(call.Argument(0)), true)
		if err != nil {
			panic(b.throwable(err))
		}
		return vm.ToValue(ok)
	})
	_ = o.Set("shape", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(a.Shape().String())
	})
	_ = o.Set("header", func(goja.FunctionCall) goja.Value {
		h := a.Header()
		res := vm.NewObject()
		_ = res.Set("shape", h.Shape.String())
		_ = res.Set("length", h.Length)
		_ = res.Set("vectorLength", h.VectorLength)
		_ = res.Set("capacity", h.Capacity)
		_ = res.Set("indexBias", h.IndexBias)
		_ = res.Set("numValues", h.NumValues)
		_ = res.Set("sparseCount", h.SparseCount)
		_ = res.Set("sparseMode", h.SparseMode)
		_ = res.Set("copyOnWrite", h.CopyOnWrite)
		_ = res.Set("lengthReadOnly", h.LengthReadOnly)
		return res
	})
	_ = o.Set("freezeLength", func(goja.FunctionCall) goja.Value {
		a.FreezeLength()
		return o
	})
	_ = o.Set("toArray", func(goja.FunctionCall) goja.Value {
		return b.toJSArray(a)
	})
	_ = o.Set("view", func(goja.FunctionCall) goja.Value {
		return vm.NewDynamicArray(&view{b: b, a: a})
	})
	_ = o.Set("toString", func(goja.FunctionCall) goja.Value {
		s, err := b.r.Join(a)
		if err != nil {
			panic(b.throwable(err))
		}
		return b.toJS(s)
	})
	return o
}

func (b *Binding) index(v goja.Value) uint64 {
	f := v.ToFloat()
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	if f >= jsarray.MaxArrayLength {
		panic(b.throwable(&jsarray.Error{Kind: jsarray.RangeError, Message: "Array index out of range"}))
	}
	return uint64(f)
}

// throwable converts an error returned by the engine into the value a Go
// function should panic with to throw it into the script.
func (b *Binding) throwable(err error) interface{} {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return exc
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return interrupted
	}
	var e *jsarray.Error
	if !errors.As(err, &e) {
		return b.vm.NewGoError(err)
	}
	ctorName := ""
	msg := e.Message
	switch e.Kind {
	case jsarray.RangeError:
		ctorName = "RangeError"
	case jsarray.TypeError:
		ctorName = "TypeError"
	case jsarray.StackOverflow:
		ctorName = "RangeError"
		msg = "Maximum call stack size exceeded"
	default:
		return b.vm.NewGoError(err)
	}
	obj, cerr := b.vm.New(b.vm.Get(ctorName), b.vm.ToValue(msg))
	if cerr != nil {
		return b.vm.NewGoError(err)
	}
	return obj
}

// view exposes an array to scripts as a regular JS array object. Holes read as
// undefined, and the script sees the goja Array.prototype methods instead of
// the engine's.
type view struct {
	b *Binding
	a *jsarray.Array
}

func (v *view) Len() int {
	return int(v.a.Len())
}

func (v *view) Get(idx int) goja.Value {
	if idx < 0 {
		return nil
	}
	return v.b.toJS(v.a.Get(uint64(idx)))
}

func (v *view) Set(idx int, val goja.Value) bool {
	if idx < 0 {
		return false
	}
	nv, err := v.b.toNative(val)
	if err != nil {
		return false
	}
	ok, err := v.a.PutIndex(uint64(idx), nv, false)
	return ok && err == nil
}

func (v *view) SetLen(n int) bool {
	if n < 0 {
		return false
	}
	return v.a.SetLength(uint64(n)) == nil
}
