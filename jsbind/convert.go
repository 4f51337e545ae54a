package jsbind

import (
	"strconv"

	"github.com/dop251/goja"
	"github.com/pkg/errors"

	"github.com/dop251/jsarray"
)

func (b *Binding) nativeArgs(args []goja.Value) []jsarray.Value {
	res := make([]jsarray.Value, len(args))
	for i, arg := range args {
		res[i] = b.mustNative(arg)
	}
	return res
}

func (b *Binding) mustNative(v goja.Value) jsarray.Value {
	nv, err := b.toNative(v)
	if err != nil {
		panic(b.vm.NewTypeError(err.Error()))
	}
	return nv
}

// ToNative converts a script value. Script arrays are copied into new engine
// arrays (holes included), functions become callable values that run in the
// script runtime.
func (b *Binding) ToNative(v goja.Value) (jsarray.Value, error) {
	return b.toNative(v)
}

func (b *Binding) toNative(v goja.Value) (jsarray.Value, error) {
	return b.convert(v, make(map[*goja.Object]*jsarray.Array))
}

func (b *Binding) convert(v goja.Value, seen map[*goja.Object]*jsarray.Array) (jsarray.Value, error) {
	switch {
	case v == nil || goja.IsUndefined(v):
		return jsarray.Undefined(), nil
	case goja.IsNull(v):
		return jsarray.Null(), nil
	}
	if o, ok := v.(*goja.Object); ok {
		if a, exists := b.arrays[o]; exists {
			return a, nil
		}
		if a, exists := seen[o]; exists {
			return a, nil
		}
		if fn, ok := goja.AssertFunction(o); ok {
			return b.function(o, fn), nil
		}
		if o.ClassName() == "Array" {
			return b.copyArray(o, seen)
		}
		return nil, errors.Errorf("cannot pass a %s to the array engine", o.ClassName())
	}
	switch e := v.Export().(type) {
	case bool:
		return jsarray.Bool(e), nil
	case int64:
		return jsarray.Int(e), nil
	case float64:
		return jsarray.Float(e), nil
	case string:
		return jsarray.Str(e), nil
	}
	return nil, errors.Errorf("cannot pass %s to the array engine", v.String())
}

func (b *Binding) copyArray(o *goja.Object, seen map[*goja.Object]*jsarray.Array) (jsarray.Value, error) {
	length := o.Get("length").ToInteger()
	a := b.r.NewArray()
	seen[o] = a
	for i := int64(0); i < length; i++ {
		ev := o.Get(strconv.FormatInt(i, 10))
		if ev == nil {
			continue
		}
		nv, err := b.convert(ev, seen)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		if _, err := a.PutIndex(uint64(i), nv, true); err != nil {
			return nil, err
		}
	}
	if err := a.SetLength(uint64(length)); err != nil {
		return nil, err
	}
	return a, nil
}

func (b *Binding) function(o *goja.Object, fn goja.Callable) *jsarray.Function {
	name := ""
	if n := o.Get("name"); n != nil {
		name = n.String()
	}
	return jsarray.NewFunction(name, func(this jsarray.Value, args ...jsarray.Value) (jsarray.Value, error) {
		jsArgs := make([]goja.Value, len(args))
		for i, arg := range args {
			jsArgs[i] = b.toJS(arg)
		}
		res, err := fn(b.toJS(this), jsArgs...)
		if err != nil {
			return nil, err
		}
		return b.toNative(res)
	})
}

// ToJS converts an engine value. Engine arrays become wrapper objects, a nil
// value (a hole) becomes undefined.
func (b *Binding) ToJS(v jsarray.Value) goja.Value {
	return b.toJS(v)
}

func (b *Binding) toJS(v jsarray.Value) goja.Value {
	switch v := v.(type) {
	case nil:
		return goja.Undefined()
	case *jsarray.Array:
		return b.wrap(v)
	case *jsarray.Function:
		return b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			res, err := v.Call(b.mustNative(call.This), b.nativeArgs(call.Arguments)...)
			if err != nil {
				panic(b.throwable(err))
			}
			return b.toJS(res)
		})
	}
	switch v {
	case jsarray.Undefined():
		return goja.Undefined()
	case jsarray.Null():
		return goja.Null()
	}
	return b.vm.ToValue(v.Export())
}

// toJSArray copies the elements of a into a regular script array. Holes stay holes.
func (b *Binding) toJSArray(a *jsarray.Array) *goja.Object {
	res := b.vm.NewArray()
	for i, v := range a.Values() {
		if v == nil {
			continue
		}
		_ = res.Set(strconv.Itoa(i), b.toJS(v))
	}
	_ = res.Set("length", a.Len())
	return res
}
