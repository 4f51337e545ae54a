package jsarray

import (
	"sort"

	"github.com/pkg/errors"
)

type method func(r *Runtime, this Object, args []Value) (Value, error)

func lengthResult(n uint64, err error) (Value, error) {
	if err != nil {
		return nil, err
	}
	return floatToValue(float64(n)), nil
}

func objectResult(o Object, err error) (Value, error) {
	if err != nil {
		return nil, err
	}
	return o, nil
}

var arrayMethods = map[string]method{
	"at":  func(r *Runtime, o Object, args []Value) (Value, error) { return r.At(o, args...) },
	"pop": func(r *Runtime, o Object, _ []Value) (Value, error) { return r.Pop(o) },
	"push": func(r *Runtime, o Object, args []Value) (Value, error) {
		return lengthResult(r.Push(o, args...))
	},
	"shift": func(r *Runtime, o Object, _ []Value) (Value, error) { return r.Shift(o) },
	"unshift": func(r *Runtime, o Object, args []Value) (Value, error) {
		return lengthResult(r.Unshift(o, args...))
	},
	"slice": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.Slice(o, args...))
	},
	"splice": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.Splice(o, args...))
	},
	"fill": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.Fill(o, args...))
	},
	"copyWithin": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.CopyWithin(o, args...))
	},
	"concat": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.Concat(o, args...))
	},
	"indexOf": func(r *Runtime, o Object, args []Value) (Value, error) {
		i, err := r.IndexOf(o, args...)
		if err != nil {
			return nil, err
		}
		return valueInt(i), nil
	},
	"lastIndexOf": func(r *Runtime, o Object, args []Value) (Value, error) {
		i, err := r.LastIndexOf(o, args...)
		if err != nil {
			return nil, err
		}
		return valueInt(i), nil
	},
	"includes": func(r *Runtime, o Object, args []Value) (Value, error) {
		found, err := r.Includes(o, args...)
		if err != nil {
			return nil, err
		}
		return valueBool(found), nil
	},
	"flat": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.Flat(o, args...))
	},
	"with": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.With(o, args...))
	},
	"toSorted": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.ToSorted(o, args...))
	},
	"toSpliced": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.ToSpliced(o, args...))
	},
	"toReversed": func(r *Runtime, o Object, _ []Value) (Value, error) {
		return objectResult(r.ToReversed(o))
	},
	"sort": func(r *Runtime, o Object, args []Value) (Value, error) {
		return objectResult(r.Sort(o, args...))
	},
	"reverse": func(r *Runtime, o Object, _ []Value) (Value, error) {
		return objectResult(r.Reverse(o))
	},
	"join": func(r *Runtime, o Object, args []Value) (Value, error) { return r.Join(o, args...) },
}

// Invoke calls the operation named like the Array.prototype method, e.g. "push"
// or "toSorted". Length results are returned as numbers.
func (r *Runtime) Invoke(name string, this Object, args ...Value) (Value, error) {
	m, exists := arrayMethods[name]
	if !exists {
		return nil, errors.Errorf("unknown array method %q", name)
	}
	return m(r, this, args)
}

// Methods lists the names Invoke accepts.
func Methods() []string {
	names := make([]string, 0, len(arrayMethods))
	for name := range arrayMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
