package scenario

import (
	"fmt"

	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dop251/jsarray"
)

// Result is the outcome of one case.
type Result struct {
	File      string
	Case      string
	FastPaths bool
	// Skipped is the reason the case did not run.
	Skipped string
	Err     error
}

func (r Result) Passed() bool {
	return r.Err == nil
}

func (r Result) String() string {
	mode := "generic"
	if r.FastPaths {
		mode = "fast"
	}
	return fmt.Sprintf("%s: %s [%s]", r.File, r.Case, mode)
}

// Runner executes scenario files against fresh runtimes.
type Runner struct {
	// Limits are the base limits the file overrides are applied to. The zero
	// value means jsarray.DefaultLimits.
	Limits jsarray.Limits
	Logger logrus.FieldLogger
	// Version is checked against the files' requires constraints. Empty means jsarray.Version.
	Version string
}

func (rn *Runner) version() string {
	if rn.Version == "" {
		return jsarray.Version
	}
	return rn.Version
}

// RunFile runs every case of f with the fast paths enabled or disabled.
func (rn *Runner) RunFile(f *File, fastPaths bool) ([]Result, error) {
	applies, err := f.Applies(rn.version())
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(f.Cases))
	for i := range f.Cases {
		c := &f.Cases[i]
		res := Result{File: f.Path, Case: c.Name, FastPaths: fastPaths}
		switch {
		case !applies:
			res.Skipped = fmt.Sprintf("requires %s", f.Requires)
		case c.Skip != "":
			res.Skipped = c.Skip
		default:
			res.Err = rn.runCase(f, c, fastPaths)
		}
		results = append(results, res)
	}
	return results, nil
}

// RunAll runs every file twice, with and without the fast paths.
func (rn *Runner) RunAll(files []*File) ([]Result, error) {
	var results []Result
	for _, f := range files {
		for _, fast := range []bool{true, false} {
			res, err := rn.RunFile(f, fast)
			if err != nil {
				return results, err
			}
			results = append(results, res...)
		}
	}
	return results, nil
}

func (rn *Runner) runtime(f *File, fastPaths bool) *jsarray.Runtime {
	base := rn.Limits
	if base == (jsarray.Limits{}) {
		base = jsarray.DefaultLimits()
	}
	opts := []jsarray.Option{
		jsarray.WithLimits(f.Limits.apply(base)),
		jsarray.WithFastPaths(fastPaths),
	}
	if rn.Logger != nil {
		opts = append(opts, jsarray.WithLogger(rn.Logger))
	}
	return jsarray.New(opts...)
}

func (rn *Runner) runCase(f *File, c *Case, fastPaths bool) error {
	r := rn.runtime(f, fastPaths)
	d := &decoder{r: r}
	recv, err := d.receiver(&c.Setup)
	if err != nil {
		return errors.Wrap(err, "setup")
	}
	d.self = recv
	for i := range c.Steps {
		s := &c.Steps[i]
		if err := d.step(recv, s); err != nil {
			return errors.Wrapf(err, "step %d (%s)", i, s.Op)
		}
	}
	return nil
}

type receiver interface {
	jsarray.Object
	SetPrototype(jsarray.Object)
	SetConcatSpreadable(bool)
	FreezeLength()
}

func (d *decoder) receiver(s *Setup) (jsarray.Object, error) {
	values, err := d.values(&s.Array)
	if err != nil {
		return nil, err
	}
	var recv receiver
	if s.ArrayLike {
		o := d.r.NewArrayLike()
		for i, v := range values {
			if v != nil {
				o.Set(uint64(i), v)
			}
		}
		if err := o.SetLength(uint64(len(values))); err != nil {
			return nil, err
		}
		if present(&s.LengthValue) {
			lv, err := d.value(&s.LengthValue)
			if err != nil {
				return nil, err
			}
			o.SetLengthValue(lv)
		}
		for _, def := range s.Define {
			desc, err := d.descriptor(&def)
			if err != nil {
				return nil, err
			}
			o.DefineIndex(def.Index, desc)
		}
		recv = o
	} else {
		a := d.r.NewArray(values...)
		for _, def := range s.Define {
			desc, err := d.descriptor(&def)
			if err != nil {
				return nil, err
			}
			if err := a.DefineIndex(def.Index, desc); err != nil {
				return nil, err
			}
		}
		switch s.Species {
		case "", "default":
		case "arrayLike":
			a.SetSpecies(func(length uint64) (jsarray.Object, error) {
				o := d.r.NewArrayLike()
				if err := o.SetLength(length); err != nil {
					return nil, err
				}
				return o, nil
			})
		default:
			return nil, errors.Errorf("unknown species %q", s.Species)
		}
		recv = a
	}
	if s.Length != nil {
		if err := recv.SetLength(*s.Length); err != nil {
			return nil, err
		}
	}
	if present(&s.Proto) {
		protoValues, err := d.values(&s.Proto)
		if err != nil {
			return nil, err
		}
		proto := d.r.NewArrayLike()
		for i, v := range protoValues {
			if v != nil {
				proto.Set(uint64(i), v)
			}
		}
		recv.SetPrototype(proto)
	}
	if s.Spreadable != nil {
		recv.SetConcatSpreadable(*s.Spreadable)
	}
	if s.FreezeLength {
		recv.FreezeLength()
	}
	return recv, nil
}

func (d *decoder) descriptor(def *Define) (jsarray.PropertyDescriptor, error) {
	desc := jsarray.PropertyDescriptor{
		Writable:     jsarray.ToFlag(def.Writable),
		Enumerable:   jsarray.ToFlag(def.Enumerable),
		Configurable: jsarray.ToFlag(def.Configurable),
	}
	if present(&def.Value) {
		v, err := d.value(&def.Value)
		if err != nil {
			return desc, err
		}
		desc.Value = v
	}
	return desc, nil
}

// invoke runs an array operation, or one of the property primitives get,
// put, delete and setLength.
func (d *decoder) invoke(recv jsarray.Object, op string, args []jsarray.Value) (jsarray.Value, error) {
	index := func() uint64 {
		if len(args) == 0 {
			return 0
		}
		return uint64(args[0].ToInteger())
	}
	switch op {
	case "get":
		v, err := recv.GetIndex(index())
		if err != nil || v != nil {
			return v, err
		}
		return jsarray.Undefined(), nil
	case "put":
		if len(args) < 2 {
			return nil, errors.New("put needs an index and a value")
		}
		ok, err := recv.PutIndex(index(), args[1], false)
		return jsarray.Bool(ok), err
	case "delete":
		ok, err := recv.DeleteIndex(index(), false)
		return jsarray.Bool(ok), err
	case "setLength":
		return jsarray.Undefined(), recv.SetLength(index())
	}
	return d.r.Invoke(op, recv, args...)
}

func (d *decoder) step(recv jsarray.Object, s *Step) error {
	args, err := d.args(&s.Args)
	if err != nil {
		return err
	}
	got, err := d.invoke(recv, s.Op, args)
	if s.Error != "" {
		if err == nil {
			return errors.Errorf("expected an error matching %q, got %s", s.Error, Format(got))
		}
		re, cerr := regexp2.Compile(s.Error, regexp2.ECMAScript)
		if cerr != nil {
			return errors.Wrapf(cerr, "invalid error pattern %q", s.Error)
		}
		matched, merr := re.MatchString(err.Error())
		if merr != nil {
			return errors.WithStack(merr)
		}
		if !matched {
			return errors.Errorf("error %q does not match %q", err.Error(), s.Error)
		}
	} else if err != nil {
		return err
	}

	if present(&s.Want) {
		want, err := d.value(&s.Want)
		if err != nil {
			return err
		}
		if err := expectEqual("result", want, got); err != nil {
			return err
		}
	}
	if present(&s.Array) {
		values, err := d.values(&s.Array)
		if err != nil {
			return err
		}
		if err := expectEqual("receiver", d.r.NewArray(values...), recv); err != nil {
			return err
		}
	}
	if s.Length != nil {
		l, err := recv.GetLength()
		if err != nil {
			return err
		}
		if l != *s.Length {
			return errors.Errorf("length: expected %d, actual %d", *s.Length, l)
		}
	}
	if s.Shape != "" && d.r.FastPaths() {
		want, ok := jsarray.ParseShape(s.Shape)
		if !ok {
			return errors.Errorf("unknown shape %q", s.Shape)
		}
		a, ok := recv.(*jsarray.Array)
		if !ok {
			return errors.Errorf("shape expectation on a %s", recv.ClassName())
		}
		if a.Shape() != want {
			return errors.Errorf("shape: expected %s, actual %s", want, a.Shape())
		}
	}
	return nil
}

func expectEqual(what string, want, got jsarray.Value) error {
	eq, err := Equal(want, got)
	if err != nil {
		return err
	}
	if !eq {
		return errors.Errorf("%s: expected %s, actual %s", what, Format(want), Format(got))
	}
	return nil
}
