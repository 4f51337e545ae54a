package jsbind

import (
	"strconv"
	"strings"

	"github.com/dop251/goja"
	"github.com/pkg/errors"

	"github.com/dop251/jsarray"
	"github.com/dop251/jsarray/scenario"
)

// Mismatch describes a difference between the engine and goja's Array.
type Mismatch struct {
	Method string
	What   string
	Engine string
	Goja   string
}

func (m *Mismatch) Error() string {
	return m.Method + ": " + m.What + " differs: engine " + m.Engine + ", goja " + m.Goja
}

// Compare calls method on an engine array and on a goja array holding the
// same elements (nil elements are holes) with the same arguments, and reports
// the first difference in the results, the thrown error kinds or the
// receivers afterwards. It returns a *Mismatch for a difference.
func (b *Binding) Compare(method string, elems []goja.Value, args ...goja.Value) error {
	native := b.r.NewArray()
	script := b.vm.NewArray()
	for i, e := range elems {
		if e == nil {
			continue
		}
		nv, err := b.toNative(e)
		if err != nil {
			return errors.Wrapf(err, "element %d", i)
		}
		if _, err := native.PutIndex(uint64(i), nv, true); err != nil {
			return err
		}
		if err := script.Set(strconv.Itoa(i), e); err != nil {
			return errors.WithStack(err)
		}
	}
	if err := native.SetLength(uint64(len(elems))); err != nil {
		return err
	}
	if err := script.Set("length", len(elems)); err != nil {
		return errors.WithStack(err)
	}

	nativeArgs := make([]jsarray.Value, len(args))
	for i, arg := range args {
		nv, err := b.toNative(arg)
		if err != nil {
			return errors.Wrapf(err, "argument %d", i)
		}
		nativeArgs[i] = nv
	}
	nres, nerr := b.r.Invoke(method, native, nativeArgs...)

	fn, ok := goja.AssertFunction(script.Get(method))
	if !ok {
		return errors.Errorf("goja arrays have no %s method", method)
	}
	gres, gerr := fn(script, args...)

	mismatch := func(what, engine, gojaSide string) error {
		b.logger.WithField("op", method).Debugf("%s differs", what)
		return &Mismatch{Method: method, What: what, Engine: engine, Goja: gojaSide}
	}

	if nerr != nil || gerr != nil {
		nk, gk := b.exceptionKind(nerr), b.exceptionKind(gerr)
		if nk != gk {
			return mismatch("error", nk, gk)
		}
	} else {
		gv, err := b.toNative(gres)
		if err != nil {
			return err
		}
		if nres == jsarray.Value(native) {
			// methods returning the receiver are compared through it below
			if gres != script {
				return mismatch("result", "the receiver", gres.String())
			}
		} else if eq, err := scenario.Equal(nres, gv); err != nil {
			return err
		} else if !eq {
			return mismatch("result", scenario.Format(nres), scenario.Format(gv))
		}
	}

	after, err := b.toNative(script)
	if err != nil {
		return err
	}
	eq, err := scenario.Equal(native, after)
	if err != nil {
		return err
	}
	if !eq {
		return mismatch("receiver", scenario.Format(native), scenario.Format(after))
	}
	return nil
}

func errorKind(err error) string {
	if err == nil {
		return "none"
	}
	msg := err.Error()
	if i := strings.IndexByte(msg, ':'); i > 0 {
		return msg[:i]
	}
	return msg
}

func (b *Binding) exceptionKind(err error) string {
	if err == nil {
		return "none"
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if o, ok := exc.Value().(*goja.Object); ok {
			if name := o.Get("name"); name != nil {
				return name.String()
			}
		}
	}
	return errorKind(err)
}
