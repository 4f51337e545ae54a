package scenario

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/dop251/jsarray"
)

const (
	tagHole      = "!hole"
	tagUndefined = "!undefined"
	tagSelf      = "!self"
	tagArrayLike = "!arraylike"
	tagCmp       = "!cmp"
)

// errComparator is what the "throws" comparator fails with.
var errComparator = errors.New("comparator failed")

type decoder struct {
	r    *jsarray.Runtime
	self jsarray.Object
}

func present(n *yaml.Node) bool {
	return n.Kind != 0
}

// values decodes a sequence node. Holes are nil.
func (d *decoder) values(n *yaml.Node) ([]jsarray.Value, error) {
	if !present(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errors.Errorf("line %d: expected a sequence", n.Line)
	}
	res := make([]jsarray.Value, len(n.Content))
	for i, item := range n.Content {
		if item.ShortTag() == tagHole {
			continue
		}
		v, err := d.value(item)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

// args decodes call arguments. A hole is passed as undefined.
func (d *decoder) args(n *yaml.Node) ([]jsarray.Value, error) {
	values, err := d.values(n)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v == nil {
			values[i] = jsarray.Undefined()
		}
	}
	return values, nil
}

func (d *decoder) value(n *yaml.Node) (jsarray.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return d.value(n.Alias)
	case yaml.SequenceNode:
		values, err := d.values(n)
		if err != nil {
			return nil, err
		}
		if n.ShortTag() == tagArrayLike {
			o := d.r.NewArrayLike()
			for i, v := range values {
				if v != nil {
					o.Set(uint64(i), v)
				}
			}
			if err := o.SetLength(uint64(len(values))); err != nil {
				return nil, err
			}
			return o, nil
		}
		return d.r.NewArray(values...), nil
	case yaml.ScalarNode:
		return d.scalar(n)
	}
	return nil, errors.Errorf("line %d: unsupported value", n.Line)
}

func (d *decoder) scalar(n *yaml.Node) (jsarray.Value, error) {
	switch n.ShortTag() {
	case tagUndefined:
		return jsarray.Undefined(), nil
	case tagHole:
		return nil, errors.Errorf("line %d: a hole is only allowed inside a sequence", n.Line)
	case tagSelf:
		if d.self == nil {
			return nil, errors.Errorf("line %d: !self used before the receiver exists", n.Line)
		}
		return d.self, nil
	case tagCmp:
		return comparator(n.Value)
	case "!!null":
		return jsarray.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, errors.WithStack(err)
		}
		return jsarray.Bool(b), nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			var f float64
			if err := n.Decode(&f); err != nil {
				return nil, errors.Wrapf(err, "line %d", n.Line)
			}
			return jsarray.Float(f), nil
		}
		return jsarray.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, errors.Wrapf(err, "line %d", n.Line)
		}
		if f == 0 && strings.HasPrefix(n.Value, "-") {
			f = math.Copysign(0, -1)
		}
		return jsarray.Float(f), nil
	case "!!str", "!":
		return jsarray.Str(n.Value), nil
	}
	return nil, errors.Errorf("line %d: unknown tag %s", n.Line, n.ShortTag())
}

// comparator returns the named comparator: numeric, descending, throws,
// boolean (returns a > b, which never reorders) or collate:<BCP 47 tag>.
func comparator(name string) (jsarray.Value, error) {
	switch name {
	case "numeric":
		return jsarray.NumericComparator(), nil
	case "descending":
		return jsarray.NewFunction("descending", func(_ jsarray.Value, args ...jsarray.Value) (jsarray.Value, error) {
			return jsarray.Float(args[1].ToFloat() - args[0].ToFloat()), nil
		}), nil
	case "throws":
		return jsarray.NewFunction("throws", func(jsarray.Value, ...jsarray.Value) (jsarray.Value, error) {
			return nil, errComparator
		}), nil
	case "boolean":
		return jsarray.NewFunction("boolean", func(_ jsarray.Value, args ...jsarray.Value) (jsarray.Value, error) {
			return jsarray.Bool(args[0].ToFloat() > args[1].ToFloat()), nil
		}), nil
	}
	if tag, ok := strings.CutPrefix(name, "collate:"); ok {
		t, err := language.Parse(tag)
		if err != nil {
			return nil, errors.Wrapf(err, "comparator %q", name)
		}
		return jsarray.CollatorComparator(t), nil
	}
	return nil, errors.Errorf("unknown comparator %q", name)
}

// Equal compares values the way the scenarios expect: objects by their
// indexed contents (holes included), everything else with SameValue.
func Equal(want, got jsarray.Value) (bool, error) {
	if want == nil || got == nil {
		return want == nil && got == nil, nil
	}
	wo, wantObj := want.(jsarray.Object)
	if !wantObj {
		return want.SameAs(got) || got.SameAs(want), nil
	}
	if want == got {
		return true, nil
	}
	goo, ok := got.(jsarray.Object)
	if !ok {
		return false, nil
	}
	return equalContents(wo, goo)
}

func equalContents(want, got jsarray.Object) (bool, error) {
	wl, err := want.GetLength()
	if err != nil {
		return false, err
	}
	gl, err := got.GetLength()
	if err != nil {
		return false, err
	}
	if wl != gl {
		return false, nil
	}
	for i := uint64(0); i < wl; i++ {
		wv, err := want.GetIndex(i)
		if err != nil {
			return false, err
		}
		gv, err := got.GetIndex(i)
		if err != nil {
			return false, err
		}
		if eq, err := Equal(wv, gv); err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// Format renders a value for failure messages. Holes print as <hole>.
func Format(v jsarray.Value) string {
	switch v := v.(type) {
	case nil:
		return "<hole>"
	case jsarray.Object:
		l, err := v.GetLength()
		if err != nil {
			return "<" + err.Error() + ">"
		}
		var b strings.Builder
		b.WriteByte('[')
		for i := uint64(0); i < l && i < 100; i++ {
			if i > 0 {
				b.WriteString(", ")
			}
			e, _ := v.GetIndex(i)
			if e == jsarray.Value(v) {
				b.WriteString("<self>")
				continue
			}
			b.WriteString(Format(e))
		}
		if l > 100 {
			b.WriteString(", ...")
		}
		b.WriteByte(']')
		return b.String()
	}
	if s, ok := v.Export().(string); ok {
		return strconv.Quote(s)
	}
	return v.String()
}
