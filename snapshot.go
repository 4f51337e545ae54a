package jsarray

import (
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/dop251/jsarray/unistring"
)

// Snapshot is a lossless description of an array: holes, the storage shape,
// element attributes and nested arrays survive a round trip. The vector
// layout (capacity, index bias) is informational only.
type Snapshot struct {
	Header   Header            `json:"header" cbor:"1,keyasint"`
	Elements []SnapshotElement `json:"elements" cbor:"2,keyasint"`
}

type valueKind uint8

const (
	kindUndefined valueKind = iota + 1
	kindNull
	kindBool
	kindInt
	kindFloat
	kindString
	kindArray
)

// SnapshotElement is one present element. Absent indices are holes.
type SnapshotElement struct {
	Index uint64    `json:"index" cbor:"1,keyasint"`
	Kind  valueKind `json:"kind" cbor:"2,keyasint"`

	Bool  bool      `json:"bool,omitempty" cbor:"3,keyasint,omitempty"`
	Int   int64     `json:"int,omitempty" cbor:"4,keyasint,omitempty"`
	Float uint64    `json:"float,omitempty" cbor:"5,keyasint,omitempty"` // IEEE 754 bits, keeps -0 and NaN payloads
	Str   string    `json:"str,omitempty" cbor:"6,keyasint,omitempty"`
	Units []uint16  `json:"units,omitempty" cbor:"7,keyasint,omitempty"`
	Array *Snapshot `json:"array,omitempty" cbor:"8,keyasint,omitempty"`

	// Attrs is set for elements with non-default attributes.
	Attrs *uint8 `json:"attrs,omitempty" cbor:"9,keyasint,omitempty"`
}

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(errors.Wrap(err, "jsarray: failed to create CBOR enc mode"))
	}
	snapshotEncMode = em
}

// Snapshot captures the own elements of a. Elements other than primitives and
// arrays cannot be captured.
func (a *Array) Snapshot() (*Snapshot, error) {
	return a.snapshot(make(map[*Array]struct{}))
}

func (a *Array) snapshot(seen map[*Array]struct{}) (*Snapshot, error) {
	if _, cyclic := seen[a]; cyclic {
		return nil, errors.New("cannot snapshot a cyclic array")
	}
	seen[a] = struct{}{}
	defer delete(seen, a)

	s := &Snapshot{Header: a.Header()}
	add := func(idx uint64, v Value, flags propFlags) error {
		e, err := snapshotElement(idx, v, seen)
		if err != nil {
			return err
		}
		if flags != propDefault {
			f := uint8(flags)
			e.Attrs = &f
		}
		s.Elements = append(s.Elements, e)
		return nil
	}
	switch st := a.st.(type) {
	case denseStorage:
		for i := 0; i < st.length(); i++ {
			if v := st.get(i); v != nil {
				if err := add(uint64(i), v, propDefault); err != nil {
					return nil, err
				}
			}
		}
	case *arrayStorage:
		for i, v := range st.vector() {
			if v != nil {
				if err := add(uint64(i), v, propDefault); err != nil {
					return nil, err
				}
			}
		}
		if st.sparse != nil {
			for _, item := range st.sparse.items {
				if err := add(item.idx, item.value, item.flags); err != nil {
					return nil, err
				}
			}
		}
	}
	return s, nil
}

func snapshotElement(idx uint64, v Value, seen map[*Array]struct{}) (SnapshotElement, error) {
	e := SnapshotElement{Index: idx}
	switch v := v.(type) {
	case valueUndefined:
		e.Kind = kindUndefined
	case valueNull:
		e.Kind = kindNull
	case valueBool:
		e.Kind, e.Bool = kindBool, bool(v)
	case valueInt:
		e.Kind, e.Int = kindInt, int64(v)
	case valueFloat:
		e.Kind, e.Float = kindFloat, math.Float64bits(float64(v))
	case valueString:
		e.Kind = kindString
		if u := unistring.String(v).AsUtf16(); u != nil {
			e.Units = append([]uint16(nil), u[1:]...)
		} else {
			e.Str = string(v)
		}
	case *Array:
		nested, err := v.snapshot(seen)
		if err != nil {
			return e, err
		}
		e.Kind, e.Array = kindArray, nested
	default:
		return e, errors.Errorf("cannot snapshot element %d of type %T", idx, v)
	}
	return e, nil
}

func (r *Runtime) snapshotValue(e SnapshotElement) (Value, error) {
	switch e.Kind {
	case kindUndefined:
		return _undefined, nil
	case kindNull:
		return _null, nil
	case kindBool:
		return valueBool(e.Bool), nil
	case kindInt:
		return valueInt(e.Int), nil
	case kindFloat:
		return valueFloat(math.Float64frombits(e.Float)), nil
	case kindString:
		if e.Units != nil {
			return valueString(unistring.FromCodeUnits(e.Units)), nil
		}
		return valueString(e.Str), nil
	case kindArray:
		if e.Array == nil {
			return nil, errors.Errorf("element %d: missing nested array", e.Index)
		}
		return r.FromSnapshot(e.Array)
	}
	return nil, errors.Errorf("element %d: unknown kind %d", e.Index, e.Kind)
}

// FromSnapshot rebuilds an array with the shape, length and elements
// recorded in s.
func (r *Runtime) FromSnapshot(s *Snapshot) (*Array, error) {
	h := s.Header
	if h.Length > MaxArrayLength {
		return nil, rangeError(msgInvalidArrayLength)
	}
	if h.Shape != ShapeArrayStorage {
		if h.Length >= uint64(r.limits.MinSparseIndex) {
			return nil, errors.Errorf("%s snapshot of length %d exceeds the dense limit", h.Shape, h.Length)
		}
		values := make([]Value, h.Length)
		for _, e := range s.Elements {
			if e.Index >= h.Length {
				return nil, errors.Errorf("element %d is beyond the length %d", e.Index, h.Length)
			}
			v, err := r.snapshotValue(e)
			if err != nil {
				return nil, err
			}
			values[e.Index] = v
		}
		a := r.NewArray(values...)
		if a.Shape() > h.Shape {
			return nil, errors.Errorf("elements do not fit the %s shape", h.Shape)
		}
		a.convertTo(h.Shape)
		return a, nil
	}

	a := &Array{r: r, proto: r.arrayProto}
	a.st = &arrayStorage{}
	if h.SparseMode {
		a.enterSparseMode()
	}
	for _, e := range s.Elements {
		v, err := r.snapshotValue(e)
		if err != nil {
			return nil, err
		}
		if e.Attrs != nil {
			f := propFlags(*e.Attrs)
			err = a.DefineIndex(e.Index, PropertyDescriptor{
				Value:        v,
				Writable:     ToFlag(f&propWritable != 0),
				Enumerable:   ToFlag(f&propEnumerable != 0),
				Configurable: ToFlag(f&propConfigurable != 0),
			})
		} else {
			_, err = a.PutIndex(e.Index, v, true)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", e.Index)
		}
	}
	if err := a.SetLength(h.Length); err != nil {
		return nil, err
	}
	if h.LengthReadOnly {
		a.FreezeLength()
	}
	a.publish()
	return a, nil
}

// MarshalSnapshot encodes s as canonical CBOR.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(s)
}

// UnmarshalSnapshot decodes a snapshot produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "unmarshal snapshot")
	}
	return &s, nil
}
