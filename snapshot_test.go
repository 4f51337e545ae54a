package jsarray

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, r *Runtime, a *Array) *Array {
	t.Helper()
	s, err := a.Snapshot()
	require.NoError(t, err)
	data, err := MarshalSnapshot(s)
	require.NoError(t, err)
	s2, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	res, err := r.FromSnapshot(s2)
	require.NoError(t, err)
	return res
}

func TestSnapshotDense(t *testing.T) {
	r := New()
	negZero := Float(math.Copysign(0, -1))
	tests := []struct {
		name  string
		elems []Value
		shape Shape
	}{
		{"empty", nil, ShapeUndecided},
		{"int32", []Value{Int(1), nil, Int(-3)}, ShapeInt32},
		{"double", []Value{Float(1.5), negZero, nil, NaN()}, ShapeDouble},
		{"contiguous", []Value{Str("a"), Null(), Undefined(), Bool(true), nil, Str("ä\U0001F600")}, ShapeContiguous},
		{"nested", []Value{Int(1), r.NewArray(Float(2.5), r.NewArray(Str("x"))), nil}, ShapeContiguous},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := r.NewArray(tc.elems...)
			require.Equal(t, tc.shape, a.Shape())
			res := roundTrip(t, r, a)
			assert.Equal(t, tc.shape, res.Shape())
			assert.Equal(t, a.Len(), res.Len())
			assert.True(t, sameElements(a, res, map[*Array]*Array{}), "%v != %v", a.Values(), res.Values())
		})
	}
}

func TestSnapshotKeepsNegativeZero(t *testing.T) {
	r := New()
	res := roundTrip(t, r, r.NewArray(Float(math.Copysign(0, -1))))
	f := res.Get(0).ToFloat()
	assert.True(t, f == 0 && math.Signbit(f))
}

func TestSnapshotArrayStorage(t *testing.T) {
	r := New(WithLimits(smallLimits()))
	a := r.NewArray(Int(1), Int(2))
	_, err := a.PutIndex(1000, Str("far"), true)
	require.NoError(t, err)
	require.NoError(t, a.DefineIndex(5, PropertyDescriptor{
		Value:      Int(5),
		Enumerable: FLAG_TRUE,
	}))
	a.FreezeLength()
	require.Equal(t, ShapeArrayStorage, a.Shape())

	res := roundTrip(t, r, a)
	h, h2 := a.Header(), res.Header()
	assert.Equal(t, h.Shape, h2.Shape)
	assert.Equal(t, h.Length, h2.Length)
	assert.Equal(t, h.SparseMode, h2.SparseMode)
	assert.True(t, h2.LengthReadOnly)
	assert.Equal(t, "far", res.Get(1000).String())
	assert.True(t, sameElements(a, res, map[*Array]*Array{}))

	// attributes survive: element 5 is read-only
	ok, err := res.PutIndex(5, Int(6), false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Int(5), res.Get(5))

	err = res.SetLength(2000)
	assert.True(t, IsTypeError(err))
}

func TestSnapshotErrors(t *testing.T) {
	r := New()

	_, err := circularArray(r).Snapshot()
	assert.EqualError(t, err, "cannot snapshot a cyclic array")

	fn := NewFunction("f", func(Value, ...Value) (Value, error) { return Undefined(), nil })
	_, err = r.NewArray(Int(1), fn).Snapshot()
	assert.ErrorContains(t, err, "cannot snapshot element 1")

	_, err = r.FromSnapshot(&Snapshot{Header: Header{Shape: ShapeInt32, Length: 1 << 20}})
	assert.ErrorContains(t, err, "exceeds the dense limit")

	_, err = r.FromSnapshot(&Snapshot{Header: Header{Shape: ShapeArrayStorage, Length: 1 << 33}})
	assert.True(t, IsRangeError(err))

	_, err = r.FromSnapshot(&Snapshot{
		Header:   Header{Shape: ShapeInt32, Length: 1},
		Elements: []SnapshotElement{{Index: 0, Kind: kindString, Str: "s"}},
	})
	assert.ErrorContains(t, err, "do not fit the Int32 shape")

	_, err = r.FromSnapshot(&Snapshot{
		Header:   Header{Shape: ShapeContiguous, Length: 1},
		Elements: []SnapshotElement{{Index: 3, Kind: kindNull}},
	})
	assert.ErrorContains(t, err, "beyond the length")

	_, err = r.FromSnapshot(&Snapshot{
		Header:   Header{Shape: ShapeContiguous, Length: 1},
		Elements: []SnapshotElement{{Index: 0, Kind: kindArray}},
	})
	assert.ErrorContains(t, err, "missing nested array")

	_, err = UnmarshalSnapshot([]byte{0xff})
	assert.ErrorContains(t, err, "unmarshal snapshot")
}

func TestMarshalSnapshotIsCanonical(t *testing.T) {
	r := New()
	a := r.NewArray(Int(1), nil, Str("b"))
	s1, err := a.Snapshot()
	require.NoError(t, err)
	s2, err := a.Snapshot()
	require.NoError(t, err)
	d1, err := MarshalSnapshot(s1)
	require.NoError(t, err)
	d2, err := MarshalSnapshot(s2)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}
