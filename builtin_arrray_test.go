package jsarray

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sameElements compares two values, descending into arrays. Holes must
// match holes.
func sameElements(a, b Value, seen map[*Array]*Array) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	aa, ok1 := a.(*Array)
	ba, ok2 := b.(*Array)
	if ok1 != ok2 {
		return false
	}
	if !ok1 {
		return a.SameAs(b)
	}
	if prev, exists := seen[aa]; exists {
		return prev == ba
	}
	seen[aa] = ba
	if aa.Len() != ba.Len() {
		return false
	}
	av, bv := aa.Values(), ba.Values()
	for i := range av {
		if !sameElements(av[i], bv[i], seen) {
			return false
		}
	}
	return true
}

type methodCase struct {
	name   string
	method string
	elems  func(r *Runtime) []Value
	args   func(r *Runtime) []Value
}

func vals(vs ...Value) func(*Runtime) []Value {
	return func(*Runtime) []Value {
		return vs
	}
}

func TestFastPathsMatchGeneric(t *testing.T) {
	nested := func(r *Runtime) []Value {
		return []Value{Int(1), r.NewArray(Int(2), r.NewArray(Int(3), nil)), nil, Float(4.5)}
	}
	numeric := func(*Runtime) []Value { return []Value{NumericComparator()} }
	tests := []methodCase{
		{"push ints", "push", vals(Int(1), Int(2)), vals(Int(3))},
		{"push mixed", "push", vals(Int(1)), vals(Float(0.5), Str("s"), nil)},
		{"pop", "pop", vals(Int(1), Float(2.5)), nil},
		{"pop hole", "pop", vals(Int(1), nil), nil},
		{"pop empty", "pop", vals(), nil},
		{"shift", "shift", vals(Str("a"), nil, Str("c")), nil},
		{"unshift", "unshift", vals(Int(1), nil), vals(Int(-1), Int(0))},
		{"slice", "slice", vals(Int(1), Int(2), Int(3), Int(4)), vals(Int(1), Int(-1))},
		{"slice holes", "slice", vals(nil, Int(2), nil), nil},
		{"slice negative", "slice", vals(Int(1), Int(2)), vals(Int(-5))},
		{"splice delete", "splice", vals(Int(1), Int(2), Int(3), Int(4)), vals(Int(1), Int(2))},
		{"splice insert", "splice", vals(Int(1), Int(2)), vals(Int(1), Int(0), Str("x"), Str("y"))},
		{"splice holes", "splice", vals(nil, Int(2), nil, Int(4)), vals(Int(0), Int(1), Float(1.5))},
		{"splice no args", "splice", vals(Int(1)), nil},
		{"fill", "fill", vals(Int(1), nil, Int(3)), vals(Str("z"), Int(1))},
		{"fill double", "fill", vals(Float(1.5), Float(2.5)), vals(Int(0))},
		{"copyWithin", "copyWithin", vals(Int(1), Int(2), Int(3), Int(4), Int(5)), vals(Int(1), Int(0), Int(3))},
		{"copyWithin holes", "copyWithin", vals(Int(1), nil, Int(3), nil), vals(Int(0), Int(1))},
		{"concat", "concat", vals(Int(1)), func(r *Runtime) []Value {
			return []Value{r.NewArray(Float(2.5), nil), Str("x"), r.NewArray()}
		}},
		{"concat empty receiver", "concat", vals(), func(r *Runtime) []Value {
			return []Value{r.NewArray(Int(1), Int(2))}
		}},
		{"indexOf", "indexOf", vals(Int(1), Int(2), Int(1)), vals(Int(1), Int(1))},
		{"indexOf NaN", "indexOf", vals(NaN()), vals(NaN())},
		{"indexOf -0", "indexOf", vals(Int(1), Int(0)), vals(Float(math.Copysign(0, -1)))},
		{"indexOf string", "indexOf", vals(Str("a"), Str("b")), vals(Str("b"))},
		{"lastIndexOf", "lastIndexOf", vals(Int(1), Int(2), Int(1)), vals(Int(1), Int(-2))},
		{"lastIndexOf holes", "lastIndexOf", vals(nil, Undefined()), vals(Undefined())},
		{"includes NaN", "includes", vals(Float(1.5), NaN()), vals(NaN())},
		{"includes undefined hole", "includes", vals(Int(1), nil), vals(Undefined())},
		{"flat", "flat", nested, nil},
		{"flat deep", "flat", nested, vals(Float(math.Inf(1)))},
		{"flat zero", "flat", nested, vals(Int(0))},
		{"at", "at", vals(Int(1), Int(2)), vals(Int(-1))},
		{"at out of range", "at", vals(Int(1)), vals(Int(5))},
		{"with", "with", vals(Int(1), nil, Int(3)), vals(Int(-1), Str("x"))},
		{"with range error", "with", vals(Int(1)), vals(Int(1), Int(0))},
		{"toReversed", "toReversed", vals(Int(1), nil, Float(2.5)), nil},
		{"toSpliced", "toSpliced", vals(Int(1), Int(2), Int(3), Int(4)), vals(Int(1), Int(2), Str("a"))},
		{"toSpliced holes", "toSpliced", vals(nil, Int(2)), vals(Int(1))},
		{"toSorted", "toSorted", vals(Int(10), nil, Int(9), Undefined(), Int(1)), nil},
		{"toSorted numeric", "toSorted", vals(Int(10), Int(9), Int(1)), numeric},
		{"sort strings", "sort", vals(Str("b"), Str("a"), nil, Undefined(), Str("c")), nil},
		{"sort numbers", "sort", vals(Int(10), Int(9), Int(100), Float(1.5)), nil},
		{"sort numeric", "sort", vals(Int(10), Int(9), Int(100), Float(-1.5)), numeric},
		{"sort bad comparator", "sort", vals(Int(2), Int(1)), vals(Int(1))},
		{"reverse", "reverse", vals(Int(1), nil, Int(3), Int(4)), nil},
		{"reverse double", "reverse", vals(Float(1.5), Int(2)), nil},
		{"join", "join", vals(Int(1), nil, Null(), Str("a"), Float(1e21)), vals(Str("-"))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			type outcome struct {
				receiver *Array
				result   Value
				err      error
			}
			run := func(fast bool) outcome {
				r := New(WithFastPaths(fast))
				a := r.NewArray(tc.elems(r)...)
				var args []Value
				if tc.args != nil {
					args = tc.args(r)
				}
				res, err := r.Invoke(tc.method, a, args...)
				return outcome{receiver: a, result: res, err: err}
			}
			fast, generic := run(true), run(false)
			if generic.err != nil || fast.err != nil {
				require.Error(t, fast.err)
				require.Error(t, generic.err)
				assert.Equal(t, kindOf(generic.err), kindOf(fast.err))
				assert.EqualError(t, fast.err, generic.err.Error())
			} else {
				if generic.result == Value(generic.receiver) {
					assert.Same(t, fast.receiver, fast.result)
				} else {
					assert.True(t, sameElements(fast.result, generic.result, map[*Array]*Array{}),
						"result: fast %v, generic %v", fast.result, generic.result)
				}
			}
			assert.True(t, sameElements(fast.receiver, generic.receiver, map[*Array]*Array{}),
				"receiver: fast %v, generic %v", fast.receiver.Values(), generic.receiver.Values())
		})
	}
}

func TestFastPathsOnArrayLike(t *testing.T) {
	r := New()
	o := r.NewArrayLike()
	o.Set(0, Int(1))
	o.Set(2, Int(3))
	o.SetLengthValue(Int(3))

	res, err := r.Slice(o, Int(1))
	require.NoError(t, err)
	a, ok := res.(*Array)
	require.True(t, ok)
	assert.Equal(t, []Value{nil, Int(3)}, a.Values())

	n, err := r.Push(o, Int(4))
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	l, err := o.GetLength()
	require.NoError(t, err)
	assert.EqualValues(t, 4, l)

	v, err := r.Join(o)
	require.NoError(t, err)
	assert.Equal(t, "1,,3,4", v.String())
}

func TestSpeciesResult(t *testing.T) {
	r := New()
	a := r.NewArray(Int(1), Int(2), Int(3))
	var created []uint64
	a.SetSpecies(func(length uint64) (Object, error) {
		created = append(created, length)
		return r.NewArrayLike(), nil
	})
	res, err := r.Slice(a, Int(1))
	require.NoError(t, err)
	o, ok := res.(*ArrayLike)
	require.True(t, ok)
	l, err := o.GetLength()
	require.NoError(t, err)
	assert.EqualValues(t, 2, l)
	assert.Equal(t, []uint64{2}, created)
	assert.Equal(t, []uint64{0, 1}, o.Keys())
}

func TestConcatSpreadable(t *testing.T) {
	r := New()
	a := r.NewArray(Int(1))
	b := r.NewArray(Int(2), Int(3))
	b.SetConcatSpreadable(false)
	like := r.NewArrayLike()
	like.Set(0, Str("x"))
	like.SetLengthValue(Int(1))
	like.SetConcatSpreadable(true)

	res, err := r.Concat(a, b, like)
	require.NoError(t, err)
	values := res.(*Array).Values()
	require.Len(t, values, 3)
	assert.Same(t, b, values[1])
	assert.Equal(t, "x", values[2].String())
}

func TestSpliceResults(t *testing.T) {
	r := New()
	a := r.NewArray(Int(1), Int(2), Int(3), Int(4), Int(5))
	removed, err := r.Splice(a, Int(1), Int(2), Str("a"))
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(2), Int(3)}, removed.(*Array).Values())
	assert.Equal(t, []Value{Int(1), Str("a"), Int(4), Int(5)}, a.Values())
	assert.Equal(t, ShapeContiguous, a.Shape())

	removed, err = r.Splice(a, Int(-1))
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(5)}, removed.(*Array).Values())
	assert.EqualValues(t, 3, a.Len())
}

func TestIndexOfFromIndex(t *testing.T) {
	r := New()
	a := r.NewArray(Int(1), Int(2), Int(1), Int(2))
	tests := []struct {
		args []Value
		want int64
	}{
		{[]Value{Int(2)}, 1},
		{[]Value{Int(2), Int(2)}, 3},
		{[]Value{Int(2), Int(-1)}, 3},
		{[]Value{Int(2), Int(-10)}, 1},
		{[]Value{Int(2), Int(10)}, -1},
		{[]Value{Float(2.0)}, 1},
		{[]Value{Str("2")}, -1},
	}
	for _, tc := range tests {
		got, err := r.IndexOf(a, tc.args...)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "indexOf%v", tc.args)
	}
	got, err := r.LastIndexOf(a, Int(1), Int(1))
	require.NoError(t, err)
	assert.EqualValues(t, 0, got)
}

func TestMethods(t *testing.T) {
	methods := Methods()
	assert.Contains(t, methods, "toSpliced")
	assert.IsIncreasing(t, methods)

	r := New()
	_, err := r.Invoke("map", r.NewArray())
	assert.EqualError(t, err, `unknown array method "map"`)

	v, err := r.Invoke("push", r.NewArray(), Int(1), Int(2))
	require.NoError(t, err)
	assert.Equal(t, Int(2), v)
}

// randomValue never returns a hole, it is used for arguments.
func randomValue(rnd *rand.Rand) Value {
	switch rnd.Intn(10) {
	case 0:
		return Float(float64(rnd.Intn(100)) + 0.5)
	case 1:
		return Str(string(rune('a' + rnd.Intn(6))))
	case 2:
		return Undefined()
	case 3:
		return Float(math.Copysign(0, -1))
	case 4:
		return NaN()
	case 5:
		return Null()
	}
	return Int(int64(rnd.Intn(40) - 10))
}

func randomIndexArg(rnd *rand.Rand, length uint64) Value {
	switch rnd.Intn(6) {
	case 0:
		return Undefined()
	case 1:
		return Int(-int64(rnd.Intn(int(length) + 3)))
	}
	return Int(int64(rnd.Intn(int(length) + 3)))
}

type randomStep func(r *Runtime, a *Array) (Value, error)

// randomSteps builds a sequence of operations. Arguments are drawn up front
// so that both runtimes replay exactly the same sequence.
func randomSteps(rnd *rand.Rand, n int) []randomStep {
	steps := make([]randomStep, 0, n)
	var length uint64 = 8
	for len(steps) < n {
		var step randomStep
		switch rnd.Intn(17) {
		case 0, 1:
			items := make([]Value, 1+rnd.Intn(3))
			for i := range items {
				items[i] = randomValue(rnd)
			}
			length += uint64(len(items))
			step = func(r *Runtime, a *Array) (Value, error) {
				n, err := r.Push(a, items...)
				return Int(int64(n)), err
			}
		case 2:
			step = func(r *Runtime, a *Array) (Value, error) { return r.Pop(a) }
		case 3:
			step = func(r *Runtime, a *Array) (Value, error) { return r.Shift(a) }
		case 4:
			items := []Value{randomValue(rnd), randomValue(rnd)}
			length += 2
			step = func(r *Runtime, a *Array) (Value, error) {
				n, err := r.Unshift(a, items...)
				return Int(int64(n)), err
			}
		case 5:
			args := []Value{randomIndexArg(rnd, length), Int(int64(rnd.Intn(4))), randomValue(rnd)}
			length++
			step = func(r *Runtime, a *Array) (Value, error) {
				res, err := r.Splice(a, args...)
				return objectValue(res), err
			}
		case 6:
			args := []Value{randomValue(rnd), randomIndexArg(rnd, length), randomIndexArg(rnd, length)}
			step = func(r *Runtime, a *Array) (Value, error) {
				res, err := r.Fill(a, args...)
				return objectValue(res), err
			}
		case 7:
			args := []Value{randomIndexArg(rnd, length), randomIndexArg(rnd, length), randomIndexArg(rnd, length)}
			step = func(r *Runtime, a *Array) (Value, error) {
				res, err := r.CopyWithin(a, args...)
				return objectValue(res), err
			}
		case 8:
			var args []Value
			if rnd.Intn(2) == 0 {
				args = []Value{NumericComparator()}
			}
			step = func(r *Runtime, a *Array) (Value, error) {
				res, err := r.Sort(a, args...)
				return objectValue(res), err
			}
		case 9:
			step = func(r *Runtime, a *Array) (Value, error) {
				res, err := r.Reverse(a)
				return objectValue(res), err
			}
		case 10:
			// far writes move the array to ArrayStorage
			idx := uint64(rnd.Intn(2000))
			v := randomValue(rnd)
			if idx >= length {
				length = idx + 1
			}
			step = func(r *Runtime, a *Array) (Value, error) {
				ok, err := a.PutIndex(idx, v, true)
				return Bool(ok), err
			}
		case 11:
			idx := uint64(rnd.Intn(int(length) + 1))
			step = func(r *Runtime, a *Array) (Value, error) {
				ok, err := a.DeleteIndex(idx, false)
				return Bool(ok), err
			}
		case 12:
			newLen := uint64(rnd.Intn(int(length) + 20))
			length = newLen
			step = func(r *Runtime, a *Array) (Value, error) {
				return nil, a.SetLength(newLen)
			}
		case 13:
			idx := uint64(rnd.Intn(int(length) + 1))
			v := randomValue(rnd)
			writable := rnd.Intn(2) == 0
			step = func(r *Runtime, a *Array) (Value, error) {
				return nil, a.DefineIndex(idx, PropertyDescriptor{
					Value:        v,
					Writable:     ToFlag(writable),
					Enumerable:   FLAG_TRUE,
					Configurable: ToFlag(writable),
				})
			}
		case 14:
			if rnd.Intn(4) != 0 {
				continue
			}
			step = func(r *Runtime, a *Array) (Value, error) {
				a.FreezeLength()
				return nil, nil
			}
		case 15:
			args := []Value{randomIndexArg(rnd, length), randomIndexArg(rnd, length)}
			step = func(r *Runtime, a *Array) (Value, error) {
				res, err := r.Slice(a, args...)
				return objectValue(res), err
			}
		case 16:
			v := randomValue(rnd)
			step = func(r *Runtime, a *Array) (Value, error) {
				i, err := r.IndexOf(a, v)
				if err != nil {
					return nil, err
				}
				ok, err := r.Includes(a, v)
				return r.NewArray(Int(i), Bool(ok)), err
			}
		}
		if length > 3000 {
			length = 3000
		}
		steps = append(steps, step)
	}
	return steps
}

func objectValue(o Object) Value {
	if v, ok := o.(Value); ok {
		return v
	}
	return nil
}

func TestRandomSequencesMatchGeneric(t *testing.T) {
	limits := DefaultLimits()
	limits.MinSparseIndex = 200
	limits.ShiftThreshold = 12
	limits.MaxVectorLength = 1 << 16

	proto := New().NewArrayLike()
	proto.Set(3, Str("inherited"))

	for seed := int64(1); seed <= 300; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		steps := randomSteps(rnd, 25+rnd.Intn(16))
		initial := make([]Value, 8)
		for i := range initial {
			if rnd.Intn(5) != 0 {
				initial[i] = Int(int64(i))
			}
		}
		withProto := seed%3 == 0

		newRuntime := func(fast bool) *Runtime {
			opts := []Option{WithLimits(limits), WithFastPaths(fast)}
			if withProto {
				opts = append(opts, WithArrayPrototype(proto))
			}
			return New(opts...)
		}
		rf, rg := newRuntime(true), newRuntime(false)
		af, ag := rf.NewArray(initial...), rg.NewArray(initial...)
		for i, step := range steps {
			vf, errf := step(rf, af)
			vg, errg := step(rg, ag)
			if (errf == nil) != (errg == nil) {
				t.Fatalf("seed %d step %d: fast error %v, generic error %v", seed, i, errf, errg)
			}
			if errg != nil {
				if errf.Error() != errg.Error() {
					t.Fatalf("seed %d step %d: fast error %v, generic error %v", seed, i, errf, errg)
				}
			} else if vg != Value(ag) && !sameElements(vf, vg, map[*Array]*Array{}) {
				t.Fatalf("seed %d step %d: fast result %v, generic result %v", seed, i, vf, vg)
			}
			if af.Len() != ag.Len() {
				t.Fatalf("seed %d step %d: fast length %d, generic length %d", seed, i, af.Len(), ag.Len())
			}
			if !sameElements(af, ag, map[*Array]*Array{}) {
				t.Fatalf("seed %d step %d: fast %v, generic %v", seed, i, af.Values(), ag.Values())
			}
		}
	}
}

func holesToUndefined(vs []Value) []Value {
	res := make([]Value, len(vs))
	for i, v := range vs {
		if v == nil {
			v = Undefined()
		}
		res[i] = v
	}
	return res
}

func TestToReversedRoundTrip(t *testing.T) {
	for _, fast := range []bool{true, false} {
		rnd := rand.New(rand.NewSource(7))
		for n := 0; n < 40; n++ {
			r := New(WithFastPaths(fast))
			elems := make([]Value, n)
			for i := range elems {
				if rnd.Intn(4) != 0 {
					elems[i] = randomValue(rnd)
				}
			}
			a := r.NewArray(elems...)
			once, err := r.ToReversed(a)
			require.NoError(t, err)
			twice, err := r.ToReversed(once)
			require.NoError(t, err)
			assert.True(t, sameElements(r.NewArray(holesToUndefined(elems)...), twice.(*Array), map[*Array]*Array{}),
				"fast paths %v: %v", fast, twice.(*Array).Values())
			assert.True(t, sameElements(r.NewArray(elems...), a, map[*Array]*Array{}), "receiver changed")
		}
	}
}

func TestToSplicedRoundTrip(t *testing.T) {
	for _, fast := range []bool{true, false} {
		rnd := rand.New(rand.NewSource(11))
		for iter := 0; iter < 100; iter++ {
			r := New(WithFastPaths(fast))
			elems := make([]Value, rnd.Intn(20))
			for i := range elems {
				if rnd.Intn(4) != 0 {
					elems[i] = randomValue(rnd)
				}
			}
			items := make([]Value, rnd.Intn(4))
			for i := range items {
				items[i] = randomValue(rnd)
			}
			start := Int(int64(rnd.Intn(len(elems) + 1)))

			a := r.NewArray(elems...)
			inserted, err := r.ToSpliced(a, append([]Value{start, Int(0)}, items...)...)
			require.NoError(t, err)
			require.EqualValues(t, len(elems)+len(items), inserted.(*Array).Len())
			removed, err := r.ToSpliced(inserted, start, Int(int64(len(items))))
			require.NoError(t, err)
			assert.True(t, sameElements(r.NewArray(holesToUndefined(elems)...), removed.(*Array), map[*Array]*Array{}),
				"fast paths %v: %v", fast, removed.(*Array).Values())
		}
	}
}
