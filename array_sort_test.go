package jsarray

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dop251/jsarray/unistring"
)

func TestNodePower(t *testing.T) {
	tests := []struct {
		n, b1, e1, e2 int
		want          int
	}{
		{8, 0, 4, 8, 1},
		{8, 0, 2, 4, 2},
		{8, 4, 6, 8, 2},
		{8, 0, 1, 2, 3},
		{8, 2, 3, 4, 3},
		{8, 6, 7, 8, 3},
		{100, 0, 50, 100, 1},
	}
	for _, tc := range tests {
		if got := nodePower(tc.n, tc.b1, tc.e1, tc.e2); got != tc.want {
			t.Errorf("nodePower(%d, %d, %d, %d) = %d, want %d", tc.n, tc.b1, tc.e1, tc.e2, got, tc.want)
		}
	}
}

// keyComparator compares the first byte of the string forms only, so equal
// keys with different suffixes reveal whether the sort is stable.
func keyComparator(calls *int) *Function {
	return NewFunction("byKey", func(_ Value, args ...Value) (Value, error) {
		*calls++
		a, b := args[0].String(), args[1].String()
		return Int(int64(a[0]) - int64(b[0])), nil
	})
}

func TestPowersortStable(t *testing.T) {
	for _, n := range []int{2, 7, 63, 64, 65, 200, 1000} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			rnd := rand.New(rand.NewSource(int64(n)))
			r := New()
			elems := make([]Value, n)
			ref := make([]string, n)
			for i := range elems {
				s := fmt.Sprintf("%c%04d", 'a'+rnd.Intn(5), i)
				elems[i] = Str(s)
				ref[i] = s
			}
			sort.SliceStable(ref, func(i, j int) bool { return ref[i][0] < ref[j][0] })

			a := r.NewArray(elems...)
			var calls int
			_, err := r.Sort(a, keyComparator(&calls))
			require.NoError(t, err)
			got := make([]string, n)
			for i, v := range a.Values() {
				got[i] = v.String()
			}
			assert.Equal(t, ref, got)
		})
	}
}

func TestPowersortPresortedInput(t *testing.T) {
	r := New()
	n := 5000
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = Str(fmt.Sprintf("a%05d", i))
	}
	var calls int
	_, err := r.Sort(r.NewArray(elems...), keyComparator(&calls))
	require.NoError(t, err)
	// a single run needs one comparison per adjacent pair
	assert.Equal(t, n-1, calls)

	// two ascending runs merge with a linear number of comparisons
	r = New()
	ints := make([]Value, n)
	for i := range ints {
		ints[i] = Int(int64((i + n/2) % n))
	}
	a := r.NewArray(ints...)
	counted := NewFunction("numeric", func(_ Value, args ...Value) (Value, error) {
		calls++
		return Int(args[0].ToInteger() - args[1].ToInteger()), nil
	})
	calls = 0
	_, err = r.Sort(a, counted)
	require.NoError(t, err)
	assert.Less(t, calls, 2*n)
	for i, v := range a.Values() {
		require.Equal(t, Int(int64(i)), v)
	}
}

func TestSortComparatorError(t *testing.T) {
	r := New()
	boom := errors.New("boom")
	var calls int
	cmp := NewFunction("failing", func(_ Value, args ...Value) (Value, error) {
		calls++
		if calls == 50 {
			return nil, boom
		}
		return Int(args[0].ToInteger() - args[1].ToInteger()), nil
	})
	elems := make([]Value, 100)
	for i := range elems {
		elems[i] = Int(int64(100 - i))
	}
	a := r.NewArray(elems...)
	_, err := r.Sort(a, cmp)
	assert.Same(t, boom, err)
	assert.Equal(t, elems, a.Values())
}

func TestSortBooleanComparator(t *testing.T) {
	r := New()
	a := r.NewArray(Int(3), Int(1), Int(2))
	gt := NewFunction("gt", func(_ Value, args ...Value) (Value, error) {
		return Bool(args[0].ToInteger() > args[1].ToInteger()), nil
	})
	_, err := r.Sort(a, gt)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(3), Int(1), Int(2)}, a.Values())
}

func TestSortStringComparatorResult(t *testing.T) {
	r := New()
	a := r.NewArray(Int(1), Int(2), Int(3))
	desc := NewFunction("desc", func(_ Value, args ...Value) (Value, error) {
		return Str(fmt.Sprint(args[1].ToInteger() - args[0].ToInteger())), nil
	})
	_, err := r.Sort(a, desc)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(3), Int(2), Int(1)}, a.Values())
}

func TestSortCodeUnitOrder(t *testing.T) {
	r := New()
	a := r.NewArray(Str("\uFFFD"), Str("\U0001F600"), Str("z"), Str("ä"))
	_, err := r.Sort(a)
	require.NoError(t, err)
	got := make([]string, 0, 4)
	for _, v := range a.Values() {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"z", "ä", "\U0001F600", "\uFFFD"}, got)
}

func TestBucketSortMatchesComparisonSort(t *testing.T) {
	limits := DefaultLimits()
	limits.BucketCutoff = 2
	limits.BucketMaxDepth = 3
	r := New(WithLimits(limits))
	rnd := rand.New(rand.NewSource(1))
	alphabet := []string{"a", "b", "ab", "é", "\U0001F600", "1", "10", ""}
	elems := make([]Value, 500)
	for i := range elems {
		switch rnd.Intn(4) {
		case 0:
			elems[i] = Int(int64(rnd.Intn(200) - 100))
		case 1:
			elems[i] = Float(rnd.Float64() * 10)
		default:
			s := ""
			for j := rnd.Intn(6); j > 0; j-- {
				s += alphabet[rnd.Intn(len(alphabet))]
			}
			elems[i] = Str(s)
		}
	}
	ref := append([]Value(nil), elems...)
	sort.SliceStable(ref, func(i, j int) bool {
		return unistring.Compare(ref[i].ToString(), ref[j].ToString()) < 0
	})

	a := r.NewArray(elems...)
	_, err := r.Sort(a)
	require.NoError(t, err)
	assert.Equal(t, ref, a.Values())
}

func TestSortUndefinedAndHoles(t *testing.T) {
	for _, fast := range []bool{true, false} {
		r := New(WithFastPaths(fast))
		a := r.NewArray(nil, Undefined(), Int(2), nil, Int(1), Undefined())
		_, err := r.Sort(a)
		require.NoError(t, err)
		assert.Equal(t, []Value{Int(1), Int(2), Undefined(), Undefined(), nil, nil}, a.Values(), "fast paths %v", fast)
	}
}

func TestSortKeepsShape(t *testing.T) {
	r := New()
	a := r.NewArray(Float(2.5), Int(1), nil)
	_, err := r.Sort(a)
	require.NoError(t, err)
	assert.Equal(t, ShapeDouble, a.Shape())
	assert.Equal(t, []Value{Int(1), Float(2.5), nil}, a.Values())
}

func TestToSortedLeavesReceiver(t *testing.T) {
	r := New()
	a := r.NewArray(Int(3), nil, Int(1))
	res, err := r.ToSorted(a)
	require.NoError(t, err)
	assert.Equal(t, []Value{Int(1), Int(3), Undefined()}, res.(*Array).Values())
	assert.Equal(t, []Value{Int(3), nil, Int(1)}, a.Values())

	_, err = r.ToSorted(a, Str("nope"))
	assert.True(t, IsTypeError(err))
	assert.EqualError(t, err, "TypeError: "+msgToSortedComparator)
}

func BenchmarkSortDefault(b *testing.B) {
	r := New()
	rnd := rand.New(rand.NewSource(1))
	elems := make([]Value, 10000)
	for i := range elems {
		elems[i] = Int(rnd.Int63n(1 << 20))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Sort(r.NewArray(elems...))
	}
}

func BenchmarkSortComparator(b *testing.B) {
	r := New()
	rnd := rand.New(rand.NewSource(1))
	elems := make([]Value, 10000)
	for i := range elems {
		elems[i] = Int(rnd.Int63n(1 << 20))
	}
	cmp := NumericComparator()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Sort(r.NewArray(elems...), cmp)
	}
}

func randomSortInput(rnd *rand.Rand, n int, numeric bool) []Value {
	elems := make([]Value, n)
	for i := range elems {
		switch k := rnd.Intn(8); {
		case k == 0 && !numeric:
			elems[i] = nil
		case k == 1 && !numeric:
			elems[i] = Undefined()
		case k == 2 && !numeric:
			elems[i] = Str(fmt.Sprintf("s%d", rnd.Intn(20)))
		case k == 3:
			elems[i] = Float(float64(rnd.Intn(100)) / 4)
		default:
			elems[i] = Int(int64(rnd.Intn(200) - 100))
		}
	}
	return elems
}

func TestSortIdempotent(t *testing.T) {
	for _, fast := range []bool{true, false} {
		for seed := int64(1); seed <= 50; seed++ {
			rnd := rand.New(rand.NewSource(seed))
			numeric := seed%2 == 0
			var args []Value
			if numeric {
				args = []Value{NumericComparator()}
			}
			r := New(WithFastPaths(fast), WithLimits(smallLimits()))
			a := r.NewArray(randomSortInput(rnd, 1+rnd.Intn(300), numeric)...)
			_, err := r.Sort(a, args...)
			require.NoError(t, err)
			once := a.Values()
			_, err = r.Sort(a, args...)
			require.NoError(t, err)
			assert.Equal(t, once, a.Values(), "seed %d, fast paths %v", seed, fast)
		}
	}
}

func TestSortMutatingComparator(t *testing.T) {
	for _, fast := range []bool{true, false} {
		r := New(WithFastPaths(fast))
		a := r.NewArray(Int(3), Int(1), Int(2))
		var truncated bool
		cmp := NewFunction("truncating", func(_ Value, args ...Value) (Value, error) {
			if !truncated {
				truncated = true
				if err := a.SetLength(0); err != nil {
					return nil, err
				}
			}
			return Int(args[0].ToInteger() - args[1].ToInteger()), nil
		})
		_, err := r.Sort(a, cmp)
		require.NoError(t, err)
		assert.Equal(t, []Value{Int(1), Int(2), Int(3)}, a.Values(), "fast paths %v", fast)

		// the shape changes under the sort, the sorted values are written back one by one
		a = r.NewArray(Int(3), Int(1), Int(2))
		var pushed bool
		cmp = NewFunction("pushing", func(_ Value, args ...Value) (Value, error) {
			if !pushed {
				pushed = true
				if _, err := r.Push(a, Str("x")); err != nil {
					return nil, err
				}
			}
			return Int(args[0].ToInteger() - args[1].ToInteger()), nil
		})
		_, err = r.Sort(a, cmp)
		require.NoError(t, err)
		assert.Equal(t, []Value{Int(1), Int(2), Int(3), Str("x")}, a.Values(), "fast paths %v", fast)
		assert.Equal(t, ShapeContiguous, a.Shape())
	}
}
