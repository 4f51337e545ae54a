package jsarray

import (
	"math"
	"strings"
	"testing"
)

func circularArray(r *Runtime) *Array {
	t := r.NewArray(Int(1), Int(2), Int(3))
	if _, err := t.PutIndex(42, t, true); err != nil {
		panic(err)
	}
	return t
}

func TestArrayCircularReferenceToString(t *testing.T) {
	r := New()
	a := circularArray(r)
	expected := "1,2,3" + strings.Repeat(",", 40)
	if s := a.String(); s != expected {
		t.Fatalf("Unexpected string: %q", s)
	}
}

func TestArrayCircularReferenceNumericOperation(t *testing.T) {
	r := New()
	a := circularArray(r)
	if f := a.ToFloat(); !math.IsNaN(f) {
		t.Fatalf("Unexpected number: %v", f)
	}
}

func TestArrayCircularReferenceJoin(t *testing.T) {
	r := New()
	a := circularArray(r)
	v, err := r.Join(a, Str("-"))
	if err != nil {
		t.Fatal(err)
	}
	expected := "1-2-3" + strings.Repeat("-", 40)
	if s := v.String(); s != expected {
		t.Fatalf("Unexpected string: %q", s)
	}
}

func TestArrayMutualReferenceJoin(t *testing.T) {
	r := New()
	a := r.NewArray(Int(1))
	b := r.NewArray(Int(2), a)
	if _, err := r.Push(a, b); err != nil {
		t.Fatal(err)
	}
	v, err := r.Join(a)
	if err != nil {
		t.Fatal(err)
	}
	if s := v.String(); s != "1,2," {
		t.Fatalf("Unexpected string: %q", s)
	}
	v, err = r.Join(b)
	if err != nil {
		t.Fatal(err)
	}
	if s := v.String(); s != "2,1," {
		t.Fatalf("Unexpected string: %q", s)
	}
}

func TestArrayCircularReferenceSort(t *testing.T) {
	r := New()
	a := circularArray(r)
	if _, err := r.Sort(a); err != nil {
		t.Fatal(err)
	}
	values := a.Values()
	// the array sorts by its own string form, "1,2,3,,,"
	if values[0] != Int(1) || values[1] != Value(a) || values[2] != Int(2) || values[3] != Int(3) {
		t.Fatalf("Unexpected order: %v", values[:4])
	}
	for i := 4; i < len(values); i++ {
		if values[i] != nil {
			t.Fatalf("Unexpected value at %d: %v", i, values[i])
		}
	}
}

func TestArrayCircularReferenceFlat(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxRecursionDepth = 50
	for _, fast := range []bool{true, false} {
		r := New(WithLimits(limits), WithFastPaths(fast))
		a := r.NewArray(Int(1))
		if _, err := r.Push(a, a); err != nil {
			t.Fatal(err)
		}
		_, err := r.Flat(a, Float(math.Inf(1)))
		if !IsStackOverflow(err) {
			t.Fatalf("fast paths %v: expected a stack overflow, got %v", fast, err)
		}
		if err.Error() != "RangeError: Maximum call stack size exceeded" {
			t.Fatalf("Unexpected message: %v", err)
		}

		res, err := r.Flat(a, Int(2))
		if err != nil {
			t.Fatal(err)
		}
		if l, _ := res.GetLength(); l != 3 {
			t.Fatalf("fast paths %v: unexpected length %d", fast, l)
		}
	}
}

func TestArrayDeepNestingJoin(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxRecursionDepth = 10
	r := New(WithLimits(limits))
	inner := r.NewArray(Int(1))
	for i := 0; i < 20; i++ {
		inner = r.NewArray(inner)
	}
	if _, err := r.Join(inner); !IsStackOverflow(err) {
		t.Fatalf("Expected a stack overflow, got %v", err)
	}
	if len(r.joinStack) != 0 {
		t.Fatalf("join stack not unwound: %d", len(r.joinStack))
	}
}
