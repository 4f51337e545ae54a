package jsarray

import (
	"math"
)

// The algorithms in this file only use the Object protocol, so they work on
// any receiver and are what the fast paths fall back to.

func getOrUndefined(o Object, idx uint64) (Value, error) {
	v, err := o.GetIndex(idx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return _undefined, nil
	}
	return v, nil
}

// moveIndex copies the property at from to to, deleting to if from is absent.
func moveIndex(o Object, from, to uint64) error {
	has, err := o.HasIndex(from)
	if err != nil {
		return err
	}
	if has {
		v, err := getOrUndefined(o, from)
		if err != nil {
			return err
		}
		_, err = o.PutIndex(to, v, true)
		return err
	}
	_, err = o.DeleteIndex(to, true)
	return err
}

// shiftElements turns [header][currentCount][rest] into [header][resultCount][rest]
// for resultCount < currentCount. The values of the resultCount slots are left to
// the caller.
func (r *Runtime) shiftElements(o Object, header, currentCount, resultCount, length, threshold uint64) error {
	count := currentCount - resultCount
	if a, ok := r.fastArray(o); ok && a.length == length {
		if a.shiftCount(header+resultCount, count, threshold) {
			return nil
		}
		r.declined("shift", a, "storage")
	}
	for k := header; k < length-currentCount; k++ {
		if err := moveIndex(o, k+currentCount, k+resultCount); err != nil {
			return err
		}
	}
	for k := length; k > length-count; k-- {
		if _, err := o.DeleteIndex(k-1, true); err != nil {
			return err
		}
	}
	return nil
}

// unshiftElements is the inverse of shiftElements for resultCount > currentCount.
func (r *Runtime) unshiftElements(o Object, header, currentCount, resultCount, length uint64) error {
	count := resultCount - currentCount
	if a, isArray := o.(*Array); isArray {
		if length+count > MaxArrayLength {
			return rangeError(msgLengthExceeded)
		}
		if r.fastPaths && a.length == length {
			done, err := a.unshiftCount(header+currentCount, count)
			if err != nil || done {
				return err
			}
			r.declined("unshift", a, "storage")
		}
	}
	for k := length - currentCount; k > header; k-- {
		if err := moveIndex(o, k+currentCount-1, k+resultCount-1); err != nil {
			return err
		}
	}
	return nil
}

// flatIntoArray appends the elements of source to target starting at
// targetIndex, descending into nested arrays while depth allows. It returns
// the next free target index.
func (r *Runtime) flatIntoArray(target, source Object, sourceLen, targetIndex, depth uint64, level int) (uint64, error) {
	if err := r.enterRecursion(level); err != nil {
		return 0, err
	}
	for i := uint64(0); i < sourceLen; i++ {
		has, err := source.HasIndex(i)
		if err != nil {
			return 0, err
		}
		if !has {
			continue
		}
		v, err := getOrUndefined(source, i)
		if err != nil {
			return 0, err
		}
		if nested, ok := v.(Object); ok && depth > 0 && nested.IsArray() {
			l, err := nested.GetLength()
			if err != nil {
				return 0, err
			}
			targetIndex, err = r.flatIntoArray(target, nested, l, targetIndex, nextDepth(depth), level+1)
			if err != nil {
				return 0, err
			}
			continue
		}
		if targetIndex >= MaxSafeInteger {
			return 0, rangeError(msgFlattenTooLarge)
		}
		if _, err := target.PutIndex(targetIndex, v, true); err != nil {
			return 0, err
		}
		targetIndex++
	}
	return targetIndex, nil
}

// copyInto writes the values of o at [from, from+count) to res starting at
// at. Holes read as undefined.
func copyInto(res, o Object, at, from, count uint64) error {
	for k := uint64(0); k < count; k++ {
		v, err := getOrUndefined(o, from+k)
		if err != nil {
			return err
		}
		if _, err := res.PutIndex(at+k, v, true); err != nil {
			return err
		}
	}
	return nil
}

// copyPresent is like copyInto but skips absent source elements.
func copyPresent(res, o Object, at, from, count uint64) error {
	for k := uint64(0); k < count; k++ {
		v, err := o.GetIndex(from + k)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if _, err := res.PutIndex(at+k, v, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) reverseGeneric(o Object, length uint64) error {
	middle := length / 2
	for lower := uint64(0); lower != middle; lower++ {
		upper := length - lower - 1
		lowerExists, err := o.HasIndex(lower)
		if err != nil {
			return err
		}
		var lowerValue, upperValue Value
		if lowerExists {
			if lowerValue, err = getOrUndefined(o, lower); err != nil {
				return err
			}
		}
		upperExists, err := o.HasIndex(upper)
		if err != nil {
			return err
		}
		if upperExists {
			if upperValue, err = getOrUndefined(o, upper); err != nil {
				return err
			}
		}
		switch {
		case lowerExists && upperExists:
			if _, err := o.PutIndex(lower, upperValue, true); err != nil {
				return err
			}
			if _, err := o.PutIndex(upper, lowerValue, true); err != nil {
				return err
			}
		case upperExists:
			if _, err := o.PutIndex(lower, upperValue, true); err != nil {
				return err
			}
			if _, err := o.DeleteIndex(upper, true); err != nil {
				return err
			}
		case lowerExists:
			if _, err := o.DeleteIndex(lower, true); err != nil {
				return err
			}
			if _, err := o.PutIndex(upper, lowerValue, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runtime) copyWithinGeneric(o Object, from, to, count uint64) error {
	backward := from < to && to < from+count
	for i := uint64(0); i < count; i++ {
		f, t := from+i, to+i
		if backward {
			f, t = from+count-1-i, to+count-1-i
		}
		if err := moveIndex(o, f, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) indexOfGeneric(o Object, search Value, from, length uint64) (int64, error) {
	for k := from; k < length; k++ {
		v, err := o.GetIndex(k)
		if err != nil {
			return 0, err
		}
		if v != nil && search.StrictEquals(v) {
			return int64(k), nil
		}
	}
	return -1, nil
}

func (r *Runtime) lastIndexOfGeneric(o Object, search Value, from uint64) (int64, error) {
	for k := from + 1; k > 0; k-- {
		v, err := o.GetIndex(k - 1)
		if err != nil {
			return 0, err
		}
		if v != nil && search.StrictEquals(v) {
			return int64(k - 1), nil
		}
	}
	return -1, nil
}

func (r *Runtime) includesGeneric(o Object, search Value, from, length uint64) (bool, error) {
	for k := from; k < length; k++ {
		v, err := getOrUndefined(o, k)
		if err != nil {
			return false, err
		}
		if sameValueZero(search, v) {
			return true, nil
		}
	}
	return false, nil
}

// isConcatSpreadable implements IsConcatSpreadable for a value being concatenated.
func isConcatSpreadable(v Value) (Object, bool) {
	o, ok := v.(Object)
	if !ok {
		return nil, false
	}
	if cs, ok := o.(concatSpreadable); ok {
		if spreadable, overridden := cs.isConcatSpreadable(); overridden {
			return o, spreadable
		}
	}
	return o, o.IsArray()
}

func (r *Runtime) concatGeneric(res Object, items []Value) (Object, error) {
	var n uint64
	for _, e := range items {
		if obj, spreadable := isConcatSpreadable(e); spreadable {
			l, err := obj.GetLength()
			if err != nil {
				return nil, err
			}
			if n+l > MaxSafeInteger {
				return nil, rangeError(msgConcatTooLarge)
			}
			if err := copyPresent(res, obj, n, 0, l); err != nil {
				return nil, err
			}
			n += l
			continue
		}
		if n >= MaxSafeInteger {
			return nil, rangeError(msgConcatTooLarge)
		}
		if _, err := res.PutIndex(n, e, true); err != nil {
			return nil, err
		}
		n++
	}
	if err := res.SetLength(n); err != nil {
		return nil, err
	}
	return res, nil
}

// flatDepth converts the depth argument of flat. Infinity flattens fully.
func flatDepth(args []Value) uint64 {
	v := arg(args, 0)
	if v == _undefined {
		return 1
	}
	d := toIntegerOrInfinity(v)
	switch {
	case d <= 0:
		return 0
	case d >= math.MaxUint64:
		return math.MaxUint64
	}
	return uint64(d)
}

// relativeIndex resolves the index argument of at and with. ok is false when
// the result is outside [0, length).
func relativeIndex(v Value, length uint64) (uint64, bool) {
	k := unclampedIndexFromStartOrEnd(v, length, 0)
	if k < 0 || uint64(k) >= length {
		return 0, false
	}
	return uint64(k), true
}
