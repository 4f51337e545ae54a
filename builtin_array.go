package jsarray

import (
	"math"

	"github.com/dop251/jsarray/unistring"
)

// The Array operations. Each takes the receiver and the call arguments the
// way the corresponding Array.prototype method does; missing arguments are
// undefined.

func normalizeItems(items []Value) []Value {
	for i, v := range items {
		if v == nil {
			res := make([]Value, len(items))
			copy(res, items)
			for j := i; j < len(res); j++ {
				if res[j] == nil {
					res[j] = _undefined
				}
			}
			return res
		}
	}
	return items
}

// speciesOrArray returns the species result for o or, if there is none and
// fast is set, tries fast. Otherwise a plain array of the given length is created.
func (r *Runtime) speciesOrArray(o Object, length uint64, fast func(a *Array) *Array, op string) (res Object, viaFast bool, err error) {
	res, err = r.arraySpeciesCreate(o, length)
	if err != nil || res != nil {
		return res, false, err
	}
	if fast != nil {
		if a, ok := r.fastArray(o); ok {
			if fr := fast(a); fr != nil {
				return fr, true, nil
			}
			r.declined(op, a, "storage")
		}
	}
	arr, err := r.arrayCreate(length, msgLengthExceeded)
	if err != nil {
		return nil, false, err
	}
	return arr, false, nil
}

// Push appends items and returns the new length.
func (r *Runtime) Push(o Object, items ...Value) (uint64, error) {
	items = normalizeItems(items)
	if a, ok := r.fastArray(o); ok {
		if a.fastPush(items) {
			return a.length, nil
		}
		r.declined("push", a, "storage")
	}
	length, err := o.GetLength()
	if err != nil {
		return 0, err
	}
	n := uint64(len(items))
	if length+n > MaxSafeInteger {
		return 0, rangeError(msgPushTooLarge)
	}
	for i, v := range items {
		if _, err := o.PutIndex(length+uint64(i), v, true); err != nil {
			return 0, err
		}
	}
	if err := o.SetLength(length + n); err != nil {
		return 0, err
	}
	return length + n, nil
}

// Pop removes and returns the last element.
func (r *Runtime) Pop(o Object) (Value, error) {
	if a, ok := r.fastArray(o); ok {
		if v, ok := a.fastPop(); ok {
			return v, nil
		}
		r.declined("pop", a, "hole")
	}
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return _undefined, o.SetLength(0)
	}
	idx := length - 1
	v, err := getOrUndefined(o, idx)
	if err != nil {
		return nil, err
	}
	if _, err := o.DeleteIndex(idx, true); err != nil {
		return nil, err
	}
	if err := o.SetLength(idx); err != nil {
		return nil, err
	}
	return v, nil
}

// Shift removes and returns the first element.
func (r *Runtime) Shift(o Object) (Value, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return _undefined, o.SetLength(0)
	}
	first, err := getOrUndefined(o, 0)
	if err != nil {
		return nil, err
	}
	if err := r.shiftElements(o, 0, 1, 0, length, uint64(r.limits.ShiftThreshold)); err != nil {
		return nil, err
	}
	if err := o.SetLength(length - 1); err != nil {
		return nil, err
	}
	return first, nil
}

// Unshift inserts items at the front and returns the new length.
func (r *Runtime) Unshift(o Object, items ...Value) (uint64, error) {
	items = normalizeItems(items)
	length, err := o.GetLength()
	if err != nil {
		return 0, err
	}
	n := uint64(len(items))
	if n > 0 {
		if length+n > MaxSafeInteger {
			return 0, rangeError(msgUnshiftTooLarge)
		}
		if err := r.unshiftElements(o, 0, 0, n, length); err != nil {
			return 0, err
		}
		for k, v := range items {
			if _, err := o.PutIndex(uint64(k), v, true); err != nil {
				return 0, err
			}
		}
	}
	if err := o.SetLength(length + n); err != nil {
		return 0, err
	}
	return length + n, nil
}

// Slice returns a copy of the elements in [start, end).
func (r *Runtime) Slice(o Object, args ...Value) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	begin := clampedIndexFromStartOrEnd(arg(args, 0), length, true, 0)
	end := clampedIndexFromStartOrEnd(arg(args, 1), length, true, length)
	if end < begin {
		end = begin
	}
	count := end - begin
	res, fast, err := r.speciesOrArray(o, count, func(a *Array) *Array {
		return a.fastSlice(begin, count)
	}, "slice")
	if err != nil || fast {
		return res, err
	}
	if err := copyPresent(res, o, 0, begin, count); err != nil {
		return nil, err
	}
	if err := res.SetLength(count); err != nil {
		return nil, err
	}
	return res, nil
}

// Splice removes deleteCount elements at start, inserts the remaining
// arguments in their place and returns the removed elements.
func (r *Runtime) Splice(o Object, args ...Value) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		res, _, err := r.speciesOrArray(o, 0, nil, "splice")
		if err != nil {
			return nil, err
		}
		if err := res.SetLength(0); err != nil {
			return nil, err
		}
		if err := o.SetLength(length); err != nil {
			return nil, err
		}
		return res, nil
	}
	start := clampedIndexFromStartOrEnd(args[0], length, true, 0)
	deleteCount := length - start
	var items []Value
	if len(args) > 1 {
		items = normalizeItems(args[2:])
		deleteCount = clampedIndexFromStartOrEnd(arg(args, 1), length-start, false, 0)
	}
	itemCount := uint64(len(items))
	if length-deleteCount+itemCount > MaxSafeInteger {
		return nil, rangeError(msgSpliceTooLarge)
	}
	res, fast, err := r.speciesOrArray(o, deleteCount, func(a *Array) *Array {
		return a.fastSlice(start, deleteCount)
	}, "splice")
	if err != nil {
		return nil, err
	}
	if !fast {
		if err := copyPresent(res, o, 0, start, deleteCount); err != nil {
			return nil, err
		}
		if err := res.SetLength(deleteCount); err != nil {
			return nil, err
		}
	}
	switch {
	case itemCount < deleteCount:
		err = r.shiftElements(o, start, deleteCount, itemCount, length, math.MaxUint32)
	case itemCount > deleteCount:
		err = r.unshiftElements(o, start, deleteCount, itemCount, length)
	}
	if err != nil {
		return nil, err
	}
	for k, v := range items {
		if _, err := o.PutIndex(start+uint64(k), v, true); err != nil {
			return nil, err
		}
	}
	if err := o.SetLength(length - deleteCount + itemCount); err != nil {
		return nil, err
	}
	return res, nil
}

// Fill stores value at every index in [start, end) and returns the receiver.
func (r *Runtime) Fill(o Object, args ...Value) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	value := arg(args, 0)
	k := clampedIndexFromStartOrEnd(arg(args, 1), length, true, 0)
	final := clampedIndexFromStartOrEnd(arg(args, 2), length, true, length)
	if k >= final {
		return o, nil
	}
	if a, ok := r.fastArray(o); ok {
		if a.fastFill(k, final, value) {
			return o, nil
		}
		r.declined("fill", a, "storage")
	}
	for ; k < final; k++ {
		if _, err := o.PutIndex(k, value, true); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// CopyWithin copies the elements in [start, end) to target and returns the receiver.
func (r *Runtime) CopyWithin(o Object, args ...Value) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	to := clampedIndexFromStartOrEnd(arg(args, 0), length, true, 0)
	from := clampedIndexFromStartOrEnd(arg(args, 1), length, true, 0)
	final := clampedIndexFromStartOrEnd(arg(args, 2), length, true, length)
	if final <= from {
		return o, nil
	}
	count := min(final-from, length-max(to, from))
	if count == 0 {
		return o, nil
	}
	if a, ok := r.fastArray(o); ok {
		if a.fastCopyWithin(from, to, count, length) {
			return o, nil
		}
		r.declined("copyWithin", a, "holes")
	}
	if err := r.copyWithinGeneric(o, from, to, count); err != nil {
		return nil, err
	}
	return o, nil
}

// Concat returns a new array holding the receiver's elements followed by the
// arguments, spreading those that are concat-spreadable.
func (r *Runtime) Concat(o Object, args ...Value) (Object, error) {
	args = normalizeItems(args)
	if a, ok := r.fastArray(o); ok && a.species == nil {
		if res := r.concatFast(a, args); res != nil {
			return res, nil
		}
		r.declined("concat", a, "storage")
	}
	res, err := r.arraySpeciesCreate(o, 0)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = r.NewArray()
	}
	items := make([]Value, 0, len(args)+1)
	items = append(items, o)
	items = append(items, args...)
	return r.concatGeneric(res, items)
}

func (r *Runtime) concatFast(a *Array, args []Value) *Array {
	if _, overridden := a.isConcatSpreadable(); overridden {
		return nil
	}
	switch len(args) {
	case 0:
		return a.cloneFast(false)
	case 1:
		if other, ok := args[0].(*Array); ok {
			if _, overridden := other.isConcatSpreadable(); overridden {
				return nil
			}
			return a.concatAppendArray(other)
		}
		if _, spreadable := isConcatSpreadable(args[0]); !spreadable {
			return a.concatAppendOne(args[0])
		}
	}
	return nil
}

// IndexOf returns the first index whose element is strictly equal to the search value, or -1.
func (r *Runtime) IndexOf(o Object, args ...Value) (int64, error) {
	length, err := o.GetLength()
	if err != nil {
		return 0, err
	}
	if length == 0 {
		return -1, nil
	}
	search := arg(args, 0)
	from := clampedIndexFromStartOrEnd(arg(args, 1), length, true, 0)
	if a, ok := r.fastArray(o); ok {
		if idx, ok := a.fastIndexOf(search, from, length, false); ok {
			return idx, nil
		}
		r.declined("indexOf", a, "storage")
	}
	return r.indexOfGeneric(o, search, from, length)
}

// LastIndexOf searches backwards from fromIndex, which defaults to length-1.
func (r *Runtime) LastIndexOf(o Object, args ...Value) (int64, error) {
	length, err := o.GetLength()
	if err != nil {
		return 0, err
	}
	if length == 0 {
		return -1, nil
	}
	search := arg(args, 0)
	from := length - 1
	if len(args) >= 2 {
		f := toIntegerOrInfinity(arg(args, 1))
		if f < 0 {
			f += float64(length)
			if f < 0 {
				return -1, nil
			}
		}
		if f < float64(length) {
			from = uint64(f)
		}
	}
	if a, ok := r.fastArray(o); ok {
		if idx, ok := a.fastIndexOf(search, from, length, true); ok {
			return idx, nil
		}
		r.declined("lastIndexOf", a, "storage")
	}
	return r.lastIndexOfGeneric(o, search, from)
}

// Includes reports whether an element is SameValueZero-equal to the search
// value. Holes compare as undefined.
func (r *Runtime) Includes(o Object, args ...Value) (bool, error) {
	length, err := o.GetLength()
	if err != nil {
		return false, err
	}
	if length == 0 {
		return false, nil
	}
	search := arg(args, 0)
	from := clampedIndexFromStartOrEnd(arg(args, 1), length, true, 0)
	if from == length {
		return false, nil
	}
	if a, ok := r.fastArray(o); ok {
		if found, ok := a.fastIncludes(search, from, length); ok {
			return found, nil
		}
		r.declined("includes", a, "storage")
	}
	return r.includesGeneric(o, search, from, length)
}

// Flat returns a new array with nested arrays flattened up to depth levels.
func (r *Runtime) Flat(o Object, args ...Value) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	depth := flatDepth(args)
	res, err := r.arraySpeciesCreate(o, 0)
	if err != nil {
		return nil, err
	}
	if res == nil {
		if a, ok := r.fastArray(o); ok {
			fr, err := a.fastFlat(depth, length)
			if err != nil {
				return nil, err
			}
			if fr != nil {
				return fr, nil
			}
			r.declined("flat", a, "storage")
		}
		res = r.NewArray()
	}
	if _, err := r.flatIntoArray(res, o, length, 0, depth, 0); err != nil {
		return nil, err
	}
	return res, nil
}

// At returns the element at a possibly negative index, or undefined.
func (r *Runtime) At(o Object, args ...Value) (Value, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	k, ok := relativeIndex(arg(args, 0), length)
	if !ok {
		return _undefined, nil
	}
	return getOrUndefined(o, k)
}

// With returns a copy of the receiver with the element at index replaced.
func (r *Runtime) With(o Object, args ...Value) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	idx, ok := relativeIndex(arg(args, 0), length)
	if !ok {
		return nil, rangeError(msgArrayIndexOutOfRange)
	}
	if length > MaxArrayLength {
		return nil, rangeError(msgSafeMagnitude)
	}
	value := arg(args, 1)
	if a, ok := r.fastArray(o); ok {
		if res := a.fastWith(idx, value, length); res != nil {
			return res, nil
		}
		r.declined("with", a, "storage")
	}
	res, err := r.arrayCreate(length, msgSafeMagnitude)
	if err != nil {
		return nil, err
	}
	if err := copyInto(res, o, 0, 0, idx); err != nil {
		return nil, err
	}
	if _, err := res.PutIndex(idx, value, true); err != nil {
		return nil, err
	}
	if err := copyInto(res, o, idx+1, idx+1, length-idx-1); err != nil {
		return nil, err
	}
	return res, nil
}

// ToReversed returns a reversed copy. Holes become undefined.
func (r *Runtime) ToReversed(o Object) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	if length > MaxArrayLength {
		return nil, rangeError(msgSafeMagnitude)
	}
	if a, ok := r.fastArray(o); ok {
		if res := a.fastToReversed(length); res != nil {
			return res, nil
		}
		r.declined("toReversed", a, "storage")
	}
	res, err := r.arrayCreate(length, msgSafeMagnitude)
	if err != nil {
		return nil, err
	}
	for k := uint64(0); k < length; k++ {
		v, err := getOrUndefined(o, length-k-1)
		if err != nil {
			return nil, err
		}
		if _, err := res.PutIndex(k, v, true); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// ToSpliced is the copying counterpart of Splice. It returns the new array.
func (r *Runtime) ToSpliced(o Object, args ...Value) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	start := clampedIndexFromStartOrEnd(arg(args, 0), length, true, 0)
	var skipCount uint64
	var items []Value
	switch len(args) {
	case 0:
	case 1:
		skipCount = length - start
	default:
		items = normalizeItems(args[2:])
		skipCount = clampedIndexFromStartOrEnd(args[1], length-start, false, 0)
	}
	insertCount := uint64(len(items))
	newLen := length - skipCount + insertCount
	if newLen > MaxSafeInteger {
		return nil, rangeError(msgToSplicedTooLarge)
	}
	if newLen > MaxArrayLength {
		return nil, rangeError(msgSafeMagnitude)
	}
	if a, ok := r.fastArray(o); ok {
		if res := a.fastToSpliced(length, newLen, start, skipCount, items); res != nil {
			return res, nil
		}
		r.declined("toSpliced", a, "storage")
	}
	res, err := r.arrayCreate(newLen, msgSafeMagnitude)
	if err != nil {
		return nil, err
	}
	if err := copyInto(res, o, 0, 0, start); err != nil {
		return nil, err
	}
	for k, v := range items {
		if _, err := res.PutIndex(start+uint64(k), v, true); err != nil {
			return nil, err
		}
	}
	if err := copyInto(res, o, start+insertCount, start+skipCount, newLen-start-insertCount); err != nil {
		return nil, err
	}
	return res, nil
}

// Reverse reverses the receiver in place and returns it.
func (r *Runtime) Reverse(o Object) (Object, error) {
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	if a, ok := r.fastArray(o); ok {
		if a.fastReverse(length) {
			return o, nil
		}
		r.declined("reverse", a, "holes")
	}
	if err := r.reverseGeneric(o, length); err != nil {
		return nil, err
	}
	return o, nil
}

// Join concatenates the string forms of the elements. Undefined, null and
// holes become empty strings, an array that is already being joined higher up
// the stack joins as the empty string.
func (r *Runtime) Join(o Object, args ...Value) (Value, error) {
	s, err := r.join(o, arg(args, 0))
	if err != nil {
		return nil, err
	}
	return valueString(s), nil
}

func (r *Runtime) join(o Object, sep Value) (unistring.String, error) {
	for _, x := range r.joinStack {
		if x == o {
			return "", nil
		}
	}
	if err := r.enterRecursion(len(r.joinStack)); err != nil {
		return "", err
	}
	r.joinStack = append(r.joinStack, o)
	defer func() {
		r.joinStack[len(r.joinStack)-1] = nil
		r.joinStack = r.joinStack[:len(r.joinStack)-1]
	}()

	length, err := o.GetLength()
	if err != nil {
		return "", err
	}
	if length > MaxArrayLength {
		return "", outOfMemory()
	}
	separator := unistring.String(",")
	if sep != nil && sep != _undefined {
		separator = sep.ToString()
	}
	var b unistring.Builder
	for k := uint64(0); k < length; k++ {
		if k > 0 {
			b.WriteString(separator)
		}
		v, err := o.GetIndex(k)
		if err != nil {
			return "", err
		}
		switch v := v.(type) {
		case nil, valueUndefined, valueNull:
		case *Array:
			s, err := r.join(v, _undefined)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		default:
			b.WriteString(v.ToString())
		}
		if b.Len() > int(r.limits.MaxVectorLength) {
			return "", outOfMemory()
		}
	}
	return b.String(), nil
}
