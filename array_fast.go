package jsarray

import (
	"math"
)

// The fast paths below operate on the physical storage of an *Array. Each one
// either completes the operation with the same observable result as the
// generic algorithm or reports that it declined, in which case nothing has
// been changed.

func (a *Array) sparseMode() bool {
	s, ok := a.st.(*arrayStorage)
	return ok && s.sparse != nil && s.sparse.sparseMode
}

// holesForward reports whether a hole in st[from:to] could observe a value
// through the prototype chain.
func (a *Array) holesForward(st denseStorage, from, to int) bool {
	return a.holesMustForward() && st.hasHoles(from, to)
}

// cloneFilled copies st[from:to]. Holes become undefined, which requires the
// Contiguous shape.
func cloneFilled(st denseStorage, from, to, capacity int) denseStorage {
	if !st.hasHoles(from, to) {
		return st.clone(from, to, capacity)
	}
	res := newDenseStorage(ShapeContiguous, to-from, capacity)
	for i := from; i < to; i++ {
		v := st.get(i)
		if v == nil {
			v = _undefined
		}
		res.set(i-from, v)
	}
	return res
}

func (a *Array) fastPush(items []Value) bool {
	if a.lengthReadOnly() {
		return false
	}
	if len(items) == 0 {
		return true
	}
	newLen := a.length + uint64(len(items))
	if newLen > MaxArrayLength {
		return false
	}
	limits := &a.r.limits
	if newLen > uint64(limits.MaxVectorLength) {
		return false
	}
	old := int(a.length)
	switch s := a.st.(type) {
	case *arrayStorage:
		if s.sparse.len() > 0 || s.sparse != nil && s.sparse.sparseMode || uint64(s.vecLen) != a.length {
			return false
		}
		s.growVector(int(newLen), int(limits.BaseVectorLength))
		copy(s.raw[s.bias+old:], items)
		s.present += len(items)
	default:
		if newLen > uint64(a.denseCapacity()) && newLen >= uint64(limits.MinSparseIndex) &&
			!isDenseEnoughForVector(newLen, a.countElements()+uint64(len(items)), limits.MinDensityMultiplier) {
			return false
		}
		a.convertTo(lubShapeOf(a.st.shape(), items))
		st, _ := a.dense()
		a.ensureWritable()
		st.resize(int(newLen))
		for i, v := range items {
			st.set(old+i, v)
		}
	}
	a.length = newLen
	a.publish()
	return true
}

func (a *Array) fastPop() (Value, bool) {
	if a.length == 0 {
		return _undefined, true
	}
	idx := a.length - 1
	switch s := a.st.(type) {
	case denseStorage:
		v := s.get(int(idx))
		if v == nil {
			return nil, false
		}
		a.ensureWritable()
		s.resize(int(idx))
		a.length = idx
		a.publish()
		return v, true
	case *arrayStorage:
		if a.lengthReadOnly() || idx >= uint64(s.vecLen) {
			return nil, false
		}
		slot := &s.raw[s.bias+int(idx)]
		v := *slot
		if v == nil {
			return nil, false
		}
		*slot = nil
		s.present--
		s.vecLen = int(idx)
		a.length = idx
		a.publish()
		return v, true
	}
	return nil, false
}

// shiftCount removes count elements at start by moving the elements after
// them down. threshold is the length above which a dense array is moved to
// ArrayStorage first. The length is reduced by count.
func (a *Array) shiftCount(start, count uint64, threshold uint64) bool {
	if count == 0 {
		return true
	}
	limits := &a.r.limits
	oldLen := a.length
	switch s := a.st.(type) {
	case *undecidedStorage:
		return false
	case *arrayStorage:
		return a.shiftCountArrayStorage(s, start, count)
	}
	st, _ := a.dense()
	if oldLen-(start+count) >= uint64(limits.MinSparseIndex) || oldLen > threshold {
		return a.shiftCountArrayStorage(a.toArrayStorage(), start, count)
	}
	if a.holesForward(st, int(start), int(oldLen)) {
		return false
	}
	a.ensureWritable()
	st.move(int(start), int(start+count), int(oldLen-start-count))
	st.resize(int(oldLen - count))
	a.length = oldLen - count
	a.publish()
	return true
}

func (a *Array) shiftCountArrayStorage(s *arrayStorage, start, count uint64) bool {
	if s.hasSparseEntries() || s.sparse != nil && s.sparse.sparseMode || a.lengthReadOnly() || s.hasHoles(a.length) {
		return false
	}
	vecLen := s.vecLen
	st, cnt := int(start), int(count)
	numAfter := vecLen - (st + cnt)
	if st < numAfter {
		copy(s.raw[s.bias+cnt:s.bias+cnt+st], s.raw[s.bias:s.bias+st])
		clear(s.raw[s.bias : s.bias+cnt])
		s.bias += cnt
	} else {
		vec := s.vector()
		copy(vec[st:], vec[st+cnt:])
		clear(vec[vecLen-cnt:])
	}
	s.vecLen -= cnt
	s.present -= cnt
	a.length -= count
	a.publish()
	return true
}

// unshiftCount opens a gap of count holes at start, moving the elements after
// it up. The length grows by count.
func (a *Array) unshiftCount(start, count uint64) (bool, error) {
	if count == 0 {
		return true, nil
	}
	limits := &a.r.limits
	oldLen := a.length
	switch s := a.st.(type) {
	case *undecidedStorage:
		return false, nil
	case *arrayStorage:
		return a.unshiftCountArrayStorage(s, start, count)
	}
	st, _ := a.dense()
	moveCount := oldLen - start
	if moveCount >= uint64(limits.MinSparseIndex) {
		return a.unshiftCountArrayStorage(a.toArrayStorage(), start, count)
	}
	newLen := oldLen + count
	if newLen > uint64(limits.MaxVectorLength) {
		return false, nil
	}
	if a.holesForward(st, int(start), int(oldLen)) {
		return false, nil
	}
	a.ensureWritable()
	st.resize(int(newLen))
	st.move(int(start+count), int(start), int(moveCount))
	for i := start; i < start+count; i++ {
		st.clearSlot(int(i))
	}
	a.length = newLen
	a.publish()
	return true, nil
}

func (a *Array) unshiftCountArrayStorage(s *arrayStorage, start, count uint64) (bool, error) {
	if s.hasSparseEntries() || s.sparse != nil && s.sparse.sparseMode || a.lengthReadOnly() || s.hasHoles(a.length) {
		return false, nil
	}
	limits := &a.r.limits
	vecLen := s.vecLen
	newLen := uint64(vecLen) + count
	if newLen > uint64(limits.MaxVectorLength) {
		return false, outOfMemory()
	}
	st, cnt, nl := int(start), int(count), int(newLen)
	moveFront := st == 0 || st < vecLen/2
	switch {
	case moveFront && s.bias >= cnt:
		s.bias -= cnt
		copy(s.raw[s.bias:s.bias+st], s.raw[s.bias+cnt:s.bias+cnt+st])
		clear(s.raw[s.bias+st : s.bias+st+cnt])
	case !moveFront && cap(s.raw)-(s.bias+vecLen) >= cnt:
		s.raw = s.raw[:s.bias+nl]
		copy(s.raw[s.bias+st+cnt:], s.raw[s.bias+st:s.bias+vecLen])
		clear(s.raw[s.bias+st : s.bias+st+cnt])
	default:
		desired := int(min(uint64(limits.MaxVectorLength), uint64(max(int(limits.BaseVectorLength), nl))*2))
		pre := 0
		if moveFront {
			pre = desired - nl
		}
		raw := make([]Value, pre+nl, max(pre+nl, desired))
		vec := s.vector()
		copy(raw[pre:], vec[:st])
		copy(raw[pre+st+cnt:], vec[st:])
		s.raw, s.bias = raw, pre
	}
	s.vecLen = nl
	a.length = newLen
	a.publish()
	return true, nil
}

// shareStorage returns a new array sharing the vector st of a. Both arrays
// become copy-on-write.
func (a *Array) shareStorage(st denseStorage) *Array {
	res := a.r.newArrayFromStorage(st.shareAll())
	a.publish()
	return res
}

// fastSlice returns a new array holding count elements from start, or nil.
func (a *Array) fastSlice(start, count uint64) *Array {
	r := a.r
	if count >= uint64(r.limits.MinSparseIndex) || start+count > a.length {
		return nil
	}
	switch s := a.st.(type) {
	case *undecidedStorage:
		if a.holesMustForward() && count > 0 {
			return nil
		}
		res, _ := r.NewArrayOfLength(count)
		return res
	case denseStorage:
		from, to := int(start), int(start+count)
		if a.holesForward(s, from, to) {
			return nil
		}
		if start == 0 && count == a.length {
			return a.shareStorage(s)
		}
		return r.newArrayFromStorage(s.clone(from, to, 0))
	case *arrayStorage:
		if start+count > uint64(s.vecLen) {
			return nil
		}
		src := s.vector()[start : start+count]
		if a.holesMustForward() {
			for _, v := range src {
				if v == nil {
					return nil
				}
			}
		}
		data := make([]Value, count)
		copy(data, src)
		return r.newArrayFromStorage(&contiguousStorage{ownedBuffer(data)})
	}
	return nil
}

// cloneFast copies the array. With fillUndefined set holes become undefined,
// otherwise they stay holes.
func (a *Array) cloneFast(fillUndefined bool) *Array {
	r := a.r
	if a.length >= uint64(r.limits.MinSparseIndex) {
		return nil
	}
	n := int(a.length)
	switch s := a.st.(type) {
	case *undecidedStorage:
		if n == 0 {
			return r.NewArray()
		}
		if a.holesMustForward() {
			return nil
		}
		if fillUndefined {
			st := newDenseStorage(ShapeContiguous, n, 0)
			st.fill(0, n, _undefined)
			return r.newArrayFromStorage(st)
		}
		res, _ := r.NewArrayOfLength(a.length)
		return res
	case denseStorage:
		if a.holesForward(s, 0, n) {
			return nil
		}
		if fillUndefined && s.hasHoles(0, n) {
			return r.newArrayFromStorage(cloneFilled(s, 0, n, 0))
		}
		return a.shareStorage(s)
	}
	return nil
}

// concatAppendOne returns a copy of a with v appended.
func (a *Array) concatAppendOne(v Value) *Array {
	r := a.r
	n := int(a.length)
	if a.length+1 >= uint64(r.limits.MinSparseIndex) {
		return nil
	}
	src, isDense := a.dense()
	if !isDense {
		if _, ok := a.st.(*undecidedStorage); !ok {
			return nil
		}
	}
	if a.holesMustForward() && (!isDense && n > 0 || isDense && src.hasHoles(0, n)) {
		return nil
	}
	st := newDenseStorage(lubShape(a.st.shape(), v), n+1, 0)
	if isDense {
		copyDense(st, 0, src, 0, n)
	}
	st.set(n, v)
	return r.newArrayFromStorage(st)
}

// concatAppendArray returns a new array holding the elements of a followed by those of other.
func (a *Array) concatAppendArray(other *Array) *Array {
	r := a.r
	total := a.length + other.length
	if total >= uint64(r.limits.MinSparseIndex) {
		return nil
	}
	shape := ShapeUndecided
	for _, x := range [...]*Array{a, other} {
		switch s := x.st.(type) {
		case *undecidedStorage:
			if x.length > 0 && x.holesMustForward() {
				return nil
			}
		case denseStorage:
			if x.holesForward(s, 0, int(x.length)) {
				return nil
			}
			shape = max(shape, s.shape())
		default:
			return nil
		}
	}
	if shape == ShapeUndecided {
		res, _ := r.NewArrayOfLength(total)
		return res
	}
	if a.length == 0 && other.st.shape() == shape {
		st, _ := other.dense()
		return other.shareStorage(st)
	}
	if other.length == 0 && a.st.shape() == shape {
		st, _ := a.dense()
		return a.shareStorage(st)
	}
	st := newDenseStorage(shape, int(total), 0)
	if src, ok := a.dense(); ok {
		copyDense(st, 0, src, 0, int(a.length))
	}
	if src, ok := other.dense(); ok {
		copyDense(st, int(a.length), src, 0, int(other.length))
	}
	return r.newArrayFromStorage(st)
}

func (a *Array) fastFill(from, to uint64, v Value) bool {
	if to > a.length {
		return false
	}
	switch a.st.(type) {
	case *undecidedStorage, denseStorage:
	default:
		return false
	}
	if from >= to {
		return true
	}
	a.convertTo(lubShape(a.st.shape(), v))
	st, _ := a.dense()
	a.ensureWritable()
	st.fill(int(from), int(to), v)
	a.publish()
	return true
}

func (a *Array) fastCopyWithin(from, to, count, length uint64) bool {
	if a.length != length {
		return false
	}
	switch s := a.st.(type) {
	case denseStorage:
		if s.hasHoles(0, int(length)) {
			return false
		}
		a.ensureWritable()
		s.move(int(to), int(from), int(count))
		a.publish()
		return true
	case *arrayStorage:
		if s.hasSparseEntries() || length > uint64(s.vecLen) || s.hasHoles(length) {
			return false
		}
		vec := s.vector()
		copy(vec[to:to+count], vec[from:from+count])
		return true
	}
	return false
}

func (a *Array) fastReverse(length uint64) bool {
	if a.length != length {
		return false
	}
	switch s := a.st.(type) {
	case *undecidedStorage:
		return length == 0 || !a.holesMustForward()
	case denseStorage:
		if a.holesForward(s, 0, int(length)) {
			return false
		}
		a.ensureWritable()
		s.reverse(0, int(length))
		a.publish()
		return true
	case *arrayStorage:
		if length > uint64(s.vecLen) {
			return false
		}
		vec := s.vector()[:length]
		if a.holesMustForward() && s.present < len(vec) {
			return false
		}
		reverseSlice(vec)
		return true
	}
	return false
}

// int32Search returns the slot value an Int32 vector would hold for a number
// strictly equal to v.
func int32Search(v Value) (int32, bool) {
	if n, ok := asInt32(v); ok {
		return n, true
	}
	if f, ok := v.(valueFloat); ok && f == 0 {
		return 0, true
	}
	return 0, false
}

// fastIndexOf searches [from, length) forward, or from down to 0 when backward is set.
func (a *Array) fastIndexOf(search Value, from, length uint64, backward bool) (int64, bool) {
	if a.length != length || a.holesMustForward() {
		return 0, false
	}
	lo, hi, step := int(from), int(length), 1
	if backward {
		lo, hi, step = int(from), -1, -1
	}
	switch s := a.st.(type) {
	case *undecidedStorage:
		return -1, true
	case *int32Storage:
		n, ok := int32Search(search)
		if !ok {
			return -1, true
		}
		want := makeInt32Slot(n)
		for i := lo; i != hi; i += step {
			if s.data[i] == want {
				return int64(i), true
			}
		}
		return -1, true
	case *doubleStorage:
		if !isNumber(search) {
			return -1, true
		}
		f := search.ToFloat()
		for i := lo; i != hi; i += step {
			if s.data[i] == f {
				return int64(i), true
			}
		}
		return -1, true
	case *contiguousStorage:
		for i := lo; i != hi; i += step {
			if v := s.data[i]; v != nil && search.StrictEquals(v) {
				return int64(i), true
			}
		}
		return -1, true
	}
	return 0, false
}

func (a *Array) fastIncludes(search Value, from, length uint64) (bool, bool) {
	if a.length != length || a.holesMustForward() {
		return false, false
	}
	lo, hi := int(from), int(length)
	switch s := a.st.(type) {
	case *undecidedStorage:
		return search == _undefined && lo < hi, true
	case *int32Storage:
		if search == _undefined {
			return s.hasHoles(lo, hi), true
		}
		n, ok := int32Search(search)
		if !ok {
			return false, true
		}
		want := makeInt32Slot(n)
		for _, sl := range s.data[lo:hi] {
			if sl == want {
				return true, true
			}
		}
		return false, true
	case *doubleStorage:
		if search == _undefined {
			return s.hasHoles(lo, hi), true
		}
		if !isNumber(search) {
			return false, true
		}
		f := search.ToFloat()
		nan := math.IsNaN(f)
		for _, d := range s.data[lo:hi] {
			if d == f || nan && math.IsNaN(d) && !isDoubleHole(d) {
				return true, true
			}
		}
		return false, true
	case *contiguousStorage:
		for _, v := range s.data[lo:hi] {
			if v == nil {
				if search == _undefined {
					return true, true
				}
				continue
			}
			if sameValueZero(search, v) {
				return true, true
			}
		}
		return false, true
	}
	return false, false
}

// denseSource returns the elements [0, length) of a as a dense storage for
// the copying operations, or nil if they cannot be read directly.
func (a *Array) denseSource(length uint64) denseStorage {
	if a.length != length {
		return nil
	}
	switch s := a.st.(type) {
	case denseStorage:
		if a.holesMustForward() {
			return nil
		}
		return s
	case *arrayStorage:
		if s.hasSparseEntries() || length > uint64(s.vecLen) || s.hasHoles(length) {
			return nil
		}
		return &contiguousStorage{ownedBuffer(s.vector()[:length])}
	}
	return nil
}

func (a *Array) fastWith(idx uint64, v Value, length uint64) *Array {
	src := a.denseSource(length)
	if src == nil {
		return nil
	}
	n := int(length)
	var st denseStorage
	if shape := lubShape(src.shape(), v); shape != src.shape() && !src.hasHoles(0, n) {
		st = newDenseStorage(shape, n, 0)
		copyDense(st, 0, src, 0, n)
	} else {
		st = cloneFilled(src, 0, n, 0)
	}
	st.set(int(idx), v)
	return a.r.newArrayFromStorage(st)
}

func (a *Array) fastToReversed(length uint64) *Array {
	src := a.denseSource(length)
	if src == nil {
		return nil
	}
	st := cloneFilled(src, 0, int(length), 0)
	st.reverse(0, int(length))
	return a.r.newArrayFromStorage(st)
}

func (a *Array) fastToSpliced(length, newLen, start, deleteCount uint64, items []Value) *Array {
	limits := &a.r.limits
	if a.length != length || newLen >= uint64(limits.MinSparseIndex) {
		return nil
	}
	src, ok := a.dense()
	if !ok || src.hasHoles(0, int(length)) {
		return nil
	}
	st := newDenseStorage(lubShapeOf(src.shape(), items), int(newLen), 0)
	copyDense(st, 0, src, 0, int(start))
	for i, v := range items {
		st.set(int(start)+i, v)
	}
	copyDense(st, int(start)+len(items), src, int(start+deleteCount), int(length))
	return a.r.newArrayFromStorage(st)
}

// fastFlat flattens a dense array. Nested arrays must be dense as well.
func (a *Array) fastFlat(depth, length uint64) (*Array, error) {
	src, ok := a.dense()
	if !ok || a.length != length || a.holesMustForward() {
		return nil, nil
	}
	n, ok, err := a.r.flattenedLength(a, depth, 0)
	if err != nil || !ok || n > uint64(a.r.limits.MaxVectorLength) {
		return nil, err
	}
	st := newDenseStorage(src.shape(), int(n), 0)
	flattenInto(st, 0, a, depth)
	return a.r.newArrayFromStorage(st), nil
}

func (r *Runtime) flattenedLength(a *Array, depth uint64, level int) (uint64, bool, error) {
	if err := r.enterRecursion(level); err != nil {
		return 0, false, err
	}
	src, ok := a.dense()
	if !ok || level > 0 && a.holesMustForward() {
		return 0, false, nil
	}
	var n uint64
	for i := 0; i < int(a.length); i++ {
		v := src.get(i)
		if v == nil {
			continue
		}
		if nested, isArr := v.(*Array); isArr && depth > 0 {
			m, ok, err := r.flattenedLength(nested, nextDepth(depth), level+1)
			if err != nil || !ok {
				return 0, ok, err
			}
			n += m
		} else {
			n++
		}
		if n > MaxSafeInteger {
			return 0, false, rangeError(msgFlattenTooLarge)
		}
	}
	return n, true, nil
}

func flattenInto(dst denseStorage, off int, a *Array, depth uint64) int {
	src, _ := a.dense()
	for i := 0; i < int(a.length); i++ {
		v := src.get(i)
		if v == nil {
			continue
		}
		if nested, isArr := v.(*Array); isArr && depth > 0 {
			off = flattenInto(dst, off, nested, nextDepth(depth))
			continue
		}
		dst.set(off, v)
		off++
	}
	return off
}

func nextDepth(depth uint64) uint64 {
	if depth == math.MaxUint64 {
		return depth
	}
	return depth - 1
}
