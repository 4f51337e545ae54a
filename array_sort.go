package jsarray

import (
	"math/bits"
	"sort"

	"github.com/dop251/jsarray/unistring"
)

// lessFunc reports whether a sorts before b.
type lessFunc func(a, b Value) (bool, error)

// coerceComparatorResult turns the result of a user comparator into "left < right".
// Booleans are not coerced, so a comparator returning a > b never reorders anything.
func coerceComparatorResult(v Value) bool {
	switch v := v.(type) {
	case valueInt:
		return v < 0
	case valueBool:
		return false
	}
	return v.ToFloat() < 0
}

func comparatorLess(cmp *Function) lessFunc {
	return func(a, b Value) (bool, error) {
		res, err := cmp.Call(_undefined, a, b)
		if err != nil {
			return false, err
		}
		return coerceComparatorResult(res), nil
	}
}

func comparatorArg(args []Value, msg string) (*Function, error) {
	v := arg(args, 0)
	if v == _undefined {
		return nil, nil
	}
	f, ok := isCallable(v)
	if !ok {
		return nil, typeError(msg)
	}
	return f, nil
}

// Sort sorts the receiver in place and returns it. Without a comparator
// elements are ordered by their string forms. Undefined values go last,
// followed by the holes.
func (r *Runtime) Sort(o Object, args ...Value) (Object, error) {
	cmp, err := comparatorArg(args, msgSortComparator)
	if err != nil {
		return nil, err
	}
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	if err := r.sortObject(o, length, cmp); err != nil {
		return nil, err
	}
	return o, nil
}

// ToSorted returns a sorted copy. Holes in the copy become undefined.
func (r *Runtime) ToSorted(o Object, args ...Value) (Object, error) {
	cmp, err := comparatorArg(args, msgToSortedComparator)
	if err != nil {
		return nil, err
	}
	length, err := o.GetLength()
	if err != nil {
		return nil, err
	}
	if length > MaxArrayLength {
		return nil, rangeError(msgSafeMagnitude)
	}
	var res *Array
	if a, ok := r.fastArray(o); ok {
		if res = a.cloneFast(true); res == nil {
			r.declined("toSorted", a, "storage")
		}
	}
	if res == nil {
		if res, err = r.arrayCreate(length, msgSafeMagnitude); err != nil {
			return nil, err
		}
		if err := copyInto(res, o, 0, 0, length); err != nil {
			return nil, err
		}
	}
	if err := r.sortObject(res, length, cmp); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Runtime) sortObject(o Object, length uint64, cmp *Function) error {
	// Nothing observable happens to an array with fewer than two elements.
	if length < 2 {
		return nil
	}
	compacted, undefinedCount, shape, err := r.sortCompact(o, length)
	if err != nil {
		return err
	}
	var sorted []Value
	if cmp == nil {
		entries := make([]sortEntry, len(compacted))
		for i, v := range compacted {
			key, err := r.sortKey(v)
			if err != nil {
				return err
			}
			entries[i] = sortEntry{value: v, key: key}
		}
		sorted = r.bucketSort(make([]Value, 0, len(compacted)), entries, 0)
	} else {
		if err := r.powersort(compacted, comparatorLess(cmp)); err != nil {
			return err
		}
		sorted = compacted
	}
	return r.sortCommit(o, length, shape, sorted, undefinedCount)
}

func (r *Runtime) sortKey(v Value) (unistring.String, error) {
	if a, ok := v.(*Array); ok {
		return r.join(a, _undefined)
	}
	return v.ToString(), nil
}

// sortCompact collects the values to be sorted. Holes are dropped and
// undefined values are only counted. shape is the representation the sorted
// values can be written back with.
func (r *Runtime) sortCompact(o Object, length uint64) (compacted []Value, undefinedCount uint64, shape Shape, err error) {
	if a, ok := r.fastArray(o); ok && !a.holesMustForward() {
		if st, ok := a.dense(); ok {
			n := st.length()
			compacted = make([]Value, 0, n)
			for i := 0; i < n; i++ {
				switch v := st.get(i); v {
				case nil:
				case _undefined:
					undefinedCount++
				default:
					compacted = append(compacted, v)
				}
			}
			return compacted, undefinedCount, st.shape(), nil
		}
	}
	for k := uint64(0); k < length; k++ {
		v, err := o.GetIndex(k)
		if err != nil {
			return nil, 0, 0, err
		}
		switch v {
		case nil:
		case _undefined:
			undefinedCount++
		default:
			if len(compacted) >= int(r.limits.MaxVectorLength) {
				return nil, 0, 0, outOfMemory()
			}
			compacted = append(compacted, v)
		}
	}
	return compacted, undefinedCount, ShapeContiguous, nil
}

// sortCommit writes the sorted values, then the undefined values, and
// deletes the remaining indices below length.
func (r *Runtime) sortCommit(o Object, length uint64, shape Shape, sorted []Value, undefinedCount uint64) error {
	index := uint64(len(sorted))
	appended := false
	if a, ok := r.fastArray(o); ok {
		appended = a.writeSorted(shape, sorted)
	}
	if appended {
		if index == length {
			return nil
		}
	} else {
		for i, v := range sorted {
			if _, err := o.PutIndex(uint64(i), v, true); err != nil {
				return err
			}
		}
	}
	for undefinedMax := index + undefinedCount; index < undefinedMax; index++ {
		if _, err := o.PutIndex(index, _undefined, true); err != nil {
			return err
		}
	}
	for ; index < length; index++ {
		if _, err := o.DeleteIndex(index, true); err != nil {
			return err
		}
	}
	return nil
}

// writeSorted stores values at [0, len(values)) in bulk. It declines if the
// array no longer has the representation the values were compacted from.
func (a *Array) writeSorted(shape Shape, values []Value) bool {
	switch cur := a.st.shape(); {
	case cur == ShapeUndecided:
		if len(values) == 0 {
			return true
		}
		a.convertTo(shape)
	case cur != shape:
		return false
	}
	n := len(values)
	if uint64(n) >= uint64(a.r.limits.MinSparseIndex) {
		return false
	}
	st, ok := a.dense()
	if !ok {
		return false
	}
	a.ensureWritable()
	if st.length() < n {
		st.resize(n)
		a.length = uint64(n)
	}
	for i, v := range values {
		st.set(i, v)
	}
	a.publish()
	return true
}

type sortEntry struct {
	value Value
	key   unistring.String
}

// bucketSort distributes the entries by the code unit at depth and recurses
// into each bucket. Small or deep buckets are finished by a comparison sort.
// The result is appended to dst.
func (r *Runtime) bucketSort(dst []Value, bucket []sortEntry, depth int) []Value {
	if len(bucket) < r.limits.BucketCutoff || depth > r.limits.BucketMaxDepth {
		sort.SliceStable(bucket, func(i, j int) bool {
			return unistring.Compare(bucket[i].key, bucket[j].key) < 0
		})
		for _, e := range bucket {
			dst = append(dst, e.value)
		}
		return dst
	}
	buckets := make(map[uint16][]sortEntry)
	var chars []uint16
	for _, e := range bucket {
		if e.key.Length() == depth {
			dst = append(dst, e.value)
			continue
		}
		c := e.key.CharAt(depth)
		if _, exists := buckets[c]; !exists {
			chars = append(chars, c)
		}
		buckets[c] = append(buckets[c], e)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	for _, c := range chars {
		dst = r.bucketSort(dst, buckets[c], depth+1)
	}
	return dst
}

type sortRun struct {
	start, end int
	power      int
}

type powersorter struct {
	v      []Value
	less   lessFunc
	buf    []Value
	minRun int
	cutoff int
}

// powersort is a stable natural merge sort. Runs are merged in the order
// given by the node power of their boundaries, which keeps the merge tree
// close to optimal for partially sorted input. A comparator error stops the
// sort; v is still a permutation of its input.
func (r *Runtime) powersort(v []Value, less lessFunc) error {
	n := len(v)
	if n < 2 {
		return nil
	}
	s := &powersorter{v: v, less: less, minRun: r.limits.SortMinRun, cutoff: r.limits.SortRunCutoff}
	end, err := s.nextRun(0)
	if err != nil {
		return err
	}
	cur := sortRun{start: 0, end: end}
	var stack []sortRun
	for cur.end < n {
		end, err := s.nextRun(cur.end)
		if err != nil {
			return err
		}
		next := sortRun{start: cur.end, end: end}
		p := nodePower(n, cur.start, cur.end, next.end)
		for len(stack) > 0 && stack[len(stack)-1].power > p {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if err := s.merge(top.start, top.end, cur.end); err != nil {
				return err
			}
			cur.start = top.start
		}
		cur.power = p
		stack = append(stack, cur)
		cur = next
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := s.merge(top.start, top.end, cur.end); err != nil {
			return err
		}
		cur.start = top.start
	}
	return nil
}

// nodePower computes the power of the boundary between the runs [b1, e1) and
// [e1, e2): the position of the first bit where the binary fractions of their
// midpoints (relative to n) differ.
func nodePower(n, b1, e1, e2 int) int {
	twoN := uint64(2 * n)
	a, _ := bits.Div64(uint64(b1+e1), 0, twoN)
	b, _ := bits.Div64(uint64(e1+e2), 0, twoN)
	return bits.LeadingZeros64(a^b) + 1
}

// nextRun finds the non-descending run starting at start. Short runs are
// extended to minRun elements by insertion sort.
func (s *powersorter) nextRun(start int) (int, error) {
	v := s.v
	n := len(v)
	end := start + 1
	for end < n {
		lt, err := s.less(v[end], v[end-1])
		if err != nil {
			return 0, err
		}
		if lt {
			break
		}
		end++
	}
	if end-start >= s.cutoff {
		return end, nil
	}
	forced := min(start+s.minRun, n)
	for i := end; i < forced; i++ {
		x := v[i]
		j := i
		for ; j > start; j-- {
			lt, err := s.less(x, v[j-1])
			if err != nil {
				v[j] = x
				return 0, err
			}
			if !lt {
				break
			}
			v[j] = v[j-1]
		}
		v[j] = x
	}
	return forced, nil
}

// merge merges the sorted ranges [lo, mid) and [mid, hi).
func (s *powersorter) merge(lo, mid, hi int) error {
	v := s.v
	left := append(s.buf[:0], v[lo:mid]...)
	s.buf = left
	i, j, k := 0, mid, lo
	var err error
	for i < len(left) && j < hi {
		var lt bool
		if lt, err = s.less(v[j], left[i]); err != nil {
			break
		}
		if lt {
			v[k] = v[j]
			j++
		} else {
			v[k] = left[i]
			i++
		}
		k++
	}
	copy(v[k:], left[i:])
	clear(left)
	return err
}
