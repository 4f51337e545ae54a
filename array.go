package jsarray

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dop251/jsarray/unistring"
)

// Header describes the physical layout of an array. It is published under the
// array's structure lock and may be read from any goroutine.
type Header struct {
	Shape          Shape  `json:"shape" cbor:"1,keyasint"`
	Length         uint64 `json:"length" cbor:"2,keyasint"`
	VectorLength   int    `json:"vectorLength" cbor:"3,keyasint"`
	Capacity       int    `json:"capacity" cbor:"4,keyasint"`
	IndexBias      int    `json:"indexBias" cbor:"5,keyasint"`
	NumValues      int    `json:"numValues" cbor:"6,keyasint"`
	SparseCount    int    `json:"sparseCount" cbor:"7,keyasint"`
	SparseMode     bool   `json:"sparseMode" cbor:"8,keyasint"`
	CopyOnWrite    bool   `json:"copyOnWrite" cbor:"9,keyasint"`
	LengthReadOnly bool   `json:"lengthReadOnly" cbor:"10,keyasint"`
}

// Array is an ECMAScript Array whose elements are kept in one of several
// physical shapes. An Array must only be mutated from one goroutine at a time.
type Array struct {
	r *Runtime

	mu  sync.Mutex
	hdr Header

	st     indexedStorage
	length uint64

	proto      Object
	species    func(length uint64) (Object, error)
	spreadable Flag
}

// NewArray creates an array holding values. A nil entry is a hole.
func (r *Runtime) NewArray(values ...Value) *Array {
	a := &Array{r: r, proto: r.arrayProto}
	shape := lubShapeOf(ShapeUndecided, values)
	if shape == ShapeUndecided {
		a.st = &undecidedStorage{}
	} else {
		st := newDenseStorage(shape, len(values), 0)
		for i, v := range values {
			if v != nil {
				st.set(i, v)
			}
		}
		a.st = st
	}
	a.length = uint64(len(values))
	a.publish()
	return a
}

// NewArrayOfLength creates an array of n holes, like new Array(n).
func (r *Runtime) NewArrayOfLength(n uint64) (*Array, error) {
	if n > MaxArrayLength {
		return nil, rangeError(msgInvalidArrayLength)
	}
	a := &Array{r: r, proto: r.arrayProto, length: n}
	if n >= uint64(r.limits.MinSparseIndex) {
		a.st = &arrayStorage{}
	} else {
		a.st = &undecidedStorage{}
	}
	a.publish()
	return a, nil
}

func (r *Runtime) newArrayFromStorage(st denseStorage) *Array {
	a := &Array{r: r, proto: r.arrayProto, st: st, length: uint64(st.length())}
	a.publish()
	return a
}

func (a *Array) Shape() Shape {
	return a.st.shape()
}

// Header returns the last published header.
func (a *Array) Header() Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hdr
}

func (a *Array) publish() {
	h := Header{
		Shape:  a.st.shape(),
		Length: a.length,
	}
	switch s := a.st.(type) {
	case denseStorage:
		h.VectorLength = s.length()
		h.CopyOnWrite = s.shared()
		switch s := s.(type) {
		case *int32Storage:
			h.Capacity = cap(s.data)
		case *doubleStorage:
			h.Capacity = cap(s.data)
		case *contiguousStorage:
			h.Capacity = cap(s.data)
		}
	case *arrayStorage:
		h.VectorLength = s.vecLen
		h.Capacity = cap(s.raw) - s.bias
		h.IndexBias = s.bias
		h.NumValues = s.present
		h.SparseCount = s.sparse.len()
		if s.sparse != nil {
			h.SparseMode = s.sparse.sparseMode
			h.LengthReadOnly = s.sparse.lengthReadOnly
		}
	}
	a.mu.Lock()
	a.hdr = h
	a.mu.Unlock()
}

// SetPrototype sets the object holes are read through.
func (a *Array) SetPrototype(proto Object) {
	a.proto = proto
}

func (a *Array) Prototype() Object {
	return a.proto
}

// SetSpecies installs a constructor for the results of slice, splice, concat
// and flat. If fn returns a nil Object a plain array is used.
func (a *Array) SetSpecies(fn func(length uint64) (Object, error)) {
	a.species = fn
}

// SetConcatSpreadable overrides the IsConcatSpreadable decision for this array.
func (a *Array) SetConcatSpreadable(spreadable bool) {
	a.spreadable = ToFlag(spreadable)
}

func (a *Array) isConcatSpreadable() (bool, bool) {
	if a.spreadable == FLAG_NOT_SET {
		return true, false
	}
	return a.spreadable.Bool(), true
}

func (a *Array) holesMustForward() bool {
	return protoHasIndexed(a.proto)
}

func (a *Array) hasIndexedProperties() bool {
	if a.length > 0 {
		return true
	}
	if s, ok := a.st.(*arrayStorage); ok && s.sparse.len() > 0 {
		return true
	}
	return protoHasIndexed(a.proto)
}

func (a *Array) lengthReadOnly() bool {
	s, ok := a.st.(*arrayStorage)
	return ok && s.sparse != nil && s.sparse.lengthReadOnly
}

func isDenseEnoughForVector(length, numValues uint64, multiplier uint32) bool {
	return length/uint64(multiplier) <= numValues
}

// dense returns the storage if the array has a dense shape.
func (a *Array) dense() (denseStorage, bool) {
	st, ok := a.st.(denseStorage)
	return st, ok
}

// ensureWritable clones a copy-on-write buffer before it is modified.
func (a *Array) ensureWritable() {
	if st, ok := a.dense(); ok && st.makeOwned() {
		a.r.debug("copy-on-write clone", logrus.Fields{"shape": st.shape().String(), "length": a.length})
	}
}

// convertTo moves the elements into a more general shape. Conversions to a
// less general shape are ignored.
func (a *Array) convertTo(to Shape) {
	from := a.st.shape()
	if to <= from {
		return
	}
	if to == ShapeArrayStorage {
		a.toArrayStorage()
		return
	}
	n := int(a.length)
	st := newDenseStorage(to, n, 0)
	if old, ok := a.dense(); ok {
		copyDense(st, 0, old, 0, n)
		old.release()
	}
	a.st = st
	a.r.debug("indexing shape transition", logrus.Fields{"from": from.String(), "to": to.String(), "length": a.length})
	a.publish()
}

func (a *Array) toArrayStorage() *arrayStorage {
	if s, ok := a.st.(*arrayStorage); ok {
		return s
	}
	from := a.st.shape()
	s := &arrayStorage{}
	if old, ok := a.dense(); ok {
		n := old.length()
		s.raw = make([]Value, n, max(n, int(a.r.limits.BaseVectorLength)))
		s.vecLen = n
		for i := 0; i < n; i++ {
			if v := old.get(i); v != nil {
				s.raw[i] = v
				s.present++
			}
		}
		old.release()
	}
	a.st = s
	a.r.debug("indexing shape transition", logrus.Fields{"from": from.String(), "to": ShapeArrayStorage.String(), "length": a.length})
	a.publish()
	return s
}

// enterSparseMode moves every element of the vector into the sparse map.
func (a *Array) enterSparseMode() *arrayStorage {
	s := a.toArrayStorage()
	if s.sparse == nil {
		s.sparse = &sparseMap{}
	}
	if s.sparse.sparseMode {
		return s
	}
	for i, v := range s.vector() {
		if v != nil {
			s.sparse.add(uint64(i), v, propDefault)
		}
	}
	s.raw, s.bias, s.vecLen, s.present = nil, 0, 0, 0
	s.sparse.sparseMode = true
	a.r.debug("sparse mode", logrus.Fields{"length": a.length, "entries": s.sparse.len()})
	return s
}

// getOwn returns the own element at idx or nil.
func (a *Array) getOwn(idx uint64) Value {
	switch s := a.st.(type) {
	case denseStorage:
		if idx < uint64(s.length()) {
			return s.get(int(idx))
		}
	case *arrayStorage:
		return s.get(idx)
	}
	return nil
}

// putOwn stores an own element. It returns false when the store is rejected
// because the element or the length is read-only.
func (a *Array) putOwn(idx uint64, v Value) (bool, error) {
	if idx >= MaxArrayLength {
		s := a.toArrayStorage()
		if s.sparse == nil {
			s.sparse = &sparseMap{}
		}
		return s.sparse.put(idx, v), nil
	}
	if idx >= a.length && a.lengthReadOnly() {
		return false, nil
	}
	if s, ok := a.st.(*arrayStorage); ok {
		return a.putArrayStorage(s, idx, v)
	}
	if idx >= a.length {
		capacity := a.denseCapacity()
		if idx >= uint64(capacity) {
			limits := &a.r.limits
			if idx >= uint64(limits.MaxVectorLength) ||
				idx >= uint64(limits.MinSparseIndex) && !isDenseEnoughForVector(idx+1, a.countElements()+1, limits.MinDensityMultiplier) {
				return a.putArrayStorage(a.toArrayStorage(), idx, v)
			}
		}
	}
	a.convertTo(lubShape(a.st.shape(), v))
	st, _ := a.dense()
	a.ensureWritable()
	if idx >= a.length {
		st.resize(int(idx) + 1)
		a.length = idx + 1
	}
	st.set(int(idx), v)
	return true, nil
}

func (a *Array) putArrayStorage(s *arrayStorage, idx uint64, v Value) (bool, error) {
	if idx < uint64(s.vecLen) {
		slot := &s.raw[s.bias+int(idx)]
		if *slot == nil {
			s.present++
		}
		*slot = v
		return true, nil
	}
	limits := &a.r.limits
	if s.sparse.len() > 0 || s.sparse != nil && s.sparse.sparseMode || idx >= uint64(limits.MaxVectorLength) ||
		idx >= uint64(limits.MinSparseIndex) && !isDenseEnoughForVector(idx+1, uint64(s.present)+1, limits.MinDensityMultiplier) {
		if s.sparse == nil {
			s.sparse = &sparseMap{}
		}
		if !s.sparse.put(idx, v) {
			return false, nil
		}
	} else {
		s.growVector(int(idx)+1, int(limits.BaseVectorLength))
		s.raw[s.bias+int(idx)] = v
		s.present++
	}
	if idx >= a.length {
		a.length = idx + 1
	}
	return true, nil
}

// deleteOwn removes an own element. It returns false for a non-configurable element.
func (a *Array) deleteOwn(idx uint64) bool {
	switch s := a.st.(type) {
	case denseStorage:
		if idx < uint64(s.length()) && s.get(int(idx)) != nil {
			a.ensureWritable()
			s.clearSlot(int(idx))
		}
	case *arrayStorage:
		if idx < uint64(s.vecLen) {
			slot := &s.raw[s.bias+int(idx)]
			if *slot != nil {
				*slot = nil
				s.present--
			}
			return true
		}
		if s.sparse != nil {
			return s.sparse.remove(idx)
		}
	}
	return true
}

func (a *Array) denseCapacity() int {
	switch s := a.st.(type) {
	case *int32Storage:
		return cap(s.data)
	case *doubleStorage:
		return cap(s.data)
	case *contiguousStorage:
		return cap(s.data)
	}
	return 0
}

// countElements returns the number of own elements that are not holes.
func (a *Array) countElements() uint64 {
	switch s := a.st.(type) {
	case denseStorage:
		var n uint64
		for i := 0; i < s.length(); i++ {
			if s.get(i) != nil {
				n++
			}
		}
		return n
	case *arrayStorage:
		return uint64(s.present + s.sparse.len())
	}
	return 0
}

// EnsureLength makes room for n elements without changing the length.
func (a *Array) EnsureLength(n uint64) error {
	if n > uint64(a.r.limits.MaxVectorLength) {
		return outOfMemory()
	}
	switch s := a.st.(type) {
	case *int32Storage:
		a.ensureWritable()
		s.data = reserve(s.data, int(n))
	case *doubleStorage:
		a.ensureWritable()
		s.data = reserve(s.data, int(n))
	case *contiguousStorage:
		a.ensureWritable()
		s.data = reserve(s.data, int(n))
	case *arrayStorage:
		if n > uint64(cap(s.raw)-s.bias) {
			raw := make([]Value, s.bias+s.vecLen, s.bias+int(n))
			copy(raw[s.bias:], s.vector())
			s.raw = raw
		}
	}
	a.publish()
	return nil
}

func reserve[T any](data []T, n int) []T {
	if n <= cap(data) {
		return data
	}
	nd := make([]T, len(data), n)
	copy(nd, data)
	return nd
}

// setLength implements the length setter for lengths up to MaxArrayLength.
func (a *Array) setLength(newLen uint64) error {
	if newLen == a.length {
		return nil
	}
	if a.lengthReadOnly() {
		return typeError(msgReadOnlyLength)
	}
	defer a.publish()
	limits := &a.r.limits
	switch s := a.st.(type) {
	case *arrayStorage:
		return a.setLengthArrayStorage(s, newLen)
	case *undecidedStorage:
		if newLen > a.length && (newLen > uint64(limits.MaxVectorLength) || newLen >= uint64(limits.MinSparseIndex)) {
			a.toArrayStorage()
		}
		a.length = newLen
		return nil
	}
	st, _ := a.dense()
	if newLen > a.length {
		if newLen > uint64(limits.MaxVectorLength) ||
			newLen >= uint64(limits.MinSparseIndex) && !isDenseEnoughForVector(newLen, a.countElements(), limits.MinDensityMultiplier) {
			a.toArrayStorage()
			a.length = newLen
			return nil
		}
	}
	a.ensureWritable()
	st.resize(int(newLen))
	a.length = newLen
	return nil
}

func (a *Array) setLengthArrayStorage(s *arrayStorage, newLen uint64) error {
	if newLen < a.length {
		if s.sparse.len() > 0 {
			if l, ok := s.sparse.truncate(newLen); !ok {
				a.truncateVector(s, l)
				a.length = l
				return typeError(msgUnableToDeleteProperty)
			}
		}
		a.truncateVector(s, newLen)
	}
	a.length = newLen
	return nil
}

func (a *Array) truncateVector(s *arrayStorage, newLen uint64) {
	if newLen >= uint64(s.vecLen) {
		return
	}
	for i, v := range s.vector()[newLen:] {
		if v != nil {
			s.present--
			s.raw[s.bias+int(newLen)+i] = nil
		}
	}
	s.vecLen = int(newLen)
}

// FreezeLength makes the length read-only. Elements may still be changed
// below the length.
func (a *Array) FreezeLength() {
	s := a.toArrayStorage()
	if s.sparse == nil {
		s.sparse = &sparseMap{}
	}
	s.sparse.lengthReadOnly = true
	a.publish()
}

// DefineIndex defines an element with the given attributes. Only data
// properties are supported. The array enters sparse mode.
func (a *Array) DefineIndex(idx uint64, desc PropertyDescriptor) error {
	if desc.Getter != nil || desc.Setter != nil {
		return typeError(msgAccessorElement)
	}
	if idx >= MaxArrayLength {
		return rangeError(msgInvalidArrayLength)
	}
	if idx >= a.length && a.lengthReadOnly() {
		return typeError(msgReadOnlyLength)
	}
	s := a.enterSparseMode()
	if item := s.sparse.get(idx); item != nil && item.flags&propConfigurable == 0 {
		if desc.flags() != item.flags || item.flags&propWritable == 0 && desc.Value != nil && !desc.Value.SameAs(item.value) {
			return typeError(msgRedefineElement)
		}
	}
	v := desc.Value
	if v == nil {
		v = _undefined
	}
	s.sparse.add(idx, v, desc.flags())
	if idx >= a.length {
		a.length = idx + 1
	}
	a.publish()
	return nil
}

func (a *Array) HasIndex(idx uint64) (bool, error) {
	if a.getOwn(idx) != nil {
		return true, nil
	}
	if a.proto != nil {
		return a.proto.HasIndex(idx)
	}
	return false, nil
}

func (a *Array) GetIndex(idx uint64) (Value, error) {
	if v := a.getOwn(idx); v != nil {
		return v, nil
	}
	if a.proto != nil {
		return a.proto.GetIndex(idx)
	}
	return nil, nil
}

func (a *Array) PutIndex(idx uint64, v Value, throw bool) (bool, error) {
	ok, err := a.putOwn(idx, v)
	a.publish()
	if err != nil {
		return false, err
	}
	if !ok && throw {
		return false, typeError(msgReadOnlyProperty)
	}
	return ok, nil
}

func (a *Array) DeleteIndex(idx uint64, throw bool) (bool, error) {
	if !a.deleteOwn(idx) {
		if throw {
			return false, typeError(msgUnableToDeleteProperty)
		}
		return false, nil
	}
	return true, nil
}

func (a *Array) GetLength() (uint64, error) {
	return a.length, nil
}

func (a *Array) SetLength(length uint64) error {
	if length > MaxArrayLength {
		return rangeError(msgInvalidArrayLength)
	}
	return a.setLength(length)
}

func (a *Array) IsArray() bool {
	return true
}

func (a *Array) ClassName() string {
	return classArray
}

// Len returns the length.
func (a *Array) Len() uint64 {
	return a.length
}

// Get returns the element at idx, reading holes through the prototype. It
// returns nil for an absent element.
func (a *Array) Get(idx uint64) Value {
	v, _ := a.GetIndex(idx)
	return v
}

// Values returns the own elements below the length. Holes are nil.
func (a *Array) Values() []Value {
	res := make([]Value, a.length)
	switch s := a.st.(type) {
	case denseStorage:
		for i := range res {
			res[i] = s.get(i)
		}
	case *arrayStorage:
		copy(res, s.vector())
		if s.sparse != nil {
			for _, item := range s.sparse.items {
				if item.idx < a.length {
					res[item.idx] = item.value
				}
			}
		}
	}
	return res
}

func (a *Array) ToInteger() int64 {
	return a.ToNumber().ToInteger()
}

func (a *Array) ToString() unistring.String {
	s, err := a.r.join(a, _undefined)
	if err != nil {
		return ""
	}
	return s
}

func (a *Array) String() string {
	return a.ToString().String()
}

func (a *Array) ToFloat() float64 {
	return a.ToNumber().ToFloat()
}

func (a *Array) ToNumber() Value {
	return stringToNumber(a.String())
}

func (a *Array) ToBoolean() bool {
	return true
}

func (a *Array) SameAs(other Value) bool {
	return other == Value(a)
}

func (a *Array) StrictEquals(other Value) bool {
	return other == Value(a)
}

// Export returns the elements as a []interface{}. Holes become nil.
func (a *Array) Export() interface{} {
	values := a.Values()
	res := make([]interface{}, len(values))
	for i, v := range values {
		res[i] = exportValue(v)
	}
	return res
}
