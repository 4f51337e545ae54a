package jsarray

import (
	"fmt"
	"math"
)

// Shape is the physical representation of an array's indexed storage.
// Shapes are ordered: a transition always goes to a greater shape.
type Shape uint8

const (
	ShapeUndecided Shape = iota
	ShapeInt32
	ShapeDouble
	ShapeContiguous
	ShapeArrayStorage
)

func (s Shape) String() string {
	switch s {
	case ShapeUndecided:
		return "Undecided"
	case ShapeInt32:
		return "Int32"
	case ShapeDouble:
		return "Double"
	case ShapeContiguous:
		return "Contiguous"
	case ShapeArrayStorage:
		return "ArrayStorage"
	}
	return "Unknown"
}

func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(text []byte) error {
	sh, ok := ParseShape(string(text))
	if !ok {
		return fmt.Errorf("unknown shape %q", text)
	}
	*s = sh
	return nil
}

// ParseShape is the inverse of Shape.String.
func ParseShape(s string) (Shape, bool) {
	for sh := ShapeUndecided; sh <= ShapeArrayStorage; sh++ {
		if sh.String() == s {
			return sh, true
		}
	}
	return 0, false
}

// lubShape is the least general shape that can hold both the current elements and v.
func lubShape(current Shape, v Value) Shape {
	if current >= ShapeContiguous {
		return current
	}
	var need Shape
	if _, ok := asInt32(v); ok {
		need = ShapeInt32
	} else if isNumber(v) {
		need = ShapeDouble
	} else {
		need = ShapeContiguous
	}
	return max(current, need)
}

func lubShapeOf(current Shape, values []Value) Shape {
	for _, v := range values {
		if current >= ShapeContiguous {
			break
		}
		if v != nil {
			current = lubShape(current, v)
		}
	}
	return current
}

// int32Slot holds an int32 in the low half and a presence bit above it. The zero slot is a hole.
type int32Slot uint64

const int32Present = 1 << 32

func makeInt32Slot(v int32) int32Slot {
	return int32Slot(int32Present | uint64(uint32(v)))
}

func (s int32Slot) present() bool {
	return s&int32Present != 0
}

func (s int32Slot) value() int32 {
	return int32(uint32(s))
}

// pnanBits marks a hole in Double storage. Every other bit pattern, including
// other NaNs, is a value.
const pnanBits = 0x7FF8000000000000

var holeDouble = math.Float64frombits(pnanBits)

func isDoubleHole(f float64) bool {
	return math.Float64bits(f) == pnanBits
}

// purifyNaN keeps a NaN value from being mistaken for a hole.
func purifyNaN(f float64) float64 {
	if math.Float64bits(f) == pnanBits {
		return math.Float64frombits(pnanBits | 1)
	}
	return f
}

type indexedStorage interface {
	shape() Shape
}

// undecidedStorage has no elements yet. Every index below the length is a hole.
type undecidedStorage struct{}

type int32Storage struct {
	cowBuffer[int32Slot]
}

type doubleStorage struct {
	cowBuffer[float64]
}

type contiguousStorage struct {
	cowBuffer[Value]
}

// denseStorage is implemented by the Int32, Double and Contiguous shapes. The
// buffer length always equals the array length.
type denseStorage interface {
	indexedStorage
	length() int
	// get returns nil for a hole.
	get(i int) Value
	// set stores v, which must fit the shape.
	set(i int, v Value)
	clearSlot(i int)
	hasHoles(from, to int) bool
	resize(n int)
	// clone returns an owned copy of [from, to) with at least capacity slots.
	clone(from, to, capacity int) denseStorage
	// shareAll returns a copy-on-write handle to the whole buffer.
	shareAll() denseStorage
	move(dst, src, n int)
	fill(from, to int, v Value)
	reverse(from, to int)

	makeOwned() bool
	shared() bool
	release()
}

// arrayStorage keeps a vector with spare room in front of it (the index bias)
// so that unshift and shift can move the start instead of moving elements.
// Indices past the vector live in the sparse map.
type arrayStorage struct {
	raw     []Value
	bias    int
	vecLen  int
	present int
	sparse  *sparseMap
}

func (*undecidedStorage) shape() Shape {
	return ShapeUndecided
}

func (*int32Storage) shape() Shape {
	return ShapeInt32
}

func (*doubleStorage) shape() Shape {
	return ShapeDouble
}

func (*contiguousStorage) shape() Shape {
	return ShapeContiguous
}

func (*arrayStorage) shape() Shape {
	return ShapeArrayStorage
}

func (s *arrayStorage) vector() []Value {
	return s.raw[s.bias : s.bias+s.vecLen]
}

func (s *arrayStorage) hasSparseEntries() bool {
	return s.sparse != nil && s.sparse.len() > 0
}

func (s *arrayStorage) get(idx uint64) Value {
	if idx < uint64(s.vecLen) {
		return s.raw[s.bias+int(idx)]
	}
	if s.sparse != nil {
		if item := s.sparse.get(idx); item != nil {
			return item.value
		}
	}
	return nil
}

// growVector makes the vector at least n slots long, keeping the bias.
func (s *arrayStorage) growVector(n, base int) {
	if n <= s.vecLen {
		return
	}
	if s.bias+n <= cap(s.raw) {
		s.raw = s.raw[:cap(s.raw)]
		clear(s.raw[s.bias+s.vecLen : s.bias+n])
		s.vecLen = n
		return
	}
	raw := make([]Value, s.bias+n, s.bias+max(growCap(s.vecLen, n), base))
	copy(raw[s.bias:], s.vector())
	s.raw = raw
	s.vecLen = n
}

func (s *arrayStorage) hasHoles(length uint64) bool {
	used := min(uint64(s.vecLen), length)
	if uint64(s.present) < used {
		return true
	}
	return length > used
}

// growCap follows runtime.growSlice.
func growCap(oldCap, target int) int {
	newcap := oldCap
	doublecap := newcap + newcap
	if target > doublecap {
		return target
	}
	if oldCap < 1024 {
		return max(doublecap, target)
	}
	for newcap < target {
		newcap += newcap / 4
	}
	return newcap
}

// extendHoles extends data to n elements, filling the new slots with hole.
func extendHoles[T any](data []T, n int, hole T) []T {
	l := len(data)
	if n <= l {
		return data
	}
	if n > cap(data) {
		nd := make([]T, n, growCap(cap(data), n))
		copy(nd, data)
		data = nd
	} else {
		data = data[:n]
	}
	for i := l; i < n; i++ {
		data[i] = hole
	}
	return data
}

// truncateHoles shortens data to n elements, clearing the dropped slots. When
// most of the capacity would become unused the vector is reallocated.
func truncateHoles[T any](data []T, n int, hole T) []T {
	l := len(data)
	if n >= l {
		return data
	}
	toClear := l - n
	if toClear > 64 && toClear > n {
		nd := make([]T, n, max(n, 4))
		copy(nd, data)
		return nd
	}
	for i := n; i < l; i++ {
		data[i] = hole
	}
	return data[:n]
}

func fillSlice[T any](data []T, v T) {
	for i := range data {
		data[i] = v
	}
}

func reverseSlice[T any](data []T) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}

func newDenseStorage(shape Shape, n, capacity int) denseStorage {
	capacity = max(n, capacity)
	switch shape {
	case ShapeInt32:
		return &int32Storage{ownedBuffer(make([]int32Slot, n, capacity))}
	case ShapeDouble:
		data := make([]float64, n, capacity)
		fillSlice(data, holeDouble)
		return &doubleStorage{ownedBuffer(data)}
	case ShapeContiguous:
		return &contiguousStorage{ownedBuffer(make([]Value, n, capacity))}
	}
	panic("newDenseStorage: not a dense shape: " + shape.String())
}

// copyDense copies src[from:to] to dst starting at off. dst must be able to hold the values.
func copyDense(dst denseStorage, off int, src denseStorage, from, to int) {
	switch d := dst.(type) {
	case *int32Storage:
		if s, ok := src.(*int32Storage); ok {
			copy(d.data[off:], s.data[from:to])
			return
		}
	case *doubleStorage:
		switch s := src.(type) {
		case *doubleStorage:
			copy(d.data[off:], s.data[from:to])
			return
		case *int32Storage:
			for i, sl := range s.data[from:to] {
				if sl.present() {
					d.data[off+i] = float64(sl.value())
				} else {
					d.data[off+i] = holeDouble
				}
			}
			return
		}
	case *contiguousStorage:
		if s, ok := src.(*contiguousStorage); ok {
			copy(d.data[off:], s.data[from:to])
			return
		}
	}
	for i := from; i < to; i++ {
		if v := src.get(i); v != nil {
			dst.set(off+i-from, v)
		} else {
			dst.clearSlot(off + i - from)
		}
	}
}

func (s *int32Storage) length() int {
	return len(s.data)
}

func (s *int32Storage) get(i int) Value {
	if sl := s.data[i]; sl.present() {
		return valueInt(sl.value())
	}
	return nil
}

func (s *int32Storage) set(i int, v Value) {
	n, _ := asInt32(v)
	s.data[i] = makeInt32Slot(n)
}

func (s *int32Storage) clearSlot(i int) {
	s.data[i] = 0
}

func (s *int32Storage) hasHoles(from, to int) bool {
	for _, sl := range s.data[from:to] {
		if !sl.present() {
			return true
		}
	}
	return false
}

func (s *int32Storage) resize(n int) {
	if n > len(s.data) {
		s.data = extendHoles(s.data, n, 0)
	} else {
		s.data = truncateHoles(s.data, n, 0)
	}
}

func (s *int32Storage) clone(from, to, capacity int) denseStorage {
	data := make([]int32Slot, to-from, max(to-from, capacity))
	copy(data, s.data[from:to])
	return &int32Storage{ownedBuffer(data)}
}

func (s *int32Storage) shareAll() denseStorage {
	return &int32Storage{s.share()}
}

func (s *int32Storage) move(dst, src, n int) {
	copy(s.data[dst:dst+n], s.data[src:src+n])
}

func (s *int32Storage) fill(from, to int, v Value) {
	n, _ := asInt32(v)
	fillSlice(s.data[from:to], makeInt32Slot(n))
}

func (s *int32Storage) reverse(from, to int) {
	reverseSlice(s.data[from:to])
}

func (s *doubleStorage) length() int {
	return len(s.data)
}

func (s *doubleStorage) get(i int) Value {
	if f := s.data[i]; !isDoubleHole(f) {
		return floatToValue(f)
	}
	return nil
}

func (s *doubleStorage) set(i int, v Value) {
	s.data[i] = purifyNaN(v.ToFloat())
}

func (s *doubleStorage) clearSlot(i int) {
	s.data[i] = holeDouble
}

func (s *doubleStorage) hasHoles(from, to int) bool {
	for _, f := range s.data[from:to] {
		if isDoubleHole(f) {
			return true
		}
	}
	return false
}

func (s *doubleStorage) resize(n int) {
	if n > len(s.data) {
		s.data = extendHoles(s.data, n, holeDouble)
	} else {
		s.data = truncateHoles(s.data, n, holeDouble)
	}
}

func (s *doubleStorage) clone(from, to, capacity int) denseStorage {
	data := make([]float64, to-from, max(to-from, capacity))
	copy(data, s.data[from:to])
	return &doubleStorage{ownedBuffer(data)}
}

func (s *doubleStorage) shareAll() denseStorage {
	return &doubleStorage{s.share()}
}

func (s *doubleStorage) move(dst, src, n int) {
	copy(s.data[dst:dst+n], s.data[src:src+n])
}

func (s *doubleStorage) fill(from, to int, v Value) {
	fillSlice(s.data[from:to], purifyNaN(v.ToFloat()))
}

func (s *doubleStorage) reverse(from, to int) {
	reverseSlice(s.data[from:to])
}

func (s *contiguousStorage) length() int {
	return len(s.data)
}

func (s *contiguousStorage) get(i int) Value {
	return s.data[i]
}

func (s *contiguousStorage) set(i int, v Value) {
	s.data[i] = v
}

func (s *contiguousStorage) clearSlot(i int) {
	s.data[i] = nil
}

func (s *contiguousStorage) hasHoles(from, to int) bool {
	for _, v := range s.data[from:to] {
		if v == nil {
			return true
		}
	}
	return false
}

func (s *contiguousStorage) resize(n int) {
	if n > len(s.data) {
		s.data = extendHoles(s.data, n, nil)
	} else {
		s.data = truncateHoles(s.data, n, nil)
	}
}

func (s *contiguousStorage) clone(from, to, capacity int) denseStorage {
	data := make([]Value, to-from, max(to-from, capacity))
	copy(data, s.data[from:to])
	return &contiguousStorage{ownedBuffer(data)}
}

func (s *contiguousStorage) shareAll() denseStorage {
	return &contiguousStorage{s.share()}
}

func (s *contiguousStorage) move(dst, src, n int) {
	copy(s.data[dst:dst+n], s.data[src:src+n])
}

func (s *contiguousStorage) fill(from, to int, v Value) {
	fillSlice(s.data[from:to], v)
}

func (s *contiguousStorage) reverse(from, to int) {
	reverseSlice(s.data[from:to])
}
