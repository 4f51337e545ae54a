package jsarray

import "sync/atomic"

// cowBuffer is a vector that may be shared read-only between several arrays.
// The first writer clones it; readers never block.
type cowBuffer[T any] struct {
	data []T
	refs *atomic.Int32
}

func ownedBuffer[T any](data []T) cowBuffer[T] {
	return cowBuffer[T]{data: data}
}

// share returns another handle to the same backing vector. Both handles
// become copy-on-write.
func (b *cowBuffer[T]) share() cowBuffer[T] {
	if b.refs == nil {
		b.refs = new(atomic.Int32)
		b.refs.Store(1)
	}
	b.refs.Add(1)
	return cowBuffer[T]{data: b.data, refs: b.refs}
}

func (b *cowBuffer[T]) shared() bool {
	return b.refs != nil && b.refs.Load() > 1
}

// makeOwned clones a shared vector. It returns false if the vector was already exclusively owned.
func (b *cowBuffer[T]) makeOwned() bool {
	if b.refs == nil {
		return false
	}
	if b.refs.Load() <= 1 {
		b.refs = nil
		return false
	}
	data := make([]T, len(b.data), cap(b.data))
	copy(data, b.data)
	b.data = data
	b.refs.Add(-1)
	b.refs = nil
	return true
}

// release drops this handle's reference without copying.
func (b *cowBuffer[T]) release() {
	if b.refs != nil {
		b.refs.Add(-1)
		b.refs = nil
	}
}
