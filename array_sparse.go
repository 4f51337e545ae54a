package jsarray

import (
	"sort"
)

type sparseItem struct {
	idx   uint64
	value Value
	flags propFlags
}

// sparseMap holds the elements of an ArrayStorage that do not fit the vector,
// ordered by index. In sparse mode (entered when an element gets non-default
// attributes) every element lives in the map and the vector stays empty.
type sparseMap struct {
	items []sparseItem

	sparseMode     bool
	lengthReadOnly bool
}

func (m *sparseMap) findIdx(idx uint64) int {
	return sort.Search(len(m.items), func(i int) bool {
		return m.items[i].idx >= idx
	})
}

func (m *sparseMap) len() int {
	if m == nil {
		return 0
	}
	return len(m.items)
}

func (m *sparseMap) get(idx uint64) *sparseItem {
	if m == nil {
		return nil
	}
	i := m.findIdx(idx)
	if i < len(m.items) && m.items[i].idx == idx {
		return &m.items[i]
	}
	return nil
}

// add inserts a new item or replaces the one at idx.
func (m *sparseMap) add(idx uint64, v Value, flags propFlags) {
	i := m.findIdx(idx)
	if i < len(m.items) && m.items[i].idx == idx {
		m.items[i].value = v
		m.items[i].flags = flags
		return
	}
	m.items = append(m.items, sparseItem{})
	copy(m.items[i+1:], m.items[i:])
	m.items[i] = sparseItem{idx: idx, value: v, flags: flags}
}

// put stores v at idx with default attributes unless the item already exists,
// in which case its attributes are kept. It returns false if the existing item
// is read-only.
func (m *sparseMap) put(idx uint64, v Value) bool {
	if item := m.get(idx); item != nil {
		if item.flags&propWritable == 0 {
			return false
		}
		item.value = v
		return true
	}
	m.add(idx, v, propDefault)
	return true
}

// remove deletes the item at idx. Non-configurable items are kept and false is returned.
func (m *sparseMap) remove(idx uint64) bool {
	i := m.findIdx(idx)
	if i >= len(m.items) || m.items[i].idx != idx {
		return true
	}
	if m.items[i].flags&propConfigurable == 0 {
		return false
	}
	copy(m.items[i:], m.items[i+1:])
	m.items[len(m.items)-1] = sparseItem{}
	m.items = m.items[:len(m.items)-1]
	return true
}

// truncate removes the array index items in [newLen, MaxArrayLength), highest
// first. If a non-configurable item is found the removal stops and its index+1
// is returned with false.
func (m *sparseMap) truncate(newLen uint64) (uint64, bool) {
	hi := m.findIdx(MaxArrayLength)
	lo := m.findIdx(newLen)
	for i := hi - 1; i >= lo; i-- {
		if m.items[i].flags&propConfigurable == 0 {
			m.cut(i+1, hi)
			return m.items[i].idx + 1, false
		}
	}
	m.cut(lo, hi)
	return newLen, true
}

func (m *sparseMap) cut(from, to int) {
	if from >= to {
		return
	}
	n := copy(m.items[from:], m.items[to:])
	clear(m.items[from+n:])
	m.items = m.items[:from+n]
}

// lastIndex returns the highest array index in the map.
func (m *sparseMap) lastIndex() (uint64, bool) {
	if m.len() == 0 {
		return 0, false
	}
	i := m.findIdx(MaxArrayLength)
	if i == 0 {
		return 0, false
	}
	return m.items[i-1].idx, true
}

// indices returns the array indices in [from, to) in ascending order.
func (m *sparseMap) indices(from, to uint64) []uint64 {
	if m.len() == 0 {
		return nil
	}
	lo, hi := m.findIdx(from), m.findIdx(to)
	res := make([]uint64, 0, hi-lo)
	for _, item := range m.items[lo:hi] {
		res = append(res, item.idx)
	}
	return res
}
