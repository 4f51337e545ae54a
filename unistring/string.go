// Package unistring contains an implementation of a hybrid ASCII/UTF-16 string.
// For ASCII strings the underlying representation is equivalent to a normal Go string.
// For unicode strings the underlying representation is UTF-16 as []uint16 with 0th element set to 0xFEFF.
// unicode.String allows representing malformed UTF-16 values (e.g. stand-alone parts of surrogate pairs)
// which cannot be represented in UTF-8.
// At the same time it is possible to use unicode.String as map keys just like normal Go strings.
package unistring

import (
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"
)

const (
	BOM = 0xFEFF
)

type String string

// NewFromString converts a Go string (UTF-8) into a String.
func NewFromString(s string) String {
	ascii := true
	size := 0
	for _, c := range s {
		if c >= utf8.RuneSelf {
			ascii = false
			if c > 0xFFFF {
				size++
			}
		}
		size++
	}
	if ascii {
		return String(s)
	}
	b := make([]uint16, size+1)
	b[0] = BOM
	i := 1
	for _, c := range s {
		if c <= 0xFFFF {
			b[i] = uint16(c)
		} else {
			first, second := utf16.EncodeRune(c)
			b[i] = uint16(first)
			i++
			b[i] = uint16(second)
		}
		i++
	}
	return FromUtf16(b)
}

// FromUtf16 wraps a BOM-prefixed UTF-16 buffer. The buffer must not be modified afterwards.
func FromUtf16(b []uint16) String {
	return String(unsafe.String((*byte)(unsafe.Pointer(&b[0])), len(b)*2))
}

// FromCodeUnits builds a String out of raw code units, choosing the ASCII
// representation when possible.
func FromCodeUnits(units []uint16) String {
	for _, u := range units {
		if u >= utf8.RuneSelf {
			b := make([]uint16, len(units)+1)
			b[0] = BOM
			copy(b[1:], units)
			return FromUtf16(b)
		}
	}
	buf := make([]byte, len(units))
	for i, u := range units {
		buf[i] = byte(u)
	}
	return String(buf)
}

func (s String) String() string {
	if b := s.AsUtf16(); b != nil {
		return string(utf16.Decode(b[1:]))
	}

	return string(s)
}

// AsUtf16 returns the BOM-prefixed UTF-16 representation or nil if the string is ASCII.
func (s String) AsUtf16() []uint16 {
	if len(s) < 4 || len(s)&1 != 0 {
		return nil
	}
	a := unsafe.Slice((*uint16)(unsafe.Pointer(unsafe.StringData(string(s)))), len(s)/2)
	if a[0] == BOM {
		return a
	}

	return nil
}

// Length is the number of UTF-16 code units.
func (s String) Length() int {
	if b := s.AsUtf16(); b != nil {
		return len(b) - 1
	}
	return len(s)
}

// CharAt returns the code unit at position i.
func (s String) CharAt(i int) uint16 {
	if b := s.AsUtf16(); b != nil {
		return b[i+1]
	}
	return uint16(s[i])
}

// Compare orders strings by UTF-16 code units, the way ECMAScript relational
// comparison does. Note this differs from Go string ordering for characters
// outside the BMP.
func Compare(a, b String) int {
	ua, ub := a.AsUtf16(), b.AsUtf16()
	if ua == nil && ub == nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	la, lb := a.Length(), b.Length()
	n := la
	if lb < n {
		n = lb
	}
	for i := 0; i < n; i++ {
		ca, cb := a.CharAt(i), b.CharAt(i)
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case la < lb:
		return -1
	case la > lb:
		return 1
	}
	return 0
}

// Builder accumulates code units and produces the most compact String.
type Builder struct {
	ascii   []byte
	units   []uint16
	unicode bool
}

func (b *Builder) Grow(n int) {
	if b.unicode {
		if cap(b.units)-len(b.units) < n {
			u := make([]uint16, len(b.units), len(b.units)+n)
			copy(u, b.units)
			b.units = u
		}
		return
	}
	if cap(b.ascii)-len(b.ascii) < n {
		a := make([]byte, len(b.ascii), len(b.ascii)+n)
		copy(a, b.ascii)
		b.ascii = a
	}
}

func (b *Builder) switchToUnicode(extra int) {
	if b.unicode {
		return
	}
	b.units = make([]uint16, 1, len(b.ascii)+extra+1)
	b.units[0] = BOM
	for _, c := range b.ascii {
		b.units = append(b.units, uint16(c))
	}
	b.ascii = nil
	b.unicode = true
}

func (b *Builder) WriteString(s String) {
	if u := s.AsUtf16(); u != nil {
		b.switchToUnicode(len(u))
		b.units = append(b.units, u[1:]...)
		return
	}
	if b.unicode {
		for i := 0; i < len(s); i++ {
			b.units = append(b.units, uint16(s[i]))
		}
		return
	}
	b.ascii = append(b.ascii, s...)
}

func (b *Builder) WriteASCII(s string) {
	b.WriteString(String(s))
}

func (b *Builder) Len() int {
	if b.unicode {
		return len(b.units) - 1
	}
	return len(b.ascii)
}

func (b *Builder) String() String {
	if b.unicode {
		return FromUtf16(b.units)
	}
	return String(b.ascii)
}
