package jsarray

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dop251/goja/ftoa"

	"github.com/dop251/jsarray/unistring"
)

var (
	valueFalse    Value = valueBool(false)
	valueTrue     Value = valueBool(true)
	_null         Value = valueNull{}
	_NaN          Value = valueFloat(math.NaN())
	_positiveInf  Value = valueFloat(math.Inf(+1))
	_negativeInf  Value = valueFloat(math.Inf(-1))
	_positiveZero Value = valueInt(0)
	negativeZero        = math.Float64frombits(0 | (1 << 63))
	_negativeZero Value = valueFloat(negativeZero)
	_undefined    Value = valueUndefined{}
	stringEmpty   Value = valueString("")
)

const (
	maxInt = 1 << 53

	// MaxSafeInteger is the largest length a generic array-like may have.
	MaxSafeInteger = maxInt - 1
	// MaxArrayLength is the largest length of an Array.
	MaxArrayLength = math.MaxUint32
)

// Value is an ECMAScript value as seen by the array engine.
type Value interface {
	ToInteger() int64
	ToString() unistring.String
	String() string
	ToFloat() float64
	ToNumber() Value
	ToBoolean() bool
	SameAs(Value) bool
	StrictEquals(Value) bool
	Export() interface{}
}

type valueInt int64
type valueFloat float64
type valueBool bool
type valueString unistring.String
type valueNull struct{}
type valueUndefined struct {
	valueNull
}

// Undefined returns the undefined value.
func Undefined() Value {
	return _undefined
}

// Null returns the null value.
func Null() Value {
	return _null
}

// NaN returns a NaN number value.
func NaN() Value {
	return _NaN
}

func Bool(b bool) Value {
	if b {
		return valueTrue
	}
	return valueFalse
}

func Int(i int64) Value {
	return valueInt(i)
}

// Float returns a number value. Integral values are normalised to the integer representation.
func Float(f float64) Value {
	return floatToValue(f)
}

// Str returns a string value.
func Str(s string) Value {
	return valueString(unistring.NewFromString(s))
}

// ToValue converts a Go value into a Value. Slices become arrays owned by r.
func (r *Runtime) ToValue(i interface{}) Value {
	switch i := i.(type) {
	case nil:
		return _null
	case Value:
		return i
	case bool:
		return Bool(i)
	case int:
		return valueInt(i)
	case int8:
		return valueInt(i)
	case int16:
		return valueInt(i)
	case int32:
		return valueInt(i)
	case int64:
		return valueInt(i)
	case uint:
		if uint64(i) <= math.MaxInt64 {
			return valueInt(i)
		}
		return valueFloat(float64(i))
	case uint8:
		return valueInt(i)
	case uint16:
		return valueInt(i)
	case uint32:
		return valueInt(i)
	case uint64:
		if i <= math.MaxInt64 {
			return valueInt(i)
		}
		return valueFloat(float64(i))
	case float32:
		return floatToValue(float64(i))
	case float64:
		return floatToValue(i)
	case string:
		return Str(i)
	case unistring.String:
		return valueString(i)
	case []interface{}:
		values := make([]Value, len(i))
		for idx, item := range i {
			values[idx] = r.ToValue(item)
		}
		return r.NewArray(values...)
	case []Value:
		return r.NewArray(i...)
	}
	return Str(fmt.Sprint(i))
}

func floatToValue(f float64) Value {
	if (f != 0 || !math.Signbit(f)) && f == math.Trunc(f) && f >= -maxInt && f <= maxInt {
		return valueInt(int64(f))
	}
	return valueFloat(f)
}

func isNumber(v Value) bool {
	switch v.(type) {
	case valueInt, valueFloat:
		return true
	}
	return false
}

// asInt32 reports whether v is a number exactly representable as an int32 slot.
// -0 is not, because the slot would lose its sign.
func asInt32(v Value) (int32, bool) {
	if i, ok := v.(valueInt); ok && i >= math.MinInt32 && i <= math.MaxInt32 {
		return int32(i), true
	}
	return 0, false
}

func sameValueZero(a, b Value) bool {
	if isNumber(a) && isNumber(b) {
		fa, fb := a.ToFloat(), b.ToFloat()
		if math.IsNaN(fa) {
			return math.IsNaN(fb)
		}
		return fa == fb
	}
	return a.StrictEquals(b)
}

func (i valueInt) ToInteger() int64 {
	return int64(i)
}

func (i valueInt) ToString() unistring.String {
	return unistring.String(i.String())
}

func (i valueInt) String() string {
	return strconv.FormatInt(int64(i), 10)
}

func (i valueInt) ToFloat() float64 {
	return float64(i)
}

func (i valueInt) ToBoolean() bool {
	return i != 0
}

func (i valueInt) ToNumber() Value {
	return i
}

func (i valueInt) SameAs(other Value) bool {
	return i == other
}

func (i valueInt) StrictEquals(other Value) bool {
	switch o := other.(type) {
	case valueInt:
		return i == o
	case valueFloat:
		return float64(i) == float64(o)
	}

	return false
}

func (i valueInt) Export() interface{} {
	return int64(i)
}

func (b valueBool) ToInteger() int64 {
	if b {
		return 1
	}
	return 0
}

func (b valueBool) ToString() unistring.String {
	return unistring.String(b.String())
}

func (b valueBool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b valueBool) ToFloat() float64 {
	if b {
		return 1.0
	}
	return 0
}

func (b valueBool) ToBoolean() bool {
	return bool(b)
}

func (b valueBool) ToNumber() Value {
	if b {
		return valueInt(1)
	}
	return valueInt(0)
}

func (b valueBool) SameAs(other Value) bool {
	if other, ok := other.(valueBool); ok {
		return b == other
	}
	return false
}

func (b valueBool) StrictEquals(other Value) bool {
	return b.SameAs(other)
}

func (b valueBool) Export() interface{} {
	return bool(b)
}

func (n valueNull) ToInteger() int64 {
	return 0
}

func (n valueNull) ToString() unistring.String {
	return "null"
}

func (n valueNull) String() string {
	return "null"
}

func (n valueNull) ToFloat() float64 {
	return 0
}

func (n valueNull) ToBoolean() bool {
	return false
}

func (n valueNull) ToNumber() Value {
	return _positiveZero
}

func (n valueNull) SameAs(other Value) bool {
	_, same := other.(valueNull)
	return same
}

func (n valueNull) StrictEquals(other Value) bool {
	_, same := other.(valueNull)
	return same
}

func (n valueNull) Export() interface{} {
	return nil
}

func (u valueUndefined) ToString() unistring.String {
	return "undefined"
}

func (u valueUndefined) String() string {
	return "undefined"
}

func (u valueUndefined) ToFloat() float64 {
	return math.NaN()
}

func (u valueUndefined) ToNumber() Value {
	return _NaN
}

func (u valueUndefined) SameAs(other Value) bool {
	_, same := other.(valueUndefined)
	return same
}

func (u valueUndefined) StrictEquals(other Value) bool {
	_, same := other.(valueUndefined)
	return same
}

func (f valueFloat) ToInteger() int64 {
	switch {
	case math.IsNaN(float64(f)):
		return 0
	case math.IsInf(float64(f), 1):
		return int64(math.MaxInt64)
	case math.IsInf(float64(f), -1):
		return int64(math.MinInt64)
	}
	return int64(f)
}

func (f valueFloat) ToString() unistring.String {
	return unistring.String(f.String())
}

func (f valueFloat) String() string {
	value := float64(f)
	if math.IsNaN(value) {
		return "NaN"
	} else if math.IsInf(value, 0) {
		if math.Signbit(value) {
			return "-Infinity"
		}
		return "Infinity"
	} else if value == 0 {
		return "0"
	}
	return string(ftoa.FToStr(value, ftoa.ModeStandard, 0, nil))
}

func (f valueFloat) ToFloat() float64 {
	return float64(f)
}

func (f valueFloat) ToBoolean() bool {
	return float64(f) != 0.0 && !math.IsNaN(float64(f))
}

func (f valueFloat) ToNumber() Value {
	return f
}

func (f valueFloat) SameAs(other Value) bool {
	switch o := other.(type) {
	case valueFloat:
		this := float64(f)
		o1 := float64(o)
		if math.IsNaN(this) && math.IsNaN(o1) {
			return true
		} else {
			ret := this == o1
			if ret && this == 0 {
				ret = math.Signbit(this) == math.Signbit(o1)
			}
			return ret
		}
	case valueInt:
		this := float64(f)
		ret := this == float64(o)
		if ret && this == 0 {
			ret = !math.Signbit(this)
		}
		return ret
	}

	return false
}

func (f valueFloat) StrictEquals(other Value) bool {
	switch o := other.(type) {
	case valueFloat:
		return f == o
	case valueInt:
		return float64(f) == float64(o)
	}

	return false
}

func (f valueFloat) Export() interface{} {
	return float64(f)
}

func (s valueString) ToInteger() int64 {
	return s.ToNumber().ToInteger()
}

func (s valueString) ToString() unistring.String {
	return unistring.String(s)
}

func (s valueString) String() string {
	return unistring.String(s).String()
}

func (s valueString) ToFloat() float64 {
	return s.ToNumber().ToFloat()
}

func (s valueString) ToBoolean() bool {
	return len(s) > 0
}

func (s valueString) ToNumber() Value {
	return stringToNumber(s.String())
}

func (s valueString) SameAs(other Value) bool {
	if o, ok := other.(valueString); ok {
		return s == o
	}
	return false
}

func (s valueString) StrictEquals(other Value) bool {
	return s.SameAs(other)
}

func (s valueString) Export() interface{} {
	return s.String()
}

func isJSSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0xA0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

// stringToNumber implements StringToNumber for decimal, hex, octal and binary literals.
func stringToNumber(s string) Value {
	s = strings.TrimFunc(s, isJSSpace)
	if s == "" {
		return _positiveZero
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			if i, err := strconv.ParseUint(s[2:], base, 64); err == nil {
				return floatToValue(float64(i))
			}
			return _NaN
		}
	}
	switch s {
	case "Infinity", "+Infinity":
		return _positiveInf
	case "-Infinity":
		return _negativeInf
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c == '.', c == 'e', c == 'E', c == '+', c == '-':
		default:
			return _NaN
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return floatToValue(f)
		}
		return _NaN
	}
	return floatToValue(f)
}

// toIntegerOrInfinity implements ToIntegerOrInfinity: NaN becomes 0, the value
// is truncated toward zero and infinities are kept.
func toIntegerOrInfinity(v Value) float64 {
	if i, ok := v.(valueInt); ok {
		return float64(i)
	}
	f := v.ToNumber().ToFloat()
	if math.IsNaN(f) {
		return 0
	}
	if math.IsInf(f, 0) {
		return f
	}
	return math.Trunc(f) + 0
}

// toLength implements ToLength.
func toLength(v Value) uint64 {
	f := toIntegerOrInfinity(v)
	if f <= 0 {
		return 0
	}
	if f >= MaxSafeInteger {
		return MaxSafeInteger
	}
	return uint64(f)
}
