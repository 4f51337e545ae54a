package jsarray

import (
	"math"
	"sort"

	"github.com/dop251/jsarray/unistring"
)

const (
	classObject   = "Object"
	classArray    = "Array"
	classFunction = "Function"
)

// Object is the generic property protocol consumed by the engine. Every
// operation that cannot take a representation-specific fast path goes through
// it.
type Object interface {
	Value

	// HasIndex reports whether the property is present on the object or its prototype chain.
	HasIndex(idx uint64) (bool, error)
	// GetIndex returns nil if the property is not present.
	GetIndex(idx uint64) (Value, error)
	// PutIndex stores a value. When the store is rejected it returns false, or a
	// TypeError when throw is set.
	PutIndex(idx uint64, v Value, throw bool) (bool, error)
	// DeleteIndex removes an own property. Non-configurable properties are not
	// removed: false is returned, or a TypeError when throw is set.
	DeleteIndex(idx uint64, throw bool) (bool, error)
	GetLength() (uint64, error)
	SetLength(length uint64) error
	IsArray() bool
	ClassName() string
}

// concatSpreadable is implemented by objects that may override the
// IsConcatSpreadable decision.
type concatSpreadable interface {
	isConcatSpreadable() (spreadable, overridden bool)
}

type Flag int

const (
	FLAG_NOT_SET Flag = iota
	FLAG_FALSE
	FLAG_TRUE
)

func (f Flag) Bool() bool {
	return f == FLAG_TRUE
}

func ToFlag(b bool) Flag {
	if b {
		return FLAG_TRUE
	}
	return FLAG_FALSE
}

// PropertyDescriptor describes an indexed data or accessor property.
// Unset flags default to false, as in Object.defineProperty.
type PropertyDescriptor struct {
	Value Value

	Writable, Configurable, Enumerable Flag

	Getter, Setter *Function
}

type propFlags uint8

const (
	propWritable propFlags = 1 << iota
	propEnumerable
	propConfigurable

	propDefault = propWritable | propEnumerable | propConfigurable
)

func (d PropertyDescriptor) flags() propFlags {
	var f propFlags
	if d.Writable.Bool() {
		f |= propWritable
	}
	if d.Enumerable.Bool() {
		f |= propEnumerable
	}
	if d.Configurable.Bool() {
		f |= propConfigurable
	}
	return f
}

type valueProperty struct {
	value  Value
	flags  propFlags
	getter *Function
	setter *Function
}

func (p *valueProperty) accessor() bool {
	return p.getter != nil || p.setter != nil
}

func (p *valueProperty) get(this Value) (Value, error) {
	if p.accessor() {
		if p.getter == nil {
			return _undefined, nil
		}
		return p.getter.Call(this)
	}
	return p.value, nil
}

// ArrayLike is an ordinary object with indexed properties and a "length"
// property. Unlike Array, writing its length never removes elements and the
// length may reach 2^53-1.
type ArrayLike struct {
	r      *Runtime
	props  map[uint64]*valueProperty
	length Value

	lengthReadOnly bool
	spreadable     Flag
	proto          Object
}

// NewArrayLike returns an empty array-like object with length 0.
func (r *Runtime) NewArrayLike() *ArrayLike {
	return &ArrayLike{
		r:      r,
		props:  make(map[uint64]*valueProperty),
		length: _positiveZero,
	}
}

// SetPrototype sets the object the array-like reads absent properties from.
func (o *ArrayLike) SetPrototype(proto Object) {
	o.proto = proto
}

func (o *ArrayLike) Prototype() Object {
	return o.proto
}

// SetConcatSpreadable overrides the IsConcatSpreadable decision for this object.
func (o *ArrayLike) SetConcatSpreadable(spreadable bool) {
	o.spreadable = ToFlag(spreadable)
}

func (o *ArrayLike) isConcatSpreadable() (bool, bool) {
	return o.spreadable.Bool(), o.spreadable != FLAG_NOT_SET
}

// SetLengthValue stores an arbitrary value as the "length" property, it is converted with ToLength on reads.
func (o *ArrayLike) SetLengthValue(v Value) {
	o.length = v
}

// FreezeLength makes the "length" property read-only.
func (o *ArrayLike) FreezeLength() {
	o.lengthReadOnly = true
}

// DefineIndex defines an own property.
func (o *ArrayLike) DefineIndex(idx uint64, desc PropertyDescriptor) {
	p := &valueProperty{value: desc.Value, flags: desc.flags(), getter: desc.Getter, setter: desc.Setter}
	if p.value == nil && !p.accessor() {
		p.value = _undefined
	}
	o.props[idx] = p
}

// Set stores a value with default attributes.
func (o *ArrayLike) Set(idx uint64, v Value) {
	o.props[idx] = &valueProperty{value: v, flags: propDefault}
}

func (o *ArrayLike) HasIndex(idx uint64) (bool, error) {
	if _, exists := o.props[idx]; exists {
		return true, nil
	}
	if o.proto != nil {
		return o.proto.HasIndex(idx)
	}
	return false, nil
}

func (o *ArrayLike) GetIndex(idx uint64) (Value, error) {
	if p, exists := o.props[idx]; exists {
		return p.get(o)
	}
	if o.proto != nil {
		return o.proto.GetIndex(idx)
	}
	return nil, nil
}

func (o *ArrayLike) PutIndex(idx uint64, v Value, throw bool) (bool, error) {
	if p, exists := o.props[idx]; exists {
		if p.accessor() {
			if p.setter == nil {
				return o.reject(throw, msgReadOnlyProperty)
			}
			if _, err := p.setter.Call(o, v); err != nil {
				return false, err
			}
			return true, nil
		}
		if p.flags&propWritable == 0 {
			return o.reject(throw, msgReadOnlyProperty)
		}
		p.value = v
		return true, nil
	}
	o.props[idx] = &valueProperty{value: v, flags: propDefault}
	return true, nil
}

func (o *ArrayLike) reject(throw bool, msg string) (bool, error) {
	if throw {
		return false, typeError(msg)
	}
	return false, nil
}

func (o *ArrayLike) DeleteIndex(idx uint64, throw bool) (bool, error) {
	if p, exists := o.props[idx]; exists {
		if p.flags&propConfigurable == 0 {
			return o.reject(throw, msgUnableToDeleteProperty)
		}
		delete(o.props, idx)
	}
	return true, nil
}

func (o *ArrayLike) GetLength() (uint64, error) {
	return toLength(o.length), nil
}

func (o *ArrayLike) SetLength(length uint64) error {
	if o.lengthReadOnly {
		if toLength(o.length) == length {
			return nil
		}
		return typeError(msgReadOnlyProperty)
	}
	o.length = floatToValue(float64(length))
	return nil
}

func (o *ArrayLike) IsArray() bool {
	return false
}

func (o *ArrayLike) ClassName() string {
	return classObject
}

// Keys returns the own indices in ascending order.
func (o *ArrayLike) Keys() []uint64 {
	keys := make([]uint64, 0, len(o.props))
	for k := range o.props {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (o *ArrayLike) hasIndexedProperties() bool {
	if len(o.props) > 0 {
		return true
	}
	return protoHasIndexed(o.proto)
}

func (o *ArrayLike) ToInteger() int64 {
	return 0
}

func (o *ArrayLike) ToString() unistring.String {
	return "[object Object]"
}

func (o *ArrayLike) String() string {
	return "[object Object]"
}

func (o *ArrayLike) ToFloat() float64 {
	return math.NaN()
}

func (o *ArrayLike) ToNumber() Value {
	return _NaN
}

func (o *ArrayLike) ToBoolean() bool {
	return true
}

func (o *ArrayLike) SameAs(other Value) bool {
	return other == Value(o)
}

func (o *ArrayLike) StrictEquals(other Value) bool {
	return other == Value(o)
}

// Export returns a map of own data properties keyed by index plus "length".
func (o *ArrayLike) Export() interface{} {
	m := make(map[string]interface{}, len(o.props)+1)
	for k, p := range o.props {
		if !p.accessor() {
			m[valueInt(int64(k)).String()] = exportValue(p.value)
		}
	}
	m["length"] = exportValue(o.length)
	return m
}

// Function is a callable value backed by a Go function.
type Function struct {
	name string
	call func(this Value, args ...Value) (Value, error)
}

// NewFunction wraps fn as a callable value.
func NewFunction(name string, fn func(this Value, args ...Value) (Value, error)) *Function {
	return &Function{name: name, call: fn}
}

func (f *Function) Call(this Value, args ...Value) (Value, error) {
	v, err := f.call(this, args...)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return _undefined, nil
	}
	return v, nil
}

func (f *Function) Name() string {
	return f.name
}

func (f *Function) ToInteger() int64 {
	return 0
}

func (f *Function) ToString() unistring.String {
	return unistring.NewFromString(f.String())
}

func (f *Function) String() string {
	return "function " + f.name + "() { [native code] }"
}

func (f *Function) ToFloat() float64 {
	return math.NaN()
}

func (f *Function) ToNumber() Value {
	return _NaN
}

func (f *Function) ToBoolean() bool {
	return true
}

func (f *Function) SameAs(other Value) bool {
	return other == Value(f)
}

func (f *Function) StrictEquals(other Value) bool {
	return other == Value(f)
}

func (f *Function) Export() interface{} {
	return f.call
}

func isCallable(v Value) (*Function, bool) {
	f, ok := v.(*Function)
	return f, ok
}

func exportValue(v Value) interface{} {
	if v == nil {
		return nil
	}
	return v.Export()
}

// protoHasIndexed reports whether reading a hole may observe a value through the prototype chain.
func protoHasIndexed(proto Object) bool {
	switch p := proto.(type) {
	case nil:
		return false
	case *ArrayLike:
		return p.hasIndexedProperties()
	case *Array:
		return p.hasIndexedProperties()
	}
	return true
}
