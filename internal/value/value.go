// Package value defines the tagged Value union that flows through the
// compiler and VM, and the narrow Object contract that heap objects (lists,
// dicts, functions, exceptions, ...) implement. Concrete object types live
// in package objects, one level up; this package only knows the shape every
// object shares so that Value can hold one without creating an import
// cycle.
package value

import (
	"strconv"
)

// Tag discriminates the union held by a Value.
type Tag int

const (
	TagNone Tag = iota
	TagBool
	TagInt
	TagFloat
	TagString
	TagObject
)

func (t Tag) String() string {
	switch t {
	case TagNone:
		return "None"
	case TagBool:
		return "Bool"
	case TagInt:
		return "Int"
	case TagFloat:
		return "Float"
	case TagString:
		return "String"
	case TagObject:
		return "Object"
	default:
		return "Unknown"
	}
}

// ObjectType names which concrete object kind a heap object is, for dispatch
// that doesn't want to pay for a Go type switch (and for Type's DisplayName
// lookups).
type ObjectType int

const (
	ObjFunction ObjectType = iota
	ObjException
	ObjType
	ObjList
	ObjRange
	ObjTuple
	ObjDict
	ObjSet
	ObjIterator
	ObjStruct
)

func (o ObjectType) String() string {
	switch o {
	case ObjFunction:
		return "Function"
	case ObjException:
		return "Exception"
	case ObjType:
		return "Type"
	case ObjList:
		return "List"
	case ObjRange:
		return "Range"
	case ObjTuple:
		return "Tuple"
	case ObjDict:
		return "Dict"
	case ObjSet:
		return "Set"
	case ObjIterator:
		return "Iterator"
	case ObjStruct:
		return "Struct"
	default:
		return "Unknown"
	}
}

// TypeTag is the runtime-type tag carried by a Type reflection object and by
// LoadType/ConstructBuiltin operands. It covers every type nameable from
// Poise source, not just the heap-object kinds in ObjectType.
type TypeTag int

const (
	TypeBool TypeTag = iota
	TypeFloat
	TypeInt
	TypeNone
	TypeString
	TypeException
	TypeFunction
	TypeList
	TypeRange
	TypeTuple
	TypeDict
	TypeSet
)

func (t TypeTag) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeFloat:
		return "Float"
	case TypeInt:
		return "Int"
	case TypeNone:
		return "None"
	case TypeString:
		return "String"
	case TypeException:
		return "Exception"
	case TypeFunction:
		return "Function"
	case TypeList:
		return "List"
	case TypeRange:
		return "Range"
	case TypeTuple:
		return "Tuple"
	case TypeDict:
		return "Dict"
	case TypeSet:
		return "Set"
	default:
		return "Unknown"
	}
}

// Header is embedded by every concrete heap object. It holds the reference
// count and the flag distinguishing compile-time (untracked, constant-table
// resident) functions from runtime-tracked objects that the VM must visit
// when breaking cycles at shutdown.
type Header struct {
	refCount int
	tracked  bool
}

// ObjectHeader returns h itself, so a struct that embeds Header by value
// (every concrete object does) satisfies Object's ObjectHeader() method
// through ordinary promotion without repeating this accessor on every type.
func (h *Header) ObjectHeader() *Header { return h }

// Retain increments the reference count. Called whenever a Value copy is
// made that shares this object.
func (h *Header) Retain() { h.refCount++ }

// Release decrements the reference count and returns the count afterwards.
func (h *Header) Release() int {
	h.refCount--
	return h.refCount
}

// RefCount returns the current reference count.
func (h *Header) RefCount() int { return h.refCount }

// SetTracked marks whether the owning object is registered with the VM's
// tracked-object set (true for runtime-created lambdas, structs, containers
// and the like; false for compiler-emitted function constants).
func (h *Header) SetTracked(t bool) { h.tracked = t }

// Tracked reports whether SetTracked(true) has been called.
func (h *Header) Tracked() bool { return h.tracked }

// Object is the common contract every heap object satisfies: a type tag, a
// display form, and the three hooks the VM's shutdown sweep uses to find and
// sever strong references before objects are finally collected.
type Object interface {
	ObjectHeader() *Header
	ObjectType() ObjectType
	String() string
	FindObjectMembers(out *[]Value)
	RemoveObjectMembers()
	AnyMemberMatchesRecursive(target Object) bool
}

// Value is the tagged union that every Poise expression evaluates to.
// Copying a Value that holds an Object increments that object's reference
// count; Release must be called exactly once for every copy made, including
// the original, when the value is no longer needed.
type Value struct {
	tag Tag
	b   bool
	i   int64
	f   float64
	s   string
	obj Object
}

// None constructs the none value.
func None() Value { return Value{tag: TagNone} }

// Bool constructs a boolean value.
func Bool(b bool) Value { return Value{tag: TagBool, b: b} }

// Int constructs a 64-bit integer value.
func Int(i int64) Value { return Value{tag: TagInt, i: i} }

// Float constructs a 64-bit floating point value.
func Float(f float64) Value { return Value{tag: TagFloat, f: f} }

// String constructs a string value. Strings are an owned primitive, not a
// heap Object.
func String(s string) Value { return Value{tag: TagString, s: s} }

// FromObject wraps an Object in a Value, retaining it on the object's
// behalf. Passing nil yields none.
func FromObject(o Object) Value {
	if o == nil {
		return None()
	}
	o.ObjectHeader().Retain()
	return Value{tag: TagObject, obj: o}
}

func (v Value) Tag() Tag       { return v.tag }
func (v Value) IsNone() bool   { return v.tag == TagNone }
func (v Value) Bool() bool     { return v.b }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Str() string    { return v.s }
func (v Value) Object() Object { return v.obj }

// IsNumeric reports whether the value is an Int or a Float.
func (v Value) IsNumeric() bool { return v.tag == TagInt || v.tag == TagFloat }

// AsFloat64 returns the value as a float64, promoting Int. Only valid when
// IsNumeric() is true.
func (v Value) AsFloat64() float64 {
	if v.tag == TagInt {
		return float64(v.i)
	}
	return v.f
}

// Clone returns a copy of v, retaining the underlying object if any. Every
// Clone must be balanced by a Release.
func (v Value) Clone() Value {
	if v.tag == TagObject && v.obj != nil {
		v.obj.ObjectHeader().Retain()
	}
	return v
}

// Release drops v's claim on its underlying object, if any. It does not
// free the object itself (that is the VM shutdown sweep's job) — it only
// balances the reference count so the testable "clone then drop" invariant
// holds.
func (v Value) Release() {
	if v.tag == TagObject && v.obj != nil {
		v.obj.ObjectHeader().Release()
	}
}

// ToBool implements the truthiness used by JumpIfFalse/JumpIfTrue and the
// unary ! operator: none and false are falsy, zero numbers and empty
// strings are falsy, everything else (including every heap object) is
// truthy.
func (v Value) ToBool() bool {
	switch v.tag {
	case TagNone:
		return false
	case TagBool:
		return v.b
	case TagInt:
		return v.i != 0
	case TagFloat:
		return v.f != 0
	case TagString:
		return len(v.s) != 0
	case TagObject:
		return v.obj != nil
	default:
		return false
	}
}

// String renders v the way println/string interpolation would. Heap objects
// delegate to their own String(); the recursion-guard that turns a
// self-referential List/Tuple/Dict/Set into a literal "..." lives in
// package objects since only it knows which objects are containers.
func (v Value) String() string {
	switch v.tag {
	case TagNone:
		return "none"
	case TagBool:
		if v.b {
			return "true"
		}
		return "false"
	case TagInt:
		return strconv.FormatInt(v.i, 10)
	case TagFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TagString:
		return v.s
	case TagObject:
		if v.obj == nil {
			return "none"
		}
		return v.obj.String()
	default:
		return ""
	}
}
