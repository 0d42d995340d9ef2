package objects

import (
	"fmt"

	"poise/internal/value"
)

// ExceptionKind enumerates the fixed set of fault categories the VM and its
// operators can raise. "Exception" itself is the generic kind used when
// source throws a bare, non-Exception value.
type ExceptionKind int

const (
	ExcException ExceptionKind = iota
	ExcAmbiguousCall
	ExcArgumentOutOfRange
	ExcAssertionFailed
	ExcDivisionByZero
	ExcFunctionNotFound
	ExcIncorrectArgCount
	ExcIndexOutOfBounds
	ExcInvalidArgument
	ExcInvalidCast
	ExcInvalidIterator
	ExcInvalidOperand
	ExcInvalidType
	ExcIteratorOutOfBounds
	ExcKeyNotFound
	ExcTypeNotExported
	ExcTypeNotFound
)

func (k ExceptionKind) String() string {
	switch k {
	case ExcException:
		return "Exception"
	case ExcAmbiguousCall:
		return "AmbiguousCall"
	case ExcArgumentOutOfRange:
		return "ArgumentOutOfRange"
	case ExcAssertionFailed:
		return "AssertionFailed"
	case ExcDivisionByZero:
		return "DivisionByZero"
	case ExcFunctionNotFound:
		return "FunctionNotFound"
	case ExcIncorrectArgCount:
		return "IncorrectArgCount"
	case ExcIndexOutOfBounds:
		return "IndexOutOfBounds"
	case ExcInvalidArgument:
		return "InvalidArgument"
	case ExcInvalidCast:
		return "InvalidCast"
	case ExcInvalidIterator:
		return "InvalidIterator"
	case ExcInvalidOperand:
		return "InvalidOperand"
	case ExcInvalidType:
		return "InvalidType"
	case ExcIteratorOutOfBounds:
		return "IteratorOutOfBounds"
	case ExcKeyNotFound:
		return "KeyNotFound"
	case ExcTypeNotExported:
		return "TypeNotExported"
	case ExcTypeNotFound:
		return "TypeNotFound"
	default:
		return "Exception"
	}
}

// Exception is the object thrown by `throw`, by a failed `assert`, and by
// any runtime operator that cannot produce a result.
type Exception struct {
	value.Header
	Kind    ExceptionKind
	Message string
}

// NewException constructs a new, tracked Exception object.
func NewException(kind ExceptionKind, message string) *Exception {
	e := &Exception{Kind: kind, Message: message}
	e.SetTracked(true)
	return e
}

// NewExceptionValue is a convenience that wraps NewException directly in a
// Value, matching how operator implementations want to return faults.
func NewExceptionValue(kind ExceptionKind, message string) value.Value {
	return value.FromObject(NewException(kind, message))
}

func (e *Exception) ObjectType() value.ObjectType { return value.ObjException }

func (e *Exception) String() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Exception) FindObjectMembers(*[]value.Value)            {}
func (e *Exception) RemoveObjectMembers()                        {}
func (e *Exception) AnyMemberMatchesRecursive(value.Object) bool { return false }

// AsException downcasts, returning ok=false if obj is nil or not an
// Exception.
func AsException(obj value.Object) (*Exception, bool) {
	if obj == nil {
		return nil, false
	}
	e, ok := obj.(*Exception)
	return e, ok
}
