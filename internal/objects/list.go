package objects

import (
	"poise/internal/value"
)

// List is a mutable, ordered, reference-counted container. It is the only
// Iterable with in-place append/insert/remove/clear.
type List struct {
	Iterable
}

// NewList constructs a tracked List owning values (which it takes ownership
// of — callers should not Release them separately).
func NewList(values []value.Value) *List {
	l := &List{Iterable{Values: values}}
	l.SetTracked(true)
	return l
}

func (l *List) ObjectType() value.ObjectType { return value.ObjList }

func (l *List) String() string {
	return withStringifyGuard(l, func() string {
		return joinStringified(l.Values, "[", ", ", "]")
	})
}

// At returns the element at index i, throwing IndexOutOfBounds for an
// out-of-range index (including negative, which Poise does not wrap).
func (l *List) At(i int) (value.Value, *Exception) {
	if i < 0 || i >= len(l.Values) {
		return value.None(), NewException(ExcIndexOutOfBounds, "index out of bounds")
	}
	return l.Values[i], nil
}

// SetAt overwrites index i, releasing the value it displaces.
func (l *List) SetAt(i int, v value.Value) *Exception {
	if i < 0 || i >= len(l.Values) {
		return NewException(ExcIndexOutOfBounds, "index out of bounds")
	}
	l.Values[i].Release()
	l.Values[i] = v
	return nil
}

// Append adds v to the end, invalidating every live iterator over l.
func (l *List) Append(v value.Value) {
	l.invalidateIterators()
	l.Values = append(l.Values, v)
}

// Insert places v at index i, shifting subsequent elements right.
func (l *List) Insert(i int, v value.Value) *Exception {
	if i < 0 || i > len(l.Values) {
		return NewException(ExcIndexOutOfBounds, "index out of bounds")
	}
	l.invalidateIterators()
	l.Values = append(l.Values, value.None())
	copy(l.Values[i+1:], l.Values[i:])
	l.Values[i] = v
	return nil
}

// Remove deletes the element at index i.
func (l *List) Remove(i int) *Exception {
	if i < 0 || i >= len(l.Values) {
		return NewException(ExcIndexOutOfBounds, "index out of bounds")
	}
	l.invalidateIterators()
	l.Values[i].Release()
	l.Values = append(l.Values[:i], l.Values[i+1:]...)
	return nil
}

// Clear empties the list.
func (l *List) Clear() {
	l.invalidateIterators()
	for i := range l.Values {
		l.Values[i].Release()
	}
	l.Values = l.Values[:0]
}

// Concat returns a new List containing l's elements followed by other's.
func (l *List) Concat(other *List) *List {
	combined := make([]value.Value, 0, len(l.Values)+len(other.Values))
	for _, v := range l.Values {
		combined = append(combined, v.Clone())
	}
	for _, v := range other.Values {
		combined = append(combined, v.Clone())
	}
	return NewList(combined)
}

// Repeat returns a new List containing l's elements repeated n times.
func (l *List) Repeat(n int64) *List {
	if n <= 0 {
		return NewList(nil)
	}
	combined := make([]value.Value, 0, len(l.Values)*int(n))
	for i := int64(0); i < n; i++ {
		for _, v := range l.Values {
			combined = append(combined, v.Clone())
		}
	}
	return NewList(combined)
}

// AsList downcasts, returning ok=false if obj is nil or not a List.
func AsList(obj value.Object) (*List, bool) {
	if obj == nil {
		return nil, false
	}
	l, ok := obj.(*List)
	return l, ok
}
