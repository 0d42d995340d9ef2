package objects

import (
	"poise/internal/value"
)

// Tuple is an immutable, ordered container: a List without the mutators.
// Dict keys and values are stored as (key, value) Tuples.
type Tuple struct {
	Iterable
}

// NewTuple constructs a tracked Tuple owning values.
func NewTuple(values []value.Value) *Tuple {
	t := &Tuple{Iterable{Values: values}}
	t.SetTracked(true)
	return t
}

func (t *Tuple) ObjectType() value.ObjectType { return value.ObjTuple }

func (t *Tuple) String() string {
	return withStringifyGuard(t, func() string {
		if len(t.Values) == 1 {
			return joinStringified(t.Values, "(", ", ", ",)")
		}
		return joinStringified(t.Values, "(", ", ", ")")
	})
}

// At returns the element at index i.
func (t *Tuple) At(i int) (value.Value, *Exception) {
	if i < 0 || i >= len(t.Values) {
		return value.None(), NewException(ExcIndexOutOfBounds, "index out of bounds")
	}
	return t.Values[i], nil
}

// Concat returns a new Tuple of t's elements followed by other's.
func (t *Tuple) Concat(other *Tuple) *Tuple {
	combined := make([]value.Value, 0, len(t.Values)+len(other.Values))
	for _, v := range t.Values {
		combined = append(combined, v.Clone())
	}
	for _, v := range other.Values {
		combined = append(combined, v.Clone())
	}
	return NewTuple(combined)
}

// Repeat returns a new Tuple of t's elements repeated n times.
func (t *Tuple) Repeat(n int64) *Tuple {
	if n <= 0 {
		return NewTuple(nil)
	}
	combined := make([]value.Value, 0, len(t.Values)*int(n))
	for i := int64(0); i < n; i++ {
		for _, v := range t.Values {
			combined = append(combined, v.Clone())
		}
	}
	return NewTuple(combined)
}

// AsTuple downcasts, returning ok=false if obj is nil or not a Tuple.
func AsTuple(obj value.Object) (*Tuple, bool) {
	if obj == nil {
		return nil, false
	}
	t, ok := obj.(*Tuple)
	return t, ok
}
