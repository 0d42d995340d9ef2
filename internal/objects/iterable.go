package objects

import (
	"strings"

	"poise/internal/value"
)

// IterableObject is implemented by every container an Iterator or Unpack
// can walk: List, Tuple, Range, Dict, Set. KeyValueAt exists only so a
// two-variable for-loop over a Dict can bind both the key and the value;
// for any other iterable the second binding is left as none (see
// spec.md's open question on this).
type IterableObject interface {
	value.Object
	Len() int
	ElemAt(i int) value.Value
	KeyValueAt(i int) (value.Value, value.Value, bool)
	RegisterIterator(it *Iterator)
	DeregisterIterator(it *Iterator)
}

// Iterable is the embeddable base for List and Tuple: an owned vector of
// Values plus the live-iterator bookkeeping that mutating operations must
// invalidate.
type Iterable struct {
	value.Header
	Values    []value.Value
	iterators []*Iterator
}

func (it *Iterable) Len() int { return len(it.Values) }

func (it *Iterable) ElemAt(i int) value.Value { return it.Values[i] }

func (it *Iterable) KeyValueAt(i int) (value.Value, value.Value, bool) {
	return it.Values[i], value.None(), false
}

func (it *Iterable) RegisterIterator(iter *Iterator) {
	it.iterators = append(it.iterators, iter)
}

func (it *Iterable) DeregisterIterator(iter *Iterator) {
	for i, v := range it.iterators {
		if v == iter {
			it.iterators = append(it.iterators[:i], it.iterators[i+1:]...)
			return
		}
	}
}

// invalidateIterators is called by every mutating Iterable operation
// (append, insert, remove, clear) before it touches Values.
func (it *Iterable) invalidateIterators() {
	for _, iter := range it.iterators {
		iter.invalidate()
	}
	it.iterators = it.iterators[:0]
}

func (it *Iterable) FindObjectMembers(out *[]value.Value) {
	*out = append(*out, it.Values...)
}

func (it *Iterable) RemoveObjectMembers() {
	for i := range it.Values {
		it.Values[i].Release()
	}
	it.Values = nil
}

func (it *Iterable) AnyMemberMatchesRecursive(target value.Object) bool {
	for _, v := range it.Values {
		if o := v.Object(); o != nil {
			if o == target || o.AnyMemberMatchesRecursive(target) {
				return true
			}
		}
	}
	return false
}

// stringifyStack supports Value.String()'s cycle guard: a container that is
// already in the process of being stringified (i.e. is its own, possibly
// indirect, member) renders as the literal "..." instead of recursing
// forever. The VM is single-threaded so a package-level stack is safe.
var stringifyStack []value.Object

func stringifyValue(v value.Value) string {
	if v.Tag() == value.TagObject && v.Object() != nil {
		o := v.Object()
		for _, seen := range stringifyStack {
			if seen == o {
				return "..."
			}
		}
	}
	return v.String()
}

func withStringifyGuard(self value.Object, body func() string) string {
	stringifyStack = append(stringifyStack, self)
	defer func() { stringifyStack = stringifyStack[:len(stringifyStack)-1] }()
	return body()
}

func joinStringified(values []value.Value, open, sep, close string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if v.Tag() == value.TagString {
			parts[i] = "\"" + v.Str() + "\""
		} else {
			parts[i] = stringifyValue(v)
		}
	}
	return open + strings.Join(parts, sep) + close
}
