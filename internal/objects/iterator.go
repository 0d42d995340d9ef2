package objects

import (
	"poise/internal/value"
)

// Iterator walks an IterableObject by position. It registers with its
// source on construction and deregisters on PopIterator; any mutation to
// the source in between calls invalidate() on every live iterator over it,
// so a held Iterator either sees a stable snapshot of positions or reports
// itself invalid rather than reading stale data.
type Iterator struct {
	value.Header
	source IterableObject
	index  int
	valid  bool
}

// NewIterator constructs a tracked Iterator over source starting at
// position 0, registering itself with source.
func NewIterator(source IterableObject) *Iterator {
	it := &Iterator{source: source, valid: true}
	it.SetTracked(true)
	source.RegisterIterator(it)
	return it
}

func (it *Iterator) ObjectType() value.ObjectType { return value.ObjIterator }

func (it *Iterator) String() string { return "<iterator>" }

func (it *Iterator) FindObjectMembers(out *[]value.Value) {
	if it.source != nil {
		*out = append(*out, value.FromObject(it.source))
	}
}

func (it *Iterator) RemoveObjectMembers() {
	it.source = nil
}

func (it *Iterator) AnyMemberMatchesRecursive(target value.Object) bool {
	return it.source == target
}

// invalidate is called by the source container on any structural mutation.
func (it *Iterator) invalidate() {
	it.valid = false
}

// Close deregisters the iterator from its source; the VM calls this on
// PopIterator (loop exit, whether normal or via break/return/throw).
func (it *Iterator) Close() {
	if it.source != nil && it.valid {
		it.source.DeregisterIterator(it)
	}
}

// Valid reports whether the iterator's source is still unmutated since the
// iterator was constructed; once invalidated it stays invalid. A loop must
// check this (not
// just IsAtEnd) before treating exhaustion as normal termination, since
// IsAtEnd also reports true once invalidated.
func (it *Iterator) Valid() bool { return it.valid }

// IsAtEnd reports whether the iterator has exhausted its source.
func (it *Iterator) IsAtEnd() bool {
	if !it.valid {
		return true
	}
	return it.index >= it.source.Len()
}

// Advance moves the iterator to the next position.
func (it *Iterator) Advance() {
	it.index++
}

// Value returns the element at the current position, throwing
// InvalidIterator if the source was mutated since this iterator was
// created, and IteratorOutOfBounds if already exhausted.
func (it *Iterator) Value() (value.Value, *Exception) {
	if !it.valid {
		return value.None(), NewException(ExcInvalidIterator, "iterator invalidated by a mutation to its source")
	}
	if it.index >= it.source.Len() {
		return value.None(), NewException(ExcIteratorOutOfBounds, "iterator is at the end of its source")
	}
	return it.source.ElemAt(it.index), nil
}

// KeyValue returns the (key, value) pair at the current position for a Dict
// source, or (element, none, false) for any other source kind.
func (it *Iterator) KeyValue() (value.Value, value.Value, bool, *Exception) {
	if !it.valid {
		return value.None(), value.None(), false, NewException(ExcInvalidIterator, "iterator invalidated by a mutation to its source")
	}
	if it.index >= it.source.Len() {
		return value.None(), value.None(), false, NewException(ExcIteratorOutOfBounds, "iterator is at the end of its source")
	}
	k, v, isPair := it.source.KeyValueAt(it.index)
	return k, v, isPair, nil
}

// AsIterator downcasts, returning ok=false if obj is nil or not an Iterator.
func AsIterator(obj value.Object) (*Iterator, bool) {
	if obj == nil {
		return nil, false
	}
	i, ok := obj.(*Iterator)
	return i, ok
}
