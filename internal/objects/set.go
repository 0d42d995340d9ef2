package objects

import (
	"poise/internal/value"
)

// Set is a Hashable storing members directly (not key-value pairs), so it
// reuses Hashable's find/insert/replace/remove/contains as-is.
type Set struct {
	Hashable
}

// NewSet constructs a tracked, empty Set.
func NewSet() *Set {
	s := &Set{newHashable()}
	s.SetTracked(true)
	return s
}

// NewSetFrom constructs a tracked Set seeded with values, discarding
// duplicates per Set semantics.
func NewSetFrom(values []value.Value) *Set {
	s := NewSet()
	for _, v := range values {
		s.TryInsert(v)
	}
	return s
}

func (s *Set) ObjectType() value.ObjectType { return value.ObjSet }

func (s *Set) String() string {
	return withStringifyGuard(s, func() string {
		return joinStringified(s.occupiedValues(), "{", ", ", "}")
	})
}

func (s *Set) FindObjectMembers(out *[]value.Value) {
	*out = append(*out, s.occupiedValues()...)
}

func (s *Set) RemoveObjectMembers() {
	for _, v := range s.occupiedValues() {
		v.Release()
	}
	s.cells = nil
	s.states = nil
	s.size = 0
}

func (s *Set) AnyMemberMatchesRecursive(target value.Object) bool {
	for _, v := range s.occupiedValues() {
		if o := v.Object(); o != nil {
			if o == target || o.AnyMemberMatchesRecursive(target) {
				return true
			}
		}
	}
	return false
}

func (s *Set) ElemAt(i int) value.Value {
	return s.occupiedValues()[i]
}

func (s *Set) KeyValueAt(i int) (value.Value, value.Value, bool) {
	return s.occupiedValues()[i], value.None(), false
}

// Contains reports whether v is a member.
func (s *Set) Contains(v value.Value) bool {
	return s.contains(v)
}

// TryInsert adds v if not already a member, returning whether it inserted.
func (s *Set) TryInsert(v value.Value) bool {
	if s.insert(v.Clone()) {
		s.invalidateIterators()
		return true
	}
	return false
}

// Remove deletes v if present, returning whether it was.
func (s *Set) Remove(v value.Value) bool {
	old, found := s.remove(v)
	if !found {
		return false
	}
	old.Release()
	s.invalidateIterators()
	return true
}

// Subset reports whether every member of s is also a member of other.
func (s *Set) Subset(other *Set) bool {
	for _, v := range s.occupiedValues() {
		if !other.Contains(v) {
			return false
		}
	}
	return true
}

// Superset reports whether s contains every member of other.
func (s *Set) Superset(other *Set) bool {
	return other.Subset(s)
}

// Union returns a new Set containing every member of s or other.
func (s *Set) Union(other *Set) *Set {
	result := NewSet()
	for _, v := range s.occupiedValues() {
		result.TryInsert(v)
	}
	for _, v := range other.occupiedValues() {
		result.TryInsert(v)
	}
	return result
}

// Intersection returns a new Set of members present in both s and other.
func (s *Set) Intersection(other *Set) *Set {
	result := NewSet()
	for _, v := range s.occupiedValues() {
		if other.Contains(v) {
			result.TryInsert(v)
		}
	}
	return result
}

// Difference returns a new Set of s's members that are not in other.
func (s *Set) Difference(other *Set) *Set {
	result := NewSet()
	for _, v := range s.occupiedValues() {
		if !other.Contains(v) {
			result.TryInsert(v)
		}
	}
	return result
}

// SymmetricDifference returns a new Set of members in exactly one of s, other.
func (s *Set) SymmetricDifference(other *Set) *Set {
	result := NewSet()
	for _, v := range s.occupiedValues() {
		if !other.Contains(v) {
			result.TryInsert(v)
		}
	}
	for _, v := range other.occupiedValues() {
		if !s.Contains(v) {
			result.TryInsert(v)
		}
	}
	return result
}

// AsSet downcasts, returning ok=false if obj is nil or not a Set.
func AsSet(obj value.Object) (*Set, bool) {
	if obj == nil {
		return nil, false
	}
	s, ok := obj.(*Set)
	return s, ok
}
