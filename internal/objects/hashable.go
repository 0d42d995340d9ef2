package objects

import (
	"math"

	"poise/internal/value"
)

type cellState byte

const (
	cellNeverUsed cellState = iota
	cellOccupied
	cellTombstone
)

const (
	hashableInitialCapacity = 8
	hashableGrowFactor      = 2
	hashableLoadThreshold   = 0.75
)

// Hashable is the embeddable base for Dict and Set: open-addressed hashing
// (linear probing) over a value vector with a parallel cell-state vector.
// Cell-state and value arrays always have equal length, equal to capacity;
// size never exceeds floor(capacity * 0.75) after an insertion triggers a
// rehash, and a rehash always exactly doubles capacity.
type Hashable struct {
	value.Header
	cells     []value.Value
	states    []cellState
	size      int
	iterators []*Iterator
}

func newHashable() Hashable {
	return Hashable{
		cells:  make([]value.Value, hashableInitialCapacity),
		states: make([]cellState, hashableInitialCapacity),
	}
}

func (h *Hashable) capacity() int { return len(h.cells) }

// Size returns the number of occupied cells.
func (h *Hashable) Size() int { return h.size }

// hashValue hashes the values Poise permits as Dict keys / Set members:
// the primitives, plus Tuples of hashable values (needed since Dict entries
// are stored as (key, value) Tuples but Tuple keys/members are also legal
// on their own).
func hashValue(v value.Value) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211

	mix := func(h uint64, b byte) uint64 {
		h ^= uint64(b)
		h *= prime64
		return h
	}
	mixBytes := func(h uint64, bs []byte) uint64 {
		for _, b := range bs {
			h = mix(h, b)
		}
		return h
	}

	h := uint64(offset64)
	switch v.Tag() {
	case value.TagNone:
		return mix(h, 0)
	case value.TagBool:
		if v.Bool() {
			return mix(h, 1)
		}
		return mix(h, 2)
	case value.TagInt:
		bits := uint64(v.Int())
		for i := 0; i < 8; i++ {
			h = mix(h, byte(bits>>(8*i)))
		}
		return h
	case value.TagFloat:
		bits := math.Float64bits(v.Float())
		for i := 0; i < 8; i++ {
			h = mix(h, byte(bits>>(8*i)))
		}
		return h
	case value.TagString:
		return mixBytes(h, []byte(v.Str()))
	case value.TagObject:
		if t, ok := v.Object().(*Tuple); ok {
			for _, elem := range t.Values {
				h ^= hashValue(elem)
			}
			return h
		}
		// Other object kinds are not meaningfully hashable; every such value
		// lands in the same bucket and falls back to linear probing plus
		// valuesEqual for disambiguation.
		return h
	default:
		return h
	}
}

// find returns the occupied slot index holding a value equal to v, or the
// first available (never-used or tombstone) slot where it could be
// inserted, and whether it was found.
func (h *Hashable) find(v value.Value) (idx int, found bool) {
	cap := h.capacity()
	start := int(hashValue(v) % uint64(cap))
	firstFree := -1
	for i := 0; i < cap; i++ {
		probe := (start + i) % cap
		switch h.states[probe] {
		case cellNeverUsed:
			if firstFree == -1 {
				firstFree = probe
			}
			return firstFree, false
		case cellTombstone:
			if firstFree == -1 {
				firstFree = probe
			}
		case cellOccupied:
			if valuesEqual(h.cells[probe], v) {
				return probe, true
			}
		}
	}
	return firstFree, false
}

func (h *Hashable) rehash() {
	oldCells, oldStates := h.cells, h.states
	newCap := h.capacity() * hashableGrowFactor
	h.cells = make([]value.Value, newCap)
	h.states = make([]cellState, newCap)
	h.size = 0
	for i, state := range oldStates {
		if state == cellOccupied {
			h.rawInsert(oldCells[i])
		}
	}
}

// rawInsert places v assuming capacity headroom and no duplicate check;
// used only by rehash, which already knows every value is unique.
func (h *Hashable) rawInsert(v value.Value) {
	cap := h.capacity()
	start := int(hashValue(v) % uint64(cap))
	for i := 0; i < cap; i++ {
		probe := (start + i) % cap
		if h.states[probe] != cellOccupied {
			h.cells[probe] = v
			h.states[probe] = cellOccupied
			h.size++
			return
		}
	}
}

// insert adds v if not already present, growing first if the insertion
// would exceed the load threshold. Returns true if newly inserted.
func (h *Hashable) insert(v value.Value) bool {
	if _, found := h.find(v); found {
		return false
	}
	if float64(h.size+1) > float64(h.capacity())*hashableLoadThreshold {
		h.rehash()
	}
	idx, found := h.find(v)
	if found {
		return false
	}
	h.cells[idx] = v
	h.states[idx] = cellOccupied
	h.size++
	return true
}

// replace overwrites the value equal to v (by the same hash/equality rule),
// inserting if absent. Returns the previous value and whether one existed.
func (h *Hashable) replace(v value.Value) (value.Value, bool) {
	if idx, found := h.find(v); found {
		old := h.cells[idx]
		h.cells[idx] = v
		return old, true
	}
	if float64(h.size+1) > float64(h.capacity())*hashableLoadThreshold {
		h.rehash()
	}
	idx, _ := h.find(v)
	h.cells[idx] = v
	h.states[idx] = cellOccupied
	h.size++
	return value.None(), false
}

func (h *Hashable) remove(v value.Value) (value.Value, bool) {
	idx, found := h.find(v)
	if !found {
		return value.None(), false
	}
	old := h.cells[idx]
	h.states[idx] = cellTombstone
	h.cells[idx] = value.None()
	h.size--
	return old, true
}

func (h *Hashable) contains(v value.Value) bool {
	_, found := h.find(v)
	return found
}

func (h *Hashable) occupiedValues() []value.Value {
	out := make([]value.Value, 0, h.size)
	for i, state := range h.states {
		if state == cellOccupied {
			out = append(out, h.cells[i])
		}
	}
	return out
}

func (h *Hashable) invalidateIterators() {
	for _, it := range h.iterators {
		it.invalidate()
	}
	h.iterators = h.iterators[:0]
}

func (h *Hashable) RegisterIterator(it *Iterator) {
	h.iterators = append(h.iterators, it)
}

func (h *Hashable) DeregisterIterator(it *Iterator) {
	for i, v := range h.iterators {
		if v == it {
			h.iterators = append(h.iterators[:i], h.iterators[i+1:]...)
			return
		}
	}
}

func (h *Hashable) Len() int { return h.size }
