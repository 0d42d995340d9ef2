package objects

import (
	"poise/internal/value"
)

// Dict is a Hashable of key-value Tuples: each occupied cell holds a
// 2-element Tuple(key, value). Unlike Set, lookups probe and compare by the
// key alone, so Dict keeps its own linear-probing helpers rather than
// reusing Hashable's value-hashes-itself ones.
type Dict struct {
	Hashable
}

// NewDict constructs a tracked, empty Dict.
func NewDict() *Dict {
	d := &Dict{newHashable()}
	d.SetTracked(true)
	return d
}

func (d *Dict) ObjectType() value.ObjectType { return value.ObjDict }

func pairKey(pair value.Value) value.Value {
	t, _ := AsTuple(pair.Object())
	return t.Values[0]
}

func (d *Dict) findByKey(key value.Value) (idx int, found bool) {
	cap := d.capacity()
	start := int(hashValue(key) % uint64(cap))
	firstFree := -1
	for i := 0; i < cap; i++ {
		probe := (start + i) % cap
		switch d.states[probe] {
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
			if valuesEqual(pairKey(d.cells[probe]), key) {
				return probe, true
			}
		}
	}
	return firstFree, false
}

func (d *Dict) rehashByKey() {
	oldCells, oldStates := d.cells, d.states
	newCap := d.capacity() * hashableGrowFactor
	d.cells = make([]value.Value, newCap)
	d.states = make([]cellState, newCap)
	d.size = 0
	for i, state := range oldStates {
		if state == cellOccupied {
			d.rawInsertByKey(oldCells[i])
		}
	}
}

func (d *Dict) rawInsertByKey(pair value.Value) {
	cap := d.capacity()
	start := int(hashValue(pairKey(pair)) % uint64(cap))
	for i := 0; i < cap; i++ {
		probe := (start + i) % cap
		if d.states[probe] != cellOccupied {
			d.cells[probe] = pair
			d.states[probe] = cellOccupied
			d.size++
			return
		}
	}
}

func (d *Dict) String() string {
	return withStringifyGuard(d, func() string {
		pairs := make([]value.Value, 0, d.size)
		for _, v := range d.occupiedValues() {
			t, _ := AsTuple(v.Object())
			pairs = append(pairs, value.String(stringifyValue(t.Values[0])+": "+stringifyValue(t.Values[1])))
		}
		return joinStringified(pairs, "{", ", ", "}")
	})
}

func (d *Dict) FindObjectMembers(out *[]value.Value) {
	*out = append(*out, d.occupiedValues()...)
}

func (d *Dict) RemoveObjectMembers() {
	for _, v := range d.occupiedValues() {
		v.Release()
	}
	d.cells = nil
	d.states = nil
	d.size = 0
}

func (d *Dict) AnyMemberMatchesRecursive(target value.Object) bool {
	for _, v := range d.occupiedValues() {
		if o := v.Object(); o != nil {
			if o == target || o.AnyMemberMatchesRecursive(target) {
				return true
			}
		}
	}
	return false
}

func (d *Dict) ElemAt(i int) value.Value {
	return d.occupiedValues()[i]
}

func (d *Dict) KeyValueAt(i int) (value.Value, value.Value, bool) {
	pair, _ := AsTuple(d.occupiedValues()[i].Object())
	return pair.Values[0], pair.Values[1], true
}

// ContainsKey reports whether key is present.
func (d *Dict) ContainsKey(key value.Value) bool {
	_, found := d.findByKey(key)
	return found
}

// At returns the value for key, throwing KeyNotFound if absent.
func (d *Dict) At(key value.Value) (value.Value, *Exception) {
	idx, found := d.findByKey(key)
	if !found {
		return value.None(), NewException(ExcKeyNotFound, "key not found in dict")
	}
	pair, _ := AsTuple(d.cells[idx].Object())
	return pair.Values[1], nil
}

// TryInsert inserts (key, val) only if key is absent, returning whether it
// inserted.
func (d *Dict) TryInsert(key, val value.Value) bool {
	if _, found := d.findByKey(key); found {
		return false
	}
	if float64(d.size+1) > float64(d.capacity())*hashableLoadThreshold {
		d.rehashByKey()
	}
	idx, _ := d.findByKey(key)
	pair := value.FromObject(NewTuple([]value.Value{key.Clone(), val.Clone()}))
	d.cells[idx] = pair
	d.states[idx] = cellOccupied
	d.size++
	d.invalidateIterators()
	return true
}

// InsertOrUpdate inserts (key, val), overwriting any existing value for
// key; dict.size is unchanged when it overwrites.
func (d *Dict) InsertOrUpdate(key, val value.Value) {
	if idx, found := d.findByKey(key); found {
		d.cells[idx].Release()
		d.cells[idx] = value.FromObject(NewTuple([]value.Value{key.Clone(), val.Clone()}))
		d.invalidateIterators()
		return
	}
	if float64(d.size+1) > float64(d.capacity())*hashableLoadThreshold {
		d.rehashByKey()
	}
	idx, _ := d.findByKey(key)
	d.cells[idx] = value.FromObject(NewTuple([]value.Value{key.Clone(), val.Clone()}))
	d.states[idx] = cellOccupied
	d.size++
	d.invalidateIterators()
}

// Remove deletes key if present, returning whether it was.
func (d *Dict) Remove(key value.Value) bool {
	idx, found := d.findByKey(key)
	if !found {
		return false
	}
	d.cells[idx].Release()
	d.cells[idx] = value.None()
	d.states[idx] = cellTombstone
	d.size--
	d.invalidateIterators()
	return true
}

// AsDict downcasts, returning ok=false if obj is nil or not a Dict.
func AsDict(obj value.Object) (*Dict, bool) {
	if obj == nil {
		return nil, false
	}
	d, ok := obj.(*Dict)
	return d, ok
}
