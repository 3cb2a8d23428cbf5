package bighash

// Map is a fixed capacity map from uint64 keys to int32 values.
// An absent key reads as 0.
type Map struct {
	keys   *Set
	values []int32
}

// NewMap returns an empty Map with room for capacity keys (minimum 1)
func NewMap(capacity uint64) *Map {
	m := &Map{keys: &Set{}}
	m.ResetCapacity(capacity)
	return m
}

// NewMapForMemory returns an empty Map sized to a memory budget in bytes
func NewMapForMemory(bytes uint64) *Map {
	return NewMap(capacityForMemory(bytes, BytesPerMapEntry))
}

// Put sets the value of a key, returning the previous value (0 if the key was new)
func (m *Map) Put(key uint64, value int32) int32 {
	pos, inserted := m.keys.insert(key)
	prev := m.values[pos]
	if inserted {
		prev = 0
	}
	m.values[pos] = value
	return prev
}

// Get returns the value of a key, 0 if absent
func (m *Map) Get(key uint64) int32 {
	pos, ok := m.keys.Position(key)
	if !ok {
		return 0
	}
	return m.values[pos]
}

// Add adds delta to the value of a key and returns the new value.
// It is not atomic, concurrent writers must hold a lock (see ShardedMap).
func (m *Map) Add(key uint64, delta int32) int32 {
	pos, inserted := m.keys.insert(key)
	if inserted {
		m.values[pos] = 0
	}
	m.values[pos] += delta
	return m.values[pos]
}

// Contains reports whether the key is present
func (m *Map) Contains(key uint64) bool {
	return m.keys.Contains(key)
}

// Position returns the slot of a key
func (m *Map) Position(key uint64) (uint64, bool) {
	return m.keys.Position(key)
}

// KeyAt returns the key in slot i
func (m *Map) KeyAt(i uint64) uint64 {
	return m.keys.ElementAt(i)
}

// ValueAt returns the value in slot i
func (m *Map) ValueAt(i uint64) int32 {
	return m.values[i]
}

// ContainsAt reports whether slot i is occupied
func (m *Map) ContainsAt(i uint64) bool {
	return m.keys.ContainsAt(i)
}

// Size returns the number of keys
func (m *Map) Size() uint64 {
	return m.keys.Size()
}

// Capacity returns the number of slots
func (m *Map) Capacity() uint64 {
	return m.keys.Capacity()
}

// LoadFactor returns Size / Capacity
func (m *Map) LoadFactor() float64 {
	return m.keys.LoadFactor()
}

// Reset empties the Map, keeping its capacity
func (m *Map) Reset() {
	m.keys.Reset()
	for i := range m.values {
		m.values[i] = 0
	}
}

// ResetCapacity empties the Map and reallocates it with a new capacity
func (m *Map) ResetCapacity(capacity uint64) {
	m.keys.ResetCapacity(capacity)
	m.values = make([]int32, m.keys.Capacity())
}

// Iterator returns an iterator over key/value pairs in slot order
func (m *Map) Iterator() *MapIterator {
	return &MapIterator{maps: []*Map{m}}
}

// MapIterator walks the occupied slots of one or more Maps in order
type MapIterator struct {
	maps []*Map
	it   *SetIterator
	m    int
}

// Next advances to the next pair, returning false when there are none left
func (it *MapIterator) Next() bool {
	for it.m < len(it.maps) {
		if it.it == nil {
			it.it = it.maps[it.m].keys.Iterator()
		}
		if it.it.Next() {
			return true
		}
		it.it = nil
		it.m++
	}
	return false
}

// Key returns the current key
func (it *MapIterator) Key() uint64 {
	return it.it.Key()
}

// Value returns the current value
func (it *MapIterator) Value() int32 {
	return it.maps[it.m].values[it.it.Position()]
}
