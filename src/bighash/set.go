// Package bighash contains fixed capacity open addressing hash structures for very large numbers of 64-bit keys.
//
// Keys are stored in one dense array with a parallel occupancy bit vector, slots are found
// with a murmur3 finalizer, a multiply-shift reduction and linear probing. Nothing resizes:
// callers size the tables up front (see CapacityFor) and the only removal is a full reset.
// A key keeps its slot until the next reset, so a slot index can be used as a dense id.
package bighash

import (
	"fmt"
	"math"

	"github.com/will-rowe/kdbg/src/bitvector"
)

const (
	// BytesPerSetEntry is the memory cost of one Set slot
	BytesPerSetEntry = 8

	// BytesPerMapEntry is the memory cost of one Map slot
	BytesPerMapEntry = 12

	// DefaultLoadFactor is the target fill used when sizing a table from an expected key count
	DefaultLoadFactor = 0.75
)

// CapacityFor returns the capacity needed to hold expected keys at the given load factor
func CapacityFor(expected uint64, loadFactor float64) uint64 {
	if loadFactor <= 0 || loadFactor > 1 {
		loadFactor = DefaultLoadFactor
	}
	c := uint64(math.Ceil(float64(expected) / loadFactor))
	if c < 1 {
		c = 1
	}
	return c
}

func capacityForMemory(bytes, perEntry uint64) uint64 {
	c := bytes / perEntry
	if c < 1 {
		c = 1
	}
	return c
}

// Set is a fixed capacity set of uint64 keys
type Set struct {
	capacity uint64
	size     uint64
	keys     []uint64
	occupied *bitvector.BitVector
}

// NewSet returns an empty Set with room for capacity keys (minimum 1)
func NewSet(capacity uint64) *Set {
	s := &Set{}
	s.ResetCapacity(capacity)
	return s
}

// NewSetForMemory returns an empty Set sized to a memory budget in bytes
func NewSetForMemory(bytes uint64) *Set {
	return NewSet(capacityForMemory(bytes, BytesPerSetEntry))
}

// findSlot returns the slot holding key, or the empty slot where it would go
func (s *Set) findSlot(key uint64) uint64 {
	pos := reduce(mix(key), s.capacity)
	for probes := uint64(0); s.occupied.Contains(pos); probes++ {
		if s.keys[pos] == key {
			return pos
		}
		if probes >= s.capacity {
			panic(fmt.Sprintf("bighash: table full (capacity %d), size the table for the expected number of keys", s.capacity))
		}
		pos++
		if pos == s.capacity {
			pos = 0
		}
	}
	return pos
}

// insert puts the key and reports its slot and whether it was new
func (s *Set) insert(key uint64) (uint64, bool) {
	pos := s.findSlot(key)
	if s.occupied.Contains(pos) {
		return pos, false
	}
	s.keys[pos] = key
	s.occupied.Add(pos)
	s.size++
	return pos, true
}

// Put adds a key, returning true if it was not already present
func (s *Set) Put(key uint64) bool {
	_, inserted := s.insert(key)
	return inserted
}

// Contains reports whether the key is present
func (s *Set) Contains(key uint64) bool {
	return s.occupied.Contains(s.findSlot(key))
}

// Position returns the slot of a key, stable until the next reset
func (s *Set) Position(key uint64) (uint64, bool) {
	pos := s.findSlot(key)
	if !s.occupied.Contains(pos) {
		return 0, false
	}
	return pos, true
}

// ElementAt returns the key stored in slot i, only meaningful if ContainsAt(i)
func (s *Set) ElementAt(i uint64) uint64 {
	return s.keys[i]
}

// ContainsAt reports whether slot i is occupied
func (s *Set) ContainsAt(i uint64) bool {
	return s.occupied.Contains(i)
}

// Size returns the number of keys
func (s *Set) Size() uint64 {
	return s.size
}

// Capacity returns the number of slots
func (s *Set) Capacity() uint64 {
	return s.capacity
}

// LoadFactor returns Size / Capacity
func (s *Set) LoadFactor() float64 {
	return float64(s.size) / float64(s.capacity)
}

// Reset empties the Set, keeping its capacity
func (s *Set) Reset() {
	s.occupied.Clear()
	for i := range s.keys {
		s.keys[i] = 0
	}
	s.size = 0
}

// ResetCapacity empties the Set and reallocates it with a new capacity (minimum 1)
func (s *Set) ResetCapacity(capacity uint64) {
	if capacity < 1 {
		capacity = 1
	}
	s.capacity = capacity
	s.size = 0
	s.keys = make([]uint64, capacity)
	s.occupied = bitvector.NewBitVector(capacity)
}

// Iterator returns an iterator over the keys in slot order
func (s *Set) Iterator() *SetIterator {
	return &SetIterator{set: s}
}

// SetIterator walks the occupied slots of a Set, the Set must not be modified during iteration
type SetIterator struct {
	set     *Set
	next    uint64
	current uint64
}

// Next advances to the next key, returning false when there are none left
func (it *SetIterator) Next() bool {
	pos := it.set.occupied.NextSet(it.next)
	if pos >= it.set.capacity {
		it.next = it.set.capacity
		return false
	}
	it.current = pos
	it.next = pos + 1
	return true
}

// Key returns the current key
func (it *SetIterator) Key() uint64 {
	return it.set.keys[it.current]
}

// Position returns the slot of the current key
func (it *SetIterator) Position() uint64 {
	return it.current
}
