package bighash

import (
	"sync"
)

// ShardedMap splits keys over 2^b Maps by their low bits, each shard has its own lock.
// It is the structure the loader minions write into concurrently.
type ShardedMap struct {
	mask   uint64
	shards []*Map
	locks  []sync.Mutex
}

// NewShardedMap returns 2^shardBits empty shards of capacityPerShard slots each
func NewShardedMap(shardBits uint, capacityPerShard uint64) *ShardedMap {
	n := 1 << shardBits
	sm := &ShardedMap{
		mask:   uint64(n - 1),
		shards: make([]*Map, n),
		locks:  make([]sync.Mutex, n),
	}
	for i := range sm.shards {
		sm.shards[i] = NewMap(capacityPerShard)
	}
	return sm
}

// NewShardedMapForMemory splits a memory budget in bytes evenly over 2^shardBits shards
func NewShardedMapForMemory(shardBits uint, bytes uint64) *ShardedMap {
	return NewShardedMap(shardBits, capacityForMemory(bytes>>shardBits, BytesPerMapEntry))
}

func (sm *ShardedMap) shard(key uint64) int {
	return int(key & sm.mask)
}

// Increment atomically adds delta to the value of a key and returns the new value
func (sm *ShardedMap) Increment(key uint64, delta int32) int32 {
	i := sm.shard(key)
	sm.locks[i].Lock()
	v := sm.shards[i].Add(key, delta)
	sm.locks[i].Unlock()
	return v
}

// Add counts one occurrence of key
func (sm *ShardedMap) Add(key uint64) {
	sm.Increment(key, 1)
}

// Put sets the value of a key, returning the previous value
func (sm *ShardedMap) Put(key uint64, value int32) int32 {
	i := sm.shard(key)
	sm.locks[i].Lock()
	prev := sm.shards[i].Put(key, value)
	sm.locks[i].Unlock()
	return prev
}

// Get returns the value of a key, 0 if absent
func (sm *ShardedMap) Get(key uint64) int32 {
	i := sm.shard(key)
	sm.locks[i].Lock()
	v := sm.shards[i].Get(key)
	sm.locks[i].Unlock()
	return v
}

// Contains reports whether the key is present
func (sm *ShardedMap) Contains(key uint64) bool {
	i := sm.shard(key)
	sm.locks[i].Lock()
	ok := sm.shards[i].Contains(key)
	sm.locks[i].Unlock()
	return ok
}

// Size returns the total number of keys
func (sm *ShardedMap) Size() uint64 {
	var size uint64
	for i, m := range sm.shards {
		sm.locks[i].Lock()
		size += m.Size()
		sm.locks[i].Unlock()
	}
	return size
}

// Capacity returns the total number of slots
func (sm *ShardedMap) Capacity() uint64 {
	var c uint64
	for _, m := range sm.shards {
		c += m.Capacity()
	}
	return c
}

// Shards returns the number of shards
func (sm *ShardedMap) Shards() int {
	return len(sm.shards)
}

// Shard returns shard i, callers must not write to it while others hold the ShardedMap
func (sm *ShardedMap) Shard(i int) *Map {
	return sm.shards[i]
}

// Reset empties every shard
func (sm *ShardedMap) Reset() {
	for i, m := range sm.shards {
		sm.locks[i].Lock()
		m.Reset()
		sm.locks[i].Unlock()
	}
}

// Iterator walks every shard in order, it must only be used once writers have finished
func (sm *ShardedMap) Iterator() *MapIterator {
	return &MapIterator{maps: sm.shards}
}

// Flatten copies every pair into one Map sized at the default load factor
func (sm *ShardedMap) Flatten() *Map {
	m := NewMap(CapacityFor(sm.Size(), DefaultLoadFactor))
	for it := sm.Iterator(); it.Next(); {
		m.Put(it.Key(), it.Value())
	}
	return m
}
