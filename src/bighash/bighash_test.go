package bighash

import (
	"bytes"
	"io/ioutil"
	"math/rand"
	"os"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

var (
	numKeys  = 10000
	testFile = "test.bighash"
)

func randomKeys(n int, seed int64) []uint64 {
	r := rand.New(rand.NewSource(seed))
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = r.Uint64()
	}
	return keys
}

func TestSetPut(t *testing.T) {
	s := NewSet(CapacityFor(uint64(numKeys), DefaultLoadFactor))
	keys := randomKeys(numKeys, 1)
	for _, k := range keys {
		s.Put(k)
	}
	size := s.Size()
	for _, k := range keys {
		if s.Put(k) {
			t.Fatal("second put reported an insert")
		}
		if !s.Contains(k) {
			t.Fatal("inserted key is missing")
		}
	}
	if s.Size() != size {
		t.Fatalf("size changed after repeated puts: %d -> %d", size, s.Size())
	}
}

func TestSetPosition(t *testing.T) {
	s := NewSet(100)
	keys := randomKeys(60, 2)
	for _, k := range keys {
		s.Put(k)
	}
	for _, k := range keys {
		pos, ok := s.Position(k)
		if !ok {
			t.Fatal("no position for inserted key")
		}
		again, _ := s.Position(k)
		if again != pos || s.ElementAt(pos) != k || !s.ContainsAt(pos) {
			t.Fatalf("position of %d is not stable", k)
		}
	}
	absent := keys[0] + 1
	for s.Contains(absent) {
		absent++
	}
	if _, ok := s.Position(absent); ok {
		t.Fatal("position found for an absent key")
	}
}

func TestSetReset(t *testing.T) {
	s := NewSet(64)
	for k := uint64(0); k < 40; k++ {
		s.Put(k)
	}
	s.Reset()
	if s.Capacity() != 64 || s.Size() != 0 {
		t.Fatalf("wrong state after reset: capacity %d size %d", s.Capacity(), s.Size())
	}
	for k := uint64(0); k < 40; k++ {
		if s.Contains(k) {
			t.Fatal("key survived reset")
		}
	}
	s.ResetCapacity(200)
	if s.Capacity() != 200 || s.Size() != 0 {
		t.Fatalf("wrong state after resize: capacity %d size %d", s.Capacity(), s.Size())
	}
	s.ResetCapacity(0)
	if s.Capacity() != 1 {
		t.Fatal("capacity should be at least 1")
	}
}

func TestSetFull(t *testing.T) {
	s := NewSet(8)
	for k := uint64(0); k < 8; k++ {
		s.Put(k)
	}
	if s.LoadFactor() != 1 {
		t.Fatalf("wrong load factor: %v", s.LoadFactor())
	}
	if !s.Contains(7) || s.Put(3) {
		t.Fatal("full table lost a key")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic when inserting into a full table")
		}
	}()
	s.Put(100)
}

func TestSetIterator(t *testing.T) {
	s := NewSet(300)
	keys := randomKeys(200, 3)
	for _, k := range keys {
		s.Put(k)
	}
	seen := make(map[uint64]bool)
	last := int64(-1)
	for it := s.Iterator(); it.Next(); {
		if int64(it.Position()) <= last {
			t.Fatal("iteration is not in slot order")
		}
		last = int64(it.Position())
		seen[it.Key()] = true
	}
	if uint64(len(seen)) != s.Size() {
		t.Fatalf("iterated %d keys, set holds %d", len(seen), s.Size())
	}
	for _, k := range keys {
		if !seen[k] {
			t.Fatal("iterator skipped a key")
		}
	}
}

func TestMapExample(t *testing.T) {
	m := NewMap(16)
	if prev := m.Put(5, 1); prev != 0 {
		t.Fatalf("new key returned previous value %d", prev)
	}
	if prev := m.Put(5, 2); prev != 1 {
		t.Fatalf("overwrite returned previous value %d", prev)
	}
	m.Put(7, 3)
	if m.Size() != 2 || m.Get(5) != 2 || m.Get(7) != 3 || m.Get(9) != 0 {
		t.Fatalf("wrong map contents: size %d", m.Size())
	}
	if m.Add(7, 4) != 7 || m.Add(11, -2) != -2 {
		t.Fatal("add returned the wrong value")
	}
	pos, ok := m.Position(7)
	if !ok || m.KeyAt(pos) != 7 || m.ValueAt(pos) != 7 {
		t.Fatal("slot accessors disagree with Get")
	}
	m.Reset()
	if m.Size() != 0 || m.Get(5) != 0 || m.Capacity() != 16 {
		t.Fatal("reset left values behind")
	}
	if m.Add(5, 1) != 1 {
		t.Fatal("stale value leaked through a reset")
	}
}

func TestSetRoundTrip(t *testing.T) {
	s := NewSet(1000)
	for _, k := range randomKeys(600, 4) {
		s.Put(k)
	}
	buf := &bytes.Buffer{}
	n, err := s.WriteTo(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(buf.Len()) || n != 16+8*1000+8*16 {
		t.Fatalf("wrong byte count: %d", n)
	}
	s2 := &Set{}
	if _, err := s2.ReadFrom(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if s2.Size() != s.Size() || s2.Capacity() != s.Capacity() {
		t.Fatal("header lost in round trip")
	}
	for it := s.Iterator(); it.Next(); {
		pos, ok := s2.Position(it.Key())
		if !ok || pos != it.Position() {
			t.Fatal("key moved in round trip")
		}
	}
}

func TestMapDumpLoad(t *testing.T) {
	m := NewMap(500)
	for i, k := range randomKeys(300, 5) {
		m.Put(k, int32(i))
	}
	if err := m.Dump(testFile); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(testFile)
	m2 := &Map{}
	if err := m2.Load(testFile); err != nil {
		t.Fatal(err)
	}
	if m2.Size() != m.Size() {
		t.Fatal("size lost in round trip")
	}
	for it := m.Iterator(); it.Next(); {
		if m2.Get(it.Key()) != it.Value() {
			t.Fatal("value lost in round trip")
		}
	}
}

func TestTruncated(t *testing.T) {
	m := NewMap(50)
	m.Put(1, 1)
	buf := &bytes.Buffer{}
	if _, err := m.WriteTo(buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	for _, cut := range []int{0, 7, 20, len(data) - 1} {
		_, err := (&Map{}).ReadFrom(bytes.NewReader(data[:cut]))
		if errors.Cause(err) != ErrTruncated {
			t.Fatalf("cut at %d: expected ErrTruncated, got %v", cut, err)
		}
	}
	if err := ioutil.WriteFile(testFile, data[:30], 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(testFile)
	if err := (&Set{}).Load(testFile); errors.Cause(err) != ErrTruncated {
		t.Fatalf("expected ErrTruncated from Load, got %v", err)
	}
}

func TestHugeHeader(t *testing.T) {
	for _, capacity := range []uint64{1 << 40, 1 << 62} {
		header := &bytes.Buffer{}
		if err := NewEncoder(header).Uint64s(0, capacity); err != nil {
			t.Fatal(err)
		}
		if _, err := (&Set{}).ReadFrom(bytes.NewReader(header.Bytes())); err == nil {
			t.Fatalf("capacity %d: expected an error from a header with no data", capacity)
		}
		if _, err := (&Map{}).ReadFrom(bytes.NewReader(header.Bytes())); err == nil {
			t.Fatalf("capacity %d: expected an error from a header with no data", capacity)
		}
	}
	header := &bytes.Buffer{}
	NewEncoder(header).Uint64s(0, 1<<40)
	if _, err := (&Set{}).ReadFrom(bytes.NewReader(header.Bytes())); errors.Cause(err) != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestShardedMap(t *testing.T) {
	keys := randomKeys(2000, 6)
	sm := NewShardedMap(4, 1000)
	if sm.Shards() != 16 || sm.Capacity() != 16000 {
		t.Fatal("wrong shard layout")
	}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, k := range keys {
				sm.Add(k)
			}
		}()
	}
	wg.Wait()
	if sm.Size() != uint64(len(keys)) {
		t.Fatalf("wrong size: %d", sm.Size())
	}
	for _, k := range keys {
		if sm.Get(k) != 8 {
			t.Fatalf("lost increments for %d: %d", k, sm.Get(k))
		}
	}
	for i := 0; i < sm.Shards(); i++ {
		for it := sm.Shard(i).Iterator(); it.Next(); {
			if int(it.Key()&15) != i {
				t.Fatal("key stored in the wrong shard")
			}
		}
	}
	flat := sm.Flatten()
	if flat.Size() != sm.Size() || flat.Get(keys[10]) != 8 {
		t.Fatal("flatten lost pairs")
	}
	if sm.Put(keys[0], 1) != 8 || !sm.Contains(keys[0]) {
		t.Fatal("put on sharded map")
	}
	sm.Reset()
	if sm.Size() != 0 || sm.Contains(keys[0]) {
		t.Fatal("reset left keys behind")
	}
}

func TestCapacity(t *testing.T) {
	if CapacityFor(75, 0.75) != 100 || CapacityFor(0, 0.5) != 1 {
		t.Fatal("wrong capacity for load factor")
	}
	if NewSetForMemory(80).Capacity() != 10 || NewMapForMemory(120).Capacity() != 10 || NewSetForMemory(3).Capacity() != 1 {
		t.Fatal("wrong capacity for memory budget")
	}
}

func BenchmarkSetPut(b *testing.B) {
	keys := randomKeys(numKeys, 1)
	s := NewSet(uint64(numKeys) * 2)
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		s.Reset()
		for _, k := range keys {
			s.Put(k)
		}
	}
}
