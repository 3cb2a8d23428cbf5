package kmer

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/dna"
)

var (
	kmerSize = 11
	testSeq  = dna.MustFromString("ACTGCGTGCGTGAAACGTGCACGTGACGTGAGGTCATTTGACAGGCAT")
)

func randomDna(r *rand.Rand, n int) dna.Dna {
	d := make(dna.Dna, n)
	for i := range d {
		d[i] = byte(r.Intn(4))
	}
	return d
}

func TestRollingExample(t *testing.T) {
	r, err := NewRolling(dna.MustFromString("AG"), 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if r.Fw() != 1 || r.Rc() != 65 || r.Canonical() != 1 {
		t.Fatalf("wrong hash for AG: fw %d rc %d canonical %d", r.Fw(), r.Rc(), r.Canonical())
	}
}

func TestInverseBase(t *testing.T) {
	if HashBase*InverseBase != 1 {
		t.Fatalf("inverse is wrong: %d", InverseBase)
	}
	if Pow(powerTableSize+5) != Pow(powerTableSize-1)*Pow(6) {
		t.Fatal("powers beyond the table do not match the table")
	}
}

func TestPacked(t *testing.T) {
	p, err := NewPacked(testSeq, 0, kmerSize)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+kmerSize <= testSeq.Length(); i++ {
		if i > 0 {
			p.ShiftRight(testSeq.NucAt(i + kmerSize - 1))
		}
		window := dna.View(testSeq, i, i+kmerSize)
		if p.String() != string(dna.ToBytes(window)) {
			t.Fatalf("window %d decoded as %v", i, p.String())
		}
		rc, err := NewPacked(dna.ReverseComplement(window), 0, kmerSize)
		if err != nil {
			t.Fatal(err)
		}
		if rc.Fw() != p.Rc() || rc.Rc() != p.Fw() {
			t.Fatalf("strands are not mirrored at window %d", i)
		}
		if rc.Canonical() != p.Canonical() {
			t.Fatalf("canonical is strand dependent at window %d", i)
		}
		fromLong, err := PackedFromLong(p.Fw(), kmerSize)
		if err != nil {
			t.Fatal(err)
		}
		if fromLong.Rc() != p.Rc() {
			t.Fatalf("PackedFromLong gave a different reverse complement at window %d", i)
		}
	}
}

func TestPackedShiftLeft(t *testing.T) {
	end := testSeq.Length() - kmerSize
	p, err := NewPacked(testSeq, end, kmerSize)
	if err != nil {
		t.Fatal(err)
	}
	for i := end - 1; i >= 0; i-- {
		p.ShiftLeft(testSeq.NucAt(i))
		fresh, _ := NewPacked(testSeq, i, kmerSize)
		if p.Fw() != fresh.Fw() || p.Rc() != fresh.Rc() {
			t.Fatalf("shift left diverged at %d", i)
		}
	}
}

func TestPackedTooLong(t *testing.T) {
	long := dna.MustFromString("ACGTACGTACGTACGTACGTACGTACGTACGTACGT")
	if _, err := NewPacked(long, 0, 32); errors.Cause(err) != ErrKmerTooLong {
		t.Fatalf("expected ErrKmerTooLong, got %v", err)
	}
	p, err := NewPacked(long, 0, MaxPackedLength)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.AppendRight(0); err != ErrKmerTooLong {
		t.Fatalf("expected ErrKmerTooLong, got %v", err)
	}
	if err := p.AppendLeft(0); err != ErrKmerTooLong {
		t.Fatalf("expected ErrKmerTooLong, got %v", err)
	}
	if _, err := PackedFromLong(0, 40); errors.Cause(err) != ErrKmerTooLong {
		t.Fatalf("expected ErrKmerTooLong, got %v", err)
	}
}

func TestPackedAppend(t *testing.T) {
	p, err := NewPacked(testSeq, 5, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 6; i < 5+kmerSize; i++ {
		if err := p.AppendRight(testSeq.NucAt(i)); err != nil {
			t.Fatal(err)
		}
	}
	for i := 4; i >= 2; i-- {
		if err := p.AppendLeft(testSeq.NucAt(i)); err != nil {
			t.Fatal(err)
		}
	}
	fresh, _ := NewPacked(testSeq, 2, kmerSize+3)
	if p.Fw() != fresh.Fw() || p.Rc() != fresh.Rc() || p.Length() != fresh.Length() {
		t.Fatalf("appends gave %v, want %v", p, fresh)
	}
}

func TestUpdateAt(t *testing.T) {
	window := append(dna.Dna{}, testSeq[:kmerSize]...)
	p, _ := NewPacked(window, 0, kmerSize)
	r, _ := NewRolling(window, 0, kmerSize)
	for i := 0; i < kmerSize; i++ {
		old := window[i]
		nuc := dna.Complement(old)
		window[i] = nuc
		p.UpdateAt(i, nuc)
		r.UpdateAt(i, old, nuc)
		freshP, _ := NewPacked(window, 0, kmerSize)
		freshR, _ := NewRolling(window, 0, kmerSize)
		if p.Fw() != freshP.Fw() || p.Rc() != freshP.Rc() {
			t.Fatalf("packed update diverged at %d", i)
		}
		if r.Fw() != freshR.Fw() || r.Rc() != freshR.Rc() {
			t.Fatalf("rolling update diverged at %d", i)
		}
	}
}

func TestRollingMatchesLongHash(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	seq := randomDna(r, 500)
	k := 41
	h, err := NewRolling(seq, 0, k)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+k <= seq.Length(); i++ {
		if i > 0 {
			h.ShiftRight(seq.NucAt(i+k-1), seq.NucAt(i-1))
		}
		window := dna.View(seq, i, i+k)
		if h.Fw() != dna.LongHash(window) {
			t.Fatalf("forward hash diverged at %d", i)
		}
		if h.Rc() != dna.LongHash(dna.ReverseComplement(window)) {
			t.Fatalf("reverse complement hash diverged at %d", i)
		}
	}
	for i := seq.Length() - k - 1; i >= 0; i-- {
		h.ShiftLeft(seq.NucAt(i), seq.NucAt(i+k))
		if h.Fw() != dna.LongHash(dna.View(seq, i, i+k)) {
			t.Fatalf("shift left diverged at %d", i)
		}
	}
}

func TestRollingAppendRemove(t *testing.T) {
	h, _ := NewRolling(testSeq, 10, 10)
	h.AppendLeft(testSeq.NucAt(9))
	h.AppendRight(testSeq.NucAt(20))
	fresh, _ := NewRolling(testSeq, 9, 12)
	if h.Fw() != fresh.Fw() || h.Rc() != fresh.Rc() {
		t.Fatal("appends diverged")
	}
	h.RemoveLeft(testSeq.NucAt(9))
	h.RemoveRight(testSeq.NucAt(20))
	fresh, _ = NewRolling(testSeq, 10, 10)
	if h.Fw() != fresh.Fw() || h.Rc() != fresh.Rc() || h.Length() != 10 {
		t.Fatal("removes diverged")
	}
	back := RollingFromLong(h.Fw(), h.Rc(), h.Length())
	if back.Canonical() != h.Canonical() {
		t.Fatal("RollingFromLong lost the hash")
	}
}

func collect(t *testing.T, s dna.Sequence, k int, mode Mode) []uint64 {
	keys := []uint64{}
	if err := Keys(s, k, mode, func(key uint64) { keys = append(keys, key) }); err != nil {
		t.Fatal(err)
	}
	return keys
}

func TestKeysSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	seq := randomDna(r, 300)
	rc := dna.ReverseComplement(seq)
	for _, mode := range []Mode{PackedMode, RollingMode, NtHashMode} {
		fw := collect(t, seq, kmerSize, mode)
		bw := collect(t, rc, kmerSize, mode)
		if len(fw) != seq.Length()-kmerSize+1 || len(bw) != len(fw) {
			t.Fatalf("%v: wrong number of keys: %d %d", mode, len(fw), len(bw))
		}
		sort.Slice(fw, func(i, j int) bool { return fw[i] < fw[j] })
		sort.Slice(bw, func(i, j int) bool { return bw[i] < bw[j] })
		for i := range fw {
			if fw[i] != bw[i] {
				t.Fatalf("%v: keys differ between strands", mode)
			}
		}
	}
}

func TestKeysShortAndBad(t *testing.T) {
	if keys := collect(t, dna.MustFromString("ACG"), 5, RollingMode); len(keys) != 0 {
		t.Fatalf("short sequence gave %d keys", len(keys))
	}
	if err := Keys(testSeq, 32, PackedMode, func(uint64) {}); errors.Cause(err) != ErrKmerTooLong {
		t.Fatalf("expected ErrKmerTooLong, got %v", err)
	}
	if err := Keys(testSeq, 0, RollingMode, func(uint64) {}); err == nil {
		t.Fatal("expected error for k=0")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{PackedMode, RollingMode, NtHashMode} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Fatalf("could not parse %v", m)
		}
	}
	if _, err := ParseMode("md5"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if KeyBits(PackedMode, 11) != 22 || KeyBits(RollingMode, 11) != 64 {
		t.Fatal("wrong key bits")
	}
}

func BenchmarkPackedKeys(b *testing.B) {
	seq := randomDna(rand.New(rand.NewSource(1)), 10000)
	for n := 0; n < b.N; n++ {
		Keys(seq, 31, PackedMode, func(uint64) {})
	}
}

func BenchmarkRollingKeys(b *testing.B) {
	seq := randomDna(rand.New(rand.NewSource(1)), 10000)
	for n := 0; n < b.N; n++ {
		Keys(seq, 31, RollingMode, func(uint64) {})
	}
}
