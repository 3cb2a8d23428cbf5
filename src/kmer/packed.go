package kmer

import (
	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/dna"
)

// MaxPackedLength is the longest k-mer that fits in one word at 2 bits per base (one base is kept spare)
const MaxPackedLength = 31

// ErrKmerTooLong is returned when a packed k-mer would exceed MaxPackedLength
var ErrKmerTooLong = errors.New("k-mer too long for packed encoding")

// Packed is an exact 2-bit encoding of a k-mer and its reverse complement.
//
// The forward word holds the first base in its most significant position. Both words are
// updated together so every operation is O(1). A Packed is a cursor: it is owned by one
// goroutine and mutated in place as it slides along a sequence.
type Packed struct {
	fw     uint64
	rc     uint64
	length int
	mask   uint64
}

// NewPacked reads the window [start, start+k) of s
func NewPacked(s dna.Sequence, start, k int) (*Packed, error) {
	if k > MaxPackedLength {
		return nil, errors.Wrapf(ErrKmerTooLong, "k=%d", k)
	}
	if start < 0 || start+k > s.Length() {
		return nil, errors.Errorf("window [%d,%d) outside of sequence of length %d", start, start+k, s.Length())
	}
	p := &Packed{}
	for i := 0; i < k; i++ {
		p.appendRight(s.NucAt(start + i))
	}
	return p, nil
}

// PackedFromLong rebuilds a Packed from a forward encoding
func PackedFromLong(code uint64, k int) (*Packed, error) {
	if k > MaxPackedLength {
		return nil, errors.Wrapf(ErrKmerTooLong, "k=%d", k)
	}
	p := &Packed{length: k, mask: lengthMask(k), fw: code & lengthMask(k)}
	p.rc = ReverseComplement(p.fw, k)
	return p, nil
}

// ReverseComplement returns the reverse complement of a forward encoding of length k
func ReverseComplement(code uint64, k int) uint64 {
	var rc uint64
	for i := 0; i < k; i++ {
		rc = (rc << 2) | ((code & 3) ^ 3)
		code >>= 2
	}
	return rc
}

func lengthMask(k int) uint64 {
	return (uint64(1) << uint(2*k)) - 1
}

// Length returns k
func (p *Packed) Length() int { return p.length }

// Fw returns the forward encoding
func (p *Packed) Fw() uint64 { return p.fw }

// Rc returns the reverse complement encoding
func (p *Packed) Rc() uint64 { return p.rc }

// Canonical returns the strand independent identity, the smaller of the two encodings
func (p *Packed) Canonical() uint64 {
	if p.fw < p.rc {
		return p.fw
	}
	return p.rc
}

// NucAt returns the code of base i
func (p *Packed) NucAt(i int) byte {
	return byte((p.fw >> uint(2*(p.length-1-i))) & 3)
}

// ShiftRight drops the leftmost base and appends nuc on the right
func (p *Packed) ShiftRight(nuc byte) {
	n := uint64(nuc)
	p.fw = ((p.fw << 2) | n) & p.mask
	p.rc = (p.rc >> 2) | ((n ^ 3) << uint(2*p.length-2))
}

// ShiftLeft drops the rightmost base and prepends nuc on the left
func (p *Packed) ShiftLeft(nuc byte) {
	n := uint64(nuc)
	p.fw = (p.fw >> 2) | (n << uint(2*p.length-2))
	p.rc = ((p.rc << 2) | (n ^ 3)) & p.mask
}

// AppendRight grows the k-mer by one base on the right
func (p *Packed) AppendRight(nuc byte) error {
	if p.length == MaxPackedLength {
		return ErrKmerTooLong
	}
	p.appendRight(nuc)
	return nil
}

// AppendLeft grows the k-mer by one base on the left
func (p *Packed) AppendLeft(nuc byte) error {
	if p.length == MaxPackedLength {
		return ErrKmerTooLong
	}
	n := uint64(nuc)
	p.fw |= n << uint(2*p.length)
	p.rc = (p.rc << 2) | (n ^ 3)
	p.grow()
	return nil
}

func (p *Packed) appendRight(nuc byte) {
	n := uint64(nuc)
	p.fw = (p.fw << 2) | n
	p.rc |= (n ^ 3) << uint(2*p.length)
	p.grow()
}

func (p *Packed) grow() {
	p.length++
	p.mask = lengthMask(p.length)
}

// UpdateAt replaces base i with nuc
func (p *Packed) UpdateAt(i int, nuc byte) {
	delta := uint64(p.NucAt(i) ^ nuc)
	p.fw ^= delta << uint(2*(p.length-1-i))
	p.rc ^= delta << uint(2*i)
}

// String decodes the forward strand
func (p *Packed) String() string {
	b := make([]byte, p.length)
	for i := range b {
		b[i] = dna.ToChar(p.NucAt(i))
	}
	return string(b)
}
