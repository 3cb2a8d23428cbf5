package kmer

import (
	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/dna"
)

// HashBase is the polynomial base of the rolling hash, arithmetic is modulo 2^64
const HashBase uint64 = dna.HashBase

// powerTableSize is the number of precomputed powers of HashBase
const powerTableSize = 1024

var (
	// powers holds HashBase^i for i < powerTableSize, it is filled once and never written again
	powers [powerTableSize]uint64

	// InverseBase is the multiplicative inverse of HashBase modulo 2^64
	InverseBase uint64
)

func init() {
	powers[0] = 1
	for i := 1; i < powerTableSize; i++ {
		powers[i] = powers[i-1] * HashBase
	}

	// newton iteration, each step doubles the number of correct low bits (31*31 = 1 mod 8 to start)
	inv := HashBase
	for i := 0; i < 6; i++ {
		inv *= 2 - HashBase*inv
	}
	InverseBase = inv
}

// Pow returns HashBase^n modulo 2^64
func Pow(n int) uint64 {
	if n < powerTableSize {
		return powers[n]
	}
	result, base := uint64(1), HashBase
	for e := uint(n); e > 0; e >>= 1 {
		if e&1 == 1 {
			result *= base
		}
		base *= base
	}
	return result
}

// Rolling is a polynomial hash of a k-mer and its reverse complement.
//
// fw is the hash of the forward strand read left to right, rc the hash of the
// reverse complement read left to right. There is no length limit, but two
// different k-mers may share a hash.
type Rolling struct {
	fw     uint64
	rc     uint64
	length int
}

// NewRolling hashes the window [start, start+k) of s
func NewRolling(s dna.Sequence, start, k int) (*Rolling, error) {
	if start < 0 || k < 0 || start+k > s.Length() {
		return nil, errors.Errorf("window [%d,%d) outside of sequence of length %d", start, start+k, s.Length())
	}
	r := &Rolling{}
	for i := 0; i < k; i++ {
		r.AppendRight(s.NucAt(start + i))
	}
	return r, nil
}

// RollingFromLong rebuilds a Rolling from previously taken hash values
func RollingFromLong(fw, rc uint64, k int) *Rolling {
	return &Rolling{fw: fw, rc: rc, length: k}
}

// Length returns k
func (r *Rolling) Length() int { return r.length }

// Fw returns the forward hash
func (r *Rolling) Fw() uint64 { return r.fw }

// Rc returns the reverse complement hash
func (r *Rolling) Rc() uint64 { return r.rc }

// Canonical returns the smaller of the two hashes
func (r *Rolling) Canonical() uint64 {
	if r.fw < r.rc {
		return r.fw
	}
	return r.rc
}

// AppendRight adds nuc after the last base
func (r *Rolling) AppendRight(nuc byte) {
	r.fw = r.fw*HashBase + uint64(nuc)
	r.rc += uint64(nuc^3) * Pow(r.length)
	r.length++
}

// AppendLeft adds nuc before the first base
func (r *Rolling) AppendLeft(nuc byte) {
	r.fw += uint64(nuc) * Pow(r.length)
	r.rc = r.rc*HashBase + uint64(nuc^3)
	r.length++
}

// RemoveRight drops the last base, which must be nuc
func (r *Rolling) RemoveRight(nuc byte) {
	r.length--
	r.fw = (r.fw - uint64(nuc)) * InverseBase
	r.rc -= uint64(nuc^3) * Pow(r.length)
}

// RemoveLeft drops the first base, which must be nuc
func (r *Rolling) RemoveLeft(nuc byte) {
	r.length--
	r.fw -= uint64(nuc) * Pow(r.length)
	r.rc = (r.rc - uint64(nuc^3)) * InverseBase
}

// ShiftRight slides the window one base to the right
func (r *Rolling) ShiftRight(newRight, oldLeft byte) {
	r.RemoveLeft(oldLeft)
	r.AppendRight(newRight)
}

// ShiftLeft slides the window one base to the left
func (r *Rolling) ShiftLeft(newLeft, oldRight byte) {
	r.RemoveRight(oldRight)
	r.AppendLeft(newLeft)
}

// UpdateAt replaces base i, currently old, with nuc
func (r *Rolling) UpdateAt(i int, old, nuc byte) {
	r.fw += (uint64(nuc) - uint64(old)) * Pow(r.length-i-1)
	r.rc += (uint64(nuc^3) - uint64(old^3)) * Pow(i)
}
