// Package bitvector is a fixed length bit set backed by 64 bit words, bit i lives in word i/64 at position i%64 (LSB first)
package bitvector

import (
	"math/bits"
)

// BitVector is a fixed length set of bits
type BitVector struct {
	length uint64
	words  []uint64
}

// WordsFor returns the number of words needed to hold n bits
func WordsFor(n uint64) uint64 {
	return (n + 63) / 64
}

// NewBitVector returns a zeroed BitVector of n bits
func NewBitVector(n uint64) *BitVector {
	return &BitVector{
		length: n,
		words:  make([]uint64, WordsFor(n)),
	}
}

// FromWords wraps words as a BitVector of n bits, bits past n are cleared.
// words must hold WordsFor(n) entries.
func FromWords(n uint64, words []uint64) *BitVector {
	if extra := n % 64; extra != 0 && len(words) > 0 {
		words[len(words)-1] &= 1<<extra - 1
	}
	return &BitVector{length: n, words: words}
}

// Len returns the number of bits
func (bv *BitVector) Len() uint64 {
	return bv.length
}

// Add sets bit i
func (bv *BitVector) Add(i uint64) {
	bv.words[i/64] |= 1 << (i % 64)
}

// Remove clears bit i
func (bv *BitVector) Remove(i uint64) {
	bv.words[i/64] &^= 1 << (i % 64)
}

// Contains reports whether bit i is set
func (bv *BitVector) Contains(i uint64) bool {
	return bv.words[i/64]&(1<<(i%64)) != 0
}

// PopCount returns the number of set bits
func (bv *BitVector) PopCount() uint64 {
	count := 0
	for _, w := range bv.words {
		count += bits.OnesCount64(w)
	}
	return uint64(count)
}

// Clear unsets every bit
func (bv *BitVector) Clear() {
	for i := range bv.words {
		bv.words[i] = 0
	}
}

// NextSet returns the first set bit at or after i, or Len() if there is none
func (bv *BitVector) NextSet(i uint64) uint64 {
	if i >= bv.length {
		return bv.length
	}
	w := i / 64
	word := bv.words[w] >> (i % 64)
	if word != 0 {
		return i + uint64(bits.TrailingZeros64(word))
	}
	for w++; w < uint64(len(bv.words)); w++ {
		if bv.words[w] != 0 {
			next := w*64 + uint64(bits.TrailingZeros64(bv.words[w]))
			if next > bv.length {
				return bv.length
			}
			return next
		}
	}
	return bv.length
}

// Words exposes the backing words, used for serialisation
func (bv *BitVector) Words() []uint64 {
	return bv.words
}
