// Package dna holds the 2-bit nucleotide codec and the read-only sequence type used by the k-mer engine.
//
// Nucleotide codes are not alphabetical:
//
//	A    0
//	G    1
//	C    2
//	T    3
//
// so that the complement of a code is always code ^ 3.
package dna

import (
	"github.com/pkg/errors"
)

// ErrInvalidNucleotide is returned when a character outside of A, G, C and T is decoded
var ErrInvalidNucleotide = errors.New("invalid nucleotide")

// HashBase is the polynomial base used for long hash codes of sequences
const HashBase uint64 = 31

// nucleotides maps a code to its character
var nucleotides = [4]byte{'A', 'G', 'C', 'T'}

// codes maps a character to its code, 4 marks an invalid character
var codes = [256]byte{}

func init() {
	for i := range codes {
		codes[i] = 4
	}
	for code, c := range nucleotides {
		codes[c] = byte(code)
	}
}

// FromChar converts a nucleotide character to its code
func FromChar(c byte) (byte, error) {
	code := codes[c]
	if code > 3 {
		return 0, errors.Wrapf(ErrInvalidNucleotide, "%q", c)
	}
	return code, nil
}

// ToChar converts a code to its nucleotide character, only the lowest two bits are used
func ToChar(code byte) byte {
	return nucleotides[code&3]
}

// IsNucleotide reports whether c decodes without error
func IsNucleotide(c byte) bool {
	return codes[c] < 4
}

// Complement returns the code of the complementary nucleotide
func Complement(code byte) byte {
	return code ^ 3
}

// ComplementChar returns the complementary nucleotide character
func ComplementChar(c byte) (byte, error) {
	code, err := FromChar(c)
	if err != nil {
		return 0, err
	}
	return ToChar(Complement(code)), nil
}

// Sequence is an ordered, indexable collection of nucleotide codes
type Sequence interface {
	Length() int
	NucAt(i int) byte
}

// Dna is a Sequence held as one code per byte
type Dna []byte

// FromString encodes a string of nucleotide characters
func FromString(s string) (Dna, error) {
	return FromBytes([]byte(s))
}

// FromBytes encodes a slice of nucleotide characters
func FromBytes(b []byte) (Dna, error) {
	d := make(Dna, len(b))
	for i, c := range b {
		code, err := FromChar(c)
		if err != nil {
			return nil, errors.Wrapf(err, "position %d", i)
		}
		d[i] = code
	}
	return d, nil
}

// MustFromString is FromString for literals, it panics on bad input
func MustFromString(s string) Dna {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Length returns the number of nucleotides
func (d Dna) Length() int { return len(d) }

// NucAt returns the code at position i
func (d Dna) NucAt(i int) byte { return d[i] }

// String decodes the sequence back to characters
func (d Dna) String() string {
	return string(ToBytes(d))
}

// ToBytes decodes any Sequence to its characters
func ToBytes(s Sequence) []byte {
	b := make([]byte, s.Length())
	for i := range b {
		b[i] = ToChar(s.NucAt(i))
	}
	return b
}

// ReverseComplement returns a new Dna holding the reverse complement of s
func ReverseComplement(s Sequence) Dna {
	n := s.Length()
	rc := make(Dna, n)
	for i := 0; i < n; i++ {
		rc[n-1-i] = Complement(s.NucAt(i))
	}
	return rc
}

// View returns the window [start, end) of s without copying
func View(s Sequence, start, end int) Sequence {
	return &view{s: s, start: start, end: end}
}

type view struct {
	s          Sequence
	start, end int
}

func (v *view) Length() int      { return v.end - v.start }
func (v *view) NucAt(i int) byte { return v.s.NucAt(v.start + i) }

// LongHash is the polynomial hash of a sequence (base 31, modulo 2^64, Horner form)
func LongHash(s Sequence) uint64 {
	var h uint64
	for i := 0; i < s.Length(); i++ {
		h = h*HashBase + uint64(s.NucAt(i))
	}
	return h
}
