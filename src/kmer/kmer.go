// Package kmer holds the k-mer cursors (exact 2-bit packing and rolling polynomial hash) and the canonical key streams built on them.
package kmer

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/dna"
	"github.com/will-rowe/ntHash"
)

// CANONICAL tells ntHash to return the canonical k-mer hash
const CANONICAL bool = true

// Canonical is implemented by both cursor types; the value is identical for a k-mer and its reverse complement
type Canonical interface {
	Canonical() uint64
	Length() int
}

// Mode selects the k-mer identity scheme
type Mode int

const (
	// PackedMode keys are exact 2-bit encodings, k <= MaxPackedLength
	PackedMode Mode = iota
	// RollingMode keys are base 31 polynomial hashes
	RollingMode
	// NtHashMode keys come from the ntHash canonical rolling hash
	NtHashMode
)

var modeNames = []string{"packed", "rolling", "nthash"}

// String implements Stringer
func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// ParseMode converts a name to a Mode
func ParseMode(name string) (Mode, error) {
	for i, n := range modeNames {
		if strings.ToLower(name) == n {
			return Mode(i), nil
		}
	}
	return 0, errors.Errorf("unknown k-mer mode: %v (want one of %v)", name, modeNames)
}

// KeyBits returns how many low bits of a key carry information
func KeyBits(mode Mode, k int) uint {
	if mode == PackedMode {
		return uint(2 * k)
	}
	return 64
}

// CheckK validates k for a mode
func CheckK(mode Mode, k int) error {
	if k < 1 {
		return errors.Errorf("k must be positive, got %d", k)
	}
	if mode == PackedMode && k > MaxPackedLength {
		return errors.Wrapf(ErrKmerTooLong, "k=%d", k)
	}
	return nil
}

// Keys slides a window of length k across s and calls fn with each canonical key, in order
func Keys(s dna.Sequence, k int, mode Mode, fn func(key uint64)) error {
	if err := CheckK(mode, k); err != nil {
		return err
	}
	if s.Length() < k {
		return nil
	}
	switch mode {
	case PackedMode:
		p, err := NewPacked(s, 0, k)
		if err != nil {
			return err
		}
		fn(p.Canonical())
		for i := k; i < s.Length(); i++ {
			p.ShiftRight(s.NucAt(i))
			fn(p.Canonical())
		}
	case RollingMode:
		r, err := NewRolling(s, 0, k)
		if err != nil {
			return err
		}
		fn(r.Canonical())
		for i := k; i < s.Length(); i++ {
			r.ShiftRight(s.NucAt(i), s.NucAt(i-k))
			fn(r.Canonical())
		}
	case NtHashMode:
		seq := dna.ToBytes(s)
		hasher, err := ntHash.New(&seq, uint(k))
		if err != nil {
			return errors.Wrap(err, "ntHash")
		}
		for hv := range hasher.Hash(CANONICAL) {
			fn(hv)
		}
	default:
		return errors.Errorf("unknown k-mer mode: %d", mode)
	}
	return nil
}
