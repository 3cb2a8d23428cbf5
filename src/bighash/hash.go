package bighash

import "math/bits"

// mix is the murmur3 64-bit finalizer, it spreads every input bit over the whole word
func mix(key uint64) uint64 {
	key ^= key >> 33
	key *= 0xff51afd7ed558ccd
	key ^= key >> 33
	key *= 0xc4ceb9fe1a85ec53
	key ^= key >> 33
	return key
}

// reduce maps a 64-bit hash onto [0, n) using the high word of h*n
func reduce(h, n uint64) uint64 {
	hi, _ := bits.Mul64(h, n)
	return hi
}
