package pipeline

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/bighash"
)

// Opener returns a fresh Source over the same input, it is called once per pass
type Opener func() (Source, error)

// PassFunc receives the counts of one pass, the map is reset once it returns
type PassFunc func(prefix uint64, counts *bighash.ShardedMap) error

// NumPasses returns the number of passes for a prefix length
func NumPasses(prefixLength int) uint64 {
	return uint64(1) << uint(2*prefixLength)
}

// CountPasses counts k-mers in 4^p passes over the input, keeping only the keys with one prefix per pass.
// The same ShardedMap is reused for every pass so peak memory is bounded by the largest prefix.
// The sequence count from the first pass is used as the total for progress reports in later passes.
func CountPasses(ctx context.Context, open Opener, counts *bighash.ShardedMap, opts Options, fn PassFunc) (Stats, error) {
	total := Stats{}
	if err := opts.check(); err != nil {
		return total, err
	}
	passes := NumPasses(opts.PrefixLength)
	for prefix := uint64(0); prefix < passes; prefix++ {
		start := time.Now()
		src, err := open()
		if err != nil {
			return total, errors.Wrapf(err, "could not open input for pass %d", prefix+1)
		}
		counts.Reset()
		opts.Prefix = prefix
		stats, err := Load(ctx, src, counts, opts)
		if closer, ok := src.(io.Closer); ok {
			closer.Close()
		}
		if prefix == 0 {
			total.Sequences = stats.Sequences
			if opts.Total == 0 {
				opts.Total = stats.Sequences
			}
		}
		total.Kmers += stats.Kmers
		total.Added += stats.Added
		if err != nil {
			return total, err
		}
		if err := fn(prefix, counts); err != nil {
			return total, err
		}
		if passes > 1 {
			log.Printf("\tpass %d/%d: %d keys added, %d distinct, took %v", prefix+1, passes, stats.Added, counts.Size(), time.Since(start).Round(time.Millisecond))
		}
	}
	return total, nil
}
