package pipeline

import (
	"context"

	"github.com/will-rowe/kdbg/src/kmer"
)

// Sink receives canonical keys from the minions, implementations must be safe for concurrent use
type Sink interface {
	Add(key uint64)
}

// prefixFilter keeps keys whose top 2p significant bits equal the prefix
type prefixFilter struct {
	shift  uint
	prefix uint64
	all    bool
}

func newPrefixFilter(keyBits uint, prefixLength int, prefix uint64) prefixFilter {
	if prefixLength == 0 {
		return prefixFilter{all: true}
	}
	return prefixFilter{shift: keyBits - uint(2*prefixLength), prefix: prefix}
}

func (f prefixFilter) keep(key uint64) bool {
	return f.all || key>>f.shift == f.prefix
}

// minion is a worker that pulls batches from the dispatcher until there are none left
type minion struct {
	id         int
	dispatcher *Dispatcher
	sink       Sink
	k          int
	mode       kmer.Mode
	filter     prefixFilter
	stats      Stats
}

// newMinion is the constructor function
func newMinion(id int, dispatcher *Dispatcher, sink Sink, opts *Options) *minion {
	return &minion{
		id:         id,
		dispatcher: dispatcher,
		sink:       sink,
		k:          opts.K,
		mode:       opts.Mode,
		filter:     newPrefixFilter(kmer.KeyBits(opts.Mode, opts.K), opts.PrefixLength, opts.Prefix),
	}
}

// run processes batches until the source is empty, a read fails or the context is cancelled
func (minion *minion) run(ctx context.Context) error {
	add := func(key uint64) {
		minion.stats.Kmers++
		if minion.filter.keep(key) {
			minion.stats.Added++
			minion.sink.Add(key)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		batch, err := minion.dispatcher.GetWorkRange()
		if err != nil {
			return err
		}
		if batch == nil {
			return nil
		}
		for _, seq := range batch {
			minion.stats.Sequences++
			if err := kmer.Keys(seq, minion.k, minion.mode, add); err != nil {
				return err
			}
		}
	}
}
