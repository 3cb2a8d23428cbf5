package pipeline

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/kmer"
)

// ErrInterruptedLoad is returned when a load is cancelled before the source is exhausted
var ErrInterruptedLoad = errors.New("k-mer load interrupted")

// Options configures a load
type Options struct {
	K            int       // window length, k+1 when loading graph edges
	Mode         kmer.Mode // how windows become keys
	NumProc      int       // number of minions
	TaskSize     int       // sequences per dispatcher batch
	PrefixLength int       // number of leading bases used to split the key space, 0 keeps every key
	Prefix       uint64    // the prefix kept by this load
	Total        int64     // expected number of sequences, 0 if unknown
	ProgressBar  bool      // draw a progress bar while loading
}

// Stats are the counts collected from the minions
type Stats struct {
	Sequences int64 // sequences processed
	Kmers     int64 // windows seen
	Added     int64 // keys that passed the prefix filter and went to the sink
}

func (s *Stats) add(other Stats) {
	s.Sequences += other.Sequences
	s.Kmers += other.Kmers
	s.Added += other.Added
}

func (opts *Options) check() error {
	if opts.NumProc < 1 {
		opts.NumProc = 1
	}
	if opts.TaskSize < 1 {
		opts.TaskSize = DefaultTaskSize
	}
	if err := kmer.CheckK(opts.Mode, opts.K); err != nil {
		return err
	}
	if opts.PrefixLength < 0 || uint(2*opts.PrefixLength) > kmer.KeyBits(opts.Mode, opts.K) {
		return errors.Errorf("prefix length %d is too long for %v keys with k=%d", opts.PrefixLength, opts.Mode, opts.K)
	}
	if opts.PrefixLength > 0 && opts.Prefix >= uint64(1)<<uint(2*opts.PrefixLength) {
		return errors.Errorf("prefix %d does not fit in %d bases", opts.Prefix, opts.PrefixLength)
	}
	return nil
}

// Load reads every sequence from src with opts.NumProc minions and adds their canonical keys to sink.
// It returns once all minions have stopped; on cancellation the error is ErrInterruptedLoad and the
// stats cover the batches that were finished.
func Load(ctx context.Context, src Source, sink Sink, opts Options) (Stats, error) {
	stats := Stats{}
	if err := opts.check(); err != nil {
		return stats, err
	}
	dispatcher := NewDispatcher(src, opts.TaskSize)
	monitor := NewMonitor(dispatcher, opts.Total, opts.ProgressBar)
	monitor.Start()
	defer monitor.Stop()

	// launch the minions
	var wg sync.WaitGroup
	wg.Add(opts.NumProc)
	countChan := make(chan Stats, opts.NumProc)
	errChan := make(chan error, opts.NumProc)
	for i := 0; i < opts.NumProc; i++ {
		go func(workerNum int) {
			defer wg.Done()
			minion := newMinion(workerNum, dispatcher, sink, &opts)
			if err := minion.run(ctx); err != nil {
				errChan <- err
			}
			countChan <- minion.stats
		}(i)
	}

	// wait for the minions and get the counts
	wg.Wait()
	close(countChan)
	close(errChan)
	for count := range countChan {
		stats.add(count)
	}
	var cancelled bool
	for err := range errChan {
		if err == context.Canceled || err == context.DeadlineExceeded {
			cancelled = true
			continue
		}
		return stats, err
	}
	if cancelled {
		return stats, errors.Wrapf(ErrInterruptedLoad, "after %d sequences", stats.Sequences)
	}
	return stats, nil
}
