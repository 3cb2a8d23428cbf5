// Package pipeline is the concurrent k-mer loader: a dispatcher hands out batches of sequences,
// minions turn them into canonical keys and a boss waits for them and collects the counts.
package pipeline

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/dna"
)

// DefaultTaskSize is the number of sequences handed to a minion at once
const DefaultTaskSize = 1 << 10

// Source is a stream of sequences, Next returns io.EOF once it is exhausted
type Source interface {
	Next() (dna.Sequence, error)
}

// SliceSource serves sequences held in memory
type SliceSource struct {
	seqs []dna.Sequence
	i    int
}

// NewSliceSource returns a Source over seqs
func NewSliceSource(seqs ...dna.Sequence) *SliceSource {
	return &SliceSource{seqs: seqs}
}

// Next implements Source
func (s *SliceSource) Next() (dna.Sequence, error) {
	if s.i == len(s.seqs) {
		return nil, io.EOF
	}
	s.i++
	return s.seqs[s.i-1], nil
}

// Dispatcher owns a Source and shares it out in batches
type Dispatcher struct {
	processed int64 // first for 64-bit alignment of atomic access
	sync.Mutex
	src       Source
	taskSize  int
	exhausted bool
	err       error
}

// NewDispatcher wraps src, handing out taskSize sequences per call
func NewDispatcher(src Source, taskSize int) *Dispatcher {
	if taskSize < 1 {
		taskSize = DefaultTaskSize
	}
	return &Dispatcher{src: src, taskSize: taskSize}
}

// GetWorkRange returns the next batch, or nil once the source is exhausted.
// A read error is kept and returned to every later caller.
func (d *Dispatcher) GetWorkRange() ([]dna.Sequence, error) {
	d.Lock()
	defer d.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.exhausted {
		return nil, nil
	}
	batch := make([]dna.Sequence, 0, d.taskSize)
	for len(batch) < d.taskSize {
		seq, err := d.src.Next()
		if err == io.EOF {
			d.exhausted = true
			break
		}
		if err != nil {
			d.err = errors.Wrap(err, "could not read sequence")
			return nil, d.err
		}
		batch = append(batch, seq)
	}
	atomic.AddInt64(&d.processed, int64(len(batch)))
	if len(batch) == 0 {
		return nil, nil
	}
	return batch, nil
}

// Processed returns how many sequences have been handed out so far
func (d *Dispatcher) Processed() int64 {
	return atomic.LoadInt64(&d.processed)
}
