// Package kmerstats collects k-mer frequency statistics and splits counted k-mers into good (trusted) and bad (likely erroneous) sets
package kmerstats

import (
	"bufio"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/will-rowe/kdbg/src/bighash"
	"gopkg.in/vmihailenco/msgpack.v2"
)

// Buckets is the number of histogram buckets, the last one also holds every higher count
const Buckets = 256

// Counts is anything that can iterate key/count pairs
type Counts interface {
	Iterator() *bighash.MapIterator
}

// Histogram records how many distinct k-mers were seen each number of times
type Histogram struct {
	K         int
	Distinct  int64
	Frequency []int64
}

// NewHistogram returns an empty histogram
func NewHistogram(k int) *Histogram {
	return &Histogram{K: k, Frequency: make([]int64, Buckets)}
}

// Add records one k-mer seen count times
func (h *Histogram) Add(count int32) {
	if count < 0 {
		count = 0
	}
	if count >= Buckets {
		count = Buckets - 1
	}
	h.Frequency[count]++
	h.Distinct++
}

// AddCounts records every k-mer in counts
func (h *Histogram) AddCounts(counts Counts) {
	for it := counts.Iterator(); it.Next(); {
		h.Add(it.Value())
	}
}

// Threshold returns the maximal bad frequency: the first local minimum of the histogram at or after 2, or -1 if there is none
func (h *Histogram) Threshold() int {
	for i := 2; i < Buckets-1; i++ {
		if h.Frequency[i-1] >= h.Frequency[i] && h.Frequency[i] < h.Frequency[i+1] {
			return i
		}
	}
	return -1
}

// WriteDistribution writes the counts for frequencies 1 to 255, one per line
func (h *Histogram) WriteDistribution(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(fh)
	for _, f := range h.Frequency[1:] {
		fmt.Fprintln(w, f)
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Dump is a method to save the histogram to file
func (h *Histogram) Dump(path string) error {
	b, err := msgpack.Marshal(h)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, b, 0644)
}

// Load is a method to load a histogram from file
func (h *Histogram) Load(path string) error {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if err := msgpack.Unmarshal(b, h); err != nil {
		return err
	}
	if len(h.Frequency) != Buckets {
		return fmt.Errorf("histogram in %v has %d buckets, expected %d", path, len(h.Frequency), Buckets)
	}
	return nil
}
