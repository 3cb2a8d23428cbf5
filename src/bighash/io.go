package bighash

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/bitvector"
)

// ErrTruncated is returned when a serialised table ends early
var ErrTruncated = errors.New("truncated input")

const (
	// chunk is the number of entries encoded per write
	chunk = 4096

	// maxCapacity bounds the capacity a serialised header may declare
	maxCapacity = 1 << 56
)

// Encoder writes big-endian words in chunks and keeps a byte count
type Encoder struct {
	w   io.Writer
	n   int64
	buf []byte
}

// NewEncoder wraps w
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, buf: make([]byte, chunk*8)}
}

// Written returns the number of bytes written so far
func (e *Encoder) Written() int64 { return e.n }

func (e *Encoder) flush(b []byte) error {
	n, err := e.w.Write(b)
	e.n += int64(n)
	return err
}

// Uint64s writes each value as 8 bytes
func (e *Encoder) Uint64s(vals ...uint64) error {
	for len(vals) > 0 {
		n := len(vals)
		if n > chunk {
			n = chunk
		}
		for i, v := range vals[:n] {
			binary.BigEndian.PutUint64(e.buf[i*8:], v)
		}
		if err := e.flush(e.buf[:n*8]); err != nil {
			return err
		}
		vals = vals[n:]
	}
	return nil
}

// Int32s writes each value as 4 bytes
func (e *Encoder) Int32s(vals ...int32) error {
	for len(vals) > 0 {
		n := len(vals)
		if n > chunk {
			n = chunk
		}
		for i, v := range vals[:n] {
			binary.BigEndian.PutUint32(e.buf[i*4:], uint32(v))
		}
		if err := e.flush(e.buf[:n*4]); err != nil {
			return err
		}
		vals = vals[n:]
	}
	return nil
}

// Decoder is the reading side of Encoder, a short read is reported as ErrTruncated
type Decoder struct {
	r   io.Reader
	n   int64
	buf []byte
}

// NewDecoder wraps r
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, buf: make([]byte, chunk*8)}
}

// Consumed returns the number of bytes read so far
func (d *Decoder) Consumed() int64 { return d.n }

func (d *Decoder) fill(b []byte) error {
	n, err := io.ReadFull(d.r, b)
	d.n += int64(n)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errors.Wrapf(ErrTruncated, "%v after %d bytes", err, d.n)
	}
	return err
}

// Uint64s fills vals
func (d *Decoder) Uint64s(vals []uint64) error {
	for len(vals) > 0 {
		n := len(vals)
		if n > chunk {
			n = chunk
		}
		if err := d.fill(d.buf[:n*8]); err != nil {
			return err
		}
		for i := range vals[:n] {
			vals[i] = binary.BigEndian.Uint64(d.buf[i*8:])
		}
		vals = vals[n:]
	}
	return nil
}

// ReadUint64s reads n values, the slice grows as data arrives so a bad count fails with ErrTruncated
// instead of allocating up front
func (d *Decoder) ReadUint64s(n uint64) ([]uint64, error) {
	vals := make([]uint64, 0, minChunk(n))
	for remaining := n; remaining > 0; {
		m := minChunk(remaining)
		start := len(vals)
		vals = append(vals, make([]uint64, m)...)
		if err := d.Uint64s(vals[start:]); err != nil {
			return nil, err
		}
		remaining -= m
	}
	return vals, nil
}

// ReadInt32s is ReadUint64s for int32 values
func (d *Decoder) ReadInt32s(n uint64) ([]int32, error) {
	vals := make([]int32, 0, minChunk(n))
	for remaining := n; remaining > 0; {
		m := minChunk(remaining)
		start := len(vals)
		vals = append(vals, make([]int32, m)...)
		if err := d.Int32s(vals[start:]); err != nil {
			return nil, err
		}
		remaining -= m
	}
	return vals, nil
}

func minChunk(n uint64) uint64 {
	if n > chunk {
		return chunk
	}
	return n
}

// Uint64 reads one value
func (d *Decoder) Uint64() (uint64, error) {
	v := make([]uint64, 1)
	err := d.Uint64s(v)
	return v[0], err
}

// Int32s fills vals
func (d *Decoder) Int32s(vals []int32) error {
	for len(vals) > 0 {
		n := len(vals)
		if n > chunk {
			n = chunk
		}
		if err := d.fill(d.buf[:n*4]); err != nil {
			return err
		}
		for i := range vals[:n] {
			vals[i] = int32(binary.BigEndian.Uint32(d.buf[i*4:]))
		}
		vals = vals[n:]
	}
	return nil
}

// Int32 reads one value
func (d *Decoder) Int32() (int32, error) {
	v := make([]int32, 1)
	err := d.Int32s(v)
	return v[0], err
}

// Encode writes the Set layout: size, capacity, keys, occupancy words
func (s *Set) Encode(e *Encoder) error {
	if err := e.Uint64s(s.size, s.capacity); err != nil {
		return err
	}
	if err := e.Uint64s(s.keys...); err != nil {
		return err
	}
	return e.Uint64s(s.occupied.Words()...)
}

// Decode replaces the Set with one read from d
func (s *Set) Decode(d *Decoder) error {
	size, err := d.Uint64()
	if err != nil {
		return err
	}
	capacity, err := d.Uint64()
	if err != nil {
		return err
	}
	if capacity < 1 || capacity > maxCapacity || size > capacity {
		return errors.Errorf("corrupt set header: size %d, capacity %d", size, capacity)
	}
	keys, err := d.ReadUint64s(capacity)
	if err != nil {
		return err
	}
	words, err := d.ReadUint64s(bitvector.WordsFor(capacity))
	if err != nil {
		return err
	}
	occupied := bitvector.FromWords(capacity, words)
	if occupied.PopCount() != size {
		return errors.Errorf("corrupt set: header size %d, %d occupied slots", size, occupied.PopCount())
	}
	s.size, s.capacity, s.keys, s.occupied = size, capacity, keys, occupied
	return nil
}

// WriteTo implements io.WriterTo
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	e := NewEncoder(w)
	err := s.Encode(e)
	return e.Written(), err
}

// ReadFrom implements io.ReaderFrom
func (s *Set) ReadFrom(r io.Reader) (int64, error) {
	d := NewDecoder(r)
	err := s.Decode(d)
	return d.Consumed(), err
}

// Encode writes the Set layout followed by the values
func (m *Map) Encode(e *Encoder) error {
	if err := m.keys.Encode(e); err != nil {
		return err
	}
	return e.Int32s(m.values...)
}

// Decode replaces the Map with one read from d
func (m *Map) Decode(d *Decoder) error {
	keys := &Set{}
	if err := keys.Decode(d); err != nil {
		return err
	}
	values, err := d.ReadInt32s(keys.Capacity())
	if err != nil {
		return err
	}
	m.keys, m.values = keys, values
	return nil
}

// WriteTo implements io.WriterTo
func (m *Map) WriteTo(w io.Writer) (int64, error) {
	e := NewEncoder(w)
	err := m.Encode(e)
	return e.Written(), err
}

// ReadFrom implements io.ReaderFrom
func (m *Map) ReadFrom(r io.Reader) (int64, error) {
	d := NewDecoder(r)
	err := m.Decode(d)
	return d.Consumed(), err
}

// DumpTo writes anything with a WriteTo method to a file
func DumpTo(path string, wt io.WriterTo) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(fh)
	if _, err := wt.WriteTo(bw); err != nil {
		fh.Close()
		return errors.Wrapf(err, "could not write %v", path)
	}
	if err := bw.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// LoadFrom fills anything with a ReadFrom method from a file
func LoadFrom(path string, rf io.ReaderFrom) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	if _, err := rf.ReadFrom(bufio.NewReader(fh)); err != nil {
		return errors.Wrapf(err, "could not read %v", path)
	}
	return nil
}

// Dump writes the Set to a file
func (s *Set) Dump(path string) error {
	return DumpTo(path, s)
}

// Load replaces the Set with the contents of a file
func (s *Set) Load(path string) error {
	return LoadFrom(path, s)
}

// Dump writes the Map to a file
func (m *Map) Dump(path string) error {
	return DumpTo(path, m)
}

// Load replaces the Map with the contents of a file
func (m *Map) Load(path string) error {
	return LoadFrom(path, m)
}
