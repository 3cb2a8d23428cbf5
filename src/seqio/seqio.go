// Package seqio reads FASTA and FASTQ files (optionally compressed) into nucleotide sequences for the k-mer loader.
//
// Records are split at any character that is not a nucleotide, so every sequence handed out
// holds only A, G, C and T. Lower case (soft-masked) bases are kept.
package seqio

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/mholt/archiver"
	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/dna"
)

// Format is the record layout of an input file
type Format int

const (
	// FASTA records start with '>'
	FASTA Format = iota
	// FASTQ records start with '@'
	FASTQ
)

// recordReader is the part of the biogo readers used here
type recordReader interface {
	Read() (seq.Sequence, error)
}

// Reader streams nucleotide fragments from one or more files in order
type Reader struct {
	files     []string
	next      int
	minLength int
	fh        *os.File
	pipe      *io.PipeReader
	records   recordReader
	format    Format
	pending   []dna.Sequence
	read      int64
}

// NewReader returns a Reader over files, fragments shorter than minLength are dropped
func NewReader(minLength int, files ...string) *Reader {
	return &Reader{files: files, minLength: minLength}
}

// Records returns the number of records read so far
func (r *Reader) Records() int64 {
	return r.read
}

// Next returns the next fragment, io.EOF once every file has been read
func (r *Reader) Next() (dna.Sequence, error) {
	for len(r.pending) == 0 {
		if r.records == nil {
			if r.next == len(r.files) {
				return nil, io.EOF
			}
			if err := r.open(r.files[r.next]); err != nil {
				return nil, err
			}
			r.next++
		}
		record, err := r.records.Read()
		if err == io.EOF {
			if err := r.closeCurrent(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "bad record in %v", r.files[r.next-1])
		}
		r.read++
		r.pending = Split(letters(record), r.minLength)
	}
	s := r.pending[0]
	r.pending = r.pending[1:]
	return s, nil
}

// Close releases the current file
func (r *Reader) Close() error {
	r.next = len(r.files)
	return r.closeCurrent()
}

func (r *Reader) open(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	r.fh = fh
	var input io.Reader = fh
	if d, ok := decompressor(path); ok {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(d.Decompress(fh, pw))
		}()
		r.pipe = pr
		input = pr
	}
	buffered := bufio.NewReader(input)
	format, err := sniff(buffered)
	if err != nil {
		r.closeCurrent()
		return errors.Wrapf(err, "could not read %v", path)
	}
	r.format = format
	switch format {
	case FASTA:
		r.records = fasta.NewReader(buffered, linear.NewSeq("", nil, alphabet.DNA))
	case FASTQ:
		r.records = fastq.NewReader(buffered, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger))
	}
	return nil
}

func (r *Reader) closeCurrent() error {
	r.records = nil
	if r.pipe != nil {
		r.pipe.Close()
		r.pipe = nil
	}
	if r.fh == nil {
		return nil
	}
	err := r.fh.Close()
	r.fh = nil
	return err
}

// decompressor picks an archiver decompressor from the file extension
func decompressor(path string) (archiver.Decompressor, bool) {
	format, err := archiver.ByExtension(path)
	if err != nil {
		return nil, false
	}
	d, ok := format.(archiver.Decompressor)
	return d, ok
}

// sniff looks at the first non-space byte to tell FASTA from FASTQ
func sniff(r *bufio.Reader) (Format, error) {
	for i := 1; ; i++ {
		b, err := r.Peek(i)
		if err != nil {
			if err == io.EOF {
				return 0, fmt.Errorf("input is empty")
			}
			return 0, err
		}
		switch b[i-1] {
		case '>':
			return FASTA, nil
		case '@':
			return FASTQ, nil
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return 0, fmt.Errorf("input is not FASTA or FASTQ (starts with %q)", b[i-1])
		}
	}
}

// letters returns the raw letters of a biogo record
func letters(record seq.Sequence) []byte {
	switch s := record.(type) {
	case *linear.Seq:
		b := make([]byte, len(s.Seq))
		for i, l := range s.Seq {
			b[i] = byte(l)
		}
		return b
	case *linear.QSeq:
		b := make([]byte, len(s.Seq))
		for i, ql := range s.Seq {
			b[i] = byte(ql.L)
		}
		return b
	}
	b := make([]byte, record.Len())
	for i := range b {
		b[i] = byte(record.At(i).L)
	}
	return b
}

// Split encodes raw letters, breaking at anything that is not a nucleotide.
// Fragments shorter than minLength are dropped.
func Split(raw []byte, minLength int) []dna.Sequence {
	fragments := []dna.Sequence{}
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i < len(raw) && dna.IsNucleotide(upper(raw[i])) {
			continue
		}
		if i-start > 0 && i-start >= minLength {
			d := make(dna.Dna, i-start)
			for j := range d {
				d[j], _ = dna.FromChar(upper(raw[start+j]))
			}
			fragments = append(fragments, d)
		}
		start = i + 1
	}
	return fragments
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
