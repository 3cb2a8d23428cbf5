package kmerstats

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/bighash"
	"github.com/will-rowe/kdbg/src/dna"
)

// PrefixString spells a key prefix of p bases
func PrefixString(prefix uint64, p int) string {
	b := make([]byte, p)
	for i := p - 1; i >= 0; i-- {
		b[i] = dna.ToChar(byte(prefix & 3))
		prefix >>= 2
	}
	return string(b)
}

// WritePrefixes lists every prefix of p bases, one per line, in pass order
func WritePrefixes(path string, p int) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(fh)
	for prefix := uint64(0); prefix < uint64(1)<<uint(2*p); prefix++ {
		fmt.Fprintln(w, PrefixString(prefix, p))
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// keyFile writes u64 keys, each optionally followed by an i32 count
type keyFile struct {
	fh  *os.File
	bw  *bufio.Writer
	enc *bighash.Encoder
}

func createKeyFile(path string) (*keyFile, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(fh)
	return &keyFile{fh: fh, bw: bw, enc: bighash.NewEncoder(bw)}, nil
}

func (kf *keyFile) write(key uint64, count int32, withCount bool) error {
	if kf == nil {
		return nil
	}
	if err := kf.enc.Uint64s(key); err != nil {
		return err
	}
	if withCount {
		return kf.enc.Int32s(count)
	}
	return nil
}

func (kf *keyFile) close() error {
	if kf == nil {
		return nil
	}
	if err := kf.bw.Flush(); err != nil {
		kf.fh.Close()
		return err
	}
	return kf.fh.Close()
}

// ReadKeys calls fn for every record of a key file, count is 0 when the file has no counts
func ReadKeys(path string, withCounts bool, fn func(key uint64, count int32)) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	fi, err := fh.Stat()
	if err != nil {
		return err
	}
	recordSize := int64(8)
	if withCounts {
		recordSize += 4
	}
	if fi.Size()%recordSize != 0 {
		return errors.Wrapf(bighash.ErrTruncated, "%v is not a whole number of records", path)
	}
	dec := bighash.NewDecoder(bufio.NewReader(fh))
	for n := fi.Size() / recordSize; n > 0; n-- {
		key, err := dec.Uint64()
		if err != nil {
			return err
		}
		var count int32
		if withCounts {
			if count, err = dec.Int32(); err != nil {
				return err
			}
		}
		fn(key, count)
	}
	return nil
}

// CountKeys returns the number of records in a key file
func CountKeys(path string, withCounts bool) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	recordSize := int64(8)
	if withCounts {
		recordSize += 4
	}
	return fi.Size() / recordSize, nil
}

// Writer splits counted k-mers into per-prefix good and bad files under a directory
type Writer struct {
	Dir        string
	IgnoreBad  bool  // do not write bad k-mer files
	WithCounts bool  // write the count after each key
	Good       int64 // good k-mers written so far
	Bad        int64 // bad k-mers seen so far
}

// GoodFile is the path of the good k-mer file for a prefix
func (w *Writer) GoodFile(prefix string) string {
	return filepath.Join(w.Dir, "kmers"+prefix+".good")
}

// BadFile is the path of the bad k-mer file for a prefix
func (w *Writer) BadFile(prefix string) string {
	return filepath.Join(w.Dir, "kmers"+prefix+".bad")
}

// CountsFile is the path of the raw counts file kept for a prefix until the threshold is known
func (w *Writer) CountsFile(prefix string) string {
	return filepath.Join(w.Dir, "kmers"+prefix+".counts")
}

// WriteCounts saves every key and count so the split can be made after all passes
func (w *Writer) WriteCounts(prefix string, counts Counts) error {
	kf, err := createKeyFile(w.CountsFile(prefix))
	if err != nil {
		return err
	}
	for it := counts.Iterator(); it.Next(); {
		if err := kf.write(it.Key(), it.Value(), true); err != nil {
			kf.close()
			return err
		}
	}
	return kf.close()
}

// Split writes the k-mers of counts into the good file (count > threshold) or the bad file
func (w *Writer) Split(prefix string, counts Counts, threshold int) error {
	return w.split(prefix, threshold, func(fn func(uint64, int32)) error {
		for it := counts.Iterator(); it.Next(); {
			fn(it.Key(), it.Value())
		}
		return nil
	})
}

// SplitCountsFile is Split reading from a file made by WriteCounts, the counts file is removed afterwards
func (w *Writer) SplitCountsFile(prefix string, threshold int) error {
	path := w.CountsFile(prefix)
	if err := w.split(prefix, threshold, func(fn func(uint64, int32)) error {
		return ReadKeys(path, true, fn)
	}); err != nil {
		return err
	}
	return os.Remove(path)
}

func (w *Writer) split(prefix string, threshold int, records func(func(uint64, int32)) error) error {
	good, err := createKeyFile(w.GoodFile(prefix))
	if err != nil {
		return err
	}
	var bad *keyFile
	if !w.IgnoreBad {
		if bad, err = createKeyFile(w.BadFile(prefix)); err != nil {
			good.close()
			return err
		}
	}
	var writeErr error
	err = records(func(key uint64, count int32) {
		if writeErr != nil {
			return
		}
		if int(count) <= threshold {
			w.Bad++
			writeErr = bad.write(key, count, w.WithCounts)
		} else {
			w.Good++
			writeErr = good.write(key, count, w.WithCounts)
		}
	})
	if err == nil {
		err = writeErr
	}
	if cerr := good.close(); err == nil {
		err = cerr
	}
	if cerr := bad.close(); err == nil {
		err = cerr
	}
	return err
}
