package seqio

import (
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"testing"

	"github.com/will-rowe/kdbg/src/dna"
	"github.com/will-rowe/kdbg/src/pipeline"
)

var (
	fastaFile = "test.fasta"
	fastqFile = "test.fq"
	gzFile    = "test.fq.gz"
	badFile   = "test.txt"
	fastaData = ">seq1 first\nACGTACGTNNACG\nTTGA\n>seq2\nacgtRGGCCA\n"
	fastqData = "@read1\nACGTTGCANACGT\n+\nIIIIIIIIIIIII\n@read2\nGGGGCCCC\n+\nIIIIIIII\n"
)

func writeFile(t *testing.T, path, content string) {
	if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readAll(t *testing.T, r *Reader) []string {
	out := []string{}
	for {
		s, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, string(dna.ToBytes(s)))
	}
	return out
}

func expect(t *testing.T, got, want []string) {
	if len(got) != len(want) {
		t.Fatalf("got %d fragments %v, want %v", len(got), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("fragment %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSplit(t *testing.T) {
	frags := Split([]byte("NNACGTNAGXtgcaN"), 0)
	got := []string{}
	for _, f := range frags {
		got = append(got, string(dna.ToBytes(f)))
	}
	expect(t, got, []string{"ACGT", "AG", "TGCA"})
	if len(Split([]byte("ACGTNAG"), 3)) != 1 {
		t.Fatal("short fragments should be dropped")
	}
	if len(Split([]byte("NNNN"), 0)) != 0 {
		t.Fatal("no fragments expected")
	}
}

func TestFasta(t *testing.T) {
	writeFile(t, fastaFile, fastaData)
	defer os.Remove(fastaFile)
	r := NewReader(0, fastaFile)
	defer r.Close()
	expect(t, readAll(t, r), []string{"ACGTACGT", "ACGTTGA", "ACGT", "GGCCA"})
	if r.Records() != 2 {
		t.Fatalf("wrong record count: %d", r.Records())
	}
}

func TestFastqAndMultipleFiles(t *testing.T) {
	writeFile(t, fastqFile, fastqData)
	defer os.Remove(fastqFile)
	writeFile(t, fastaFile, fastaData)
	defer os.Remove(fastaFile)
	r := NewReader(5, fastqFile, fastaFile)
	defer r.Close()
	expect(t, readAll(t, r), []string{"ACGTTGCA", "GGGGCCCC", "ACGTACGT", "ACGTTGA", "GGCCA"})
}

func TestCompressed(t *testing.T) {
	fh, err := os.Create(gzFile)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(gzFile)
	zw := gzip.NewWriter(fh)
	if _, err := zw.Write([]byte(fastqData)); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	fh.Close()
	r := NewReader(0, gzFile)
	defer r.Close()
	expect(t, readAll(t, r), []string{"ACGTTGCA", "ACGT", "GGGGCCCC"})
}

func TestBadInput(t *testing.T) {
	writeFile(t, badFile, "this is not sequence data\n")
	defer os.Remove(badFile)
	if _, err := NewReader(0, badFile).Next(); err == nil {
		t.Fatal("expected error for a file that is not FASTA or FASTQ")
	}
	if _, err := NewReader(0, "missing.fq").Next(); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestSource(t *testing.T) {
	writeFile(t, fastqFile, fastqData)
	defer os.Remove(fastqFile)
	var src pipeline.Source = NewReader(0, fastqFile)
	n := 0
	for {
		_, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		n++
	}
	if n != 3 {
		t.Fatalf("wrong number of fragments: %d", n)
	}
}
