package kmerstats

import (
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/will-rowe/kdbg/src/bighash"
)

var (
	testDir  = "test-kmers"
	histFile = "test.hist"
	distFile = "test.distribution"
)

// a typical read set: many erroneous k-mers seen once or twice, then a coverage peak around 10
func testCounts() *bighash.Map {
	m := bighash.NewMap(2000)
	key := uint64(0)
	for count, n := range map[int32]int{1: 500, 2: 100, 3: 20, 4: 25, 8: 60, 10: 90, 12: 50, 300: 3} {
		for i := 0; i < n; i++ {
			m.Put(key, count)
			key++
		}
	}
	return m
}

func TestHistogram(t *testing.T) {
	h := NewHistogram(21)
	h.AddCounts(testCounts())
	if h.Distinct != 848 {
		t.Fatalf("wrong number of distinct k-mers: %d", h.Distinct)
	}
	if h.Frequency[1] != 500 || h.Frequency[10] != 90 || h.Frequency[Buckets-1] != 3 {
		t.Fatal("wrong histogram buckets")
	}
	if th := h.Threshold(); th != 3 {
		t.Fatalf("wrong threshold: %d", th)
	}
	if NewHistogram(21).Threshold() != -1 {
		t.Fatal("empty histogram should have no threshold")
	}
	if err := h.WriteDistribution(distFile); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(distFile)
	data, err := ioutil.ReadFile(distFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != Buckets-1 || lines[0] != "500" || lines[1] != "100" {
		t.Fatalf("wrong distribution file: %d lines", len(lines))
	}
}

func TestHistogramDumpLoad(t *testing.T) {
	h := NewHistogram(31)
	h.AddCounts(testCounts())
	if err := h.Dump(histFile); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(histFile)
	h2 := &Histogram{}
	if err := h2.Load(histFile); err != nil {
		t.Fatal(err)
	}
	if h2.K != 31 || h2.Distinct != h.Distinct || h2.Threshold() != h.Threshold() {
		t.Fatal("histogram changed in round trip")
	}
}

func TestPrefixString(t *testing.T) {
	if PrefixString(0, 0) != "" || PrefixString(0, 2) != "AA" || PrefixString(6, 2) != "GC" || PrefixString(15, 2) != "TT" {
		t.Fatal("wrong prefix strings")
	}
}

func TestSplit(t *testing.T) {
	if err := os.MkdirAll(testDir, 0700); err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(testDir)
	counts := testCounts()
	w := &Writer{Dir: testDir, WithCounts: true}
	if err := w.WriteCounts("AC", counts); err != nil {
		t.Fatal(err)
	}
	if err := w.SplitCountsFile("AC", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(w.CountsFile("AC")); !os.IsNotExist(err) {
		t.Fatal("counts file should be removed after the split")
	}
	if w.Good != 228 || w.Bad != 620 {
		t.Fatalf("wrong split: %d good, %d bad", w.Good, w.Bad)
	}
	n, err := CountKeys(w.GoodFile("AC"), true)
	if err != nil || n != 228 {
		t.Fatalf("wrong good file: %d records, %v", n, err)
	}
	err = ReadKeys(w.GoodFile("AC"), true, func(key uint64, count int32) {
		if count <= 3 || counts.Get(key) != count {
			t.Fatalf("bad record in good file: %d %d", key, count)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	keysOnly := &Writer{Dir: testDir, IgnoreBad: true}
	if err := keysOnly.Split("GG", counts, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(keysOnly.BadFile("GG")); !os.IsNotExist(err) {
		t.Fatal("bad file written although ignored")
	}
	if n, _ := CountKeys(keysOnly.GoodFile("GG"), false); n != 228 {
		t.Fatalf("wrong number of good keys: %d", n)
	}
}

func TestWritePrefixes(t *testing.T) {
	path := "test.prefixes"
	if err := WritePrefixes(path, 2); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(path)
	data, _ := ioutil.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 16 || lines[0] != "AA" || lines[15] != "TT" {
		t.Fatalf("wrong prefixes: %v", lines)
	}
}
