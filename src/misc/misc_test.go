package misc

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/spf13/cobra"
)

var (
	testFile = "test.fq.gz"
	testDir  = "test-misc/nested"
)

func TestCheckExt(t *testing.T) {
	exts := []string{"fastq", "fq"}
	if err := CheckExt("reads.fq", exts); err != nil {
		t.Fatal(err)
	}
	if err := CheckExt("reads.FASTQ.gz", exts); err != nil {
		t.Fatal(err)
	}
	if err := CheckExt("dir/reads.fq.bz2", exts); err != nil {
		t.Fatal(err)
	}
	if err := CheckExt("reads.txt", exts); err == nil {
		t.Fatal("expected error for unrecognised extension")
	}
	if err := CheckExt("reads.gz", exts); err == nil {
		t.Fatal("expected error for a compressed file with no sequence extension")
	}
}

func TestCheckFileAndDir(t *testing.T) {
	if err := CheckFile(testFile); err == nil {
		t.Fatal("expected error for missing file")
	}
	if err := ioutil.WriteFile(testFile, []byte{}, 0644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(testFile)
	if err := CheckFile(testFile); err == nil {
		t.Fatal("expected error for empty file")
	}
	if err := ioutil.WriteFile(testFile, []byte("@r\nACGT\n+\nIIII\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := CheckFile(testFile); err != nil {
		t.Fatal(err)
	}
	if err := CheckDir(testFile); err == nil {
		t.Fatal("expected error for a file passed as a directory")
	}
	if err := PrepareDir(testDir); err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll("test-misc")
	if err := CheckDir(testDir); err != nil {
		t.Fatal(err)
	}
	if err := PrepareDir(testDir); err != nil {
		t.Fatal(err)
	}
	if err := CheckFile(testDir); err == nil {
		t.Fatal("expected error for a directory passed as a file")
	}
}

func TestCheckRequiredFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("input", "", "")
	cmd.MarkFlagRequired("input")
	if err := CheckRequiredFlags(cmd.Flags()); err == nil {
		t.Fatal("expected error for unset required flag")
	}
	if err := cmd.Flags().Set("input", "reads.fq"); err != nil {
		t.Fatal(err)
	}
	if err := CheckRequiredFlags(cmd.Flags()); err != nil {
		t.Fatal(err)
	}
}
