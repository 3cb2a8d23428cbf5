// Copyright © 2017 Will Rowe <will.rowe@stfc.ac.uk>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/will-rowe/kdbg/src/bighash"
	"github.com/will-rowe/kdbg/src/kmer"
	"github.com/will-rowe/kdbg/src/kmerstats"
	"github.com/will-rowe/kdbg/src/misc"
	"github.com/will-rowe/kdbg/src/pipeline"
	"github.com/will-rowe/kdbg/src/seqio"
	"github.com/will-rowe/kdbg/src/version"
)

// names of the files written to the count directory
const (
	infoFile         = "kdbg.info"
	histogramFile    = "kmers.hist"
	distributionFile = "distribution"
	prefixesFile     = "prefixes"
)

// the command line arguments
var (
	countKmerSize *int      // size of k-mer
	countMode     *string   // how k-mers are turned into keys
	prefixLength  *int      // number of bases used to split the counting into passes
	taskSize      *int      // number of sequences handed to a minion at a time
	shardBits     *int      // log2 of the number of count map shards
	countMemory   *int      // memory for the count map (MB)
	maxBadFreq    *int      // maximal bad k-mer frequency, -1 to find it from the histogram
	ignoreBad     *bool     // don't write the bad k-mer files
	outputCounts  *bool     // write counts alongside the k-mers
	progressBar   *bool     // draw a progress bar
	countInputs   *[]string // FASTA/FASTQ files to count
	countOutDir   *string   // directory to save the k-mer files to
)

var (
	defaultCountDir = "./kdbg-count-" + string(time.Now().Format("20060102150405")) // a default dir to store the k-mer files
	sequenceExts    = []string{"fastq", "fq", "fasta", "fa", "fna", "fas"}          // accepted input extensions
)

// the count command (used by cobra)
var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count the k-mers of a read set and split them into good and bad k-mers",
	Long: `Count the k-mers of a read set and split them into good and bad k-mers.

K-mers seen no more than the maximal bad frequency are written to kmers<PREFIX>.bad files,
the rest to kmers<PREFIX>.good files. Unless set with -b, the maximal bad frequency is the
first local minimum of the k-mer frequency histogram. To build a de Bruijn graph of k-mers
afterwards, count (k+1)-mers.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCount()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	countKmerSize = countCmd.Flags().IntP("kmerSize", "k", 25, "size of k-mer (use k+1 if the k-mers will be used for a graph)")
	countMode = countCmd.Flags().String("mode", "packed", "k-mer key mode: packed (k <= 31), rolling or nthash")
	prefixLength = countCmd.Flags().IntP("prefixLength", "l", 0, "count in 4^l passes, one per k-mer prefix of l bases, to bound memory")
	taskSize = countCmd.Flags().Int("taskSize", pipeline.DefaultTaskSize, "number of sequences a minion takes from the reader at a time")
	shardBits = countCmd.Flags().Int("shardBits", 4, "the count map is split into 2^shardBits locked shards")
	countMemory = countCmd.Flags().IntP("memory", "m", 1024, "memory for the k-mer count map (MB)")
	maxBadFreq = countCmd.Flags().IntP("maxBadFreq", "b", -1, "maximal bad k-mer frequency, -1 finds it from the histogram")
	ignoreBad = countCmd.Flags().Bool("ignoreBad", false, "if set, the bad k-mer files are not written")
	outputCounts = countCmd.Flags().Bool("outputCounts", false, "if set, each k-mer is followed by its count in the k-mer files")
	progressBar = countCmd.Flags().Bool("progressBar", false, "if set, a progress bar is drawn for every pass after the first")
	countInputs = countCmd.Flags().StringSliceP("fastq", "f", []string{}, "FASTA/FASTQ file(s) to count, optionally compressed - required")
	countOutDir = countCmd.PersistentFlags().StringP("outDir", "o", defaultCountDir, "directory to save the k-mer files to")
	countCmd.MarkFlagRequired("fastq")
	RootCmd.AddCommand(countCmd)
}

// a function to check user supplied parameters
func countParamCheck() (kmer.Mode, error) {
	mode, err := kmer.ParseMode(*countMode)
	if err != nil {
		return mode, err
	}
	if err := kmer.CheckK(mode, *countKmerSize); err != nil {
		return mode, err
	}
	if len(*countInputs) == 0 {
		return mode, fmt.Errorf("no input files specified - run `kdbg count --help` for more info on the command")
	}
	for _, file := range *countInputs {
		if err := misc.CheckFile(file); err != nil {
			return mode, err
		}
		if err := misc.CheckExt(file, sequenceExts); err != nil {
			return mode, err
		}
	}
	if *prefixLength < 0 || uint(2*(*prefixLength)) > kmer.KeyBits(mode, *countKmerSize) {
		return mode, fmt.Errorf("prefix length %d is too long for k=%d", *prefixLength, *countKmerSize)
	}
	if *shardBits < 0 || *shardBits > 16 {
		return mode, fmt.Errorf("shardBits must be between 0 and 16")
	}
	if *countMemory < 1 {
		return mode, fmt.Errorf("memory must be at least 1 MB")
	}
	if *maxBadFreq < -1 {
		return mode, fmt.Errorf("maximal bad frequency must be -1 (automatic) or more")
	}
	if err := misc.PrepareDir(*countOutDir); err != nil {
		return mode, err
	}
	setProcessors()
	return mode, nil
}

/*
  The main function for the count command
*/
func runCount() {
	// set up profiling
	if *profiling == true {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	// start logging
	defer startLogging()()
	start := time.Now()
	log.Printf("this is kdbg (version %s)", version.VERSION)
	log.Printf("starting the count subcommand")
	// check the supplied files and then log some stuff
	log.Printf("checking parameters...")
	mode, err := countParamCheck()
	misc.ErrorCheck(err)
	log.Printf("\tprocessors: %d", *proc)
	log.Printf("\tk-mer size: %d", *countKmerSize)
	log.Printf("\tk-mer mode: %v", mode)
	log.Printf("\tprefix length: %d (%d passes)", *prefixLength, pipeline.NumPasses(*prefixLength))
	log.Printf("\tcount map: %d shards, %d MB", 1<<uint(*shardBits), *countMemory)
	for _, file := range *countInputs {
		log.Printf("\tinput file: %v", file)
	}
	info := pipeline.NewInfo(*proc, *profiling)
	info.Count = pipeline.CountCmd{
		KmerSize:     *countKmerSize,
		Mode:         mode.String(),
		PrefixLength: *prefixLength,
		TaskSize:     *taskSize,
		ShardBits:    *shardBits,
		MemoryMB:     *countMemory,
		MaxBadFreq:   *maxBadFreq,
		OutputCounts: *outputCounts,
		Inputs:       *countInputs,
		OutDir:       *countOutDir,
	}
	log.Printf("\trun ID: %v", info.RunID)
	///////////////////////////////////////////////////////////////////////////////////////
	log.Printf("counting k-mers...")
	ctx, stop := interruptible()
	defer stop()
	counts := bighash.NewShardedMapForMemory(uint(*shardBits), uint64(*countMemory)<<20)
	hist := kmerstats.NewHistogram(*countKmerSize)
	writer := &kmerstats.Writer{Dir: *countOutDir, IgnoreBad: *ignoreBad, WithCounts: *outputCounts}
	singlePass := *prefixLength == 0
	threshold := *maxBadFreq
	opts := pipeline.Options{
		K:            *countKmerSize,
		Mode:         mode,
		NumProc:      *proc,
		TaskSize:     *taskSize,
		PrefixLength: *prefixLength,
		ProgressBar:  *progressBar,
	}
	open := func() (pipeline.Source, error) {
		return seqio.NewReader(*countKmerSize, *countInputs...), nil
	}
	stats, err := pipeline.CountPasses(ctx, open, counts, opts, func(prefix uint64, passCounts *bighash.ShardedMap) error {
		hist.AddCounts(passCounts)
		if passCounts.Size() > passCounts.Capacity()/4*3 {
			log.Printf("\twarning: count map is %.0f%% full, consider more memory or a longer prefix", 100*float64(passCounts.Size())/float64(passCounts.Capacity()))
		}
		name := kmerstats.PrefixString(prefix, *prefixLength)
		if !singlePass {
			return writer.WriteCounts(name, passCounts)
		}
		// the histogram is complete after a single pass, so split straight from memory
		if threshold == -1 {
			threshold = hist.Threshold()
		}
		return writer.Split(name, passCounts, threshold)
	})
	misc.ErrorCheck(err)
	log.Printf("\tsequences read: %d", stats.Sequences)
	log.Printf("\tk-mers seen: %d", stats.Kmers)
	log.Printf("\tdistinct k-mers: %d", hist.Distinct)
	///////////////////////////////////////////////////////////////////////////////////////
	if threshold == -1 {
		threshold = hist.Threshold()
	}
	if *maxBadFreq == -1 {
		if threshold == -1 {
			log.Printf("no minimum found in the k-mer histogram, every k-mer is good")
		} else {
			log.Printf("maximal bad frequency from the histogram: %d", threshold)
		}
	}
	if !singlePass {
		log.Printf("splitting k-mers into good and bad...")
		for prefix := uint64(0); prefix < pipeline.NumPasses(*prefixLength); prefix++ {
			misc.ErrorCheck(writer.SplitCountsFile(kmerstats.PrefixString(prefix, *prefixLength), threshold))
		}
	}
	log.Printf("\tgood k-mers: %d", writer.Good)
	log.Printf("\tbad k-mers: %d", writer.Bad)
	///////////////////////////////////////////////////////////////////////////////////////
	// record runtime info
	info.Count.Threshold = threshold
	info.Count.TotalReads = stats.Sequences
	info.Count.TotalKmers = stats.Kmers
	info.Count.Distinct = uint64(hist.Distinct)
	log.Printf("saving statistics to \"%v\"...", *countOutDir)
	misc.ErrorCheck(hist.WriteDistribution(filepath.Join(*countOutDir, distributionFile)))
	misc.ErrorCheck(hist.Dump(filepath.Join(*countOutDir, histogramFile)))
	log.Printf("\tsaved k-mer histogram")
	if *prefixLength > 0 {
		misc.ErrorCheck(kmerstats.WritePrefixes(filepath.Join(*countOutDir, prefixesFile), *prefixLength))
		log.Printf("\tsaved prefix list")
	}
	misc.ErrorCheck(info.Dump(filepath.Join(*countOutDir, infoFile)))
	log.Printf("\tsaved runtime info")
	log.Printf("finished in %v", time.Since(start).Round(time.Millisecond))
}
