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
	"sync/atomic"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/will-rowe/kdbg/src/bighash"
	"github.com/will-rowe/kdbg/src/dbg"
	"github.com/will-rowe/kdbg/src/kmer"
	"github.com/will-rowe/kdbg/src/kmerstats"
	"github.com/will-rowe/kdbg/src/misc"
	"github.com/will-rowe/kdbg/src/pipeline"
	"github.com/will-rowe/kdbg/src/seqio"
	"github.com/will-rowe/kdbg/src/version"
)

// bytesPerGoodKey is the graph memory allowed for each good k-mer when building from a count directory
const bytesPerGoodKey = 12

// the command line arguments
var (
	countDir      *string   // directory made by kdbg count
	graphReads    *[]string // FASTA/FASTQ files to build the graph from directly
	graphKmerSize *int      // vertex length when building from reads
	graphMode     *string   // key mode when building from reads
	weighted      *bool     // keep edge weights
	minWeight     *int      // drop edges lighter than this before saving
	graphMemory   *int      // memory for the graph (MB)
	graphProgress *bool     // draw a progress bar
	graphFile     *string   // where to save the graph
)

// the graph command (used by cobra)
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build a de Bruijn graph from counted (k+1)-mers or from reads",
	Long: `Build a de Bruijn graph from counted (k+1)-mers or from reads.

With --countDir, the good (k+1)-mers written by kdbg count become the graph edges and
the vertex length is one less than the counted k-mer size. With --fastq, every (k+1)-mer
of the reads becomes an edge. Weighted graphs keep how often each edge was seen.`,
	Run: func(cmd *cobra.Command, args []string) {
		runGraph()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	countDir = graphCmd.Flags().StringP("countDir", "i", "", "directory containing the output of kdbg count")
	graphReads = graphCmd.Flags().StringSliceP("fastq", "f", []string{}, "FASTA/FASTQ file(s) to build the graph from instead of a count directory")
	graphKmerSize = graphCmd.Flags().IntP("kmerSize", "k", 24, "vertex length (only used with --fastq)")
	graphMode = graphCmd.Flags().String("mode", "packed", "k-mer key mode: packed, rolling or nthash (only used with --fastq)")
	weighted = graphCmd.Flags().BoolP("weighted", "w", false, "if set, the graph keeps edge weights")
	minWeight = graphCmd.Flags().Int("minWeight", 0, "if set with --weighted, edges seen fewer times are dropped and an unweighted graph is saved")
	graphMemory = graphCmd.Flags().IntP("memory", "m", 1024, "maximum memory for the graph (MB)")
	graphProgress = graphCmd.Flags().Bool("progressBar", false, "if set, a progress bar is drawn when the total is known")
	graphFile = graphCmd.PersistentFlags().StringP("graphFile", "o", "./kdbg.graph", "file to save the graph to")
	RootCmd.AddCommand(graphCmd)
}

// graphSource describes where the edges come from
type graphSource struct {
	fromReads  bool
	k          int
	mode       kmer.Mode
	keyFiles   []string
	withCounts bool
}

// a function to check user supplied parameters
func graphParamCheck() (*graphSource, error) {
	if (*countDir == "") == (len(*graphReads) == 0) {
		return nil, fmt.Errorf("set exactly one of --countDir or --fastq - run `kdbg graph --help` for more info on the command")
	}
	if *graphMemory < 1 {
		return nil, fmt.Errorf("memory must be at least 1 MB")
	}
	if *minWeight < 0 || (*minWeight > 0 && !*weighted) {
		return nil, fmt.Errorf("--minWeight needs --weighted and a positive weight")
	}
	setProcessors()
	if len(*graphReads) != 0 {
		mode, err := kmer.ParseMode(*graphMode)
		if err != nil {
			return nil, err
		}
		if err := kmer.CheckK(mode, *graphKmerSize+1); err != nil {
			return nil, err
		}
		for _, file := range *graphReads {
			if err := misc.CheckFile(file); err != nil {
				return nil, err
			}
			if err := misc.CheckExt(file, sequenceExts); err != nil {
				return nil, err
			}
		}
		return &graphSource{fromReads: true, k: *graphKmerSize, mode: mode}, nil
	}
	if err := misc.CheckDir(*countDir); err != nil {
		return nil, err
	}
	info := new(pipeline.Info)
	if err := info.Load(filepath.Join(*countDir, infoFile)); err != nil {
		return nil, err
	}
	if info.Version != version.VERSION {
		return nil, fmt.Errorf("the k-mers were counted with a different version of kdbg (you are currently using version %v)", version.VERSION)
	}
	if info.Count.KmerSize < 2 {
		return nil, fmt.Errorf("counted k-mers are too short to make edges (k=%d)", info.Count.KmerSize)
	}
	mode, err := kmer.ParseMode(info.Count.Mode)
	if err != nil {
		return nil, err
	}
	if *weighted && !info.Count.OutputCounts {
		return nil, fmt.Errorf("a weighted graph needs k-mer counts, rerun kdbg count with --outputCounts")
	}
	keyFiles, err := filepath.Glob(filepath.Join(*countDir, "kmers*.good"))
	if err != nil {
		return nil, err
	}
	if len(keyFiles) == 0 {
		return nil, fmt.Errorf("no good k-mer files found in %v", *countDir)
	}
	return &graphSource{k: info.Count.KmerSize - 1, mode: mode, keyFiles: keyFiles, withCounts: info.Count.OutputCounts}, nil
}

// keyProgress counts the good k-mers read so far for the monitor
type keyProgress struct {
	n int64
}

func (kp *keyProgress) Processed() int64 {
	return atomic.LoadInt64(&kp.n)
}

/*
  The main function for the graph command
*/
func runGraph() {
	// set up profiling
	if *profiling == true {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	// start logging
	defer startLogging()()
	start := time.Now()
	log.Printf("this is kdbg (version %s)", version.VERSION)
	log.Printf("starting the graph subcommand")
	// check the supplied files and then log some stuff
	log.Printf("checking parameters...")
	source, err := graphParamCheck()
	misc.ErrorCheck(err)
	log.Printf("\tprocessors: %d", *proc)
	log.Printf("\tvertex length: %d", source.k)
	log.Printf("\tk-mer mode: %v", source.mode)
	log.Printf("\tweighted: %v", *weighted)
	info := pipeline.NewInfo(*proc, *profiling)
	info.Graph = pipeline.GraphCmd{
		KmerSize:  source.k,
		Mode:      source.mode.String(),
		MemoryMB:  *graphMemory,
		Weighted:  *weighted,
		MinWeight: *minWeight,
		FromReads: source.fromReads,
		OutFile:   *graphFile,
	}
	memory := uint64(*graphMemory) << 20
	///////////////////////////////////////////////////////////////////////////////////////
	var graph *dbg.Graph
	var weightedGraph *dbg.WeightedGraph
	if source.fromReads {
		info.Graph.Inputs = *graphReads
		log.Printf("adding the (k+1)-mers of %d read file(s) to the graph...", len(*graphReads))
		ctx, stop := interruptible()
		defer stop()
		var sink pipeline.Sink
		if *weighted {
			weightedGraph = dbg.NewWeightedGraphForMemory(source.k, memory)
			sink = dbg.NewSyncWeightedGraph(weightedGraph)
		} else {
			graph = dbg.NewGraphForMemory(source.k, memory)
			sink = dbg.NewSyncGraph(graph)
		}
		opts := pipeline.Options{
			K:       source.k + 1,
			Mode:    source.mode,
			NumProc: *proc,
		}
		stats, err := pipeline.Load(ctx, seqio.NewReader(source.k+1, *graphReads...), sink, opts)
		misc.ErrorCheck(err)
		log.Printf("\tsequences read: %d", stats.Sequences)
		log.Printf("\tedges seen: %d", stats.Kmers)
	} else {
		info.Graph.Inputs = source.keyFiles
		log.Printf("sizing the graph from %d good k-mer file(s)...", len(source.keyFiles))
		var total int64
		for _, file := range source.keyFiles {
			n, err := kmerstats.CountKeys(file, source.withCounts)
			misc.ErrorCheck(err)
			total += n
		}
		log.Printf("\tgood (k+1)-mers: %d", total)
		var capacity uint64
		if *weighted {
			capacity = dbg.WeightedCapacity(uint64(total), memory)
			weightedGraph = dbg.NewWeightedGraph(source.k, capacity)
		} else {
			capacity = capMemory(total, bytesPerGoodKey, memory) / bighash.BytesPerSetEntry
			graph = dbg.NewGraph(source.k, capacity)
		}
		if capacity < uint64(total) {
			misc.ErrorCheck(fmt.Errorf("%d MB holds %d edges, not the %d good (k+1)-mers - raise --memory", *graphMemory, capacity, total))
		}
		log.Printf("\tgraph capacity: %d edges", capacity)
		log.Printf("adding the good (k+1)-mers to the graph...")
		progress := &keyProgress{}
		monitor := pipeline.NewMonitor(progress, total, *graphProgress)
		monitor.Start()
		for _, file := range source.keyFiles {
			err := kmerstats.ReadKeys(file, source.withCounts, func(key uint64, count int32) {
				if weightedGraph != nil {
					weightedGraph.AddWeight(key, count)
				} else {
					graph.PutEdge(key)
				}
				atomic.AddInt64(&progress.n, 1)
			})
			misc.ErrorCheck(err)
		}
		monitor.Stop()
	}
	///////////////////////////////////////////////////////////////////////////////////////
	if weightedGraph != nil && *minWeight > 0 {
		log.Printf("dropping edges seen fewer than %d times...", *minWeight)
		graph = weightedGraph.Threshold(int32(*minWeight))
		weightedGraph = nil
		info.Graph.Weighted = false
	}
	log.Printf("saving the graph to \"%v\"...", *graphFile)
	if weightedGraph != nil {
		info.Graph.TotalEdges = weightedGraph.EdgesSize()
		misc.ErrorCheck(weightedGraph.Dump(*graphFile))
	} else {
		info.Graph.TotalEdges = graph.EdgesSize()
		misc.ErrorCheck(graph.Dump(*graphFile))
	}
	log.Printf("\tedges: %d", info.Graph.TotalEdges)
	misc.ErrorCheck(info.Dump(*graphFile + ".info"))
	log.Printf("\tsaved runtime info")
	log.Printf("finished in %v", time.Since(start).Round(time.Millisecond))
}

// capMemory returns the bytes needed for n keys, capped at the memory limit
func capMemory(n int64, bytesPerKey, limit uint64) uint64 {
	need := uint64(n) * bytesPerKey
	if need == 0 {
		need = bytesPerKey
	}
	if need > limit {
		log.Printf("\twarning: %d keys need %d MB, capped at %d MB", n, need>>20, limit>>20)
		return limit
	}
	return need
}
