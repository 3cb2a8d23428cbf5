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
	"strings"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/will-rowe/kdbg/src/dbg"
	"github.com/will-rowe/kdbg/src/kmer"
	"github.com/will-rowe/kdbg/src/misc"
	"github.com/will-rowe/kdbg/src/pipeline"
	"github.com/will-rowe/kdbg/src/version"
)

// the command line arguments
var (
	exportGraph *string // graph file made by kdbg graph
	gfaFile     *string // where to write the GFA
)

// the export command (used by cobra)
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a de Bruijn graph as GFA",
	Long: `Write a de Bruijn graph as GFA.

Segments are the canonical k-mers of the graph, links join the two ends of every edge
with a k-1 base overlap. Weighted graphs add a KC tag to each segment. Only graphs with
packed keys (k+1 <= 31) can be exported.`,
	Run: func(cmd *cobra.Command, args []string) {
		runExport()
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return misc.CheckRequiredFlags(cmd.Flags())
	},
}

// a function to initialise the command line arguments
func init() {
	exportGraph = exportCmd.Flags().StringP("graphFile", "g", "", "graph file made by kdbg graph - required")
	gfaFile = exportCmd.Flags().StringP("gfa", "o", "", "GFA file to write (default is the graph file with a .gfa extension)")
	exportCmd.MarkFlagRequired("graphFile")
	RootCmd.AddCommand(exportCmd)
}

// a function to check user supplied parameters
func exportParamCheck() (*pipeline.Info, error) {
	if err := misc.CheckFile(*exportGraph); err != nil {
		return nil, err
	}
	info := new(pipeline.Info)
	if err := info.Load(*exportGraph + ".info"); err != nil {
		return nil, fmt.Errorf("can't load the runtime info for %v: %v", *exportGraph, err)
	}
	if info.Version != version.VERSION {
		return nil, fmt.Errorf("the graph was built with a different version of kdbg (you are currently using version %v)", version.VERSION)
	}
	if info.Graph.Mode != kmer.PackedMode.String() {
		return nil, fmt.Errorf("only graphs with packed keys can be exported, this one has %v keys", info.Graph.Mode)
	}
	if *gfaFile == "" {
		*gfaFile = strings.TrimSuffix(*exportGraph, ".graph") + ".gfa"
	}
	return info, nil
}

/*
  The main function for the export command
*/
func runExport() {
	// set up profiling
	if *profiling == true {
		defer profile.Start(profile.ProfilePath("./")).Stop()
	}
	// start logging
	defer startLogging()()
	log.Printf("this is kdbg (version %s)", version.VERSION)
	log.Printf("starting the export subcommand")
	log.Printf("checking parameters...")
	info, err := exportParamCheck()
	misc.ErrorCheck(err)
	log.Printf("\tgraph run ID: %v", info.RunID)
	log.Printf("\tvertex length: %d", info.Graph.KmerSize)
	log.Printf("\tedges: %d", info.Graph.TotalEdges)
	log.Printf("\tweighted: %v", info.Graph.Weighted)
	log.Printf("loading the graph...")
	var segments int
	if info.Graph.Weighted {
		g := new(dbg.WeightedGraph)
		misc.ErrorCheck(g.Load(*exportGraph))
		log.Printf("writing GFA to \"%v\"...", *gfaFile)
		segments, err = g.SaveGraphAsGFA(*gfaFile)
	} else {
		g := new(dbg.Graph)
		misc.ErrorCheck(g.Load(*exportGraph))
		log.Printf("writing GFA to \"%v\"...", *gfaFile)
		segments, err = g.SaveGraphAsGFA(*gfaFile)
	}
	misc.ErrorCheck(err)
	log.Printf("\tsegments written: %d", segments)
	log.Println("finished")
}
