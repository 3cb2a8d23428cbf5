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
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/will-rowe/kdbg/src/misc"
	"github.com/will-rowe/kdbg/src/version"
)

// the command line arguments
var (
	proc      *int    // number of processors to use
	profiling *bool   // create profile for go pprof
	logFile   *string // name of the log file
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "kdbg",
	Short: "Count k-mers in sequencing reads and build de Bruijn graphs from them",
	Long: `Count k-mers in sequencing reads and build de Bruijn graphs from them.

kdbg count splits the k-mers of a read set into trusted (good) and likely erroneous (bad)
sets using the k-mer frequency histogram. kdbg graph builds a de Bruijn graph from the good
(k+1)-mers, or straight from the reads, and kdbg export writes a graph out as GFA.`,
	Version: version.VERSION,
}

// Execute adds all child commands to the root command sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// init the persistent flags, these are shared by all subcommands
func init() {
	proc = RootCmd.PersistentFlags().IntP("processors", "p", 1, "number of processors to use")
	profiling = RootCmd.PersistentFlags().Bool("profiling", false, "create the files needed to profile kdbg using the go tool pprof")
	logFile = RootCmd.PersistentFlags().String("logFile", "", "filename for log file, default = stdout")
}

// setProcessors clamps the --processors flag to the available CPUs
func setProcessors() {
	if *proc <= 0 || *proc > runtime.NumCPU() {
		*proc = runtime.NumCPU()
	}
	runtime.GOMAXPROCS(*proc)
}

// startLogging sends the log to --logFile, or stdout, the returned func closes the file
func startLogging() func() {
	if *logFile != "" {
		logFH := misc.StartLogging(*logFile)
		log.SetOutput(logFH)
		return func() { logFH.Close() }
	}
	log.SetOutput(os.Stdout)
	return func() {}
}

// interruptible returns a context that is cancelled on the first interrupt signal
func interruptible() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		select {
		case <-sigChan:
			log.Printf("interrupt received, stopping the minions...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
