// Command threshold-cli is a demo/bench driver for the triple
// generation pipeline: it wires N engine.Machines together over an
// in-process simulated network and runs them through base OT, Triple
// Setup, and full Triple Generation, printing the resulting public
// commitments and checking the reconstructed shares multiply out.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	numParties int
	threshold  int
	batchSize  int
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "threshold-cli",
		Short: "Demo driver for the threshold-ecdsa triple generation pipeline",
	}

	triplesCmd = &cobra.Command{
		Use:   "triples",
		Short: "Run one Triple Generation instance across a simulated N-party network",
		RunE:  runTriples,
	}

	batchCmd = &cobra.Command{
		Use:   "batch",
		Short: "Run many Triple Generation instances concurrently via pkg/triples.Batch",
		RunE:  runBatch,
	}
)

func init() {
	rootCmd.PersistentFlags().IntVarP(&numParties, "parties", "n", 3, "number of simulated parties")
	rootCmd.PersistentFlags().IntVarP(&threshold, "threshold", "t", 2, "signing threshold")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable engine lifecycle logging")

	batchCmd.Flags().IntVarP(&batchSize, "count", "c", 8, "number of concurrent triple instances")

	rootCmd.AddCommand(triplesCmd, batchCmd)
}

func newLogger() *zap.SugaredLogger {
	if !verbose {
		return zap.NewNop().Sugar()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
