package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joshuapare/poolkit/arena"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool

	// Arena flags shared by run and demo
	capacity  int
	strategy  string
	alignment int
	backing   string
	poison    bool
	human     bool
)

var rootCmd = &cobra.Command{
	Use:   "poolctl",
	Short: "Exercise and inspect a fixed-capacity arena allocator",
	Long: `poolctl creates an arena, runs a sequence of allocations and releases
against it, and prints the resulting block chain, usage statistics and
integrity checks.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logging")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")

	rootCmd.PersistentFlags().IntVarP(&capacity, "capacity", "c", 1024, "Arena capacity in bytes, headers included")
	rootCmd.PersistentFlags().StringVarP(&strategy, "strategy", "s", "first", "Default placement strategy (first, best, worst)")
	rootCmd.PersistentFlags().IntVar(&alignment, "align", 1, "Round requests up to this power of two")
	rootCmd.PersistentFlags().StringVar(&backing, "backing", "heap", "Region backing (heap, mmap)")
	rootCmd.PersistentFlags().BoolVar(&poison, "poison", false, "Fill released payloads with 0xFF")
	rootCmd.PersistentFlags().BoolVarP(&human, "human", "H", false, "Print sizes in KiB/MiB")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// arenaOptions builds arena options from the global flags.
func arenaOptions() (*arena.Options, error) {
	opts := arena.DefaultOptions()
	s, err := arena.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	opts.Strategy = s
	opts.Alignment = alignment
	opts.Poison = poison
	switch backing {
	case "heap":
		opts.Backing = arena.BackingHeap
	case "mmap":
		opts.Backing = arena.BackingMmap
	default:
		return nil, errors.Newf("unknown backing %q (must be heap or mmap)", backing)
	}
	if verbose && !quiet {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, errors.Wrap(err, "create logger")
		}
		opts.Logger = logger
	}
	return &opts, nil
}

// newArena creates an arena from the global flags.
func newArena() (*arena.Arena, error) {
	opts, err := arenaOptions()
	if err != nil {
		return nil, err
	}
	printVerbose("Creating arena: capacity=%d strategy=%s backing=%s align=%d\n",
		capacity, opts.Strategy, opts.Backing, opts.Alignment)
	return arena.New(capacity, opts)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
