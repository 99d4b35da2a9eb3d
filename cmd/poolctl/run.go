package main

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

var runScript string

func init() {
	cmd := newRunCmd()
	cmd.Flags().StringVarP(&runScript, "script", "f", "", "Read ops from a file (- for stdin)")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [op...]",
		Short: "Run a sequence of ops against a fresh arena",
		Long: `The run command creates an arena from the global flags and applies
each op in order, reporting its outcome. Failed ops (for example an
allocation that runs out of memory) are reported and the run continues.

Ops:
  alloc:N[:strategy]  allocate N bytes (first, best or worst fit)
  free:K              release the K-th successful allocation (0-based)
  defrag              merge adjacent free blocks
  corrupt:I           overwrite the integrity tag of block I
  stats               print a one-line usage summary
  dump                print the block chain
  validate            run the full structural check
  reset               return the arena to a single free block

Example:
  poolctl run alloc:100 alloc:200:best free:0 dump
  poolctl run -c 4096 -s worst -f ops.txt
  poolctl run alloc:100 corrupt:0 validate --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	return cmd
}

func runRun(args []string) error {
	ops, err := parseOps(args)
	if err != nil {
		return err
	}
	if runScript != "" {
		var r io.Reader = os.Stdin
		if runScript != "-" {
			f, err := os.Open(runScript)
			if err != nil {
				return errors.Wrap(err, "open script")
			}
			defer f.Close()
			r = f
		}
		more, err := parseScript(r)
		if err != nil {
			return err
		}
		ops = append(ops, more...)
	}
	if len(ops) == 0 {
		return errors.New("no ops given (pass ops as arguments or use --script)")
	}
	printVerbose("Running %d ops\n", len(ops))
	return run(ops)
}
