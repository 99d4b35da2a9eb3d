package main

import (
	"github.com/spf13/cobra"
)

var demoCorrupt bool

// demoScript allocates, inspects and releases a block, then shows that the
// release merged everything back into one free block.
var demoScript = []string{
	"dump",
	"alloc:100",
	"dump",
	"stats",
	"free:0",
	"dump",
	"stats",
	"validate",
}

// corruptScript damages a header and shows the checks catching it.
var corruptScript = []string{
	"alloc:100",
	"alloc:200",
	"corrupt:1",
	"dump",
	"validate",
	"free:0",
}

func init() {
	cmd := newDemoCmd()
	cmd.Flags().BoolVar(&demoCorrupt, "corrupt", false, "Run the corruption-detection demo instead")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a canned allocation demo",
		Long: `The demo command creates an arena (1024 bytes unless --capacity is
given), allocates 100 bytes, shows the split, releases the block and shows
it merging back into a single free block.

With --corrupt it instead overwrites a header's integrity tag and shows
validate and free rejecting the damaged chain.

Example:
  poolctl demo
  poolctl demo --corrupt
  poolctl demo --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo()
		},
	}
	return cmd
}

func runDemo() error {
	script := demoScript
	if demoCorrupt {
		script = corruptScript
	}
	ops, err := parseOps(script)
	if err != nil {
		return err
	}
	return run(ops)
}
