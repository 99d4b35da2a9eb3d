// Package printer renders arena block listings and usage summaries as text
// or JSON. It only uses read-only queries, so it can be pointed at a
// damaged arena to show where the damage is.
package printer

import (
	"io"

	"github.com/joshuapare/poolkit/arena"
)

// Format specifies the output format for printing.
type Format string

const (
	// FormatText outputs human-readable text format.
	FormatText Format = "text"

	// FormatJSON outputs JSON format.
	FormatJSON Format = "json"
)

// Source is the read-only view of an arena the printer needs.
// *arena.Arena implements it.
type Source interface {
	Capacity() int
	Blocks() ([]arena.BlockInfo, error)
	Stats() (arena.Stats, error)
	Corruption() error
}

// Options controls printing behavior.
type Options struct {
	// Format specifies output format (text, json).
	// Default: FormatText
	Format Format

	// HumanSizes renders byte counts as "1.0 KiB" instead of "1,024".
	// Text format only.
	// Default: false
	HumanSizes bool

	// ShowOffsets includes each block's header offset.
	// Default: true
	ShowOffsets bool

	// ShowTags includes each block's integrity tag.
	// Default: false
	ShowTags bool
}

// DefaultOptions returns sensible defaults for printing.
func DefaultOptions() Options {
	return Options{
		Format:      FormatText,
		ShowOffsets: true,
	}
}

// Printer handles formatted output of arena state.
type Printer struct {
	opts   Options
	writer io.Writer
	src    Source
}

// New creates a new Printer.
//
// Example:
//
//	a, _ := arena.New(1024, nil)
//	p := printer.New(a, os.Stdout, printer.DefaultOptions())
//	p.PrintAll()
func New(src Source, w io.Writer, opts Options) *Printer {
	return &Printer{
		src:    src,
		writer: w,
		opts:   opts,
	}
}

// PrintBlocks prints one line per block in address order.
func (p *Printer) PrintBlocks() error {
	if p.opts.Format == FormatJSON {
		return p.printJSON(true, false)
	}
	return p.printBlocksText()
}

// PrintSummary prints capacity, usage, fragmentation and integrity.
func (p *Printer) PrintSummary() error {
	if p.opts.Format == FormatJSON {
		return p.printJSON(false, true)
	}
	return p.printSummaryText()
}

// PrintAll prints the block listing followed by the summary.
func (p *Printer) PrintAll() error {
	if p.opts.Format == FormatJSON {
		return p.printJSON(true, true)
	}
	if err := p.printBlocksText(); err != nil {
		return err
	}
	return p.printSummaryText()
}
