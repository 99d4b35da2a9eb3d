package printer

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/poolkit/arena"
)

var numbers = message.NewPrinter(language.English)

// size formats a byte count according to the options.
func (p *Printer) size(n int) string {
	if p.opts.HumanSizes {
		return humanize.IBytes(uint64(n))
	}
	return numbers.Sprintf("%d", n)
}

// amount formats a byte count with its unit.
func (p *Printer) amount(n int) string {
	if p.opts.HumanSizes {
		return humanize.IBytes(uint64(n))
	}
	return numbers.Sprintf("%d bytes", n)
}

func percent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// printBlocksText prints lines in the form
//
//	Block 0: Size = 100, Status = Allocated, Offset = 0x0
func (p *Printer) printBlocksText() error {
	blocks, walkErr := p.src.Blocks()
	for _, b := range blocks {
		line := fmt.Sprintf("Block %d: Size = %s, Status = %s", b.Index, p.size(b.Size), b.Status)
		if p.opts.ShowOffsets {
			line += fmt.Sprintf(", Offset = 0x%X", b.Offset)
		}
		if p.opts.ShowTags {
			line += fmt.Sprintf(", Tag = 0x%08X", b.Tag)
		}
		if !b.TagOK() {
			line += " (CORRUPTED)"
		}
		if _, err := fmt.Fprintln(p.writer, line); err != nil {
			return err
		}
	}
	if walkErr != nil {
		_, err := fmt.Fprintf(p.writer, "Walk stopped: %v\n", walkErr)
		return err
	}
	return nil
}

func (p *Printer) printSummaryText() error {
	w := &latchWriter{w: p.writer}
	w.printf("Capacity:        %s\n", p.amount(p.src.Capacity()))

	s, statsErr := p.src.Stats()
	if statsErr == nil {
		w.printf("Blocks:          %s (%s allocated, %s free)\n",
			numbers.Sprintf("%d", s.Blocks),
			numbers.Sprintf("%d", s.AllocatedBlocks),
			numbers.Sprintf("%d", s.FreeBlocks))
		w.printf("Allocated:       %s\n", p.amount(s.TotalAllocated))
		w.printf("Free:            %s\n", p.amount(s.TotalFree))
		w.printf("Largest free:    %s\n", p.amount(s.LargestFree))
		w.printf("Header overhead: %s\n", p.amount(s.HeaderBytes))
		w.printf("Fragmentation:   %s\n", percent(s.Fragmentation))
		w.printf("Utilization:     %s\n", percent(s.Utilization))
	}
	if w.err != nil {
		return w.err
	}
	return writeIntegrity(p.writer, p.src.Corruption())
}

// latchWriter keeps the first write error and skips every later write.
type latchWriter struct {
	w   io.Writer
	err error
}

func (l *latchWriter) printf(format string, args ...interface{}) {
	if l.err != nil {
		return
	}
	_, l.err = fmt.Fprintf(l.w, format, args...)
}

func writeIntegrity(w io.Writer, corruption error) error {
	if corruption != nil {
		_, err := fmt.Fprintf(w, "Integrity:       CORRUPTED (%v)\n", corruption)
		return err
	}
	_, err := fmt.Fprintln(w, "Integrity:       OK")
	return err
}

// StatusLine is a one-line summary used by command-line tools.
func StatusLine(s arena.Stats) string {
	return numbers.Sprintf("%d blocks, %d allocated / %d free bytes, largest free %d",
		s.Blocks, s.TotalAllocated, s.TotalFree, s.LargestFree)
}
