package printer

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/arena"
	"github.com/joshuapare/poolkit/internal/format"
)

func newArena(t *testing.T) (*arena.Arena, arena.Handle) {
	t.Helper()
	a, err := arena.New(1024, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Destroy() })
	h, err := a.Alloc(100, arena.FirstFit)
	require.NoError(t, err)
	return a, h
}

func TestPrinter_Text(t *testing.T) {
	a, _ := newArena(t)

	var buf bytes.Buffer
	p := New(a, &buf, DefaultOptions())
	require.NoError(t, p.PrintAll())

	output := buf.String()
	t.Logf("Text output:\n%s", output)

	require.Contains(t, output, "Block 0: Size = 100, Status = Allocated, Offset = 0x0")
	require.Contains(t, output, "Block 1: Size = 876, Status = Free, Offset = 0x7C")
	require.Contains(t, output, "Capacity:        1,024 bytes")
	require.Contains(t, output, "Blocks:          2 (1 allocated, 1 free)")
	require.Contains(t, output, "Integrity:       OK")
	require.NotContains(t, output, "CORRUPTED")
}

// failAfter accepts n writes and rejects the rest.
type failAfter struct {
	n, calls int
}

var errSink = errors.New("sink closed")

func (f *failAfter) Write(b []byte) (int, error) {
	f.calls++
	if f.calls > f.n {
		return 0, errSink
	}
	return len(b), nil
}

func TestPrinter_SummaryStopsOnWriteError(t *testing.T) {
	a, _ := newArena(t)

	w := &failAfter{n: 1}
	err := New(a, w, DefaultOptions()).PrintSummary()
	require.ErrorIs(t, err, errSink)
	require.Equal(t, 2, w.calls)
}

func TestPrinter_TextHumanSizesAndTags(t *testing.T) {
	a, _ := newArena(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.HumanSizes = true
	opts.ShowTags = true
	opts.ShowOffsets = false
	require.NoError(t, New(a, &buf, opts).PrintAll())

	output := buf.String()
	require.Contains(t, output, "Block 0: Size = 100 B, Status = Allocated, Tag = 0xDEADBEEF\n")
	require.Contains(t, output, "Capacity:        1.0 KiB\n")
}

// TestPrinter_Corrupted tests that a damaged tag is flagged in the listing
// and the summary.
func TestPrinter_Corrupted(t *testing.T) {
	a, h := newArena(t)
	format.SetTag(a.Region(), uint32(h.Offset()-arena.HeaderSize), 0)

	var buf bytes.Buffer
	require.NoError(t, New(a, &buf, DefaultOptions()).PrintAll())

	output := buf.String()
	require.Contains(t, output, "Block 0: Size = 100, Status = Allocated, Offset = 0x0 (CORRUPTED)")
	require.Contains(t, output, "Integrity:       CORRUPTED")
	require.NotContains(t, output, "Fragmentation:")
}

func TestPrinter_JSON(t *testing.T) {
	a, _ := newArena(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJSON
	require.NoError(t, New(a, &buf, opts).PrintAll())

	var out struct {
		Capacity int `json:"capacity"`
		Blocks   []struct {
			Index  int    `json:"index"`
			Size   int    `json:"size"`
			Status string `json:"status"`
			TagOK  bool   `json:"tag_ok"`
		} `json:"blocks"`
		Stats struct {
			TotalFree      int     `json:"total_free"`
			TotalAllocated int     `json:"total_allocated"`
			LargestFree    int     `json:"largest_free"`
			Utilization    float64 `json:"utilization"`
		} `json:"stats"`
		Integrity string `json:"integrity"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out), buf.String())
	require.Equal(t, 1024, out.Capacity)
	require.Len(t, out.Blocks, 2)
	require.Equal(t, "Allocated", out.Blocks[0].Status)
	require.Equal(t, 876, out.Blocks[1].Size)
	require.Equal(t, 876, out.Stats.TotalFree)
	require.Equal(t, 100, out.Stats.TotalAllocated)
	require.InDelta(t, 100.0/1024.0, out.Stats.Utilization, 1e-9)
	require.Equal(t, "ok", out.Integrity)
}

func TestPrinter_JSONSummaryOnly(t *testing.T) {
	a, _ := newArena(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJSON
	require.NoError(t, New(a, &buf, opts).PrintSummary())

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.NotContains(t, out, "blocks")
	require.Contains(t, out, "stats")
}

func TestStatusLine(t *testing.T) {
	s := arena.Stats{Blocks: 3, TotalAllocated: 2048, TotalFree: 1500, LargestFree: 1000}
	require.Equal(t, "3 blocks, 2,048 allocated / 1,500 free bytes, largest free 1,000", StatusLine(s))
}
