package arena

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// newTestArena creates an arena that is destroyed when the test ends.
func newTestArena(t *testing.T, capacity int, opts *Options) *Arena {
	t.Helper()
	a, err := New(capacity, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := a.Destroy(); err != nil && !errors.Is(err, ErrDestroyed) {
			t.Errorf("destroy: %v", err)
		}
	})
	return a
}

// requireInvariants checks the structural invariants and the accounting
// identity free + allocated + blocks*HeaderSize == capacity.
func requireInvariants(t *testing.T, a *Arena) {
	t.Helper()
	require.NoError(t, a.Validate())

	s, err := a.Stats()
	require.NoError(t, err)
	require.Equal(t, a.Capacity(), s.TotalFree+s.TotalAllocated+s.Blocks*HeaderSize,
		"accounting identity broken: %+v", s)
	require.Equal(t, s.TotalAllocated, a.TotalAllocated(), "running counter disagrees with scan")
	require.Equal(t, s.TotalFree, a.TotalFree())
	require.Equal(t, s.LargestFree, a.LargestFree())
	require.Equal(t, s.Blocks, s.FreeBlocks+s.AllocatedBlocks)
}

type shape struct {
	size   int
	status Status
}

// requireLayout checks the chain against the expected sequence of blocks.
func requireLayout(t *testing.T, a *Arena, want ...shape) {
	t.Helper()
	blocks, err := a.Blocks()
	require.NoError(t, err)
	got := make([]shape, len(blocks))
	for i, b := range blocks {
		got[i] = shape{size: b.Size, status: b.Status}
	}
	require.Equal(t, want, got)
}

func alloc(t *testing.T, a *Arena, size int, s Strategy) Handle {
	t.Helper()
	h, err := a.Alloc(size, s)
	require.NoError(t, err, "alloc %d %s", size, s)
	return h
}
