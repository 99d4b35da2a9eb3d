package arena

import (
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/format"
)

// TestScenario_AllocFreeRoundTrip walks the 1024-byte scenario: one free
// block of 1000, a 100-byte grant that splits off a free 876, and a release
// that merges back into a single free 1000.
func TestScenario_AllocFreeRoundTrip(t *testing.T) {
	a := newTestArena(t, 1024, nil)
	requireLayout(t, a, shape{1000, Free})
	requireInvariants(t, a)

	h := alloc(t, a, 100, FirstFit)
	assert.Equal(t, HeaderSize, h.Offset())
	requireLayout(t, a, shape{100, Allocated}, shape{876, Free})
	assert.Equal(t, 100, a.TotalAllocated())
	assert.Equal(t, 876, a.TotalFree())
	requireInvariants(t, a)

	require.NoError(t, a.Free(h))
	requireLayout(t, a, shape{1000, Free})

	s, err := a.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1000, s.TotalFree)
	assert.Equal(t, 0, s.TotalAllocated)
	assert.Equal(t, 1000, s.LargestFree)
	assert.Equal(t, 1, s.Blocks)
	assert.InDelta(t, 0.0, s.Fragmentation, 1e-9)
	assert.True(t, a.IsEmpty())
	requireInvariants(t, a)

	c := a.Counters()
	assert.Equal(t, 1, c.SplitCount)
	assert.Equal(t, 1, c.CoalesceForward)
	assert.Equal(t, 0, c.CoalesceBackward)
	assert.Equal(t, 1, c.Grants)
	assert.Equal(t, 1, c.Releases)
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, c := range []int{-1, 0, 1, HeaderSize} {
		_, err := New(c, nil)
		require.Error(t, err, "capacity %d", c)
		assert.True(t, errors.Is(err, ErrInvalidSize), "capacity %d: %v", c, err)
	}
	if strconv.IntSize == 64 {
		tooBig := uint64(MaxCapacity) + 1
		_, err := New(int(tooBig), &Options{})
		assert.True(t, errors.Is(err, ErrInvalidSize))
	}
}

// TestNew_MinimalArena tests the smallest arena: one header and one byte.
func TestNew_MinimalArena(t *testing.T) {
	a := newTestArena(t, HeaderSize+1, nil)
	requireLayout(t, a, shape{1, Free})

	_, err := a.Alloc(2, FirstFit)
	assert.True(t, errors.Is(err, ErrInvalidSize))

	h := alloc(t, a, 1, FirstFit)
	requireLayout(t, a, shape{1, Allocated})
	require.NoError(t, a.Free(h))
	requireInvariants(t, a)
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"strategy", Options{Strategy: Strategy(9)}, ErrInvalidStrategy},
		{"alignment not power of two", Options{Alignment: 6}, ErrInvalidSize},
		{"alignment too large", Options{Alignment: 8192}, ErrInvalidSize},
		{"negative alignment", Options{Alignment: -8}, ErrInvalidSize},
		{"backing", Options{Backing: Backing(7)}, ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			_, err := New(1024, &opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "%v", err)
		})
	}
}

// TestNew_MmapBacking tests an arena whose region is mapped outside the heap.
func TestNew_MmapBacking(t *testing.T) {
	opts := DefaultOptions()
	opts.Backing = BackingMmap
	a := newTestArena(t, 64*1024, &opts)

	h := alloc(t, a, 4000, BestFit)
	payload, err := a.Bytes(h)
	require.NoError(t, err)
	for i := range payload {
		payload[i] = byte(i)
	}
	requireInvariants(t, a)
	require.NoError(t, a.Free(h))
	require.NoError(t, a.Destroy())
}

// TestDestroy tests that every operation on a destroyed arena fails cleanly
// and that its handles are rejected.
func TestDestroy(t *testing.T) {
	a, err := New(512, nil)
	require.NoError(t, err)
	h := alloc(t, a, 32, FirstFit)
	gen := a.Generation()

	require.NoError(t, a.Destroy())
	assert.Greater(t, a.Generation(), gen)

	assert.True(t, errors.Is(a.Destroy(), ErrDestroyed))
	_, err = a.Alloc(8, FirstFit)
	assert.True(t, errors.Is(err, ErrDestroyed))

	err = a.Free(h)
	assert.True(t, errors.Is(err, ErrDestroyed))
	assert.True(t, errors.Is(err, ErrInvalidPointer))

	other := newTestArena(t, 512, nil)
	foreign := alloc(t, other, 32, FirstFit)
	for _, bad := range []Handle{{}, foreign} {
		err = a.Free(bad)
		assert.True(t, errors.Is(err, ErrDestroyed), "free %s: %v", bad, err)
		_, err = a.Bytes(bad)
		assert.True(t, errors.Is(err, ErrDestroyed), "bytes %s: %v", bad, err)
	}

	_, err = a.Stats()
	assert.True(t, errors.Is(err, ErrDestroyed))
	assert.True(t, errors.Is(a.Validate(), ErrDestroyed))

	assert.Zero(t, a.TotalFree())
	assert.Zero(t, a.TotalAllocated())
	assert.Zero(t, a.LargestFree())
	assert.Zero(t, a.Capacity())
	assert.Nil(t, a.Region())
	assert.False(t, a.IsEmpty())
	assert.False(t, a.Fits(1, FirstFit))
}

func TestNilArena(t *testing.T) {
	var a *Arena
	_, err := a.Alloc(8, FirstFit)
	assert.True(t, errors.Is(err, ErrNullArgument))
	assert.True(t, errors.Is(a.Free(Handle{}), ErrNullArgument))
	assert.True(t, errors.Is(a.Destroy(), ErrNullArgument))
	assert.Zero(t, a.TotalFree())
}

// TestReset tests that Reset restores the initial block and invalidates
// handles from the previous generation.
func TestReset(t *testing.T) {
	a := newTestArena(t, 1024, nil)
	h1 := alloc(t, a, 100, FirstFit)
	alloc(t, a, 200, FirstFit)

	require.NoError(t, a.Reset())
	requireLayout(t, a, shape{1000, Free})
	assert.Zero(t, a.TotalAllocated())

	err := a.Free(h1)
	assert.True(t, errors.Is(err, ErrInvalidPointer))
	assert.Contains(t, err.Error(), "stale")

	h2 := alloc(t, a, 100, FirstFit)
	assert.Equal(t, h1.Offset(), h2.Offset())
	assert.NotEqual(t, h1, h2)
	requireInvariants(t, a)
}

func TestFree_RejectsBadHandles(t *testing.T) {
	a := newTestArena(t, 1024, nil)
	other := newTestArena(t, 1024, nil)

	h := alloc(t, a, 100, FirstFit)
	foreign := alloc(t, other, 100, FirstFit)

	assert.True(t, errors.Is(a.Free(Handle{}), ErrNullArgument))

	// Same offset, different arena.
	assert.True(t, errors.Is(a.Free(foreign), ErrInvalidPointer))

	interior := Handle{arena: h.arena, gen: h.gen, off: h.off + 1}
	assert.True(t, errors.Is(a.Free(interior), ErrInvalidPointer))

	header := Handle{arena: h.arena, gen: h.gen, off: h.off - HeaderSize}
	assert.True(t, errors.Is(a.Free(header), ErrInvalidPointer))

	outside := Handle{arena: h.arena, gen: h.gen, off: 5000}
	assert.True(t, errors.Is(a.Free(outside), ErrInvalidPointer))

	// Payload start of the free tail block is not an allocation.
	tail := Handle{arena: h.arena, gen: h.gen, off: h.off + 100 + HeaderSize}
	err := a.Free(tail)
	assert.True(t, errors.Is(err, ErrInvalidPointer))
	assert.Contains(t, err.Error(), "free block")

	require.NoError(t, a.Free(h))
	assert.True(t, errors.Is(a.Free(h), ErrInvalidPointer), "double free")

	requireInvariants(t, a)
	requireInvariants(t, other)
}

// TestFree_CoalescesBothSides tests that releasing a block between two free
// neighbours leaves one block.
func TestFree_CoalescesBothSides(t *testing.T) {
	a := newTestArena(t, 1024, nil)
	h1 := alloc(t, a, 100, FirstFit)
	h2 := alloc(t, a, 100, FirstFit)
	h3 := alloc(t, a, 100, FirstFit)
	h4 := alloc(t, a, 100, FirstFit)

	require.NoError(t, a.Free(h1))
	require.NoError(t, a.Free(h3))
	requireLayout(t, a,
		shape{100, Free}, shape{100, Allocated}, shape{100, Free}, shape{100, Allocated},
		shape{1000 - 4*(100+HeaderSize), Free})
	requireInvariants(t, a)

	require.NoError(t, a.Free(h2))
	requireLayout(t, a, shape{3*100 + 2*HeaderSize, Free}, shape{100, Allocated},
		shape{1000 - 4*(100+HeaderSize), Free})
	assert.Equal(t, 1, a.Counters().CoalesceForward)
	assert.Equal(t, 1, a.Counters().CoalesceBackward)

	require.NoError(t, a.Free(h4))
	requireLayout(t, a, shape{1000, Free})
	requireInvariants(t, a)
}

// TestPayloadIsolation writes every byte of every payload and checks that
// no header was touched.
func TestPayloadIsolation(t *testing.T) {
	a := newTestArena(t, 4096, nil)
	sizes := []int{1, 7, 24, 25, 100, 333}
	handles := make([]Handle, len(sizes))
	for i, n := range sizes {
		handles[i] = alloc(t, a, n, FirstFit)
	}
	for i, h := range handles {
		p, err := a.Bytes(h)
		require.NoError(t, err)
		require.Len(t, p, sizes[i])
		require.Equal(t, sizes[i], cap(p), "payload capacity must not reach the next header")
		for j := range p {
			p[j] = 0xA5
		}
	}
	requireInvariants(t, a)
	for i, h := range handles {
		p, err := a.Bytes(h)
		require.NoError(t, err)
		for j := range p {
			require.Equal(t, byte(0xA5), p[j], "block %d byte %d", i, j)
		}
	}
}

// TestAlignment tests that requests are rounded up to the configured alignment.
func TestAlignment(t *testing.T) {
	opts := DefaultOptions()
	opts.Alignment = 8
	a := newTestArena(t, 1024, &opts)

	h := alloc(t, a, 13, FirstFit)
	info, err := a.Lookup(h)
	require.NoError(t, err)
	assert.Equal(t, 16, info.Size)
	assert.Equal(t, 16, a.TotalAllocated())

	h2 := alloc(t, a, 8, FirstFit)
	assert.Equal(t, 0, h2.Offset()%8)
	requireInvariants(t, a)

	// 997 rounds up to 1000, more than any free block now holds.
	_, err = a.Alloc(997, FirstFit)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
}

// TestWholeBlockGrant tests that a block too small to split is granted
// whole and the slack counts as allocated.
func TestWholeBlockGrant(t *testing.T) {
	a := newTestArena(t, 1024, nil)
	// 1000 - 980 = 20 bytes of slack, too little for a header.
	h := alloc(t, a, 980, FirstFit)
	requireLayout(t, a, shape{1000, Allocated})
	assert.Equal(t, 1000, a.TotalAllocated())
	assert.Equal(t, 0, a.Counters().SplitCount)

	p, err := a.Bytes(h)
	require.NoError(t, err)
	assert.Len(t, p, 1000)

	// Exactly enough slack for a header plus one byte.
	require.NoError(t, a.Free(h))
	alloc(t, a, 1000-HeaderSize-1, FirstFit)
	requireLayout(t, a, shape{1000 - HeaderSize - 1, Allocated}, shape{1, Free})
	requireInvariants(t, a)
}

// TestPoison tests that released payloads are overwritten.
func TestPoison(t *testing.T) {
	opts := DefaultOptions()
	opts.Poison = true
	a := newTestArena(t, 1024, &opts)

	h1 := alloc(t, a, 64, FirstFit)
	alloc(t, a, 64, FirstFit)
	p, err := a.Bytes(h1)
	require.NoError(t, err)
	for i := range p {
		p[i] = 0x11
	}
	off := h1.Offset()
	require.NoError(t, a.Free(h1))

	region := a.Region()
	for i := off; i < off+64; i++ {
		require.Equal(t, byte(poisonByte), region[i], "byte %d", i)
	}
	requireInvariants(t, a)
}

// TestHeaderBytesOnRegion checks the on-region encoding of a fresh arena.
func TestHeaderBytesOnRegion(t *testing.T) {
	a := newTestArena(t, 256, nil)
	region := a.Region()
	assert.Equal(t, format.BlockTag, format.ReadU32(region, format.TagOffset))
	assert.Equal(t, uint32(256-HeaderSize), format.ReadU32(region, format.SizeOffset))
	assert.Equal(t, format.NoOffset, format.ReadU32(region, format.PrevOffset))
	assert.Equal(t, format.NoOffset, format.ReadU32(region, format.NextOffset))
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"first":     FirstFit,
		"FirstFit":  FirstFit,
		"first-fit": FirstFit,
		"best":      BestFit,
		"best-fit":  BestFit,
		" worst ":   WorstFit,
		"worstfit":  WorstFit,
	}
	for in, want := range tests {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStrategy("next-fit")
	assert.True(t, errors.Is(err, ErrInvalidStrategy))

	assert.Equal(t, "best-fit", BestFit.String())
	assert.Equal(t, "Strategy(7)", Strategy(7).String())
}
