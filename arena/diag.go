package arena

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joshuapare/poolkit/arena/verify"
	"github.com/joshuapare/poolkit/internal/format"
)

// totals aggregates one full scan of the chain.
type totals struct {
	free, allocated, largest    uint64
	blocks, freeBlks, allocBlks int
}

func (a *Arena) totals() (totals, error) {
	var t totals
	err := a.scan(func(_ int, h format.Header) bool {
		t.blocks++
		if h.Allocated() {
			t.allocated += uint64(h.Size)
			t.allocBlks++
			return true
		}
		t.free += uint64(h.Size)
		t.freeBlks++
		if uint64(h.Size) > t.largest {
			t.largest = uint64(h.Size)
		}
		return true
	})
	return t, err
}

// TotalFree is the sum of free payload bytes. Returns 0 for a nil or
// destroyed arena; on a damaged chain it counts the blocks before the
// damage.
func (a *Arena) TotalFree() int {
	if a.live() != nil {
		return 0
	}
	t, _ := a.totals()
	return int(t.free)
}

// TotalAllocated is the sum of allocated payload bytes, kept as a running
// counter. It always equals Stats().TotalAllocated on an intact chain.
func (a *Arena) TotalAllocated() int {
	if a.live() != nil {
		return 0
	}
	return int(a.allocated)
}

// LargestFree is the payload size of the largest free block, i.e. the
// largest request that can currently succeed.
func (a *Arena) LargestFree() int {
	if a.live() != nil {
		return 0
	}
	t, _ := a.totals()
	return int(t.largest)
}

// IsEmpty reports whether no block is allocated.
func (a *Arena) IsEmpty() bool {
	return a.live() == nil && a.allocated == 0
}

// Stats scans the chain and returns aggregate figures.
func (a *Arena) Stats() (Stats, error) {
	if err := a.live(); err != nil {
		return Stats{}, err
	}
	t, err := a.totals()
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		Capacity:        int(a.capacity),
		TotalFree:       int(t.free),
		TotalAllocated:  int(t.allocated),
		LargestFree:     int(t.largest),
		Blocks:          t.blocks,
		FreeBlocks:      t.freeBlks,
		AllocatedBlocks: t.allocBlks,
		HeaderBytes:     t.blocks * HeaderSize,
		Utilization:     float64(t.allocated) / float64(a.capacity),
	}
	if t.free > 0 {
		s.Fragmentation = 1 - float64(t.largest)/float64(t.free)
	}
	return s, nil
}

// IsCorrupted reports whether any block reachable from the start of the
// region has a damaged integrity tag or unusable links.
func (a *Arena) IsCorrupted() bool {
	return a.Corruption() != nil
}

// Corruption returns nil for an intact chain, otherwise a
// *verify.ValidationError naming the first damaged block, marked
// ErrCorrupted. The tag is best-effort: it detects stray writes that hit a
// header, not every corruption of payload bytes.
func (a *Arena) Corruption() error {
	if err := a.live(); err != nil {
		return err
	}
	if err := verify.Tags(a.region); err != nil {
		return a.classify(err)
	}
	return nil
}

// Validate performs the full structural check: tags, successor offsets
// computed from sizes, back links, coverage of the whole region, maximal
// coalescing, and agreement between the running allocated counter and a
// scan. Returns the first failure.
func (a *Arena) Validate() error {
	if err := a.live(); err != nil {
		return err
	}
	if err := verify.AllInvariants(a.region); err != nil {
		return a.classify(err)
	}
	t, _ := a.totals()
	if t.allocated != a.allocated {
		return a.corrupt(&verify.ValidationError{
			Type:    verify.TypeAccounting,
			Message: fmt.Sprintf("allocated counter %d, chain holds %d", a.allocated, t.allocated),
			Index:   -1,
			Offset:  -1,
			Details: map[string]interface{}{"counter": a.allocated, "scanned": t.allocated},
		})
	}
	return nil
}

func (a *Arena) classify(err error) error {
	var ve *verify.ValidationError
	if errors.As(err, &ve) {
		return a.corrupt(ve)
	}
	return errors.Mark(err, ErrCorrupted)
}

// Defragment merges adjacent free blocks left unmerged, for example after
// the chain was edited through Region. It never moves allocated blocks and
// returns the number of merges performed. A damaged chain is reported
// without modification.
func (a *Arena) Defragment() (int, error) {
	if err := a.live(); err != nil {
		return 0, err
	}
	if err := verify.Tags(a.region); err != nil {
		return 0, a.classify(err)
	}
	if err := verify.Chain(a.region); err != nil {
		return 0, a.classify(err)
	}
	merges := 0
	h := a.at(0)
	for {
		if !h.Allocated() && h.HasNext() {
			if n := a.at(h.Next); !n.Allocated() {
				h = a.absorb(h)
				merges++
				continue
			}
		}
		if !h.HasNext() {
			break
		}
		h = a.at(h.Next)
	}
	a.stats.DefragMerges += merges
	if merges > 0 {
		a.log.Debug("defragment", zap.Uint64("arena", a.id), zap.Int("merges", merges))
	}
	return merges, nil
}

// Status reports whether the block named by h is allocated. Handles only
// ever name allocated blocks, so any handle that resolves is Allocated;
// handles to released blocks fail with ErrInvalidPointer.
func (a *Arena) Status(h Handle) (Status, error) {
	hdr, err := a.resolve(h)
	if err != nil {
		return Free, err
	}
	return statusOf(hdr), nil
}

// Lookup describes the block named by h.
func (a *Arena) Lookup(h Handle) (BlockInfo, error) {
	hdr, err := a.resolve(h)
	if err != nil {
		return BlockInfo{}, err
	}
	var info BlockInfo
	_ = a.scan(func(idx int, b format.Header) bool {
		if b.Offset == hdr.Offset {
			info = blockInfo(idx, b)
			return false
		}
		return true
	})
	return info, nil
}

// Walk calls fn for each block in address order until fn returns false.
// Blocks with a damaged tag are still reported (BlockInfo.TagOK is false)
// as long as the walk can continue safely; otherwise Walk stops and returns
// an ErrCorrupted error.
func (a *Arena) Walk(fn func(BlockInfo) bool) error {
	if err := a.live(); err != nil {
		return err
	}
	return a.traverse(false, func(idx int, h format.Header) bool {
		return fn(blockInfo(idx, h))
	})
}

// Blocks returns every block in address order. See Walk for the handling
// of damaged headers; the blocks visited before a failure are returned
// along with the error.
func (a *Arena) Blocks() ([]BlockInfo, error) {
	var out []BlockInfo
	err := a.Walk(func(b BlockInfo) bool {
		out = append(out, b)
		return true
	})
	return out, err
}
