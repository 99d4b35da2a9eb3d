package arena

import (
	"fmt"
	"strings"

	"github.com/joshuapare/poolkit/internal/format"
)

// HeaderSize is the number of arena bytes consumed by every block header.
const HeaderSize = format.HeaderSize

// MaxCapacity is the largest arena addressable with 32-bit block offsets.
const MaxCapacity = format.MaxRegionSize

// Strategy selects which free block satisfies a request.
type Strategy uint8

const (
	// FirstFit takes the lowest-address free block that is large enough.
	FirstFit Strategy = iota
	// BestFit takes the smallest free block that is large enough.
	BestFit
	// WorstFit takes the largest free block.
	WorstFit
)

func (s Strategy) String() string {
	switch s {
	case FirstFit:
		return "first-fit"
	case BestFit:
		return "best-fit"
	case WorstFit:
		return "worst-fit"
	default:
		return fmt.Sprintf("Strategy(%d)", uint8(s))
	}
}

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool { return s <= WorstFit }

// ParseStrategy accepts "first", "first-fit", "firstfit" and the same
// spellings for best and worst, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimSuffix(strings.TrimSuffix(n, "fit"), "-")
	switch n {
	case "first":
		return FirstFit, nil
	case "best":
		return BestFit, nil
	case "worst":
		return WorstFit, nil
	}
	return 0, failf(ErrInvalidStrategy, "parse %q", name)
}

// Status is the state of a block.
type Status uint8

const (
	Free Status = iota
	Allocated
)

func (s Status) String() string {
	if s == Allocated {
		return "Allocated"
	}
	return "Free"
}

func statusOf(h format.Header) Status {
	if h.Allocated() {
		return Allocated
	}
	return Free
}

// Handle is an opaque reference to an allocated block. It names the arena
// it came from and the arena generation at the time of the grant, so a
// handle used after Destroy or Reset, or against another arena, is rejected
// instead of touching unrelated memory. The zero Handle is the null handle.
type Handle struct {
	arena uint64
	gen   uint64
	off   uint32
}

// IsZero reports whether h is the null handle.
func (h Handle) IsZero() bool { return h == Handle{} }

// Offset is the payload's byte offset within the arena region.
func (h Handle) Offset() int { return int(h.off) }

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(arena=%d gen=%d off=0x%X)", h.arena, h.gen, h.off)
}

// BlockInfo describes one block of the chain as seen by a scan.
type BlockInfo struct {
	Index  int
	Offset int // header offset
	Size   int // payload bytes
	Status Status
	Tag    uint32
}

// PayloadOffset is the region offset of the first payload byte.
func (b BlockInfo) PayloadOffset() int { return b.Offset + HeaderSize }

// TagOK reports whether the block's integrity tag was intact when scanned.
func (b BlockInfo) TagOK() bool { return b.Tag == format.BlockTag }

func blockInfo(idx int, h format.Header) BlockInfo {
	return BlockInfo{
		Index:  idx,
		Offset: int(h.Offset),
		Size:   int(h.Size),
		Status: statusOf(h),
		Tag:    h.Tag,
	}
}

// Stats is an aggregate view of the chain. Every field except Capacity is
// computed from a full scan.
type Stats struct {
	Capacity        int
	TotalFree       int
	TotalAllocated  int
	LargestFree     int
	Blocks          int
	FreeBlocks      int
	AllocatedBlocks int
	HeaderBytes     int

	// Fragmentation is 1 - LargestFree/TotalFree: 0 when all free space is
	// one block, approaching 1 as free space splinters.
	Fragmentation float64
	// Utilization is TotalAllocated/Capacity.
	Utilization float64
}

// Counters are cumulative operation counts since the arena was created.
type Counters struct {
	AllocCalls       int // Alloc calls, successful or not
	FreeCalls        int // Free calls, successful or not
	Grants           int // successful allocations
	Releases         int // successful frees
	SplitCount       int // blocks split on grant
	CoalesceForward  int // successors absorbed on release
	CoalesceBackward int // releases absorbed into a predecessor
	DefragMerges     int // merges performed by Defragment
	OutOfMemory      int // allocations that found no block
	Corruptions      int // operations that stopped on a damaged header
}
