// Package arena implements a fixed-capacity sub-allocator over a single
// pre-reserved byte region.
//
// # Overview
//
// An Arena reserves its region once, in New, and never grows or moves it.
// The region is carved into blocks; each block is a 24-byte header followed
// by its payload. Headers carry an integrity tag, a free/allocated flag, the
// payload size and the offsets of the physically previous and next blocks,
// so the blocks form one address-ordered chain covering every byte of the
// region (see internal/format for the exact layout).
//
// # Allocation
//
//	a, err := arena.New(1024, nil)
//	if err != nil {
//	    return err
//	}
//	defer a.Destroy()
//
//	h, err := a.Alloc(100, arena.FirstFit)
//	if err != nil {
//	    return err
//	}
//	payload, _ := a.Bytes(h)
//	copy(payload, data)
//
//	err = a.Free(h)
//
// Three placement strategies choose among free blocks:
//
//   - FirstFit: lowest-address block that is large enough
//   - BestFit: smallest block that is large enough
//   - WorstFit: largest block
//
// Ties go to the lowest address. A block with enough slack for another
// header and at least one payload byte is split; otherwise it is granted
// whole. A request that no single free block can hold fails with
// ErrOutOfMemory even when total free space would suffice.
//
// # Release
//
// Free marks the block free and immediately merges it with free neighbours
// on both sides, so two adjacent free blocks never survive a release.
// Handles carry the arena's identity and generation; a handle from another
// arena, from before Reset, or from a destroyed arena is rejected, as is
// any offset that is not the exact start of an allocated payload.
//
// # Diagnostics
//
// TotalFree, TotalAllocated, LargestFree and Stats report usage.
// IsCorrupted and Corruption check every integrity tag; Validate performs
// the full structural check through package arena/verify. Defragment only
// merges adjacent free blocks and never relocates allocations.
//
// # Thread Safety
//
// Arena instances are not thread-safe. Split and merge are multi-step
// header edits with no safe intermediate state, so callers sharing an arena
// must serialize every call, diagnostics included, behind one mutex.
package arena
