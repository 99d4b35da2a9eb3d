package arena

import (
	"go.uber.org/zap"

	"github.com/joshuapare/poolkit/internal/format"
)

// A placer selects the free block that will satisfy a request of need
// bytes. Placers never modify the chain; ok is false when no free block is
// large enough.
type placer func(a *Arena, need uint32) (h format.Header, ok bool, err error)

var placers = [...]placer{
	FirstFit: firstFit,
	BestFit:  bestFit,
	WorstFit: worstFit,
}

// firstFit returns the lowest-address free block with size >= need.
func firstFit(a *Arena, need uint32) (format.Header, bool, error) {
	var (
		pick format.Header
		ok   bool
	)
	err := a.scan(func(_ int, h format.Header) bool {
		if !h.Allocated() && h.Size >= need {
			pick, ok = h, true
			return false
		}
		return true
	})
	return pick, ok, err
}

// bestFit returns the smallest free block with size >= need. Ties go to the
// lowest address.
func bestFit(a *Arena, need uint32) (format.Header, bool, error) {
	var (
		pick format.Header
		ok   bool
	)
	err := a.scan(func(_ int, h format.Header) bool {
		if h.Allocated() || h.Size < need {
			return true
		}
		if !ok || h.Size < pick.Size {
			pick, ok = h, true
			if h.Size == need {
				return false
			}
		}
		return true
	})
	return pick, ok, err
}

// worstFit returns the largest free block, provided it holds need bytes.
// Ties go to the lowest address.
func worstFit(a *Arena, need uint32) (format.Header, bool, error) {
	var (
		pick format.Header
		ok   bool
	)
	err := a.scan(func(_ int, h format.Header) bool {
		if !h.Allocated() && (!ok || h.Size > pick.Size) {
			pick, ok = h, true
		}
		return true
	})
	if err != nil || !ok || pick.Size < need {
		return format.Header{}, false, err
	}
	return pick, true, nil
}

// request validates a caller's size and applies the arena's alignment.
func (a *Arena) request(size int) (uint32, error) {
	limit := int(a.capacity) - HeaderSize
	if size <= 0 || size > limit {
		return 0, failf(ErrInvalidSize, "request of %d bytes (arena holds at most %d)", size, limit)
	}
	need := format.AlignUp(uint64(size), uint64(a.align))
	if need > uint64(limit) {
		return 0, failf(ErrOutOfMemory, "request of %d bytes aligns to %d", size, need)
	}
	return uint32(need), nil
}

// Alloc grants a block of at least size payload bytes chosen by strategy.
// The chosen block is split when the remainder can host another block,
// otherwise it is granted whole and the slack counts as allocated.
//
// Errors: ErrInvalidSize for size <= 0 or larger than the arena could ever
// hold, ErrOutOfMemory when no single free block is large enough (free
// blocks are never merged to satisfy a request), ErrCorrupted when the scan
// meets a damaged header.
func (a *Arena) Alloc(size int, strategy Strategy) (Handle, error) {
	if err := a.live(); err != nil {
		return Handle{}, err
	}
	a.stats.AllocCalls++
	if !strategy.Valid() {
		return Handle{}, failf(ErrInvalidStrategy, "alloc: strategy %d", strategy)
	}
	need, err := a.request(size)
	if err != nil {
		a.log.Debug("alloc rejected", zap.Uint64("arena", a.id), zap.Int("size", size), zap.Error(err))
		return Handle{}, err
	}

	h, ok, err := placers[strategy](a, need)
	if err != nil {
		return Handle{}, err
	}
	if !ok {
		a.stats.OutOfMemory++
		a.log.Debug("alloc: no fitting block",
			zap.Uint64("arena", a.id),
			zap.Uint32("need", need),
			zap.Stringer("strategy", strategy),
		)
		return Handle{}, failf(ErrOutOfMemory, "no free block of %d bytes (%s)", need, strategy)
	}

	if canSplit(h, need) {
		a.split(h, need)
		h.Size = need
	}
	format.SetFlags(a.region, h.Offset, format.FlagAllocated)
	a.allocated += uint64(h.Size)
	a.stats.Grants++

	a.log.Debug("alloc",
		zap.Uint64("arena", a.id),
		zap.Int("size", size),
		zap.Uint32("offset", h.Offset),
		zap.Uint32("granted", h.Size),
		zap.Stringer("strategy", strategy),
	)
	return Handle{arena: a.id, gen: a.gen, off: h.PayloadOffset()}, nil
}

// AllocDefault is Alloc with the strategy from the arena's Options.
func (a *Arena) AllocDefault(size int) (Handle, error) {
	if err := a.live(); err != nil {
		return Handle{}, err
	}
	return a.Alloc(size, a.opts.Strategy)
}

// Fits reports whether Alloc(size, strategy) would currently succeed,
// without changing the arena.
func (a *Arena) Fits(size int, strategy Strategy) bool {
	if a.live() != nil || !strategy.Valid() {
		return false
	}
	need, err := a.request(size)
	if err != nil {
		return false
	}
	_, ok, err := placers[strategy](a, need)
	return ok && err == nil
}
