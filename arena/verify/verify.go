package verify

import (
	"fmt"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/format"
)

// Check names used in ValidationError.Type.
const (
	TypeTags      = "Tags"
	TypeChain     = "Chain"
	TypeCoalesced = "Coalesced"

	// TypeAccounting is reported by (*arena.Arena).Validate when its running
	// counters disagree with the chain.
	TypeAccounting = "Accounting"
)

// ValidationError describes the first invariant violation found in a region.
type ValidationError struct {
	Type    string
	Message string
	Index   int
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	switch {
	case e.Offset >= 0 && e.Index >= 0:
		return fmt.Sprintf("%s at offset 0x%X (block %d): %s", e.Type, e.Offset, e.Index, e.Message)
	case e.Offset >= 0:
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// AllInvariants validates all region invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func AllInvariants(region []byte) error {
	if err := Tags(region); err != nil {
		return err
	}
	if err := Chain(region); err != nil {
		return err
	}
	return Coalesced(region)
}

// Tags checks the integrity tag of every block reachable from offset 0.
// Blocks are followed through their successor links; a link that cannot be
// followed safely is reported as a Chain failure since the remaining headers
// cannot be located.
func Tags(region []byte) error {
	return walk(region, func(idx int, h format.Header) error {
		if !h.TagOK() {
			return badTag(idx, h)
		}
		return nil
	})
}

// Chain validates the structure of the block chain: the first block starts
// at offset 0 with no predecessor, each successor begins at
// offset+HeaderSize+size, each successor points back at its predecessor,
// and the last block ends exactly at the end of the region.
func Chain(region []byte) error {
	if len(region) <= format.HeaderSize {
		return &ValidationError{
			Type:    TypeChain,
			Message: fmt.Sprintf("region too small: %d bytes (need > %d)", len(region), format.HeaderSize),
			Index:   -1,
			Offset:  -1,
		}
	}

	prevOff := format.NoOffset
	return walk(region, func(idx int, h format.Header) error {
		if !h.TagOK() {
			return badTag(idx, h)
		}
		if h.Flags&^format.FlagAllocated != 0 {
			return &ValidationError{
				Type:    TypeChain,
				Message: fmt.Sprintf("unknown flag bits 0x%X", h.Flags&^format.FlagAllocated),
				Index:   idx,
				Offset:  int(h.Offset),
				Details: map[string]interface{}{"flags": h.Flags},
			}
		}
		if h.Size < format.MinBlockPayload {
			return &ValidationError{
				Type:    TypeChain,
				Message: "empty payload",
				Index:   idx,
				Offset:  int(h.Offset),
			}
		}
		if h.Prev != prevOff {
			return &ValidationError{
				Type:    TypeChain,
				Message: fmt.Sprintf("prev link 0x%X does not match predecessor 0x%X", h.Prev, prevOff),
				Index:   idx,
				Offset:  int(h.Offset),
				Details: map[string]interface{}{"prev": h.Prev, "expected": prevOff},
			}
		}
		end := h.End()
		if !h.HasNext() {
			if end != uint64(len(region)) {
				return &ValidationError{
					Type:    TypeChain,
					Message: fmt.Sprintf("last block ends at 0x%X, region is 0x%X bytes", end, len(region)),
					Index:   idx,
					Offset:  int(h.Offset),
					Details: map[string]interface{}{"end": end, "capacity": len(region)},
				}
			}
		} else if uint64(h.Next) != end {
			return &ValidationError{
				Type:    TypeChain,
				Message: fmt.Sprintf("next link 0x%X does not match computed successor 0x%X", h.Next, end),
				Index:   idx,
				Offset:  int(h.Offset),
				Details: map[string]interface{}{"next": h.Next, "expected": end, "size": h.Size},
			}
		}
		prevOff = h.Offset
		return nil
	})
}

// Coalesced validates that no two chain-adjacent blocks are both free.
func Coalesced(region []byte) error {
	prevFree := false
	return walk(region, func(idx int, h format.Header) error {
		free := !h.Allocated()
		if free && prevFree {
			return &ValidationError{
				Type:    TypeCoalesced,
				Message: "free block follows a free block",
				Index:   idx,
				Offset:  int(h.Offset),
				Details: map[string]interface{}{"prev": h.Prev, "size": h.Size},
			}
		}
		prevFree = free
		return nil
	})
}

// walk visits every header reachable from offset 0 in chain order. It only
// guarantees that each header and its payload lie inside region and that
// links move strictly forward, so traversal always terminates.
func walk(region []byte, fn func(idx int, h format.Header) error) error {
	if len(region) < format.HeaderSize {
		return &ValidationError{
			Type:    TypeChain,
			Message: fmt.Sprintf("region too small for a header: %d bytes", len(region)),
			Index:   -1,
			Offset:  -1,
		}
	}
	off := uint32(0)
	for idx := 0; ; idx++ {
		h, err := format.DecodeHeader(region, off)
		if err != nil {
			return &ValidationError{
				Type:    TypeChain,
				Message: "header runs past end of region",
				Index:   idx,
				Offset:  int(off),
			}
		}
		if _, err := buf.CheckSpan(len(region), int(off), format.HeaderSize+int(h.Size)); err != nil {
			return &ValidationError{
				Type:    TypeChain,
				Message: fmt.Sprintf("payload of %d bytes out of bounds: %v", h.Size, err),
				Index:   idx,
				Offset:  int(off),
				Details: map[string]interface{}{"size": h.Size},
			}
		}
		if err := fn(idx, h); err != nil {
			return err
		}
		if !h.HasNext() {
			return nil
		}
		if h.Next <= off || !buf.Has(region, int(h.Next), format.HeaderSize) {
			return &ValidationError{
				Type:    TypeChain,
				Message: fmt.Sprintf("next link 0x%X is not a forward in-bounds offset", h.Next),
				Index:   idx,
				Offset:  int(off),
				Details: map[string]interface{}{"next": h.Next},
			}
		}
		off = h.Next
	}
}

func badTag(idx int, h format.Header) error {
	return &ValidationError{
		Type:    TypeTags,
		Message: fmt.Sprintf("integrity tag 0x%08X, expected 0x%08X", h.Tag, format.BlockTag),
		Index:   idx,
		Offset:  int(h.Offset),
		Details: map[string]interface{}{"tag": h.Tag},
	}
}
