package arena

import (
	"fmt"

	"github.com/joshuapare/poolkit/arena/verify"
	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/format"
)

// The chain is the address-ordered sequence of every block in the region,
// free and allocated. It starts at offset 0 and each header links to its
// physical neighbours by offset, so splitting and merging only ever touch
// the block being changed and its immediate neighbours.

// scan visits blocks in address order and stops at the first header that
// is damaged or cannot be followed safely. Each visited block's tag, prev
// link and next link are checked before fn sees it. fn returns false to
// stop early.
func (a *Arena) scan(fn func(idx int, h format.Header) bool) error {
	return a.traverse(true, fn)
}

// traverse is scan with the tag and link consistency checks optional.
// Diagnostic listings use strict=false so a damaged block is still
// reported, as long as its size and links keep the walk inside the region.
func (a *Arena) traverse(strict bool, fn func(idx int, h format.Header) bool) error {
	off, prev := uint32(0), format.NoOffset
	for idx := 0; ; idx++ {
		h, err := a.load(idx, off, strict)
		if err != nil {
			return err
		}
		if strict {
			if err := a.linked(idx, h, prev); err != nil {
				return err
			}
		}
		if !fn(idx, h) || !h.HasNext() {
			return nil
		}
		if h.Next <= off || !buf.Has(a.region, int(h.Next), HeaderSize) {
			return a.corrupt(&verify.ValidationError{
				Type:    verify.TypeChain,
				Message: fmt.Sprintf("next link 0x%X is not a forward in-bounds offset", h.Next),
				Index:   idx,
				Offset:  int(off),
			})
		}
		prev, off = off, h.Next
	}
}

// linked checks that h points back at the block visited before it and
// forward at the byte right after its payload.
func (a *Arena) linked(idx int, h format.Header, prev uint32) error {
	if h.Prev != prev {
		return a.corrupt(&verify.ValidationError{
			Type:    verify.TypeChain,
			Message: fmt.Sprintf("prev link 0x%X does not match predecessor 0x%X", h.Prev, prev),
			Index:   idx,
			Offset:  int(h.Offset),
			Details: map[string]interface{}{"prev": h.Prev, "expected": prev},
		})
	}
	end := h.End()
	switch {
	case h.HasNext() && uint64(h.Next) != end:
		return a.corrupt(&verify.ValidationError{
			Type:    verify.TypeChain,
			Message: fmt.Sprintf("next link 0x%X does not match computed successor 0x%X", h.Next, end),
			Index:   idx,
			Offset:  int(h.Offset),
			Details: map[string]interface{}{"next": h.Next, "expected": end},
		})
	case !h.HasNext() && end != uint64(len(a.region)):
		return a.corrupt(&verify.ValidationError{
			Type:    verify.TypeChain,
			Message: fmt.Sprintf("last block ends at 0x%X, region is 0x%X bytes", end, len(a.region)),
			Index:   idx,
			Offset:  int(h.Offset),
		})
	}
	return nil
}

// load decodes the header at off and checks that its payload stays inside
// the region.
func (a *Arena) load(idx int, off uint32, checkTag bool) (format.Header, error) {
	h, err := format.DecodeHeader(a.region, off)
	if err != nil {
		return format.Header{}, a.corrupt(&verify.ValidationError{
			Type:    verify.TypeChain,
			Message: "header runs past end of region",
			Index:   idx,
			Offset:  int(off),
		})
	}
	if checkTag && !h.TagOK() {
		return format.Header{}, a.corrupt(&verify.ValidationError{
			Type:    verify.TypeTags,
			Message: fmt.Sprintf("integrity tag 0x%08X, expected 0x%08X", h.Tag, format.BlockTag),
			Index:   idx,
			Offset:  int(off),
			Details: map[string]interface{}{"tag": h.Tag},
		})
	}
	if _, err := buf.CheckSpan(len(a.region), int(off), HeaderSize+int(h.Size)); err != nil {
		return format.Header{}, a.corrupt(&verify.ValidationError{
			Type:    verify.TypeChain,
			Message: fmt.Sprintf("payload of %d bytes out of bounds: %v", h.Size, err),
			Index:   idx,
			Offset:  int(off),
		})
	}
	return h, nil
}

func (a *Arena) corrupt(ve *verify.ValidationError) error {
	a.stats.Corruptions++
	return corrupted(ve)
}

// at decodes a header that a preceding scan has already vetted.
func (a *Arena) at(off uint32) format.Header {
	h, _ := format.DecodeHeader(a.region, off)
	return h
}

// canSplit reports whether h can give up need bytes and still host a
// trailing block with a header and at least one byte of payload.
func canSplit(h format.Header, need uint32) bool {
	return uint64(h.Size) >= uint64(need)+HeaderSize+format.MinBlockPayload
}

// split shrinks h to need bytes and carves the remainder into a new free
// block spliced in as h's successor. Returns the new block's offset.
func (a *Arena) split(h format.Header, need uint32) uint32 {
	tail := format.Header{
		Offset: h.Offset + HeaderSize + need,
		Tag:    format.BlockTag,
		Size:   h.Size - need - HeaderSize,
		Prev:   h.Offset,
		Next:   h.Next,
	}
	tail.Encode(a.region)
	if h.HasNext() {
		format.SetPrev(a.region, h.Next, tail.Offset)
	}
	format.SetNext(a.region, h.Offset, tail.Offset)
	format.SetSize(a.region, h.Offset, need)
	a.stats.SplitCount++
	return tail.Offset
}

// absorb merges the free successor of h into h and returns the grown header.
// The successor's header bytes become payload; its tag is cleared so a stale
// copy is never mistaken for a live header.
func (a *Arena) absorb(h format.Header) format.Header {
	n := a.at(h.Next)
	h.Size += HeaderSize + n.Size
	h.Next = n.Next
	if n.HasNext() {
		format.SetPrev(a.region, n.Next, h.Offset)
	}
	format.SetTag(a.region, n.Offset, 0)
	format.SetSize(a.region, h.Offset, h.Size)
	format.SetNext(a.region, h.Offset, h.Next)
	return h
}

// coalesce merges the free block at off with every free block physically
// adjacent to it, first absorbing successors and then letting predecessors
// absorb it. Returns the offset of the resulting block. Calling it on an
// allocated block or one that is already maximal changes nothing.
func (a *Arena) coalesce(off uint32) uint32 {
	h := a.at(off)
	if h.Allocated() {
		return off
	}
	for h.HasNext() {
		n := a.at(h.Next)
		if !n.TagOK() || n.Allocated() {
			break
		}
		h = a.absorb(h)
		a.stats.CoalesceForward++
	}
	for h.HasPrev() {
		p := a.at(h.Prev)
		if !p.TagOK() || p.Allocated() || p.Next != h.Offset {
			break
		}
		h = a.absorb(p)
		a.stats.CoalesceBackward++
	}
	return h.Offset
}
