package format

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/internal/buf"
)

// Header is the decoded form of a block header. Offset is not stored in the
// region; it is the position the header was read from.
type Header struct {
	Offset uint32
	Tag    uint32
	Flags  uint32
	Size   uint32
	Prev   uint32
	Next   uint32
}

// DecodeHeader reads the header at off. It fails only when the header does
// not fit in b; a bad tag is reported by Header.TagOK so that diagnostics can
// keep describing a corrupted block.
func DecodeHeader(b []byte, off uint32) (Header, error) {
	hb, ok := buf.Slice(b, int(off), HeaderSize)
	if !ok {
		return Header{}, errors.Wrapf(ErrTruncated, "header at offset %d", off)
	}
	return Header{
		Offset: off,
		Tag:    ReadU32(hb, TagOffset),
		Flags:  ReadU32(hb, FlagsOffset),
		Size:   ReadU32(hb, SizeOffset),
		Prev:   ReadU32(hb, PrevOffset),
		Next:   ReadU32(hb, NextOffset),
	}, nil
}

// Encode writes h at h.Offset, stamping the reserved word to zero.
// The caller must ensure the header fits.
func (h Header) Encode(b []byte) {
	off := int(h.Offset)
	PutU32(b, off+TagOffset, h.Tag)
	PutU32(b, off+FlagsOffset, h.Flags)
	PutU32(b, off+SizeOffset, h.Size)
	PutU32(b, off+PrevOffset, h.Prev)
	PutU32(b, off+NextOffset, h.Next)
	PutU32(b, off+ReservedOffset, 0)
}

// Allocated reports whether the block is handed out.
func (h Header) Allocated() bool { return h.Flags&FlagAllocated != 0 }

// TagOK reports whether the integrity tag is intact.
func (h Header) TagOK() bool { return h.Tag == BlockTag }

// PayloadOffset is the region offset of the first payload byte.
func (h Header) PayloadOffset() uint32 { return h.Offset + HeaderSize }

// End is the offset one past the last payload byte, which is where the
// physical successor's header must start.
func (h Header) End() uint64 {
	return uint64(h.Offset) + HeaderSize + uint64(h.Size)
}

// HasNext reports whether a successor is linked.
func (h Header) HasNext() bool { return h.Next != NoOffset }

// HasPrev reports whether a predecessor is linked.
func (h Header) HasPrev() bool { return h.Prev != NoOffset }

// Field accessors used on hot paths that touch a single word.

// SetFlags overwrites the flags word of the header at off.
func SetFlags(b []byte, off, flags uint32) { PutU32(b, int(off)+FlagsOffset, flags) }

// SetSize overwrites the payload size of the header at off.
func SetSize(b []byte, off, size uint32) { PutU32(b, int(off)+SizeOffset, size) }

// SetPrev overwrites the predecessor link of the header at off.
func SetPrev(b []byte, off, prev uint32) { PutU32(b, int(off)+PrevOffset, prev) }

// SetNext overwrites the successor link of the header at off.
func SetNext(b []byte, off, next uint32) { PutU32(b, int(off)+NextOffset, next) }

// SetTag overwrites the integrity tag of the header at off.
func SetTag(b []byte, off, tag uint32) { PutU32(b, int(off)+TagOffset, tag) }
