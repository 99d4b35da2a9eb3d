// Package format houses the low-level encoding of block headers embedded in
// an arena region. The goal is to keep header access focused and
// allocation-free, and independent from the arena package so that validators
// and printers can decode a raw region without a live *arena.Arena.
package format

const (
	// HeaderSize is the size in bytes of the header that precedes every
	// block payload (free or allocated).
	//
	// Layout (little-endian):
	//
	//	Offset  Size  Description
	//	0x00    4     Integrity tag, always BlockTag.
	//	0x04    4     Flags. Bit 0 set => allocated, clear => free.
	//	0x08    4     Payload size in bytes (header excluded).
	//	0x0C    4     Header offset of the physical predecessor, or NoOffset.
	//	0x10    4     Header offset of the physical successor, or NoOffset.
	//	0x14    4     Reserved, zero.
	HeaderSize = 0x18

	// Field offsets within the header.
	TagOffset      = 0x00
	FlagsOffset    = 0x04
	SizeOffset     = 0x08
	PrevOffset     = 0x0C
	NextOffset     = 0x10
	ReservedOffset = 0x14

	// BlockTag is stamped into every header at creation and checked on every
	// structural traversal.
	BlockTag uint32 = 0xDEADBEEF

	// FlagAllocated marks a block as handed out to a caller.
	FlagAllocated uint32 = 1 << 0

	// NoOffset marks an absent predecessor or successor.
	NoOffset uint32 = 0xFFFFFFFF

	// MinBlockPayload is the smallest payload a split may leave behind.
	MinBlockPayload = 1

	// MaxRegionSize is the largest region addressable with 32-bit offsets.
	MaxRegionSize = 0xFFFFFFFF
)
