// Package verify provides validation functions for arena regions.
//
// # Overview
//
// An arena region is a byte slice carved into blocks, each preceded by a
// 24-byte header (see internal/format). The checks in this package read a
// region without an *arena.Arena, so they can be pointed at a region copied
// out of a running process, a region a test has deliberately damaged, or the
// live backing of an arena through (*arena.Arena).Region.
//
// Validation categories:
//   - Tags: every header reachable from offset 0 carries the integrity tag
//   - Chain: links are address-ordered and mutually consistent, every
//     successor starts exactly where its predecessor's payload ends, and the
//     blocks cover the whole region
//   - Coalesced: no two neighbouring blocks are both free
//
// # Quick Start
//
//	if err := verify.AllInvariants(a.Region()); err != nil {
//	    var ve *verify.ValidationError
//	    if errors.As(err, &ve) {
//	        fmt.Printf("block %d at 0x%X: %s\n", ve.Index, ve.Offset, ve.Message)
//	    }
//	}
//
// # ValidationError
//
// All failures are reported as *ValidationError. Type names the check that
// failed, Index is the position of the offending block in chain order (or -1
// when no block can be named), and Offset is its header offset (or -1).
// Details carries the raw values that disagreed.
//
// The tag is best-effort: it catches stray writes that land on a header, not
// every kind of memory corruption.
package verify
