// Package buf contains overflow-safe bounds helpers for walking structures
// embedded in a byte region.
package buf

import (
	"math"

	"github.com/cockroachdb/errors"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// CheckSpan validates that n bytes starting at offset fit in a region of
// regionLen bytes. Returns the end offset if valid, or an error describing
// the specific failure (negative input, overflow or out of bounds).
//
//	end, err := buf.CheckSpan(len(region), off, format.HeaderSize+size)
//	if err != nil {
//	    return errors.Wrap(err, "block")
//	}
func CheckSpan(regionLen, offset, n int) (int, error) {
	if offset < 0 {
		return 0, errors.Newf("negative offset: %d", offset)
	}
	if n < 0 {
		return 0, errors.Newf("negative length: %d", n)
	}
	end, ok := AddOverflowSafe(offset, n)
	if !ok {
		return 0, errors.Newf("overflow: offset=%d + size=%d", offset, n)
	}
	if end > regionLen {
		return 0, errors.Newf("bounds: end=%d > len=%d", end, regionLen)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
