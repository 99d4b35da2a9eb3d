//go:build !unix && !windows

// Package mmfile reserves the backing memory for an arena region outside the
// Go heap.
package mmfile

import "github.com/cockroachdb/errors"

// Supported reports whether Reserve maps memory rather than falling back to
// a heap slice.
const Supported = false

// Reserve allocates a heap slice when no mapping primitive is available.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, errors.Newf("mmfile: invalid reservation size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}
