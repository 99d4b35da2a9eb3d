//go:build unix

// Package mmfile reserves the backing memory for an arena region outside the
// Go heap.
package mmfile

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Supported reports whether Reserve maps memory rather than falling back to
// a heap slice.
const Supported = true

// Reserve maps size bytes of zeroed, private, anonymous memory and returns
// the region with a release func. Calling release more than once is a no-op.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, errors.Newf("mmfile: invalid reservation size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "mmfile: map %d bytes", size)
	}
	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			return nil
		}
		return err
	}
	return data, release, nil
}
