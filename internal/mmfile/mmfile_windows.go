//go:build windows

// Package mmfile reserves the backing memory for an arena region outside the
// Go heap.
package mmfile

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

// Supported reports whether Reserve maps memory rather than falling back to
// a heap slice.
const Supported = true

// Reserve commits size bytes of zeroed read/write memory with VirtualAlloc.
func Reserve(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, errors.Newf("mmfile: invalid reservation size %d", size)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "mmfile: VirtualAlloc %d bytes", size)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	released := false
	release := func() error {
		if released {
			return nil
		}
		released = true
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}
	return data, release, nil
}
