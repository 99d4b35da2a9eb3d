// Package sysmem probes how much physical memory the host can currently hand
// out, so an arena reservation that cannot succeed fails up front.
package sysmem

import (
	sigar "github.com/cloudfoundry/gosigar"
	"github.com/cockroachdb/errors"
)

// Snapshot is a point-in-time view of host memory, in bytes.
type Snapshot struct {
	Total      uint64
	Free       uint64
	ActualFree uint64
}

// Probe reads the host memory counters.
func Probe() (Snapshot, error) {
	mem := sigar.Mem{}
	if err := mem.Get(); err != nil {
		return Snapshot{}, errors.Wrap(err, "sysmem: read host memory")
	}
	return Snapshot{Total: mem.Total, Free: mem.Free, ActualFree: mem.ActualFree}, nil
}

// Available returns the memory the host can supply without swapping. ok is
// false when the platform does not expose the counters.
func Available() (uint64, bool) {
	s, err := Probe()
	if err != nil || s.Total == 0 {
		return 0, false
	}
	if s.ActualFree > 0 {
		return s.ActualFree, true
	}
	return s.Free, true
}

// CanReserve reports whether n bytes fit in the host's available memory.
// When the probe is unavailable it answers true and leaves the decision to
// the reservation itself.
func CanReserve(n uint64) bool {
	avail, ok := Available()
	if !ok {
		return true
	}
	return n <= avail
}
