package arena

import (
	"os"

	"go.uber.org/zap"

	"github.com/joshuapare/poolkit/internal/format"
)

// Runtime debug flag for allocation logging - controlled by POOL_LOG_ALLOC env var.
var logAlloc = os.Getenv("POOL_LOG_ALLOC") != ""

// maxAlignment bounds Options.Alignment.
const maxAlignment = 4096

// Backing selects where the arena region lives.
type Backing uint8

const (
	// BackingHeap keeps the region in a Go byte slice.
	BackingHeap Backing = iota
	// BackingMmap maps anonymous private memory outside the Go heap. On
	// platforms without a mapping primitive it behaves like BackingHeap.
	BackingMmap
)

func (b Backing) String() string {
	switch b {
	case BackingHeap:
		return "heap"
	case BackingMmap:
		return "mmap"
	default:
		return "unknown"
	}
}

// Options configures an arena. A nil *Options passed to New means
// DefaultOptions().
type Options struct {
	// Strategy is used by AllocDefault.
	Strategy Strategy

	// Alignment rounds every request up to a multiple of this power of two.
	// 0 and 1 leave requests unchanged.
	Alignment int

	// Backing selects heap or mapped memory for the region.
	Backing Backing

	// CheckHostMemory fails New with ErrOutOfMemory when the host reports
	// less available memory than the requested capacity.
	CheckHostMemory bool

	// Poison fills released payloads with 0xFF so stale reads are visible.
	Poison bool

	// Logger receives debug events. nil means a no-op logger, or a
	// development logger when POOL_LOG_ALLOC is set.
	Logger *zap.Logger
}

// DefaultOptions returns the configuration used when New is given nil.
func DefaultOptions() Options {
	return Options{
		Strategy:        FirstFit,
		Alignment:       1,
		Backing:         BackingHeap,
		CheckHostMemory: true,
	}
}

// Validate reports the first unusable field.
func (o *Options) Validate() error {
	if !o.Strategy.Valid() {
		return failf(ErrInvalidStrategy, "options: strategy %d", o.Strategy)
	}
	if o.Alignment < 0 || o.Alignment > maxAlignment ||
		(o.Alignment > 1 && !format.IsPowerOfTwo(uint32(o.Alignment))) {
		return failf(ErrInvalidSize, "options: alignment %d is not a power of two in [1, %d]", o.Alignment, maxAlignment)
	}
	if o.Backing != BackingHeap && o.Backing != BackingMmap {
		return failf(ErrInvalidSize, "options: backing %d", o.Backing)
	}
	return nil
}

func (o *Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if logAlloc {
		if l, err := zap.NewDevelopment(); err == nil {
			return l
		}
	}
	return zap.NewNop()
}
