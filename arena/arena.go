package arena

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joshuapare/poolkit/internal/format"
	"github.com/joshuapare/poolkit/internal/mmfile"
	"github.com/joshuapare/poolkit/internal/sysmem"
)

// arenaIDs hands out process-unique arena identities.
var arenaIDs atomic.Uint64

// Arena is a fixed-capacity region carved into blocks. The block headers
// live inside the region itself; the Arena only holds the region, the
// running allocated-payload counter and bookkeeping.
//
// An Arena is not safe for concurrent use. Callers sharing one must hold a
// single mutex around every method, diagnostics included.
type Arena struct {
	id  uint64
	gen uint64

	region  []byte
	release func() error // unmaps mmap backing; nil for heap

	capacity  uint32
	allocated uint64 // sum of allocated payload sizes
	align     uint32

	opts      Options
	log       *zap.Logger
	stats     Counters
	destroyed bool
}

// New reserves capacity bytes and installs a single free block spanning
// the whole region. Nothing is reserved when an error is returned.
func New(capacity int, opts *Options) (*Arena, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if capacity <= HeaderSize || uint64(capacity) > MaxCapacity {
		return nil, failf(ErrInvalidSize, "capacity %d must be in (%d, %d]", capacity, HeaderSize, uint64(MaxCapacity))
	}
	if o.CheckHostMemory && !sysmem.CanReserve(uint64(capacity)) {
		return nil, failf(ErrOutOfMemory, "host cannot supply %d bytes", capacity)
	}

	region, release, err := reserve(capacity, o.Backing)
	if err != nil {
		return nil, errors.Mark(err, ErrOutOfMemory)
	}

	a := &Arena{
		id:       arenaIDs.Add(1),
		region:   region,
		release:  release,
		capacity: uint32(capacity),
		align:    uint32(max(o.Alignment, 1)),
		opts:     o,
		log:      o.logger(),
	}
	a.install()
	a.log.Debug("arena created",
		zap.Uint64("arena", a.id),
		zap.Int("capacity", capacity),
		zap.Stringer("backing", o.Backing),
		zap.Stringer("strategy", o.Strategy),
	)
	return a, nil
}

func reserve(capacity int, backing Backing) ([]byte, func() error, error) {
	if backing == BackingMmap {
		return mmfile.Reserve(capacity)
	}
	return make([]byte, capacity), nil, nil
}

// install writes the initial single free block and starts a new
// generation, so handles from a previous generation stop resolving.
func (a *Arena) install() {
	a.gen++
	a.allocated = 0
	format.Header{
		Offset: 0,
		Tag:    format.BlockTag,
		Size:   a.capacity - HeaderSize,
		Prev:   format.NoOffset,
		Next:   format.NoOffset,
	}.Encode(a.region)
}

// Destroy releases the backing region. Every later call on the arena
// returns ErrDestroyed, and handles issued by it are rejected.
func (a *Arena) Destroy() error {
	if err := a.live(); err != nil {
		return err
	}
	var err error
	if a.release != nil {
		err = a.release()
	}
	a.region = nil
	a.release = nil
	a.allocated = 0
	a.gen++
	a.destroyed = true
	a.log.Debug("arena destroyed", zap.Uint64("arena", a.id))
	if err != nil {
		return errors.Wrap(err, "arena: release backing")
	}
	return nil
}

// Reset returns the arena to its freshly created state: one free block,
// nothing allocated. Outstanding handles are invalidated.
func (a *Arena) Reset() error {
	if err := a.live(); err != nil {
		return err
	}
	a.install()
	a.log.Debug("arena reset", zap.Uint64("arena", a.id), zap.Uint64("gen", a.gen))
	return nil
}

func (a *Arena) live() error {
	if a == nil {
		return ErrNullArgument
	}
	if a.destroyed {
		return ErrDestroyed
	}
	return nil
}

// Capacity is the size of the region in bytes, headers included.
func (a *Arena) Capacity() int {
	if a.live() != nil {
		return 0
	}
	return int(a.capacity)
}

// ID is the process-unique identity of the arena.
func (a *Arena) ID() uint64 {
	if a == nil {
		return 0
	}
	return a.id
}

// Generation increases on Reset and Destroy.
func (a *Arena) Generation() uint64 {
	if a == nil {
		return 0
	}
	return a.gen
}

// Options returns the configuration the arena was created with.
func (a *Arena) Options() Options {
	if a == nil {
		return DefaultOptions()
	}
	return a.opts
}

// Region exposes the raw backing bytes for diagnostic tooling. Writing to
// it outside a granted payload can corrupt the chain.
func (a *Arena) Region() []byte {
	if a.live() != nil {
		return nil
	}
	return a.region
}

// Counters returns cumulative operation counts.
func (a *Arena) Counters() Counters {
	if a == nil {
		return Counters{}
	}
	return a.stats
}

// Bytes returns the payload of an allocated block. The slice's capacity is
// clamped to the payload so appends cannot reach the next header.
func (a *Arena) Bytes(h Handle) ([]byte, error) {
	hdr, err := a.resolve(h)
	if err != nil {
		return nil, err
	}
	p := hdr.PayloadOffset()
	end := p + hdr.Size
	return a.region[p:end:end], nil
}

// Free releases the block named by h and immediately merges it with any
// free neighbours. The chain is scanned in full before anything is
// written, so a damaged chain is reported without being modified further.
func (a *Arena) Free(h Handle) error {
	if a != nil {
		a.stats.FreeCalls++
	}
	hdr, err := a.resolve(h)
	if err != nil {
		return err
	}

	format.SetFlags(a.region, hdr.Offset, 0)
	a.allocated -= uint64(hdr.Size)
	if a.opts.Poison {
		p := hdr.PayloadOffset()
		payload := a.region[p : p+hdr.Size]
		for i := range payload {
			payload[i] = poisonByte
		}
	}
	merged := a.coalesce(hdr.Offset)
	a.stats.Releases++

	a.log.Debug("free",
		zap.Uint64("arena", a.id),
		zap.Uint32("offset", hdr.Offset),
		zap.Uint32("size", hdr.Size),
		zap.Uint32("merged_offset", merged),
	)
	return nil
}

// poisonByte fills released payloads when Options.Poison is set.
const poisonByte = 0xFF

// resolve maps a handle to the header of the allocated block whose payload
// starts exactly at the handle's offset. Interior offsets never match.
func (a *Arena) resolve(h Handle) (format.Header, error) {
	if a == nil {
		return format.Header{}, ErrNullArgument
	}
	if a.destroyed {
		return format.Header{}, errors.Mark(failf(ErrDestroyed, "%s", h), ErrInvalidPointer)
	}
	if h.IsZero() {
		return format.Header{}, ErrNullArgument
	}
	if h.arena != a.id {
		return format.Header{}, failf(ErrInvalidPointer, "%s belongs to arena %d, not %d", h, h.arena, a.id)
	}
	if h.gen != a.gen {
		return format.Header{}, failf(ErrInvalidPointer, "%s is stale (arena generation %d)", h, a.gen)
	}
	if h.off < HeaderSize || h.off >= a.capacity {
		return format.Header{}, failf(ErrInvalidPointer, "%s outside region", h)
	}

	var (
		found format.Header
		ok    bool
	)
	err := a.scan(func(_ int, hdr format.Header) bool {
		if hdr.PayloadOffset() == h.off {
			found, ok = hdr, true
		}
		return true
	})
	if err != nil {
		return format.Header{}, err
	}
	if !ok {
		return format.Header{}, failf(ErrInvalidPointer, "%s does not start a block payload", h)
	}
	if !found.Allocated() {
		return format.Header{}, failf(ErrInvalidPointer, "%s names a free block", h)
	}
	return found, nil
}
