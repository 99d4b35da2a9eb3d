package arena

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/poolkit/arena/verify"
)

var (
	// ErrNullArgument indicates a nil arena or a zero Handle where one is required.
	ErrNullArgument = errors.New("arena: missing arena or handle")

	// ErrInvalidSize indicates a zero request, a request larger than the arena
	// can ever satisfy, or an unusable capacity at creation.
	ErrInvalidSize = errors.New("arena: invalid size")

	// ErrOutOfMemory indicates that no single free block is large enough, or
	// that the host could not supply the backing region.
	ErrOutOfMemory = errors.New("arena: out of memory")

	// ErrInvalidPointer indicates a handle that does not name the payload start
	// of a live allocated block in this arena.
	ErrInvalidPointer = errors.New("arena: invalid block reference")

	// ErrCorrupted indicates a header whose integrity tag or links are damaged.
	ErrCorrupted = errors.New("arena: corrupted block chain")

	// ErrDestroyed indicates an operation on an arena after Destroy.
	ErrDestroyed = errors.New("arena: destroyed")

	// ErrInvalidStrategy indicates an unknown placement strategy.
	ErrInvalidStrategy = errors.New("arena: unknown placement strategy")
)

// failf attaches detail to one of the sentinels above. errors.Is on the
// result matches the sentinel.
func failf(kind error, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}

// corrupted classifies a validation failure as ErrCorrupted while keeping
// the *verify.ValidationError reachable through errors.As.
func corrupted(ve *verify.ValidationError) error {
	return errors.Mark(ve, ErrCorrupted)
}
