package memutils

import "github.com/cockroachdb/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

var (
	// ErrNotInitialized is returned when an operation is attempted on an allocator with no arena or a
	// cache hierarchy with no levels
	ErrNotInitialized = errors.New("not initialized")
	// ErrInvalidSize is returned when a requested size is zero, negative, or otherwise unusable
	ErrInvalidSize = errors.New("invalid size")
	// ErrOutOfMemory is returned when no free block can satisfy an allocation
	ErrOutOfMemory = errors.New("out of memory")
	// ErrBlockNotFound is returned when freeing an ID that is unknown or already free
	ErrBlockNotFound = errors.New("block not found")
	// ErrInvalidConfiguration is returned when a cache level's geometry cannot be addressed with bit shifts
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrInvalidStrategy is returned when an allocation strategy is not recognized
	ErrInvalidStrategy = errors.New("invalid allocation strategy")
)
