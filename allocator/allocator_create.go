package allocator

import (
	"github.com/vkngwrapper/memsim/internal/utils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateExternallySynchronized ensures that this allocator will not be synchronized internally.
	// The consumer must guarantee it is used from only one goroutine at a time or is synchronized by
	// some other mechanism.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

var createFlagsMapping = map[CreateFlags]string{
	CreateExternallySynchronized: "CreateExternallySynchronized",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}
	if name, ok := createFlagsMapping[f]; ok {
		return name
	}
	return "Unknown"
}

// CreateOptions contains optional settings when creating an allocator. It is valid to leave all the
// fields blank.
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// Strategy is the placement strategy used until SetStrategy is called. It defaults to first fit.
	Strategy metadata.AllocationStrategy
}

// New creates a new Allocator. The allocator has no arena until Initialize is called.
//
// logger - Receives debug-level records for every allocation and free. If nil, slog.Default is used.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}

	strategy := options.Strategy
	if !strategy.IsValid() {
		strategy = metadata.AllocationStrategyFirstFit
	}

	return &Allocator{
		logger:   logger,
		mutex:    utils.OptionalRWMutex{UseMutex: options.Flags&CreateExternallySynchronized == 0},
		strategy: strategy,
	}
}
