package allocator

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/memsim/internal/utils"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
	"golang.org/x/exp/slog"
)

// FreeBlockID is the ID reported by Dump for regions that are not allocated
const FreeBlockID = -1

// Allocator is a simulated heap allocator over a single contiguous arena. Blocks are handed out
// by first, best, or worst fit, split on allocation, and merged with free neighbors when freed.
//
// Allocations are identified by sequential integer IDs starting at 1. IDs are never reused until
// the arena is initialized again.
type Allocator struct {
	logger *slog.Logger
	mutex  utils.OptionalRWMutex

	metadata metadata.BlockMetadata
	strategy metadata.AllocationStrategy

	nextBlockID int
	blocks      *swiss.Map[int, metadata.BlockAllocationHandle]

	stats memutils.AllocationStats
}

// Initialize discards any existing arena and creates a new one of size bytes, consisting of a single
// free region. Statistics and the block ID counter are reset. A size of 0 produces an arena that
// cannot satisfy any allocation.
func (a *Allocator) Initialize(size int) error {
	if size < 0 {
		return errors.Wrapf(memutils.ErrInvalidSize, "cannot initialize an arena of %d bytes", size)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.metadata == nil {
		a.metadata = metadata.NewBlockListMetadata()
	}
	a.metadata.Init(size)

	a.nextBlockID = 1
	a.blocks = swiss.NewMap[int, metadata.BlockAllocationHandle](42)
	a.stats = memutils.AllocationStats{}
	a.updateStats()

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Initialize",
		slog.Int("Size", size),
		slog.String("Strategy", a.strategy.String()),
	)

	memutils.DebugValidate(a.metadata)
	return nil
}

// IsInitialized returns true once Initialize has succeeded
func (a *Allocator) IsInitialized() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.metadata != nil
}

// SetStrategy changes the placement strategy used by subsequent calls to Allocate. Existing
// allocations are unaffected.
func (a *Allocator) SetStrategy(strategy metadata.AllocationStrategy) error {
	if !strategy.IsValid() {
		return errors.Wrapf(memutils.ErrInvalidStrategy, "unknown strategy value %d", uint32(strategy))
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.strategy = strategy
	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::SetStrategy",
		slog.String("Strategy", strategy.String()),
	)
	return nil
}

// SetStrategyName parses a strategy name such as "best_fit" and applies it. An unrecognized name
// leaves the current strategy in place.
func (a *Allocator) SetStrategyName(name string) error {
	strategy, err := metadata.ParseAllocationStrategy(name)
	if err != nil {
		return err
	}

	return a.SetStrategy(strategy)
}

// StrategyName returns the display name of the active placement strategy
func (a *Allocator) StrategyName() string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.strategy.String()
}

// Allocate reserves size bytes from the arena using the active strategy and returns the ID of the
// new block. When no free region can hold the request, the failure is counted and
// memutils.ErrOutOfMemory is returned. The arena is never modified by a failed call.
func (a *Allocator) Allocate(size int) (int, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.metadata == nil {
		return FreeBlockID, errors.Wrap(memutils.ErrNotInitialized, "memory has not been initialized")
	}

	if size <= 0 {
		return FreeBlockID, errors.Wrapf(memutils.ErrInvalidSize, "cannot allocate %d bytes", size)
	}

	success, request, err := a.metadata.CreateAllocationRequest(size, a.strategy)
	if err != nil {
		return FreeBlockID, err
	}

	if !success {
		a.stats.AllocationFailures++
		a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Allocate failed",
			slog.Int("Size", size),
			slog.Int("FreeMemory", a.stats.FreeMemory),
			slog.Int("LargestFreeBlock", a.stats.LargestFreeBlock),
		)
		return FreeBlockID, errors.Wrapf(memutils.ErrOutOfMemory, "no free block can hold %d bytes", size)
	}

	id := a.nextBlockID
	err = a.metadata.Alloc(request, id)
	if err != nil {
		return FreeBlockID, err
	}

	a.nextBlockID++
	a.blocks.Put(id, request.BlockAllocationHandle)
	a.stats.AllocationCount++
	a.updateStats()

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Allocate",
		slog.Int("ID", id),
		slog.Int("Offset", request.Offset),
		slog.Int("Size", size),
		slog.Int("Remainder", request.Remainder()),
		slog.String("Strategy", a.strategy.String()),
	)

	memutils.DebugValidate(a.metadata)
	return id, nil
}

// Free releases the block with the provided ID and merges it with any free neighbors. Unknown IDs
// and IDs that were already freed produce memutils.ErrBlockNotFound.
func (a *Allocator) Free(id int) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.metadata == nil {
		return errors.Wrap(memutils.ErrNotInitialized, "memory has not been initialized")
	}

	handle, ok := a.blocks.Get(id)
	if !ok {
		return errors.Wrapf(memutils.ErrBlockNotFound, "block %d", id)
	}

	offset, err := a.metadata.AllocationOffset(handle)
	if err != nil {
		return err
	}

	err = a.metadata.Free(handle)
	if err != nil {
		return err
	}

	a.blocks.Delete(id)
	a.stats.DeallocationCount++
	a.updateStats()

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Free",
		slog.Int("ID", id),
		slog.Int("Offset", offset),
		slog.Int("FreeBlocks", a.stats.FreeBlockCount),
	)

	memutils.DebugValidate(a.metadata)
	return nil
}

// Stats returns a snapshot of the arena totals and the operation counters accumulated since the
// last Initialize
func (a *Allocator) Stats() memutils.AllocationStats {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.stats
}

// Validate runs the arena's consistency checks and confirms that every live block ID still maps to
// an allocation
func (a *Allocator) Validate() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return nil
	}

	err := a.metadata.Validate()
	if err != nil {
		return err
	}

	var totals memutils.Statistics
	a.metadata.AddStatistics(&totals)
	if totals.AllocationBytes != a.stats.UsedMemory || totals.BlockBytes != a.stats.TotalMemory {
		return errors.Newf("arena holds %d of %d bytes but stats report %d of %d",
			totals.AllocationBytes, totals.BlockBytes, a.stats.UsedMemory, a.stats.TotalMemory)
	}

	if a.blocks.Count() != a.metadata.AllocationCount() {
		return errors.Newf("%d block ids are live but the arena holds %d allocations", a.blocks.Count(), a.metadata.AllocationCount())
	}

	var mapErr error
	a.blocks.Iter(func(id int, handle metadata.BlockAllocationHandle) bool {
		userData, err := a.metadata.AllocationUserData(handle)
		if err != nil {
			mapErr = errors.Wrapf(err, "block %d", id)
			return true
		}

		if userData != id {
			mapErr = errors.Newf("block %d maps to an allocation owned by %v", id, userData)
			return true
		}

		return false
	})

	return mapErr
}

func (a *Allocator) updateStats() {
	var detailed memutils.DetailedStatistics
	detailed.Clear()
	a.metadata.AddDetailedStatistics(&detailed)
	a.stats.ApplyDetailedStatistics(&detailed)
}
