package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/memutils"
)

// BlockMetadata represents a single contiguous arena of memory. It manages suballocations within
// the arena, allowing allocations to be requested and freed, as well as enumerated and queried.
//
// Implementations are not safe for concurrent use.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. Any existing regions are discarded and
	// the arena is reset to a single free region of the provided size in bytes.
	Init(size int)
	// Size retrieves the size in bytes that the block was initialized with
	Size() int

	// Validate performs internal consistency checks on the metadata. These checks may be expensive, depending
	// on the implementation. When the implementation is functioning correctly, it should not be possible
	// for this method to return an error, but this may assist in diagnosing issues with the implementation.
	Validate() error
	// AllocationCount returns the number of suballocations currently live in the implementation. This number
	// should generally be the number of successful allocations minus the number of successful frees.
	AllocationCount() int
	// FreeRegionsCount returns the number of unique regions of free memory in the block. Adjacent free
	// regions are always merged, so two free regions are never neighbors.
	FreeRegionsCount() int
	// SumFreeSize returns the number of free bytes of memory in the block.
	SumFreeSize() int
	// IsEmpty will return true if this block has no live suballocations
	IsEmpty() bool

	// VisitAllRegions will call the provided callback once for each allocation and free region in
	// the block, in ascending offset order. Returning an error from the callback stops the visit
	// and the error is returned.
	VisitAllRegions(handleBlock func(region Suballocation) error) error

	// AllocationOffset accepts a BlockAllocationHandle that maps to a live region of memory
	// (allocated or free) within the block and returns the offset in bytes within the block for that
	// region of memory.
	AllocationOffset(allocHandle BlockAllocationHandle) (int, error)
	// AllocationUserData accepts a BlockAllocationHandle that maps to a live allocation within the block
	// and returns the userdata value provided by the consumer for that allocation.
	AllocationUserData(allocHandle BlockAllocationHandle) (any, error)
	// SetAllocationUserData accepts a BlockAllocationHandle that maps to a live allocation within the
	// block and a userData value. The allocation's userData is changed to the provided userData.
	SetAllocationUserData(allocHandle BlockAllocationHandle, userData any) error

	// AddDetailedStatistics sums this block's allocation statistics into the statistics currently present
	// in the provided memutils.DetailedStatistics object.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this block's allocation statistics into the statistics currently present in the
	// provided memutils.Statistics object.
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations and returns the block to a single free region
	Clear()
	// BlockJsonData populates a json object with information about this block
	BlockJsonData(json *jwriter.ObjectState)

	// CreateAllocationRequest retrieves an AllocationRequest object indicating where the implementation
	// would place an allocation of allocSize bytes under the provided strategy. The metadata is not
	// modified. The boolean return is false when no free region can hold the allocation; an error
	// is only returned for invalid arguments.
	CreateAllocationRequest(allocSize int, strategy AllocationStrategy) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest object, creating the suballocation within the block based
	// on the data described in the AllocationRequest. The implementation must return an error if the
	// allocation is no longer valid- i.e. the requested free region no longer exists, is not free,
	// offset has changed, is no longer large enough to support the request, etc.
	Alloc(request AllocationRequest, userData any) error

	// Free frees a suballocation within the block, causing it to become a free region once again.
	// The region is merged with any free neighbors.
	//
	// The implementation must return an error if the provided handle does not map to a live allocation
	// within this block.
	Free(allocHandle BlockAllocationHandle) error
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations in the memutils module.
type BlockMetadataBase struct {
	size int
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
func (m *BlockMetadataBase) Init(size int) {
	m.size = size
}

// Size returns the size of the block in bytes
func (m *BlockMetadataBase) Size() int { return m.size }

func (m *BlockMetadataBase) blockJsonData(json *jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}
