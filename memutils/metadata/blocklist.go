package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/memutils"
)

const noSlot = -1

type blockRecord struct {
	offset int
	size   int
	free   bool

	prev int
	next int

	userData    any
	blockHandle BlockAllocationHandle
}

// BlockListMetadata is a BlockMetadata implementation that keeps every region of the arena,
// free or allocated, in a single address-ordered doubly linked list. Records live in a slice and
// refer to their neighbors by slot index; slots released by coalescing are recycled.
//
// Placement is a linear scan of the list under the requested AllocationStrategy. Freed regions are
// merged with free neighbors on both sides, so two free regions are never adjacent.
type BlockListMetadata struct {
	BlockMetadataBase

	records   []blockRecord
	freeSlots []int
	head      int
	tail      int

	allocCount      int
	blocksFreeCount int
	blocksFreeSize  int

	nextAllocationHandle BlockAllocationHandle
	handleKey            *swiss.Map[BlockAllocationHandle, int]
}

var _ BlockMetadata = &BlockListMetadata{}

// NewBlockListMetadata creates a new, uninitialized BlockListMetadata. Init must be called before use.
func NewBlockListMetadata() *BlockListMetadata {
	return &BlockListMetadata{
		head: noSlot,
		tail: noSlot,
	}
}

func (m *BlockListMetadata) allocateRecord() int {
	var slot int
	if len(m.freeSlots) > 0 {
		slot = m.freeSlots[len(m.freeSlots)-1]
		m.freeSlots = m.freeSlots[:len(m.freeSlots)-1]
	} else {
		slot = len(m.records)
		m.records = append(m.records, blockRecord{})
	}

	m.nextAllocationHandle++
	m.records[slot] = blockRecord{
		prev:        noSlot,
		next:        noSlot,
		blockHandle: m.nextAllocationHandle,
	}
	m.handleKey.Put(m.nextAllocationHandle, slot)

	return slot
}

func (m *BlockListMetadata) releaseRecord(slot int) {
	m.handleKey.Delete(m.records[slot].blockHandle)
	m.records[slot] = blockRecord{prev: noSlot, next: noSlot, blockHandle: NoAllocation}
	m.freeSlots = append(m.freeSlots, slot)
}

func (m *BlockListMetadata) getSlot(handle BlockAllocationHandle) (int, error) {
	slot, ok := m.handleKey.Get(handle)
	if !ok {
		return noSlot, errors.Wrapf(memutils.ErrBlockNotFound, "handle %d does not map to a region in this metadata", handle)
	}
	return slot, nil
}

// Init prepares this structure for allocations. Any existing regions are discarded and the arena
// becomes a single free region of size bytes. A size of 0 produces an arena that can never satisfy
// an allocation.
func (m *BlockListMetadata) Init(size int) {
	m.BlockMetadataBase.Init(size)
	m.records = m.records[:0]
	m.freeSlots = m.freeSlots[:0]
	m.handleKey = swiss.NewMap[BlockAllocationHandle, int](42)
	m.allocCount = 0

	slot := m.allocateRecord()
	m.records[slot].size = size
	m.records[slot].free = true
	m.head = slot
	m.tail = slot

	m.blocksFreeCount = 1
	m.blocksFreeSize = size
}

func (m *BlockListMetadata) Validate() error {
	if m.head == noSlot {
		return errors.New("metadata has not been initialized")
	}

	if m.SumFreeSize() > m.Size() {
		return errors.New("invalid metadata free size")
	}

	if m.records[m.head].prev != noSlot {
		return errors.Errorf("the first region at offset %d has a previous region", m.records[m.head].offset)
	}

	var calculatedSize, calculatedFreeSize, allocCount, freeCount, liveRecords int
	nextOffset := 0
	lastSlot := noSlot
	previousFree := false

	for slot := m.head; slot != noSlot; slot = m.records[slot].next {
		record := &m.records[slot]
		liveRecords++

		if liveRecords > len(m.records) {
			return errors.New("the region list contains a cycle")
		}

		if record.prev != lastSlot {
			return errors.Errorf("region at offset %d lists the wrong previous region", record.offset)
		}

		if record.offset != nextOffset {
			return errors.Errorf("region at offset %d does not start at the previous region's end offset %d", record.offset, nextOffset)
		}

		if record.size <= 0 && m.Size() > 0 {
			return errors.Errorf("region at offset %d has non-positive size %d", record.offset, record.size)
		}

		mappedSlot, ok := m.handleKey.Get(record.blockHandle)
		if !ok || mappedSlot != slot {
			return errors.Errorf("region at offset %d has handle %d, which does not map back to it", record.offset, record.blockHandle)
		}

		if record.free {
			if previousFree {
				return errors.Errorf("region at offset %d is free, but so is the region before it", record.offset)
			}
			freeCount++
			calculatedFreeSize += record.size
		} else {
			allocCount++
		}

		previousFree = record.free
		calculatedSize += record.size
		nextOffset = record.offset + record.size
		lastSlot = slot
	}

	if lastSlot != m.tail {
		return errors.New("the tail region is not the last region in the list")
	}

	if liveRecords+len(m.freeSlots) != len(m.records) {
		return errors.Errorf("there are %d records, but %d are live and %d are recycled", len(m.records), liveRecords, len(m.freeSlots))
	}

	if m.handleKey.Count() != liveRecords {
		return errors.Errorf("there are %d live regions, but %d handles", liveRecords, m.handleKey.Count())
	}

	if calculatedSize != m.Size() {
		return errors.Errorf("the full size of the metadata is %d, but the regions only added up to %d", m.Size(), calculatedSize)
	}

	if calculatedFreeSize != m.SumFreeSize() {
		return errors.Errorf("the free size of the metadata is %d, but the free regions only added up to %d", m.SumFreeSize(), calculatedFreeSize)
	}

	if allocCount != m.allocCount {
		return errors.Errorf("the allocation count of the metadata is %d, but the taken regions only added up to %d", m.allocCount, allocCount)
	}

	if freeCount != m.blocksFreeCount {
		return errors.Errorf("the free region count of the metadata is %d, but there were %d free regions", m.blocksFreeCount, freeCount)
	}

	return nil
}

func (m *BlockListMetadata) AllocationCount() int {
	return m.allocCount
}

func (m *BlockListMetadata) FreeRegionsCount() int {
	return m.blocksFreeCount
}

func (m *BlockListMetadata) SumFreeSize() int {
	return m.blocksFreeSize
}

func (m *BlockListMetadata) IsEmpty() bool {
	return m.allocCount == 0
}

func (m *BlockListMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.BlockCount++
	stats.BlockBytes += m.Size()

	for slot := m.head; slot != noSlot; slot = m.records[slot].next {
		record := &m.records[slot]
		if record.free {
			stats.AddUnusedRange(record.size)
		} else {
			stats.AddAllocation(record.size)
		}
	}
}

func (m *BlockListMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.AllocationCount += m.allocCount
	stats.BlockBytes += m.Size()
	stats.AllocationBytes += m.Size() - m.SumFreeSize()
}

func (m *BlockListMetadata) CreateAllocationRequest(allocSize int, strategy AllocationStrategy) (bool, AllocationRequest, error) {
	var allocRequest AllocationRequest

	if allocSize < 1 {
		return false, allocRequest, errors.Wrapf(memutils.ErrInvalidSize, "invalid allocSize: %d", allocSize)
	}

	if !strategy.IsValid() {
		return false, allocRequest, errors.Wrapf(memutils.ErrInvalidStrategy, "strategy %d", strategy)
	}

	memutils.DebugValidate(m)

	// Is the arena big enough?
	if allocSize > m.SumFreeSize() {
		return false, allocRequest, nil
	}

	chosen := noSlot

scan:
	for slot := m.head; slot != noSlot; slot = m.records[slot].next {
		record := &m.records[slot]
		if !record.free || record.size < allocSize {
			continue
		}

		switch strategy {
		case AllocationStrategyFirstFit:
			chosen = slot
			break scan
		case AllocationStrategyBestFit:
			// Strict comparison keeps the lowest offset on ties
			if chosen == noSlot || record.size < m.records[chosen].size {
				chosen = slot
			}
		case AllocationStrategyWorstFit:
			if chosen == noSlot || record.size > m.records[chosen].size {
				chosen = slot
			}
		}
	}

	if chosen == noSlot {
		return false, allocRequest, nil
	}

	record := &m.records[chosen]
	allocRequest.BlockAllocationHandle = record.blockHandle
	allocRequest.Offset = record.offset
	allocRequest.Size = allocSize
	allocRequest.Strategy = strategy
	allocRequest.RegionSize = record.size

	return true, allocRequest, nil
}

func (m *BlockListMetadata) Alloc(req AllocationRequest, userData any) error {
	slot, err := m.getSlot(req.BlockAllocationHandle)
	if err != nil {
		return err
	}

	current := m.records[slot]
	if !current.free {
		return errors.Errorf("allocation request targets the region at offset %d, which is not free", current.offset)
	}
	if current.offset != req.Offset || current.size != req.RegionSize {
		return errors.New("allocation request was created against a region that has since changed")
	}
	if req.Size < 1 || req.Size > current.size {
		return errors.Errorf("allocation request of size %d does not fit in a region of size %d", req.Size, current.size)
	}

	if current.size > req.Size {
		// Split: the low bytes become the allocation, the remainder stays free right after it.
		// allocateRecord may grow the slice, so records are only touched by index from here on.
		remainder := m.allocateRecord()
		next := m.records[slot].next

		m.records[remainder].offset = current.offset + req.Size
		m.records[remainder].size = current.size - req.Size
		m.records[remainder].free = true
		m.records[remainder].prev = slot
		m.records[remainder].next = next

		if next != noSlot {
			m.records[next].prev = remainder
		} else {
			m.tail = remainder
		}

		m.records[slot].next = remainder
		m.records[slot].size = req.Size
	} else {
		m.blocksFreeCount--
	}

	m.records[slot].free = false
	m.records[slot].userData = userData
	m.blocksFreeSize -= req.Size
	m.allocCount++

	memutils.DebugValidate(m)

	return nil
}

func (m *BlockListMetadata) Free(allocHandle BlockAllocationHandle) error {
	slot, err := m.getSlot(allocHandle)
	if err != nil {
		return err
	}
	if m.records[slot].free {
		return errors.Wrapf(memutils.ErrBlockNotFound, "region at offset %d is already free", m.records[slot].offset)
	}

	m.records[slot].free = true
	m.records[slot].userData = nil
	m.allocCount--
	m.blocksFreeCount++
	m.blocksFreeSize += m.records[slot].size

	// Absorb following free regions first, then let preceding free regions absorb this one
	for next := m.records[slot].next; next != noSlot && m.records[next].free; next = m.records[slot].next {
		m.mergeNext(slot)
	}

	for prev := m.records[slot].prev; prev != noSlot && m.records[prev].free; prev = m.records[slot].prev {
		m.mergeNext(prev)
		slot = prev
	}

	memutils.DebugValidate(m)

	return nil
}

// mergeNext extends the region at slot over the region that follows it and releases the
// follower's record. Both regions must be free.
func (m *BlockListMetadata) mergeNext(slot int) {
	next := m.records[slot].next
	if next == noSlot {
		panic("cannot merge the last region with its successor")
	}
	if !m.records[slot].free || !m.records[next].free {
		panic("cannot merge regions that are not both free")
	}

	m.records[slot].size += m.records[next].size
	after := m.records[next].next
	m.records[slot].next = after
	if after != noSlot {
		m.records[after].prev = slot
	} else {
		m.tail = slot
	}

	m.blocksFreeCount--
	m.releaseRecord(next)
}

func (m *BlockListMetadata) VisitAllRegions(handleBlock func(region Suballocation) error) error {
	for slot := m.head; slot != noSlot; slot = m.records[slot].next {
		record := &m.records[slot]
		err := handleBlock(Suballocation{
			Handle:   record.blockHandle,
			Offset:   record.offset,
			Size:     record.size,
			UserData: record.userData,
			Free:     record.free,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (m *BlockListMetadata) AllocationOffset(allocHandle BlockAllocationHandle) (int, error) {
	slot, err := m.getSlot(allocHandle)
	if err != nil {
		return 0, err
	}

	return m.records[slot].offset, nil
}

func (m *BlockListMetadata) AllocationUserData(allocHandle BlockAllocationHandle) (any, error) {
	slot, err := m.getSlot(allocHandle)
	if err != nil {
		return nil, err
	}

	if m.records[slot].free {
		return nil, errors.New("user data cannot be retrieved for a free region")
	}

	return m.records[slot].userData, nil
}

func (m *BlockListMetadata) SetAllocationUserData(allocHandle BlockAllocationHandle, userData any) error {
	slot, err := m.getSlot(allocHandle)
	if err != nil {
		return err
	}

	if m.records[slot].free {
		return errors.New("user data cannot be set for a free region")
	}

	m.records[slot].userData = userData
	return nil
}

func (m *BlockListMetadata) Clear() {
	m.Init(m.Size())
}

func (m *BlockListMetadata) BlockJsonData(json *jwriter.ObjectState) {
	m.blockJsonData(json, m.SumFreeSize(), m.AllocationCount(), m.FreeRegionsCount())
}
