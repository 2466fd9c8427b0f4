package metadata

// AllocationRequest is a type returned from BlockMetadata.CreateAllocationRequest which indicates where and how
// the metadata intends to allocate new memory. Creating the request does not change the metadata: it must be
// committed with BlockMetadata.Alloc
type AllocationRequest struct {
	// BlockAllocationHandle identifies the free region the allocation will be carved from. After Alloc,
	// the same handle identifies the new allocation.
	BlockAllocationHandle BlockAllocationHandle
	// Offset is the offset in bytes that the allocation will start at
	Offset int
	// Size is the size in bytes of the allocation
	Size int
	// Strategy is the strategy that was used to choose the free region
	Strategy AllocationStrategy
	// RegionSize is the size of the free region at the time the request was created. Alloc refuses
	// to commit a request whose region has changed since.
	RegionSize int
}

// Remainder returns the number of bytes that will be left in the free region after the allocation
func (r AllocationRequest) Remainder() int {
	return r.RegionSize - r.Size
}
