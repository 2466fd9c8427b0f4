package metadata

import "math"

// BlockAllocationHandle is a numeric handle used to identify an individual region (free or allocated)
// within a BlockMetadata. Handles are never reused by the metadata that issued them.
type BlockAllocationHandle uint64

const (
	NoAllocation BlockAllocationHandle = math.MaxUint64
)

// Suballocation describes one region of the block as reported by VisitAllRegions
type Suballocation struct {
	Handle   BlockAllocationHandle
	Offset   int
	Size     int
	UserData any
	Free     bool
}
