package memutils

import "math"

type Statistics struct {
	BlockCount      int
	AllocationCount int
	BlockBytes      int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.BlockCount = 0
	s.AllocationCount = 0
	s.BlockBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.BlockCount += other.BlockCount
	s.AllocationCount += other.AllocationCount
	s.BlockBytes += other.BlockBytes
	s.AllocationBytes += other.AllocationBytes
}

type DetailedStatistics struct {
	Statistics
	UnusedRangeCount   int
	UnusedRangeBytes   int
	AllocationSizeMin  int
	AllocationSizeMax  int
	UnusedRangeSizeMin int
	UnusedRangeSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.UnusedRangeCount = 0
	s.UnusedRangeBytes = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.UnusedRangeSizeMin = math.MaxInt
	s.UnusedRangeSizeMax = 0
}

func (s *DetailedStatistics) AddUnusedRange(size int) {
	s.UnusedRangeCount++
	s.UnusedRangeBytes += size

	if size < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = size
	}

	if size > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.UnusedRangeCount += other.UnusedRangeCount
	s.UnusedRangeBytes += other.UnusedRangeBytes

	if other.UnusedRangeSizeMin < s.UnusedRangeSizeMin {
		s.UnusedRangeSizeMin = other.UnusedRangeSizeMin
	}

	if other.UnusedRangeSizeMax > s.UnusedRangeSizeMax {
		s.UnusedRangeSizeMax = other.UnusedRangeSizeMax
	}

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}

// ExternalFragmentation returns the percentage of free memory that cannot be handed out as a single
// allocation: (1 - largestFree/totalFree) * 100. A block with zero or one free range is never
// considered fragmented, no matter how small that range is.
func (s *DetailedStatistics) ExternalFragmentation() float64 {
	if s.UnusedRangeCount <= 1 || s.UnusedRangeBytes == 0 {
		return 0
	}

	return (1.0 - float64(s.UnusedRangeSizeMax)/float64(s.UnusedRangeBytes)) * 100.0
}

// AllocationStats is a point-in-time summary of an allocator's arena along with its lifetime
// operation counters
type AllocationStats struct {
	TotalMemory int
	UsedMemory  int
	FreeMemory  int

	FreeBlockCount   int
	LargestFreeBlock int

	AllocationCount    int
	DeallocationCount  int
	AllocationFailures int

	// ExternalFragmentation is a percentage in [0, 100)
	ExternalFragmentation float64
}

// Utilization returns the percentage of the arena that is currently allocated
func (s AllocationStats) Utilization() float64 {
	if s.TotalMemory == 0 {
		return 0
	}

	return float64(s.UsedMemory) / float64(s.TotalMemory) * 100.0
}

// ApplyDetailedStatistics overwrites the memory totals in this object with the values collected
// in a DetailedStatistics. The operation counters are left alone.
func (s *AllocationStats) ApplyDetailedStatistics(detailed *DetailedStatistics) {
	s.TotalMemory = detailed.BlockBytes
	s.UsedMemory = detailed.AllocationBytes
	s.FreeMemory = detailed.UnusedRangeBytes
	s.FreeBlockCount = detailed.UnusedRangeCount
	s.LargestFreeBlock = detailed.UnusedRangeSizeMax
	s.ExternalFragmentation = detailed.ExternalFragmentation()
}
