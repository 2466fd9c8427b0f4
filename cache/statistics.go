package cache

// Statistics holds the counters of a single cache level
type Statistics struct {
	Hits       uint64
	Misses     uint64
	Accesses   uint64
	WriteBacks uint64
	Evictions  uint64
	// AccessTime is the total number of cycles spent probing the level, hit or miss
	AccessTime uint64
}

// HitRatio returns hits as a percentage of accesses, or 0 before the first access
func (s Statistics) HitRatio() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Accesses) * 100.0
}

// MissRatio returns misses as a percentage of accesses, or 0 before the first access
func (s Statistics) MissRatio() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.Misses) / float64(s.Accesses) * 100.0
}

// LevelStats pairs a level's name with its counters
type LevelStats struct {
	Name string
	Statistics
}

// HierarchyStats is a snapshot of every level's counters plus the hierarchy-wide totals
type HierarchyStats struct {
	Levels []LevelStats
	// TotalAccessTime is the sum of per-request latencies, including main memory
	TotalAccessTime uint64
	Requests        uint64
	// MemoryAccesses counts requests that missed in every level
	MemoryAccesses uint64
}

// AverageAccessTime returns the mean number of cycles per request, or 0 before the first request
func (s HierarchyStats) AverageAccessTime() float64 {
	if s.Requests == 0 {
		return 0
	}

	return float64(s.TotalAccessTime) / float64(s.Requests)
}
