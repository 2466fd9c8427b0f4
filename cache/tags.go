package cache

// A Line is one storage slot within a set
type Line struct {
	Valid bool
	Dirty bool
	Tag   uint64
	// LastAccess is the level's access counter at the most recent hit or install
	LastAccess uint64
}

// A Set is the group of lines that a range of addresses can be stored in
type Set struct {
	Lines []Line
	// FIFOQueue holds way indices in install order. It is only maintained under FIFO replacement.
	FIFOQueue []int
}

func newSets(numSets, numWays int) []Set {
	sets := make([]Set, numSets)
	for i := range sets {
		sets[i].Lines = make([]Line, numWays)
	}
	return sets
}

// lookup returns the way holding tag, or -1
func (s *Set) lookup(tag uint64) int {
	for way := range s.Lines {
		if s.Lines[way].Valid && s.Lines[way].Tag == tag {
			return way
		}
	}

	return -1
}

// emptyWay returns the lowest-indexed invalid way, or -1 when the set is full
func (s *Set) emptyWay() int {
	for way := range s.Lines {
		if !s.Lines[way].Valid {
			return way
		}
	}

	return -1
}
