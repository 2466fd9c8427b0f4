package cache

// A VictimFinder decides which line of a full set should be evicted
type VictimFinder interface {
	// FindVictim returns the way to evict from a set whose lines are all valid
	FindVictim(set *Set) int
	// Fill is called after a new line has been installed in way
	Fill(set *Set, way int)
}

// FIFOVictimFinder evicts lines in the order they were installed
type FIFOVictimFinder struct {
}

// NewFIFOVictimFinder returns a newly constructed fifo evictor
func NewFIFOVictimFinder() *FIFOVictimFinder {
	return new(FIFOVictimFinder)
}

// FindVictim pops the oldest way from the set's install queue
func (e *FIFOVictimFinder) FindVictim(set *Set) int {
	if len(set.FIFOQueue) == 0 {
		return 0
	}

	way := set.FIFOQueue[0]
	set.FIFOQueue = set.FIFOQueue[1:]
	return way
}

func (e *FIFOVictimFinder) Fill(set *Set, way int) {
	set.FIFOQueue = append(set.FIFOQueue, way)
}

// LRUVictimFinder evicts the least recently used line
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	return new(LRUVictimFinder)
}

// FindVictim returns the way with the smallest LastAccess. Ties go to the lowest way.
func (e *LRUVictimFinder) FindVictim(set *Set) int {
	victim := 0
	for way := 1; way < len(set.Lines); way++ {
		if set.Lines[way].LastAccess < set.Lines[victim].LastAccess {
			victim = way
		}
	}

	return victim
}

func (e *LRUVictimFinder) Fill(set *Set, way int) {}
