package cache

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils"
)

// LevelConfig describes the geometry and timing of one cache level. It cannot be changed once the
// level is built.
type LevelConfig struct {
	Name          string
	Size          int
	BlockSize     int
	Associativity int
	Policy        ReplacementPolicy
	// Latency is the number of cycles paid every time the level is probed
	Latency int
}

// NumLines returns the number of lines the level can hold
func (c LevelConfig) NumLines() int {
	if c.BlockSize <= 0 {
		return 0
	}
	return c.Size / c.BlockSize
}

// NumSets returns the number of sets in the level
func (c LevelConfig) NumSets() int {
	if c.Associativity <= 0 {
		return 0
	}
	return c.NumLines() / c.Associativity
}

// Validate returns an error marked with memutils.ErrInvalidConfiguration if the level cannot be
// addressed with bit shifts
func (c LevelConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.Wrap(memutils.ErrInvalidConfiguration, "cache level must have a name")
	}

	if c.Size <= 0 || c.BlockSize <= 0 || c.Associativity <= 0 {
		return errors.Wrapf(memutils.ErrInvalidConfiguration,
			"%s: size, block size and associativity must be positive", c.Name)
	}

	if c.Latency < 0 {
		return errors.Wrapf(memutils.ErrInvalidConfiguration, "%s: latency %d is negative", c.Name, c.Latency)
	}

	if !c.Policy.IsValid() {
		return errors.Wrapf(memutils.ErrInvalidConfiguration, "%s: unknown replacement policy", c.Name)
	}

	err := memutils.CheckPow2(c.BlockSize, "block size")
	if err != nil {
		return errors.Mark(errors.Wrap(err, c.Name), memutils.ErrInvalidConfiguration)
	}

	numLines := c.NumLines()
	if numLines == 0 {
		return errors.Wrapf(memutils.ErrInvalidConfiguration,
			"%s: size %d is smaller than one block", c.Name, c.Size)
	}

	if numLines%c.Associativity != 0 {
		return errors.Wrapf(memutils.ErrInvalidConfiguration,
			"%s: associativity %d does not divide %d lines", c.Name, c.Associativity, numLines)
	}

	err = memutils.CheckPow2(c.NumSets(), "set count")
	if err != nil {
		return errors.Mark(errors.Wrap(err, c.Name), memutils.ErrInvalidConfiguration)
	}

	return nil
}

func (c LevelConfig) String() string {
	return fmt.Sprintf("%s: %d bytes, %dB blocks, %d-way, %s, %d cycles",
		c.Name, c.Size, c.BlockSize, c.Associativity, c.Policy, c.Latency)
}

// LookupResult describes what a single level did with one access
type LookupResult struct {
	Hit bool
	// Evicted is true when a valid line was displaced to make room
	Evicted bool
	// WriteBack is true when the displaced line was dirty
	WriteBack bool

	SetIndex int
	Way      int
	Tag      uint64
	// EvictedTag is only meaningful when Evicted is true
	EvictedTag uint64
}

// Level is a single set-associative cache level. Only tags and line state are modeled, never data.
//
// Level is not safe for concurrent use. Hierarchy synchronizes access to its levels.
type Level struct {
	config LevelConfig
	finder VictimFinder

	sets       []Set
	offsetBits uint
	indexBits  uint
	setMask    uint64

	counter uint64
	stats   Statistics
}

// NewLevel validates config and builds an empty level using the VictimFinder for its policy
func NewLevel(config LevelConfig) (*Level, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	finder, err := NewVictimFinder(config.Policy)
	if err != nil {
		return nil, err
	}

	return NewLevelWithVictimFinder(config, finder)
}

// NewLevelWithVictimFinder builds an empty level that consults finder instead of the finder
// matching config.Policy
func NewLevelWithVictimFinder(config LevelConfig, finder VictimFinder) (*Level, error) {
	err := config.Validate()
	if err != nil {
		return nil, err
	}

	if finder == nil {
		return nil, errors.Wrapf(memutils.ErrInvalidConfiguration, "%s: victim finder is nil", config.Name)
	}

	numSets := config.NumSets()
	memutils.DebugCheckPow2(config.BlockSize, "block size")
	memutils.DebugCheckPow2(numSets, "set count")

	return &Level{
		config:     config,
		finder:     finder,
		sets:       newSets(numSets, config.Associativity),
		offsetBits: memutils.Log2(config.BlockSize),
		indexBits:  memutils.Log2(numSets),
		setMask:    uint64(numSets - 1),
	}, nil
}

func (l *Level) Name() string { return l.config.Name }

func (l *Level) Config() LevelConfig { return l.config }

func (l *Level) Stats() Statistics { return l.stats }

// Info describes the level's configuration, e.g. "L1: 256 bytes, 16B blocks, 4-way, LRU, 1 cycles"
func (l *Level) Info() string { return l.config.String() }

// Decompose splits an address into the set it maps to and the tag stored for it
func (l *Level) Decompose(address uint64) (setIndex int, tag uint64) {
	setIndex = int((address >> l.offsetBits) & l.setMask)
	tag = address >> (l.offsetBits + l.indexBits)
	return setIndex, tag
}

// Access probes the level for address, installing the line on a miss. The level's latency is
// charged whether or not the probe hits.
func (l *Level) Access(address uint64, isWrite bool) LookupResult {
	l.counter++
	l.stats.Accesses++
	l.stats.AccessTime += uint64(l.config.Latency)

	setIndex, tag := l.Decompose(address)
	set := &l.sets[setIndex]
	result := LookupResult{SetIndex: setIndex, Tag: tag}

	way := set.lookup(tag)
	if way >= 0 {
		l.stats.Hits++

		line := &set.Lines[way]
		line.LastAccess = l.counter
		if isWrite {
			line.Dirty = true
		}

		result.Hit = true
		result.Way = way
		return result
	}

	l.stats.Misses++

	way = set.emptyWay()
	if way < 0 {
		way = l.finder.FindVictim(set)

		victim := set.Lines[way]
		result.Evicted = true
		result.EvictedTag = victim.Tag
		l.stats.Evictions++

		if victim.Dirty {
			result.WriteBack = true
			l.stats.WriteBacks++
		}
	}

	set.Lines[way] = Line{
		Valid:      true,
		Dirty:      isWrite,
		Tag:        tag,
		LastAccess: l.counter,
	}
	l.finder.Fill(set, way)

	result.Way = way
	return result
}

// ResetStats zeroes the level's counters. Stored lines, FIFO queues and the access counter are kept.
func (l *Level) ResetStats() {
	l.stats = Statistics{}
}

// Line returns a copy of the line stored at setIndex and way
func (l *Level) Line(setIndex, way int) Line {
	return l.sets[setIndex].Lines[way]
}
