package cache

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/internal/utils"
	"github.com/vkngwrapper/memsim/memutils"
	"golang.org/x/exp/slog"
)

// MemoryLevelName is reported by Hierarchy.Access when every level missed
const MemoryLevelName = "MEMORY"

// DefaultMemoryLatency is the main-memory latency in cycles used when HierarchyOptions leaves it blank
const DefaultMemoryLatency = 100

// CreateFlags indicate specific hierarchy behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateExternallySynchronized ensures that this hierarchy will not be synchronized internally.
	CreateExternallySynchronized CreateFlags = 1 << iota
)

// HierarchyOptions contains optional settings when creating a Hierarchy. It is valid to leave all
// the fields blank.
type HierarchyOptions struct {
	Flags CreateFlags
	// MemoryLatency is the cycle cost added when a request misses in every level
	MemoryLatency int
}

// AccessResult reports where a request was satisfied and what it cost
type AccessResult struct {
	// Level is the name of the level that hit, or MemoryLevelName
	Level  string
	Cycles int
	Hit    bool
}

// Hierarchy is an ordered list of independent cache levels, innermost first. A request probes the
// levels in order until one hits. Lines are never moved or filled between levels.
type Hierarchy struct {
	logger *slog.Logger
	mutex  utils.OptionalMutex

	levels        []*Level
	memoryLatency int

	totalAccessTime uint64
	requests        uint64
	memoryAccesses  uint64
}

// NewHierarchy creates a Hierarchy with no levels. If logger is nil, slog.Default is used.
func NewHierarchy(logger *slog.Logger, options HierarchyOptions) *Hierarchy {
	if logger == nil {
		logger = slog.Default()
	}

	memoryLatency := options.MemoryLatency
	if memoryLatency <= 0 {
		memoryLatency = DefaultMemoryLatency
	}

	return &Hierarchy{
		logger:        logger,
		mutex:         utils.OptionalMutex{UseMutex: options.Flags&CreateExternallySynchronized == 0},
		memoryLatency: memoryLatency,
	}
}

// AddLevel validates config and appends a new level below the existing ones
func (h *Hierarchy) AddLevel(config LevelConfig) error {
	level, err := NewLevel(config)
	if err != nil {
		return err
	}

	h.AppendLevel(level)
	return nil
}

// AppendLevel appends an already-built level below the existing ones
func (h *Hierarchy) AppendLevel(level *Level) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.levels = append(h.levels, level)
	h.logger.LogAttrs(context.Background(), slog.LevelDebug, "Hierarchy::AddLevel",
		slog.String("Level", level.Info()),
		slog.Int("Sets", level.Config().NumSets()),
		slog.Int("Depth", len(h.levels)),
	)
}

// IsInitialized returns true once at least one level has been added
func (h *Hierarchy) IsInitialized() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.levels) > 0
}

// MemoryLatency returns the cycle cost of a request that misses in every level
func (h *Hierarchy) MemoryLatency() int {
	return h.memoryLatency
}

// Access probes each level for address in order, stopping at the first hit. The cost of the request
// is the sum of the probed levels' latencies, plus the memory latency if nothing hit.
func (h *Hierarchy) Access(address uint64, isWrite bool) (AccessResult, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if len(h.levels) == 0 {
		return AccessResult{}, errors.Wrap(memutils.ErrNotInitialized, "cache hierarchy has no levels")
	}

	h.requests++
	result := AccessResult{Level: MemoryLevelName}

	for _, level := range h.levels {
		lookup := level.Access(address, isWrite)
		result.Cycles += level.Config().Latency

		if lookup.Evicted {
			h.logger.LogAttrs(context.Background(), slog.LevelDebug, "Hierarchy::Evict",
				slog.String("Level", level.Name()),
				slog.Int("Set", lookup.SetIndex),
				slog.Int("Way", lookup.Way),
				slog.Uint64("Tag", lookup.EvictedTag),
				slog.Bool("WriteBack", lookup.WriteBack),
			)
		}

		if lookup.Hit {
			result.Level = level.Name()
			result.Hit = true
			break
		}
	}

	if !result.Hit {
		h.memoryAccesses++
		result.Cycles += h.memoryLatency
	}

	h.totalAccessTime += uint64(result.Cycles)

	h.logger.LogAttrs(context.Background(), slog.LevelDebug, "Hierarchy::Access",
		slog.Uint64("Address", address),
		slog.Bool("Write", isWrite),
		slog.String("Level", result.Level),
		slog.Int("Cycles", result.Cycles),
	)

	return result, nil
}

// Stats returns a snapshot of every level's counters and the hierarchy totals
func (h *Hierarchy) Stats() HierarchyStats {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return h.statsLocked()
}

func (h *Hierarchy) statsLocked() HierarchyStats {
	stats := HierarchyStats{
		Levels:          make([]LevelStats, 0, len(h.levels)),
		TotalAccessTime: h.totalAccessTime,
		Requests:        h.requests,
		MemoryAccesses:  h.memoryAccesses,
	}

	for _, level := range h.levels {
		stats.Levels = append(stats.Levels, LevelStats{Name: level.Name(), Statistics: level.Stats()})
	}

	return stats
}

// Config returns the configuration of every level, innermost first
func (h *Hierarchy) Config() []LevelConfig {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	configs := make([]LevelConfig, 0, len(h.levels))
	for _, level := range h.levels {
		configs = append(configs, level.Config())
	}

	return configs
}

// ResetStats zeroes every level's counters and the hierarchy totals. Cached lines are kept, so a
// warmed-up hierarchy stays warm.
func (h *Hierarchy) ResetStats() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, level := range h.levels {
		level.ResetStats()
	}

	h.totalAccessTime = 0
	h.requests = 0
	h.memoryAccesses = 0
}

// PrintStats writes a JSON object containing the hierarchy totals and each level's counters
func (h *Hierarchy) PrintStats(writer *jwriter.Writer) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	stats := h.statsLocked()

	obj := writer.Object()
	defer obj.End()

	obj.Name("Requests").Int(int(stats.Requests))
	obj.Name("MemoryAccesses").Int(int(stats.MemoryAccesses))
	obj.Name("MemoryLatency").Int(h.memoryLatency)
	obj.Name("TotalAccessTime").Int(int(stats.TotalAccessTime))
	obj.Name("AverageAccessTime").Float64(stats.AverageAccessTime())

	levels := obj.Name("Levels").Array()
	defer levels.End()

	for i, level := range stats.Levels {
		levelObj := levels.Object()
		levelObj.Name("Name").String(level.Name)
		levelObj.Name("Config").String(h.levels[i].Info())
		levelObj.Name("Hits").Int(int(level.Hits))
		levelObj.Name("Misses").Int(int(level.Misses))
		levelObj.Name("Accesses").Int(int(level.Accesses))
		levelObj.Name("WriteBacks").Int(int(level.WriteBacks))
		levelObj.Name("Evictions").Int(int(level.Evictions))
		levelObj.Name("AccessTime").Int(int(level.AccessTime))
		levelObj.Name("HitRatio").Float64(level.HitRatio())
		levelObj.End()
	}
}
