package main

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/cache"
)

func (s *Session) memoryLatency() int {
	if s.options.MemoryLatency > 0 {
		return s.options.MemoryLatency
	}
	if s.options.CacheDefaults.MemoryLatency > 0 {
		return s.options.CacheDefaults.MemoryLatency
	}
	return cache.DefaultMemoryLatency
}

// askInt prompts for a number, keeping def when the answer is blank
func (s *Session) askInt(question string, def int) (int, error) {
	answer := s.prompt(fmt.Sprintf("  %s [default %d]: ", question, def))
	if answer == "" {
		return def, nil
	}

	value, err := strconv.Atoi(answer)
	if err != nil {
		return 0, errors.Newf("invalid number %q", answer)
	}
	return value, nil
}

func (s *Session) askLevel(def LevelFile) (cache.LevelConfig, error) {
	fmt.Fprintf(s.out, "\n-- %s Cache --\n", def.Name)

	var err error
	level := def
	if level.Size, err = s.askInt("Size (bytes)", def.Size); err != nil {
		return cache.LevelConfig{}, err
	}
	if level.BlockSize, err = s.askInt("Block size (bytes)", def.BlockSize); err != nil {
		return cache.LevelConfig{}, err
	}
	if level.Associativity, err = s.askInt("Associativity", def.Associativity); err != nil {
		return cache.LevelConfig{}, err
	}
	if policy := s.prompt(fmt.Sprintf("  Replacement policy (lru/fifo) [default %s]: ", def.Policy)); policy != "" {
		level.Policy = policy
	}
	if level.Latency, err = s.askInt("Access latency (cycles)", def.Latency); err != nil {
		return cache.LevelConfig{}, err
	}

	return level.LevelConfig()
}

// initCache builds a new hierarchy from the prompt answers. The previous hierarchy is only replaced
// once every level has been accepted.
func (s *Session) initCache() {
	fmt.Fprintln(s.out, "\n=== Cache Configuration ===")

	configs := make([]cache.LevelConfig, 0, len(s.options.CacheDefaults.Levels))
	for _, def := range s.options.CacheDefaults.Levels {
		config, err := s.askLevel(def)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		configs = append(configs, config)
	}

	fmt.Fprintln(s.out)
	hierarchy := cache.NewHierarchy(s.logger, cache.HierarchyOptions{
		Flags:         cache.CreateExternallySynchronized,
		MemoryLatency: s.memoryLatency(),
	})
	for _, config := range configs {
		err := hierarchy.AddLevel(config)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(s.out, "Added cache level: %s\n", config)
	}

	s.hierarchy = hierarchy
	fmt.Fprintf(s.out, "Cache hierarchy initialized (Memory latency: %d cycles)\n", hierarchy.MemoryLatency())
}

func (s *Session) cacheAccess(arg string, isWrite bool) {
	if !s.hierarchy.IsInitialized() {
		fmt.Fprintln(s.out, "Error: Cache not initialized. Use 'init cache' first.")
		return
	}

	address, err := strconv.ParseUint(arg, 0, 64)
	if err != nil {
		fmt.Fprintln(s.out, "Error: Invalid address")
		return
	}

	if isWrite {
		fmt.Fprintf(s.out, "Writing address: 0x%x\n", address)
	} else {
		fmt.Fprintf(s.out, "Reading address: 0x%x\n", address)
	}

	result, err := s.hierarchy.Access(address, isWrite)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	if result.Hit {
		fmt.Fprintf(s.out, "  HIT in %s (%d cycles)\n", result.Level, result.Cycles)
	} else {
		fmt.Fprintf(s.out, "  MISS in all levels, served from %s (%d cycles)\n", result.Level, result.Cycles)
	}
}

func (s *Session) cacheStats() {
	if !s.hierarchy.IsInitialized() {
		fmt.Fprintln(s.out, "Error: Cache not initialized")
		return
	}

	stats := s.hierarchy.Stats()
	p := s.printer

	fmt.Fprintln(s.out, "\n=== Cache Statistics ===")
	for _, level := range stats.Levels {
		fmt.Fprintf(s.out, "%s:\n", level.Name)
		p.Fprintf(s.out, "  Accesses:    %d\n", level.Accesses)
		p.Fprintf(s.out, "  Hits:        %d\n", level.Hits)
		p.Fprintf(s.out, "  Misses:      %d\n", level.Misses)
		p.Fprintf(s.out, "  Hit Rate:    %.2f%%\n", level.HitRatio())
		p.Fprintf(s.out, "  Evictions:   %d\n", level.Evictions)
		p.Fprintf(s.out, "  Write-backs: %d\n", level.WriteBacks)
		p.Fprintf(s.out, "  Access time: %d cycles\n", level.AccessTime)
	}
	p.Fprintf(s.out, "Memory accesses:     %d\n", stats.MemoryAccesses)
	p.Fprintf(s.out, "Total access time:   %d cycles\n", stats.TotalAccessTime)
	p.Fprintf(s.out, "Average access time: %.2f cycles\n", stats.AverageAccessTime())
	fmt.Fprint(s.out, "========================\n\n")
}

func (s *Session) cacheConfig() {
	if !s.hierarchy.IsInitialized() {
		fmt.Fprintln(s.out, "Error: Cache not initialized")
		return
	}

	fmt.Fprintln(s.out, "\n=== Cache Configuration ===")
	for _, config := range s.hierarchy.Config() {
		fmt.Fprintf(s.out, "  %s\n", config)
	}
	fmt.Fprintf(s.out, "  Memory: %d cycles\n", s.hierarchy.MemoryLatency())
	fmt.Fprint(s.out, "===========================\n\n")
}

func (s *Session) cacheJSON() {
	if !s.hierarchy.IsInitialized() {
		fmt.Fprintln(s.out, "Error: Cache not initialized")
		return
	}

	writer := jwriter.NewWriter()
	s.hierarchy.PrintStats(&writer)
	if err := writer.Error(); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintln(s.out, string(writer.Bytes()))
}

func (s *Session) cacheReset() {
	s.hierarchy.ResetStats()
	fmt.Fprintln(s.out, "Cache statistics reset")
}
