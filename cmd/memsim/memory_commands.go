package main

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/memutils"
)

func (s *Session) initMemory(arg string) {
	size, err := strconv.Atoi(arg)
	if err != nil || size < 0 {
		fmt.Fprintln(s.out, "Error: Invalid size")
		return
	}

	err = s.allocator.Initialize(size)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	s.printer.Fprintf(s.out, "Memory initialized: %d bytes\n", size)
}

func (s *Session) setAllocator(name string) {
	err := s.allocator.SetStrategyName(name)
	if err != nil {
		fmt.Fprintf(s.out, "Unknown strategy: %s\n", name)
		fmt.Fprintln(s.out, "Available: first_fit, best_fit, worst_fit")
		return
	}

	fmt.Fprintf(s.out, "Allocator set to: %s\n", s.allocator.StrategyName())
}

func (s *Session) malloc(arg string) {
	if !s.allocator.IsInitialized() {
		fmt.Fprintln(s.out, "Error: Memory not initialized. Use 'init memory <size>' first.")
		return
	}

	size, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintln(s.out, "Error: Invalid size")
		return
	}

	id, err := s.allocator.Allocate(size)
	switch {
	case errors.Is(err, memutils.ErrInvalidSize):
		fmt.Fprintf(s.out, "Error: Cannot allocate %d bytes\n", size)
		return
	case errors.Is(err, memutils.ErrOutOfMemory):
		fmt.Fprintf(s.out, "Allocation failed: No suitable free block for size %d\n", size)
		return
	case err != nil:
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	block, err := s.allocator.Lookup(id)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "Allocated block id=%d at address=0x%04x size=%d\n", id, block.Offset, block.Size)
}

func (s *Session) free(arg string) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		fmt.Fprintln(s.out, "Error: Invalid block ID")
		return
	}

	err = s.allocator.Free(id)
	switch {
	case errors.Is(err, memutils.ErrNotInitialized):
		fmt.Fprintln(s.out, "Error: Memory not initialized")
	case errors.Is(err, memutils.ErrBlockNotFound):
		fmt.Fprintf(s.out, "Error: Block %d not found\n", id)
	case err != nil:
		fmt.Fprintf(s.out, "Error: %v\n", err)
	default:
		fmt.Fprintf(s.out, "Block %d freed and merged\n", id)
	}
}

func (s *Session) dumpMemory() {
	if !s.allocator.IsInitialized() {
		fmt.Fprintln(s.out, "Memory not initialized")
		return
	}

	fmt.Fprintln(s.out, "\n=== Memory Dump ===")
	for _, block := range s.allocator.Dump() {
		state := "FREE"
		if !block.Free {
			state = fmt.Sprintf("USED (id=%d)", block.ID)
		}

		fmt.Fprintf(s.out, "[0x%04x - 0x%04x] %s [%d bytes]\n", block.Offset, block.End(), state, block.Size)
	}
	fmt.Fprint(s.out, "==================\n\n")
}

func (s *Session) dumpJSON() {
	writer := jwriter.NewWriter()
	s.allocator.PrintDetailedMap(&writer)
	if err := writer.Error(); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintln(s.out, string(writer.Bytes()))
}

func (s *Session) memoryStats() {
	if !s.allocator.IsInitialized() {
		fmt.Fprintln(s.out, "Memory not initialized")
		return
	}

	stats := s.allocator.Stats()
	p := s.printer

	fmt.Fprintln(s.out, "\n=== Memory Statistics ===")
	p.Fprintf(s.out, "Allocator:              %s\n", s.allocator.StrategyName())
	p.Fprintf(s.out, "Total memory:           %d bytes\n", stats.TotalMemory)
	p.Fprintf(s.out, "Used memory:            %d bytes\n", stats.UsedMemory)
	p.Fprintf(s.out, "Free memory:            %d bytes\n", stats.FreeMemory)
	p.Fprintf(s.out, "Free blocks:            %d\n", stats.FreeBlockCount)
	p.Fprintf(s.out, "Largest free block:     %d bytes\n", stats.LargestFreeBlock)
	p.Fprintf(s.out, "Memory utilization:     %.1f%%\n", stats.Utilization())
	p.Fprintf(s.out, "Allocations:            %d\n", stats.AllocationCount)
	p.Fprintf(s.out, "Deallocations:          %d\n", stats.DeallocationCount)
	p.Fprintf(s.out, "Allocation failures:    %d\n", stats.AllocationFailures)
	p.Fprintf(s.out, "External fragmentation: %.1f%%\n", stats.ExternalFragmentation)
	fmt.Fprint(s.out, "=========================\n\n")
}
