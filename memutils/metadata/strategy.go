package metadata

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils"
)

// AllocationStrategy selects which free region a new allocation is placed into. Every strategy only
// considers free regions at least as large as the request, and every strategy breaks ties in favor
// of the region with the lowest offset.
type AllocationStrategy uint32

const (
	// AllocationStrategyFirstFit selects the first suitable free region in address order. This is
	// the default strategy.
	AllocationStrategyFirstFit AllocationStrategy = iota
	// AllocationStrategyBestFit selects the suitable free region that leaves the least space over
	// after the allocation
	AllocationStrategyBestFit
	// AllocationStrategyWorstFit selects the suitable free region that leaves the most space over
	// after the allocation
	AllocationStrategyWorstFit
)

var allocationStrategyMapping = map[AllocationStrategy]string{
	AllocationStrategyFirstFit: "First Fit",
	AllocationStrategyBestFit:  "Best Fit",
	AllocationStrategyWorstFit: "Worst Fit",
}

var allocationStrategyNames = map[string]AllocationStrategy{
	"first_fit": AllocationStrategyFirstFit,
	"best_fit":  AllocationStrategyBestFit,
	"worst_fit": AllocationStrategyWorstFit,
}

func (s AllocationStrategy) String() string {
	name, ok := allocationStrategyMapping[s]
	if !ok {
		return "Unknown"
	}
	return name
}

// IsValid returns true if the strategy is one of the known AllocationStrategy values
func (s AllocationStrategy) IsValid() bool {
	_, ok := allocationStrategyMapping[s]
	return ok
}

// ParseAllocationStrategy converts a strategy name such as "best_fit" into an AllocationStrategy.
// Matching is case-insensitive and dashes are accepted in place of underscores.
func ParseAllocationStrategy(name string) (AllocationStrategy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	strategy, ok := allocationStrategyNames[normalized]
	if !ok {
		return AllocationStrategyFirstFit, errors.Wrapf(memutils.ErrInvalidStrategy,
			"unknown strategy %q, available: first_fit, best_fit, worst_fit", name)
	}

	return strategy, nil
}
