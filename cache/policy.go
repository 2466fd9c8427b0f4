package cache

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/memsim/memutils"
)

// ReplacementPolicy selects which valid line of a full set is evicted on a miss
type ReplacementPolicy uint32

const (
	// ReplacementFIFO evicts the line that was installed earliest
	ReplacementFIFO ReplacementPolicy = iota
	// ReplacementLRU evicts the line that was touched least recently
	ReplacementLRU
)

var replacementPolicyMapping = map[ReplacementPolicy]string{
	ReplacementFIFO: "FIFO",
	ReplacementLRU:  "LRU",
}

func (p ReplacementPolicy) String() string {
	name, ok := replacementPolicyMapping[p]
	if !ok {
		return "Unknown"
	}
	return name
}

func (p ReplacementPolicy) IsValid() bool {
	_, ok := replacementPolicyMapping[p]
	return ok
}

// ParseReplacementPolicy accepts "FIFO" or "LRU" in any case
func ParseReplacementPolicy(name string) (ReplacementPolicy, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	for policy, policyName := range replacementPolicyMapping {
		if policyName == normalized {
			return policy, nil
		}
	}

	return ReplacementFIFO, errors.Wrapf(memutils.ErrInvalidConfiguration, "unknown replacement policy %q", name)
}

// NewVictimFinder returns the VictimFinder that implements the provided policy
func NewVictimFinder(policy ReplacementPolicy) (VictimFinder, error) {
	switch policy {
	case ReplacementFIFO:
		return NewFIFOVictimFinder(), nil
	case ReplacementLRU:
		return NewLRUVictimFinder(), nil
	}

	return nil, errors.Wrapf(memutils.ErrInvalidConfiguration, "unknown replacement policy %d", uint32(policy))
}
