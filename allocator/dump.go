package allocator

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/memsim/memutils"
	"github.com/vkngwrapper/memsim/memutils/metadata"
)

// BlockInfo describes one region of the arena as reported by Dump
type BlockInfo struct {
	Offset int
	Size   int
	Free   bool
	// ID is the block ID returned by Allocate, or FreeBlockID for free regions
	ID int
}

// End returns the offset of the last byte in the region
func (b BlockInfo) End() int {
	return b.Offset + b.Size - 1
}

// Dump lists every region of the arena in ascending offset order. The regions tile the arena
// exactly. Nil is returned if the allocator has not been initialized.
func (a *Allocator) Dump() []BlockInfo {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return nil
	}

	blocks := make([]BlockInfo, 0, a.metadata.AllocationCount()+a.metadata.FreeRegionsCount())
	_ = a.metadata.VisitAllRegions(func(region metadata.Suballocation) error {
		blocks = append(blocks, blockInfo(region))
		return nil
	})

	return blocks
}

// Lookup returns the region currently held by the block with the provided ID
func (a *Allocator) Lookup(id int) (BlockInfo, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return BlockInfo{}, errors.Wrap(memutils.ErrNotInitialized, "memory has not been initialized")
	}

	handle, ok := a.blocks.Get(id)
	if !ok {
		return BlockInfo{}, errors.Wrapf(memutils.ErrBlockNotFound, "block %d", id)
	}

	var info BlockInfo
	err := a.metadata.VisitAllRegions(func(region metadata.Suballocation) error {
		if region.Handle == handle {
			info = blockInfo(region)
			return errFoundRegion
		}
		return nil
	})
	if !errors.Is(err, errFoundRegion) {
		return BlockInfo{}, errors.Wrapf(memutils.ErrBlockNotFound, "block %d has no region", id)
	}

	return info, nil
}

var errFoundRegion = errors.New("found region")

func blockInfo(region metadata.Suballocation) BlockInfo {
	info := BlockInfo{
		Offset: region.Offset,
		Size:   region.Size,
		Free:   region.Free,
		ID:     FreeBlockID,
	}

	if id, ok := region.UserData.(int); ok && !region.Free {
		info.ID = id
	}

	return info
}

// PrintDetailedMap writes a JSON object describing the arena and each of its regions
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	obj := writer.Object()
	defer obj.End()

	obj.Name("Initialized").Bool(a.metadata != nil)
	obj.Name("Strategy").String(a.strategy.String())
	if a.metadata == nil {
		return
	}

	a.metadata.BlockJsonData(&obj)
	obj.Name("Fragmentation").Float64(a.stats.ExternalFragmentation)

	a.printDetailedMapRegions(&obj)
}

func (a *Allocator) printDetailedMapRegions(json *jwriter.ObjectState) {
	arrayState := json.Name("Suballocations").Array()
	defer arrayState.End()

	_ = a.metadata.VisitAllRegions(func(region metadata.Suballocation) error {
		info := blockInfo(region)

		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Offset").Int(info.Offset)
		obj.Name("Size").Int(info.Size)
		if info.Free {
			obj.Name("Type").String("FREE")
		} else {
			obj.Name("Type").String("USED")
			obj.Name("ID").Int(info.ID)
		}

		return nil
	})
}
