package commands

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

func roundToBlocks(offset geom.Vec3) geom.Vec3 {
	return offset.Map(func(n int) int {
		return int(math.Round(float64(n) / geom.BlockSize))
	})
}

// sortKeysByOffset orders destination keys so that, on each axis with a
// nonzero offset, iteration runs opposite to the offset sign. A source
// block is then always read before any destination depending on it is
// overwritten. Axes are biased by -1 when descending to avoid key
// wrap-around for blocks at -2048.
func sortKeysByOffset(keys []int64, offset geom.Vec3) {
	sortDir := offset.Map(func(n int) int {
		if n > 0 {
			return -1
		}
		return 1
	})
	sortOffset := sortDir.Map(func(n int) int {
		if n == -1 {
			return -1
		}
		return 0
	})

	sortKey := func(key int64) int64 {
		pos := geom.FromBlockKey(key)
		return pos.Mul(sortDir).Add(sortOffset).ToBlockKey()
	}

	sort.Slice(keys, func(i, j int) bool {
		return sortKey(keys[i]) < sortKey(keys[j])
	})
}

// mergeSourceBlocks composes every source block overlapping the
// destination block at pos onto it and writes the result. src may be the
// primary database (clone) or a secondary one (overlay).
func mergeSourceBlocks(inst *Instance, src *mapdb.Database, key int64,
	pos geom.Vec3, dstArea geom.Area, offset geom.Vec3) error {

	dstData, err := inst.DB.GetBlock(key)
	if err != nil {
		return err
	}
	if !mapblock.IsValidGenerated(dstData) {
		return nil
	}
	dstBlock, err := mapblock.Parse(dstData)
	if err != nil {
		inst.skipBlock(key, err)
		return nil
	}

	dstBlockOverlap, ok := geom.BlockOverlap(pos, dstArea, false)
	if !ok {
		return nil
	}
	srcOverlapArea := dstBlockOverlap.Sub(offset)
	srcBlocksIncluded := geom.MapblockArea(srcOverlapArea, false, true)

	merge := mapblock.NewMerge(dstBlock)
	var scanErr error
	srcBlocksIncluded.Each(func(srcPos geom.Vec3) {
		if scanErr != nil || !srcPos.IsValidBlockPos() {
			return
		}

		srcData, err := src.GetBlock(srcPos.ToBlockKey())
		if err != nil {
			scanErr = err
			return
		}
		if !mapblock.IsValidGenerated(srcData) {
			return
		}
		srcBlock, err := mapblock.Parse(srcData)
		if err != nil {
			inst.skipBlock(srcPos.ToBlockKey(), err)
			return
		}

		srcBlockFrag, ok := geom.BlockOverlap(srcPos, srcOverlapArea, false)
		if !ok {
			return
		}
		srcToDestFrag, ok := geom.BlockOverlap(pos, srcBlockFrag.Add(offset), true)
		if !ok {
			return
		}

		srcCornerPos := srcPos.Scale(geom.BlockSize)
		merge.AddLayer(srcBlock, srcBlockFrag.Sub(srcCornerPos), srcToDestFrag)
	})
	if scanErr != nil {
		return scanErr
	}

	if err := merge.Apply(); err != nil {
		inst.skipBlock(key, err)
		return nil
	}
	return inst.DB.SetBlock(key, dstBlock.Serialize())
}

// Clone copies the selected area to a new location within the same map.
func Clone(inst *Instance, args *Args) error {
	if args.Area == nil {
		return errors.New("clone requires an area")
	}
	if args.Offset == nil {
		return errors.New("clone requires an offset")
	}

	offset := *args.Offset
	var blockOffset geom.Vec3
	if args.Blockmode {
		blockOffset = roundToBlocks(offset)
		offset = blockOffset.Scale(geom.BlockSize)
	}

	if offset == (geom.Vec3{}) {
		return errors.New("offset cannot be zero")
	}
	if args.Blockmode {
		inst.Log.Printf("blockmode: offset rounded to %v.", offset)
	}

	if err := inst.Begin(); err != nil {
		return err
	}

	var keys []int64
	var dstArea geom.Area
	var err error
	if args.Blockmode {
		keys, err = mapdb.GetMapblocks(inst.DB, inst.Log, nil, args.Area, false, false)
	} else {
		dstArea = args.Area.Add(offset)
		keys, err = mapdb.GetMapblocks(inst.DB, inst.Log, nil, &dstArea, false, true)
	}
	if err != nil {
		return err
	}

	// Sort the block positions based on the direction of the offset. This
	// prevents reading from an already modified block.
	sortKeysByOffset(keys, offset)

	inst.StartProgress(len(keys))
	for _, key := range keys {
		inst.Step()
		pos := geom.FromBlockKey(key)

		if args.Blockmode {
			// Keys correspond to source blocks.
			dstPos := pos.Add(blockOffset)
			if !dstPos.IsValidBlockPos() {
				continue
			}

			srcData, err := inst.DB.GetBlock(key)
			if err != nil {
				return err
			}
			if !mapblock.IsValidGenerated(srcData) {
				continue
			}

			if err := inst.DB.SetBlockForce(dstPos.ToBlockKey(), srcData); err != nil {
				return err
			}
		} else {
			// Keys correspond to destination blocks.
			if err := mergeSourceBlocks(inst, inst.DB, key, pos, dstArea, offset); err != nil {
				return err
			}
		}
	}

	return nil
}
