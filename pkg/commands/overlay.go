package commands

import (
	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// Overlay copies part or all of a secondary map file into the primary one.
func Overlay(inst *Instance, args *Args) error {
	var offset geom.Vec3
	if args.Offset != nil {
		offset = *args.Offset
	}

	if offset != (geom.Vec3{}) && args.Invert {
		return errors.New("cannot offset an inverted selection")
	}

	var blockOffset geom.Vec3
	if args.Blockmode {
		blockOffset = roundToBlocks(offset)
		offset = blockOffset.Scale(geom.BlockSize)
		if args.Offset != nil {
			inst.Log.Printf("blockmode: offset rounded to %v.", offset)
		}
	}

	wholeBlocks := args.Blockmode || args.Area == nil
	if wholeBlocks && !args.Blockmode && offset != (geom.Vec3{}) {
		return errors.New("overlay without an area requires blockmode to use an offset")
	}

	if err := inst.Begin(); err != nil {
		return err
	}

	var keys []int64
	var dstArea geom.Area
	var err error
	if wholeBlocks {
		keys, err = mapdb.GetMapblocks(inst.SDB, inst.Log, nil, args.Area, args.Invert, false)
	} else {
		dstArea = args.Area.Add(offset)
		keys, err = mapdb.GetMapblocks(inst.DB, inst.Log, nil, &dstArea, args.Invert, true)
	}
	if err != nil {
		return err
	}

	// Sort the block positions based on the direction of the offset.
	sortKeysByOffset(keys, offset)

	inst.StartProgress(len(keys))
	for _, key := range keys {
		inst.Step()
		pos := geom.FromBlockKey(key)

		if wholeBlocks {
			// Keys correspond to source blocks.
			dstPos := pos.Add(blockOffset)
			if !dstPos.IsValidBlockPos() {
				continue
			}

			srcData, err := inst.SDB.GetBlock(key)
			if err != nil {
				return err
			}
			if !mapblock.IsValidGenerated(srcData) {
				continue
			}

			if err := inst.DB.SetBlockForce(dstPos.ToBlockKey(), srcData); err != nil {
				return err
			}
		} else if args.Invert {
			// Keys correspond to destination blocks. Inverted selections
			// cannot have an offset, so the source block shares the key.
			// The destination's overlap is layered onto the source block,
			// which then replaces the destination.
			dstData, err := inst.DB.GetBlock(key)
			if err != nil {
				return err
			}
			if !mapblock.IsValidGenerated(dstData) {
				continue
			}
			srcData, err := inst.SDB.GetBlock(key)
			if err != nil {
				return err
			}
			if !mapblock.IsValidGenerated(srcData) {
				continue
			}

			overlap, ok := geom.BlockOverlap(pos, dstArea, true)
			if ok {
				dstBlock, err := mapblock.Parse(dstData)
				if err != nil {
					inst.skipBlock(key, err)
					continue
				}
				srcBlock, err := mapblock.Parse(srcData)
				if err != nil {
					inst.skipBlock(key, err)
					continue
				}

				merge := mapblock.NewMerge(srcBlock)
				merge.AddLayer(dstBlock, overlap, overlap)
				if err := merge.Apply(); err != nil {
					inst.skipBlock(key, err)
					continue
				}
				if err := inst.DB.SetBlock(key, srcBlock.Serialize()); err != nil {
					return err
				}
			} else {
				if err := inst.DB.SetBlock(key, srcData); err != nil {
					return err
				}
			}
		} else {
			// Keys correspond to destination blocks.
			if err := mergeSourceBlocks(inst, inst.SDB, key, pos, dstArea, offset); err != nil {
				return err
			}
		}
	}

	return nil
}
