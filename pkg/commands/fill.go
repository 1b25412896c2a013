package commands

import (
	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// Fill sets every selected node to the given node type. Only whole-block
// fills reset params, metadata and timers; partial fills touch the content
// ids alone.
func Fill(inst *Instance, args *Args) error {
	if args.Area == nil {
		return errors.New("fill requires an area")
	}
	if args.ReplaceNode == "" {
		return errors.New("fill requires a node name")
	}
	fillNode := nodeBytes(args.ReplaceNode)

	if inst.PrintWarnings {
		inst.Log.Warnf("fill will NOT affect param1, param2, node metadata, " +
			"or node timers of partially filled mapblocks. Improper usage " +
			"could result in unneeded map clutter.")
	}

	if err := inst.Begin(); err != nil {
		return err
	}

	keys, err := mapdb.GetMapblocks(inst.DB, inst.Log, nil, args.Area,
		args.Invert, !args.Blockmode)
	if err != nil {
		return err
	}

	inst.StartProgress(len(keys))
	for _, key := range keys {
		inst.Step()

		data, err := inst.DB.GetBlock(key)
		if err != nil {
			return err
		}
		block, err := mapblock.Parse(data)
		if err != nil {
			inst.skipBlock(key, err)
			continue
		}

		nimap, err := block.DeserializeNimap()
		if err != nil {
			inst.skipBlock(key, err)
			continue
		}
		content, param1, param2 := block.DeserializeNodeData()

		blockPos := geom.FromBlockKey(key)
		overlap, hasOverlap := geom.BlockOverlap(blockPos, *args.Area, true)

		if args.Blockmode || !hasOverlap || overlap.IsFullMapblock() {
			// Fill the whole mapblock.
			for i := range content {
				content[i] = 0
				param1[i] = 0
				param2[i] = 0
			}
			nimap = [][]byte{fillNode}
			block.SerializeMetadata(nil)
			block.SerializeNodeTimers(nil)
		} else {
			// Fill part of the mapblock.
			fillID := mapblock.NimapIndex(nimap, fillNode)
			if fillID < 0 {
				nimap = append(nimap, fillNode)
				fillID = len(nimap) - 1
			}

			mask := areaMask(overlap, args.Invert)
			for i, selected := range mask {
				if selected {
					content[i] = uint16(fillID)
				}
			}
			// Remove duplicate/unused id(s).
			nimap = mapblock.CleanNimap(nimap, content)
		}

		block.SerializeNodeData(content, param1, param2)
		block.SerializeNimap(nimap)
		if err := inst.DB.SetBlock(key, block.Serialize()); err != nil {
			return err
		}
	}

	return nil
}
