package commands

import (
	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// ReplaceNodes replaces every selected node of one type with another type.
// Param1, param2, metadata and timers are preserved.
func ReplaceNodes(inst *Instance, args *Args) error {
	if args.SearchNode == "" || args.ReplaceNode == "" {
		return errors.New("replacenodes requires a search node and a replace node")
	}
	if args.SearchNode == args.ReplaceNode {
		return errors.New("search node and replace node are the same")
	}

	searchNode := nodeBytes(args.SearchNode)
	replaceNode := nodeBytes(args.ReplaceNode)

	if inst.PrintWarnings {
		inst.Log.Warnf("replacenodes will NOT affect param1, param2, " +
			"node metadata, or node timers. Improper usage could result in " +
			"unneeded map clutter.")
	}

	if err := inst.Begin(); err != nil {
		return err
	}

	keys, err := mapdb.GetMapblocks(inst.DB, inst.Log, searchNode, args.Area,
		args.Invert, true)
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
		searchID := mapblock.NimapIndex(nimap, searchNode)
		if searchID < 0 {
			continue
		}

		content, param1, param2 := block.DeserializeNodeData()

		var overlap geom.Area
		hasOverlap := false
		if args.Area != nil {
			blockPos := geom.FromBlockKey(key)
			overlap, hasOverlap = geom.BlockOverlap(blockPos, *args.Area, true)
		}

		if args.Area == nil || !hasOverlap || overlap.IsFullMapblock() {
			// Replace in the whole mapblock.
			replaceID := mapblock.NimapIndex(nimap, replaceNode)
			if replaceID >= 0 {
				// Both names present: retarget the content ids and drop
				// the now unneeded entry.
				nimap = append(nimap[:searchID], nimap[searchID+1:]...)
				for i, c := range content {
					if int(c) == searchID {
						content[i] = uint16(replaceID)
					}
				}
				for i, c := range content {
					if int(c) > searchID {
						content[i] = c - 1
					}
				}
			} else {
				// Rename the mapping in place.
				nimap[searchID] = replaceNode
			}
		} else {
			// Replace in a portion of the mapblock.
			replaceID := mapblock.NimapIndex(nimap, replaceNode)
			if replaceID < 0 {
				nimap = append(nimap, replaceNode)
				replaceID = len(nimap) - 1
			}

			mask := areaMask(overlap, args.Invert)
			for i, selected := range mask {
				if selected && int(content[i]) == searchID {
					content[i] = uint16(replaceID)
				}
			}
			// Remove duplicate/unused id(s).
			nimap = mapblock.CleanNimap(nimap, content)
		}

		block.SerializeNimap(nimap)
		block.SerializeNodeData(content, param1, param2)
		if err := inst.DB.SetBlock(key, block.Serialize()); err != nil {
			return err
		}
	}

	return nil
}
