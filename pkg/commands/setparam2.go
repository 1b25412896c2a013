package commands

import (
	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// SetParam2 sets the param2 value of every selected node.
func SetParam2(inst *Instance, args *Args) error {
	if args.ParamVal < 0 || args.ParamVal > 255 {
		return errors.New("param2 value must be between 0 and 255")
	}
	if args.SearchNode == "" && args.Area == nil {
		return errors.New("this command requires area and/or searchnode")
	}

	searchNode := nodeBytes(args.SearchNode)
	paramVal := byte(args.ParamVal)

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

		searchID := -1
		if searchNode != nil {
			nimap, err := block.DeserializeNimap()
			if err != nil {
				inst.skipBlock(key, err)
				continue
			}
			searchID = mapblock.NimapIndex(nimap, searchNode)
			if searchID < 0 {
				// The search string matched elsewhere in the blob.
				continue
			}
		}

		content, param1, param2 := block.DeserializeNodeData()

		var overlap geom.Area
		hasOverlap := false
		if args.Area != nil {
			blockPos := geom.FromBlockKey(key)
			overlap, hasOverlap = geom.BlockOverlap(blockPos, *args.Area, true)
		}

		if args.Area == nil || !hasOverlap || overlap.IsFullMapblock() {
			// Work on the whole mapblock.
			if searchID >= 0 {
				for i, c := range content {
					if int(c) == searchID {
						param2[i] = paramVal
					}
				}
			} else {
				for i := range param2 {
					param2[i] = paramVal
				}
			}
		} else {
			// Work on a partial mapblock.
			mask := areaMask(overlap, args.Invert)
			for i, selected := range mask {
				if !selected {
					continue
				}
				if searchID >= 0 && int(content[i]) != searchID {
					continue
				}
				param2[i] = paramVal
			}
		}

		block.SerializeNodeData(content, param1, param2)
		if err := inst.DB.SetBlock(key, block.Serialize()); err != nil {
			return err
		}
	}

	return nil
}
