package commands

import (
	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// DeleteTimers removes the node timers of every selected node.
func DeleteTimers(inst *Instance, args *Args) error {
	if args.SearchNode == "" && args.Area == nil {
		return errors.New("this command requires area and/or searchnode")
	}
	searchNode := nodeBytes(args.SearchNode)

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
			if searchID = blockNimapIndex(block, searchNode); searchID < 0 {
				continue
			}
		}

		cornerPos := geom.FromBlockKey(key).Scale(geom.BlockSize)

		timerList := block.DeserializeNodeTimers()
		modified := false
		for j := len(timerList) - 1; j >= 0; j-- {
			if !recordSelected(block, args, searchID, cornerPos, timerList[j].Pos) {
				continue
			}
			timerList = append(timerList[:j], timerList[j+1:]...)
			modified = true
		}

		if modified {
			block.SerializeNodeTimers(timerList)
			if err := inst.DB.SetBlock(key, block.Serialize()); err != nil {
				return err
			}
		}
	}

	return nil
}
