package commands

import (
	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// DeleteMeta removes the metadata of every selected node.
func DeleteMeta(inst *Instance, args *Args) error {
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

		metaList, err := block.DeserializeMetadata()
		if err != nil {
			inst.skipBlock(key, err)
			continue
		}

		modified := false
		for j := len(metaList) - 1; j >= 0; j-- {
			if !recordSelected(block, args, searchID, cornerPos, metaList[j].Pos) {
				continue
			}
			metaList = append(metaList[:j], metaList[j+1:]...)
			modified = true
		}

		if modified {
			block.SerializeMetadata(metaList)
			if err := inst.DB.SetBlock(key, block.Serialize()); err != nil {
				return err
			}
		}
	}

	return nil
}

// SetMetaVar sets the value of a metadata variable on every selected node.
// The variable is only replaced where it already exists.
func SetMetaVar(inst *Instance, args *Args) error {
	if args.SearchNode == "" && args.Area == nil {
		return errors.New("this command requires area and/or searchnode")
	}
	if args.MetaKey == "" || args.MetaValue == "" {
		return errors.New("setmetavar requires a key and a value")
	}

	metaKey := []byte(args.MetaKey)
	metaValue := []byte(args.MetaValue)
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
blocks:
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

		metaList, err := block.DeserializeMetadata()
		if err != nil {
			inst.skipBlock(key, err)
			continue
		}

		modified := false
		for j := range metaList {
			if !recordSelected(block, args, searchID, cornerPos, metaList[j].Pos) {
				continue
			}

			vars, err := mapblock.DeserializeMetadataVars(metaList[j].Vars,
				metaList[j].NumVars, block.MetadataVersion)
			if err != nil {
				inst.skipBlock(key, err)
				continue blocks
			}

			for v := range vars {
				if string(vars[v].Key) == string(metaKey) {
					vars[v].Value = metaValue
					metaList[j].Vars = mapblock.SerializeMetadataVars(vars,
						block.MetadataVersion)
					modified = true
					break
				}
			}
		}

		if modified {
			block.SerializeMetadata(metaList)
			if err := inst.DB.SetBlock(key, block.Serialize()); err != nil {
				return err
			}
		}
	}

	return nil
}
