package commands

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

var (
	itemWord  = []byte("Item")
	emptyWord = []byte("Empty")
)

// replaceInInvList rewrites matching item lines of one inventory blob.
// Lines are split on single spaces into at most 5 tokens; item metadata is
// the optional fifth token.
func replaceInInvList(inv, searchItem, replaceItem []byte, deleteMeta bool) ([]byte, bool) {
	invList := bytes.Split(inv, []byte("\n"))
	modified := false

	for k, line := range invList {
		splitItem := bytes.SplitN(line, []byte(" "), 5)
		if len(splitItem) < 2 || !bytes.Equal(splitItem[0], itemWord) ||
			!bytes.Equal(splitItem[1], searchItem) {
			continue
		}

		if bytes.Equal(replaceItem, emptyWord) {
			splitItem = [][]byte{emptyWord}
		} else {
			splitItem[1] = replaceItem
			// Delete item metadata.
			if len(splitItem) == 5 && deleteMeta {
				splitItem = splitItem[:4]
			}
		}

		invList[k] = bytes.Join(splitItem, []byte(" "))
		modified = true
	}

	return bytes.Join(invList, []byte("\n")), modified
}

// ReplaceInInv replaces one item with another in the inventories of
// selected nodes.
func ReplaceInInv(inst *Instance, args *Args) error {
	if args.SearchItem == "" || args.ReplaceItem == "" {
		return errors.New("replaceininv requires a search item and a replace item")
	}

	searchNode := nodeBytes(args.SearchNode)
	searchItem := []byte(args.SearchItem)
	replaceItem := []byte(args.ReplaceItem)

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
		for j := range metaList {
			if !recordSelected(block, args, searchID, cornerPos, metaList[j].Pos) {
				continue
			}

			inv, changed := replaceInInvList(metaList[j].Inv, searchItem,
				replaceItem, args.DeleteMeta)
			metaList[j].Inv = inv
			if changed {
				modified = true
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
