package commands

import (
	"bytes"
	"regexp"

	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// itemEntName is the engine's built-in entity type for dropped items.
var itemEntName = []byte("__builtin:item")

// itemstringFormat extracts the item name from a dropped item entity's
// serialized lua data.
var itemstringFormat = regexp.MustCompile(`\["itemstring"\] = "([a-zA-Z0-9_:]+)`)

// DeleteObjects deletes static objects by name and/or area. With Items set,
// only dropped item entities are matched, by their inner itemstring.
func DeleteObjects(inst *Instance, args *Args) error {
	searchObj := nodeBytes(args.SearchObj)

	if err := inst.Begin(); err != nil {
		return err
	}

	searchData := searchObj
	if args.Items {
		searchData = itemEntName
	}
	keys, err := mapdb.GetMapblocks(inst.DB, inst.Log, searchData, args.Area,
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

		objList, err := block.DeserializeStaticObjects()
		if err != nil {
			inst.skipBlock(key, err)
			continue
		}

		modified := false
		for j := len(objList) - 1; j >= 0; j-- {
			obj := objList[j]

			if args.Area != nil {
				pos := geom.FromV3F1000(obj.Pos)
				if args.Area.ContainsF(pos) == args.Invert {
					continue
				}
			}

			name, objData, err := mapblock.DeserializeObjectData(obj.Data)
			if err != nil {
				continue
			}

			if args.Items {
				// Search for item entities.
				if !bytes.Equal(name, itemEntName) {
					continue
				}
				if searchObj != nil {
					m := itemstringFormat.FindSubmatch(objData)
					if m == nil || !bytes.Equal(m[1], searchObj) {
						continue
					}
				}
			} else {
				// Search for regular entities (mobs, carts, et cetera).
				if searchObj != nil && !bytes.Equal(name, searchObj) {
					continue
				}
			}

			objList = append(objList[:j], objList[j+1:]...)
			modified = true
		}

		if modified {
			block.SerializeStaticObjects(objList)
			if err := inst.DB.SetBlock(key, block.Serialize()); err != nil {
				return err
			}
		}
	}

	return nil
}
