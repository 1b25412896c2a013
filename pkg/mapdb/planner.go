package mapdb

import (
	"bytes"

	"github.com/random-geek/MapEdit/pkg/elog"
	"github.com/random-geek/MapEdit/pkg/geom"
)

// GetMapblocks scans the whole database and returns the keys of blocks that
// fit the given criteria.
//
// When area is set, keys are kept or rejected by their block position,
// inverted by invert. When searchData is set, blobs that do not contain the
// byte substring are rejected; this is a coarse prefilter (names appear in
// the name-id map and entity payloads) and callers must still re-check each
// block.
func GetMapblocks(db *Database, log elog.View, searchData []byte,
	area *geom.Area, invert, includePartial bool) ([]int64, error) {

	var blockArea *geom.Area
	if area != nil {
		a := geom.MapblockArea(*area, invert, includePartial)
		blockArea = &a
	}

	progress := log.NewProgress("Building index", "", 0)

	var keys []int64
	err := db.EachBlock(func(key int64, data []byte) error {
		// Make sure the block is inside/outside the area as specified.
		if blockArea != nil &&
			blockArea.Contains(geom.FromBlockKey(key)) == invert {
			return nil
		}
		// Check for a node name or other string to search for.
		if searchData != nil && !bytes.Contains(data, searchData) {
			return nil
		}
		keys = append(keys, key)
		progress.Increment(1)
		return nil
	})

	progress.Finish(err == nil)
	if err != nil {
		return nil, err
	}

	log.Printf("%d mapblocks selected.", len(keys))
	return keys, nil
}
