package commands

import (
	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
)

// areaMask builds a per-node selection mask from a block-relative overlap.
// With invert, everything outside the overlap is selected instead.
func areaMask(overlap geom.Area, invert bool) []bool {
	mask := make([]bool, mapblock.NodeCount)
	if invert {
		for i := range mask {
			mask[i] = true
		}
	}

	for z := overlap.P1.Z; z <= overlap.P2.Z; z++ {
		for y := overlap.P1.Y; y <= overlap.P2.Y; y++ {
			for x := overlap.P1.X; x <= overlap.P2.X; x++ {
				mask[z*256+y*16+x] = !invert
			}
		}
	}

	return mask
}

// recordSelected decides whether a per-node record (metadata, timer) at an
// intra-block position is covered by the command's selection.
func recordSelected(block *mapblock.Mapblock, args *Args, searchID int,
	cornerPos geom.Vec3, pos uint16) bool {

	if args.Area != nil {
		relPos := geom.FromU16Key(pos)
		if args.Area.Contains(relPos.Add(cornerPos)) == args.Invert {
			return false
		}
	}
	if searchID >= 0 && block.ContentAt(pos) != uint16(searchID) {
		return false
	}
	return true
}

// blockNimapIndex parses the block's name-id map and looks up name,
// returning -1 when the name is absent or the map cannot be decoded.
func blockNimapIndex(block *mapblock.Mapblock, name []byte) int {
	if name == nil {
		return -1
	}
	nimap, err := block.DeserializeNimap()
	if err != nil {
		return -1
	}
	return mapblock.NimapIndex(nimap, name)
}
