package mapblock

import (
	"github.com/random-geek/MapEdit/pkg/geom"
)

// CleanNimap removes unused or duplicate name-id mappings, remapping content
// ids as entries shift down. It returns the compacted map. Afterwards no
// name appears twice and every remaining id occurs in content.
func CleanNimap(nimap [][]byte, content []uint16) [][]byte {
	// Iterate ids from highest to lowest to keep the index arithmetic
	// simple when entries are removed.
	for id := len(nimap) - 1; id >= 0; id-- {
		del := false

		firstOccur := NimapIndex(nimap, nimap[id])
		if firstOccur < id {
			// Name is a duplicate, since we are iterating backwards.
			for i, c := range content {
				if int(c) == id {
					content[i] = uint16(firstOccur)
				}
			}
			del = true
		}

		if !del {
			used := false
			for _, c := range content {
				if int(c) == id {
					used = true
					break
				}
			}
			if used {
				continue
			}
		}

		nimap = append(nimap[:id], nimap[id+1:]...)
		for i, c := range content {
			if int(c) > id {
				content[i] = c - 1
			}
		}
	}

	return nimap
}

type mergeLayer struct {
	block    *Mapblock
	from, to geom.Area
}

// Merge layers fragments of other mapblocks onto a base block. Node arrays,
// metadata and name-id mappings are carried across with remapping; timers
// inside each target area are dropped, and layer timers are not translated.
// Static objects are left untouched.
type Merge struct {
	base   *Mapblock
	layers []mergeLayer
}

// NewMerge returns a merge operation targeting base.
func NewMerge(base *Mapblock) *Merge {
	return &Merge{base: base}
}

// AddLayer schedules the from area of block to be copied onto the to area
// of the base. Both areas are block-relative and must have equal shape.
func (m *Merge) AddLayer(block *Mapblock, from, to geom.Area) {
	m.layers = append(m.layers, mergeLayer{block: block, from: from, to: to})
}

// Apply performs the merge and re-serializes the affected sections of the
// base block.
func (m *Merge) Apply() error {
	content, param1, param2 := m.base.DeserializeNodeData()
	nimap, err := m.base.DeserializeNimap()
	if err != nil {
		return err
	}
	metaList, err := m.base.DeserializeMetadata()
	if err != nil {
		return err
	}
	timerList := m.base.DeserializeNodeTimers()

	for _, layer := range m.layers {
		lContent, lParam1, lParam2 := layer.block.DeserializeNodeData()
		lNimap, err := layer.block.DeserializeNimap()
		if err != nil {
			return err
		}

		// Shift layer ids past the base map, then append the layer map.
		// Collisions are impossible; duplicates are cleaned afterwards.
		shift := uint16(len(nimap))
		nimap = append(nimap, lNimap...)

		for z := 0; z <= layer.to.P2.Z-layer.to.P1.Z; z++ {
			for y := 0; y <= layer.to.P2.Y-layer.to.P1.Y; y++ {
				for x := 0; x <= layer.to.P2.X-layer.to.P1.X; x++ {
					ti := (layer.to.P1.Z+z)*256 + (layer.to.P1.Y+y)*16 +
						layer.to.P1.X + x
					fi := (layer.from.P1.Z+z)*256 + (layer.from.P1.Y+y)*16 +
						layer.from.P1.X + x
					content[ti] = lContent[fi] + shift
					param1[ti] = lParam1[fi]
					param2[ti] = lParam2[fi]
				}
			}
		}

		areaOffset := layer.to.P1.Sub(layer.from.P1)

		for j := len(metaList) - 1; j >= 0; j-- {
			pos := geom.FromU16Key(metaList[j].Pos)
			if layer.to.Contains(pos) {
				metaList = append(metaList[:j], metaList[j+1:]...)
			}
		}

		lMeta, err := layer.block.DeserializeMetadata()
		if err != nil {
			return err
		}
		for _, meta := range lMeta {
			pos := geom.FromU16Key(meta.Pos)
			if layer.from.Contains(pos) {
				meta.Pos = pos.Add(areaOffset).ToU16Key()
				metaList = append(metaList, meta)
			}
		}

		for j := len(timerList) - 1; j >= 0; j-- {
			pos := geom.FromU16Key(timerList[j].Pos)
			if layer.to.Contains(pos) {
				timerList = append(timerList[:j], timerList[j+1:]...)
			}
		}
	}

	// Clean up duplicate and unused name-id mappings.
	nimap = CleanNimap(nimap, content)

	m.base.SerializeNodeData(content, param1, param2)
	m.base.SerializeNimap(nimap)
	m.base.SerializeMetadata(metaList)
	m.base.SerializeNodeTimers(timerList)

	return nil
}
