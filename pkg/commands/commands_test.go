package commands

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/random-geek/MapEdit/pkg/elog"
	"github.com/random-geek/MapEdit/pkg/geom"
	"github.com/random-geek/MapEdit/pkg/mapblock"
	"github.com/random-geek/MapEdit/pkg/mapdb"
)

// newBlock builds a v28 mapblock with the given name-id map and uniform
// content.
func newBlock(nimap []string, fill uint16) *mapblock.Mapblock {
	b := &mapblock.Mapblock{
		Version:          28,
		LightingComplete: 0xFFFF,
		ContentWidth:     2,
		ParamsWidth:      2,
		Timestamp:        1,
	}

	content := make([]uint16, mapblock.NodeCount)
	for i := range content {
		content[i] = fill
	}
	b.SerializeNodeData(content,
		make([]byte, mapblock.NodeCount), make([]byte, mapblock.NodeCount))

	names := make([][]byte, len(nimap))
	for i, name := range nimap {
		names[i] = []byte(name)
	}
	b.SerializeNimap(names)
	b.SerializeMetadata(nil)
	b.SerializeNodeTimers(nil)
	b.SerializeStaticObjects(nil)
	return b
}

func createMapFile(t *testing.T, name string, blocks map[int64][]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE blocks (pos INTEGER PRIMARY KEY, data BLOB)")
	require.NoError(t, err)
	for key, data := range blocks {
		_, err = db.Exec("INSERT INTO blocks (pos, data) VALUES (?, ?)", key, data)
		require.NoError(t, err)
	}

	return path
}

// newTestInstance opens a map over the given blocks with warnings off.
func newTestInstance(t *testing.T, blocks map[int64][]byte) *Instance {
	t.Helper()

	path := createMapFile(t, "map.sqlite", blocks)
	db, err := mapdb.Open(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &Instance{
		DB:  db,
		Log: &elog.CLI{DisableTTY: true},
	}
}

func blockNames(t *testing.T, inst *Instance, key int64) []string {
	t.Helper()

	data, err := inst.DB.GetBlock(key)
	require.NoError(t, err)
	require.NotNil(t, data)
	block, err := mapblock.Parse(data)
	require.NoError(t, err)
	nimap, err := block.DeserializeNimap()
	require.NoError(t, err)

	names := make([]string, len(nimap))
	for i, name := range nimap {
		names[i] = string(name)
	}
	return names
}

func blockContent(t *testing.T, inst *Instance, key int64) []uint16 {
	t.Helper()

	data, err := inst.DB.GetBlock(key)
	require.NoError(t, err)
	require.NotNil(t, data)
	block, err := mapblock.Parse(data)
	require.NoError(t, err)
	content, _, _ := block.DeserializeNodeData()
	return content
}

func TestReplaceNodesWholeBlock(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{
		0: newBlock([]string{"air", "default:stone", "default:dirt"}, 1).Serialize(),
	})

	err := inst.Run("replacenodes", &Args{
		SearchNode:  "default:stone",
		ReplaceNode: "default:dirt",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"air", "default:dirt"}, blockNames(t, inst, 0))
	for _, c := range blockContent(t, inst, 0) {
		assert.Equal(t, uint16(1), c)
	}
}

func TestReplaceNodesPartial(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{
		0: newBlock([]string{"air", "default:stone", "default:dirt"}, 1).Serialize(),
	})

	area := geom.Area{P1: geom.Vec3{X: 0, Y: 0, Z: 0}, P2: geom.Vec3{X: 15, Y: 15, Z: 7}}
	err := inst.Run("replacenodes", &Args{
		SearchNode:  "default:stone",
		ReplaceNode: "default:dirt",
		Area:        &area,
	})
	require.NoError(t, err)

	// Both names stay referenced; the unused "air" mapping is cleaned up.
	names := blockNames(t, inst, 0)
	assert.Equal(t, []string{"default:stone", "default:dirt"}, names)

	content := blockContent(t, inst, 0)
	for i, c := range content {
		if i < 8*256 {
			assert.Equal(t, uint16(1), c, "z<8 should be default:dirt")
		} else {
			assert.Equal(t, uint16(0), c, "z>=8 should be default:stone")
		}
	}
}

func TestReplaceNodesSameNode(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{})
	err := inst.Run("replacenodes", &Args{
		SearchNode:  "default:stone",
		ReplaceNode: "default:stone",
	})
	assert.Error(t, err)
}

func TestCloneOverlappingOrder(t *testing.T) {

	blockA := newBlock([]string{"mod:a"}, 0).Serialize()
	blockB := newBlock([]string{"mod:b"}, 0).Serialize()
	blockC := newBlock([]string{"mod:c"}, 0).Serialize()

	inst := newTestInstance(t, map[int64][]byte{
		(geom.Vec3{X: 0}).ToBlockKey(): blockA,
		(geom.Vec3{X: 1}).ToBlockKey(): blockB,
		(geom.Vec3{X: 2}).ToBlockKey(): blockC,
	})

	// Clone x nodes [0, 31] one block in +x. Block 2 must receive block
	// 1's original content, not block 0's: sources must be read before
	// they are overwritten.
	area := geom.Area{P1: geom.Vec3{X: 0, Y: 0, Z: 0}, P2: geom.Vec3{X: 31, Y: 15, Z: 15}}
	offset := geom.Vec3{X: 16}
	err := inst.Run("clone", &Args{Area: &area, Offset: &offset})
	require.NoError(t, err)

	assert.Equal(t, []string{"mod:a"}, blockNames(t, inst, (geom.Vec3{X: 0}).ToBlockKey()))
	assert.Equal(t, []string{"mod:a"}, blockNames(t, inst, (geom.Vec3{X: 1}).ToBlockKey()))
	assert.Equal(t, []string{"mod:b"}, blockNames(t, inst, (geom.Vec3{X: 2}).ToBlockKey()))
}

func TestCloneNegativeOffsetOrder(t *testing.T) {

	blockA := newBlock([]string{"mod:a"}, 0).Serialize()
	blockB := newBlock([]string{"mod:b"}, 0).Serialize()
	blockC := newBlock([]string{"mod:c"}, 0).Serialize()

	inst := newTestInstance(t, map[int64][]byte{
		(geom.Vec3{X: 0}).ToBlockKey(): blockA,
		(geom.Vec3{X: 1}).ToBlockKey(): blockB,
		(geom.Vec3{X: 2}).ToBlockKey(): blockC,
	})

	// Clone x nodes [16, 47] one block in -x: iteration reverses.
	area := geom.Area{P1: geom.Vec3{X: 16, Y: 0, Z: 0}, P2: geom.Vec3{X: 47, Y: 15, Z: 15}}
	offset := geom.Vec3{X: -16}
	err := inst.Run("clone", &Args{Area: &area, Offset: &offset})
	require.NoError(t, err)

	assert.Equal(t, []string{"mod:b"}, blockNames(t, inst, (geom.Vec3{X: 0}).ToBlockKey()))
	assert.Equal(t, []string{"mod:c"}, blockNames(t, inst, (geom.Vec3{X: 1}).ToBlockKey()))
	assert.Equal(t, []string{"mod:c"}, blockNames(t, inst, (geom.Vec3{X: 2}).ToBlockKey()))
}

func TestCloneZeroOffset(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{})
	area := geom.Area{P1: geom.Vec3{}, P2: geom.Vec3{X: 15, Y: 15, Z: 15}}
	offset := geom.Vec3{}
	err := inst.Run("clone", &Args{Area: &area, Offset: &offset})
	assert.Error(t, err)
}

func TestFillBlockmode(t *testing.T) {

	block := newBlock([]string{"air", "default:dirt"}, 1)
	block.MetadataVersion = 2
	vars := mapblock.SerializeMetadataVars([]mapblock.MetaVar{
		{Key: []byte("infotext"), Value: []byte("x")},
	}, 2)
	block.SerializeMetadata([]mapblock.Metadata{{
		Pos:     0,
		NumVars: 1,
		Vars:    vars,
		Inv:     []byte("EndInventory\n"),
	}})
	block.SerializeNodeTimers([]mapblock.NodeTimer{{Pos: 0, Timeout: 30}})

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	area := geom.Area{P1: geom.Vec3{}, P2: geom.Vec3{X: 15, Y: 15, Z: 15}}
	err := inst.Run("fill", &Args{
		ReplaceNode: "default:stone",
		Area:        &area,
		Blockmode:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"default:stone"}, blockNames(t, inst, 0))
	for _, c := range blockContent(t, inst, 0) {
		assert.Equal(t, uint16(0), c)
	}

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	metaList, err := got.DeserializeMetadata()
	require.NoError(t, err)
	assert.Empty(t, metaList)
	assert.Empty(t, got.DeserializeNodeTimers())
}

func TestFillPartialKeepsParams(t *testing.T) {

	block := newBlock([]string{"default:dirt"}, 0)
	content, param1, param2 := block.DeserializeNodeData()
	for i := range param1 {
		param1[i] = 7
		param2[i] = 3
	}
	block.SerializeNodeData(content, param1, param2)

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	area := geom.Area{P1: geom.Vec3{}, P2: geom.Vec3{X: 7, Y: 15, Z: 15}}
	err := inst.Run("fill", &Args{ReplaceNode: "default:stone", Area: &area})
	require.NoError(t, err)

	names := blockNames(t, inst, 0)
	assert.ElementsMatch(t, []string{"default:dirt", "default:stone"}, names)

	stoneID := -1
	for i, name := range names {
		if name == "default:stone" {
			stoneID = i
		}
	}
	require.GreaterOrEqual(t, stoneID, 0)

	content = blockContent(t, inst, 0)
	for i, c := range content {
		if i%16 < 8 {
			assert.Equal(t, uint16(stoneID), c, "x<8 should be filled")
		} else {
			assert.NotEqual(t, uint16(stoneID), c, "x>=8 should be untouched")
		}
	}

	// Partial fills leave param1 and param2 as they were.
	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	_, gotParam1, gotParam2 := got.DeserializeNodeData()
	for i := range gotParam1 {
		assert.Equal(t, byte(7), gotParam1[i])
		assert.Equal(t, byte(3), gotParam2[i])
	}
}

// objectPos encodes a node position as a static object's on-disk floating
// position.
func objectPos(x, y, z int) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint32(b[0:], uint32(int32(x*10000)))
	binary.BigEndian.PutUint32(b[4:], uint32(int32(y*10000)))
	binary.BigEndian.PutUint32(b[8:], uint32(int32(z*10000)))
	return b
}

// objectData encodes an entity payload with the given name and inner data.
func objectData(name, inner string) []byte {
	var buf bytes.Buffer
	buf.WriteByte(1)
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(name)))
	buf.Write(u16[:])
	buf.WriteString(name)
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(len(inner)))
	buf.Write(u32[:])
	buf.WriteString(inner)
	return buf.Bytes()
}

func TestDeleteObjectsItems(t *testing.T) {

	block := newBlock([]string{"air"}, 0)
	block.SerializeStaticObjects([]mapblock.StaticObject{
		{
			Type: 7,
			Pos:  objectPos(1, 1, 1),
			Data: objectData("__builtin:item", `["itemstring"] = "default:cobble"`),
		},
		{
			Type: 7,
			Pos:  objectPos(2, 2, 2),
			Data: objectData("mobs:pig", "x"),
		},
	})

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	err := inst.Run("deleteobjects", &Args{
		SearchObj: "default:cobble",
		Items:     true,
	})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	objList, err := got.DeserializeStaticObjects()
	require.NoError(t, err)
	require.Len(t, objList, 1)

	name, _, err := mapblock.DeserializeObjectData(objList[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "mobs:pig", string(name))
}

func TestDeleteObjectsByName(t *testing.T) {

	block := newBlock([]string{"air"}, 0)
	block.SerializeStaticObjects([]mapblock.StaticObject{
		{Type: 7, Pos: objectPos(1, 1, 1), Data: objectData("mobs:pig", "x")},
		{Type: 7, Pos: objectPos(2, 2, 2), Data: objectData("mobs:cow", "x")},
	})

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	err := inst.Run("deleteobjects", &Args{SearchObj: "mobs:pig"})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	objList, err := got.DeserializeStaticObjects()
	require.NoError(t, err)
	require.Len(t, objList, 1)

	name, _, err := mapblock.DeserializeObjectData(objList[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "mobs:cow", string(name))
}

func TestOverlayInvertWithOffset(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{
		0: newBlock([]string{"air"}, 0).Serialize(),
	})

	spath := createMapFile(t, "secondary.sqlite", map[int64][]byte{
		0: newBlock([]string{"default:stone"}, 0).Serialize(),
	})
	sdb, err := mapdb.Open(spath, true)
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	inst.SDB = sdb

	area := geom.Area{P1: geom.Vec3{}, P2: geom.Vec3{X: 15, Y: 15, Z: 15}}
	offset := geom.Vec3{X: 16}
	err = inst.Run("overlay", &Args{Area: &area, Invert: true, Offset: &offset})

	// The incompatible flags must fail before any write happens.
	assert.Error(t, err)
	assert.False(t, inst.DB.Modified())
	assert.Equal(t, []string{"air"}, blockNames(t, inst, 0))
}

func TestOverlayCopiesBlocks(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{
		0: newBlock([]string{"air"}, 0).Serialize(),
	})

	spath := createMapFile(t, "secondary.sqlite", map[int64][]byte{
		0: newBlock([]string{"default:stone"}, 0).Serialize(),
	})
	sdb, err := mapdb.Open(spath, true)
	require.NoError(t, err)
	t.Cleanup(func() { sdb.Close() })
	inst.SDB = sdb

	err = inst.Run("overlay", &Args{})
	require.NoError(t, err)

	assert.Equal(t, []string{"default:stone"}, blockNames(t, inst, 0))
}

func TestSetParam2(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{
		0: newBlock([]string{"air", "default:stone"}, 1).Serialize(),
	})

	err := inst.Run("setparam2", &Args{SearchNode: "default:stone", ParamVal: 3})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	_, _, param2 := got.DeserializeNodeData()
	for i := range param2 {
		assert.Equal(t, byte(3), param2[i])
	}
}

func TestSetParam2RequiresSelection(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{})
	err := inst.Run("setparam2", &Args{ParamVal: 3})
	assert.Error(t, err)

	err = inst.Run("setparam2", &Args{SearchNode: "default:stone", ParamVal: 300})
	assert.Error(t, err)
}

func TestDeleteBlocks(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{
		(geom.Vec3{X: 0}).ToBlockKey(): newBlock([]string{"air"}, 0).Serialize(),
		(geom.Vec3{X: 5}).ToBlockKey(): newBlock([]string{"air"}, 0).Serialize(),
	})

	area := geom.Area{P1: geom.Vec3{}, P2: geom.Vec3{X: 15, Y: 15, Z: 15}}
	err := inst.Run("deleteblocks", &Args{Area: &area})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock((geom.Vec3{X: 0}).ToBlockKey())
	require.NoError(t, err)
	assert.Nil(t, data)
	data, err = inst.DB.GetBlock((geom.Vec3{X: 5}).ToBlockKey())
	require.NoError(t, err)
	assert.NotNil(t, data)
}

func TestDeleteMetaBySearchNode(t *testing.T) {

	block := newBlock([]string{"air", "default:chest"}, 0)
	content, param1, param2 := block.DeserializeNodeData()
	content[0] = 1
	block.SerializeNodeData(content, param1, param2)

	block.MetadataVersion = 2
	vars := mapblock.SerializeMetadataVars([]mapblock.MetaVar{
		{Key: []byte("infotext"), Value: []byte("x")},
	}, 2)
	block.SerializeMetadata([]mapblock.Metadata{
		{Pos: 0, NumVars: 1, Vars: vars, Inv: []byte("EndInventory\n")},
		{Pos: 1, NumVars: 1, Vars: vars, Inv: []byte("EndInventory\n")},
	})

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	err := inst.Run("deletemeta", &Args{SearchNode: "default:chest"})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	metaList, err := got.DeserializeMetadata()
	require.NoError(t, err)
	// Only the record on the chest node is deleted.
	require.Len(t, metaList, 1)
	assert.Equal(t, uint16(1), metaList[0].Pos)
}

func TestSetMetaVar(t *testing.T) {

	block := newBlock([]string{"default:chest"}, 0)
	block.MetadataVersion = 2
	vars := mapblock.SerializeMetadataVars([]mapblock.MetaVar{
		{Key: []byte("owner"), Value: []byte("old")},
	}, 2)
	block.SerializeMetadata([]mapblock.Metadata{
		{Pos: 0, NumVars: 1, Vars: vars, Inv: []byte("EndInventory\n")},
	})

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	err := inst.Run("setmetavar", &Args{
		SearchNode: "default:chest",
		MetaKey:    "owner",
		MetaValue:  "new",
	})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	metaList, err := got.DeserializeMetadata()
	require.NoError(t, err)
	require.Len(t, metaList, 1)

	outVars, err := mapblock.DeserializeMetadataVars(metaList[0].Vars,
		metaList[0].NumVars, got.MetadataVersion)
	require.NoError(t, err)
	require.Len(t, outVars, 1)
	assert.Equal(t, "new", string(outVars[0].Value))
}

func TestDeleteTimersBySearchNode(t *testing.T) {

	block := newBlock([]string{"air", "mod:furnace"}, 0)
	content, param1, param2 := block.DeserializeNodeData()
	content[5] = 1
	block.SerializeNodeData(content, param1, param2)
	block.SerializeNodeTimers([]mapblock.NodeTimer{
		{Pos: 5, Timeout: 30, Elapsed: 0},
		{Pos: 6, Timeout: 60, Elapsed: 0},
	})

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	err := inst.Run("deletetimers", &Args{SearchNode: "mod:furnace"})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	timers := got.DeserializeNodeTimers()
	require.Len(t, timers, 1)
	assert.Equal(t, uint16(6), timers[0].Pos)
}

func TestReplaceInInv(t *testing.T) {

	inv := []byte("List main 4\nWidth 4\n" +
		"Item default:stone 10\n" +
		"Item default:cobble 99 0 meta\n" +
		"Empty\n" +
		"Item default:cobble\n" +
		"EndInventoryList\nEndInventory\n")

	block := newBlock([]string{"default:chest"}, 0)
	block.MetadataVersion = 2
	block.SerializeMetadata([]mapblock.Metadata{
		{Pos: 0, NumVars: 0, Vars: nil, Inv: inv},
	})

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	err := inst.Run("replaceininv", &Args{
		SearchItem:  "default:cobble",
		ReplaceItem: "default:gravel",
		DeleteMeta:  true,
	})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	metaList, err := got.DeserializeMetadata()
	require.NoError(t, err)
	require.Len(t, metaList, 1)

	want := []byte("List main 4\nWidth 4\n" +
		"Item default:stone 10\n" +
		"Item default:gravel 99 0\n" +
		"Empty\n" +
		"Item default:gravel\n" +
		"EndInventoryList\nEndInventory\n")
	assert.Equal(t, string(want), string(metaList[0].Inv))
}

func TestReplaceInInvWithEmpty(t *testing.T) {

	inv := []byte("List main 1\nWidth 1\n" +
		"Item default:cobble 99\n" +
		"EndInventoryList\nEndInventory\n")

	block := newBlock([]string{"default:chest"}, 0)
	block.MetadataVersion = 2
	block.SerializeMetadata([]mapblock.Metadata{
		{Pos: 0, NumVars: 0, Vars: nil, Inv: inv},
	})

	inst := newTestInstance(t, map[int64][]byte{0: block.Serialize()})

	err := inst.Run("replaceininv", &Args{
		SearchItem:  "default:cobble",
		ReplaceItem: "Empty",
	})
	require.NoError(t, err)

	data, err := inst.DB.GetBlock(0)
	require.NoError(t, err)
	got, err := mapblock.Parse(data)
	require.NoError(t, err)
	metaList, err := got.DeserializeMetadata()
	require.NoError(t, err)
	require.Len(t, metaList, 1)

	want := []byte("List main 1\nWidth 1\n" +
		"Empty\n" +
		"EndInventoryList\nEndInventory\n")
	assert.Equal(t, string(want), string(metaList[0].Inv))
}

func TestInvalidNames(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{})

	err := inst.Run("replacenodes", &Args{
		SearchNode:  "not a name",
		ReplaceNode: "default:stone",
	})
	assert.Error(t, err)

	// "air" is allowed even though it has no mod prefix.
	err = inst.Run("setparam2", &Args{SearchNode: "air", ParamVal: 0})
	assert.NoError(t, err)
}

func TestInvertRequiresArea(t *testing.T) {

	inst := newTestInstance(t, map[int64][]byte{})
	err := inst.Run("deletetimers", &Args{SearchNode: "mod:furnace", Invert: true})
	assert.Error(t, err)
}
