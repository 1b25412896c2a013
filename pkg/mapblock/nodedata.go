package mapblock

import (
	"encoding/binary"
)

// DeserializeNodeData splits the node data section into its three arrays:
// big-endian content ids, param1 and param2. The returned slices are copies;
// call SerializeNodeData to write them back.
func (b *Mapblock) DeserializeNodeData() (content []uint16, param1, param2 []byte) {
	content = make([]uint16, NodeCount)
	for i := 0; i < NodeCount; i++ {
		content[i] = binary.BigEndian.Uint16(b.NodeData[i*2:])
	}

	param1 = make([]byte, NodeCount)
	copy(param1, b.NodeData[NodeCount*2:NodeCount*3])
	param2 = make([]byte, NodeCount)
	copy(param2, b.NodeData[NodeCount*3:])
	return content, param1, param2
}

// SerializeNodeData re-encodes the three node arrays into the node data
// section.
func (b *Mapblock) SerializeNodeData(content []uint16, param1, param2 []byte) {
	blob := make([]byte, nodeDataSize)
	for i, id := range content {
		binary.BigEndian.PutUint16(blob[i*2:], id)
	}
	copy(blob[NodeCount*2:], param1)
	copy(blob[NodeCount*3:], param2)
	b.NodeData = blob
}

// ContentAt reads the content id at an intra-block position without
// deserializing the full node data section.
func (b *Mapblock) ContentAt(pos uint16) uint16 {
	return binary.BigEndian.Uint16(b.NodeData[int(pos)*2:])
}
