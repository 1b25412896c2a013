package mapblock

import (
	"bytes"
	"encoding/binary"
)

// NodeTimer is one per-node timer record.
type NodeTimer struct {
	Pos     uint16
	Timeout uint32
	Elapsed uint32
}

// DeserializeNodeTimers decodes the node timer list.
func (b *Mapblock) DeserializeNodeTimers() []NodeTimer {
	timerList := make([]NodeTimer, 0, b.NodeTimersCount)
	c := 0

	for i := 0; i < int(b.NodeTimersCount); i++ {
		timerList = append(timerList, NodeTimer{
			Pos:     binary.BigEndian.Uint16(b.NodeTimersRaw[c:]),
			Timeout: binary.BigEndian.Uint32(b.NodeTimersRaw[c+2:]),
			Elapsed: binary.BigEndian.Uint32(b.NodeTimersRaw[c+6:]),
		})
		c += 10
	}

	return timerList
}

// SerializeNodeTimers re-encodes the node timer list.
func (b *Mapblock) SerializeNodeTimers(timerList []NodeTimer) {
	var buf bytes.Buffer
	var u16 [2]byte
	var u32 [4]byte

	for _, timer := range timerList {
		binary.BigEndian.PutUint16(u16[:], timer.Pos)
		buf.Write(u16[:])
		binary.BigEndian.PutUint32(u32[:], timer.Timeout)
		buf.Write(u32[:])
		binary.BigEndian.PutUint32(u32[:], timer.Elapsed)
		buf.Write(u32[:])
	}

	b.NodeTimersRaw = buf.Bytes()
	b.NodeTimersCount = uint16(len(timerList))
}
