package mapblock

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// DeserializeNimap decodes the name-id map into a slice of node names
// indexed by content id. Entries on disk need not be ordered by id, but
// the ids must cover [0, NimapCount).
func (b *Mapblock) DeserializeNimap() ([][]byte, error) {
	nimap := make([][]byte, b.NimapCount)
	c := 0

	for i := 0; i < int(b.NimapCount); i++ {
		if len(b.NimapRaw) < c+4 {
			return nil, errors.New("truncated name-id map entry")
		}
		id := binary.BigEndian.Uint16(b.NimapRaw[c:])
		size := int(binary.BigEndian.Uint16(b.NimapRaw[c+2:]))
		c += 4
		if len(b.NimapRaw) < c+size {
			return nil, errors.New("truncated name-id map entry")
		}
		if int(id) >= len(nimap) {
			return nil, errors.Errorf("name-id map id %d out of range", id)
		}
		nimap[id] = b.NimapRaw[c : c+size]
		c += size
	}

	return nimap, nil
}

// SerializeNimap re-encodes the name-id map, assigning ids by slice index.
func (b *Mapblock) SerializeNimap(nimap [][]byte) {
	var buf bytes.Buffer
	var u16 [2]byte

	for i, name := range nimap {
		binary.BigEndian.PutUint16(u16[:], uint16(i))
		buf.Write(u16[:])
		binary.BigEndian.PutUint16(u16[:], uint16(len(name)))
		buf.Write(u16[:])
		buf.Write(name)
	}

	b.NimapCount = uint16(len(nimap))
	b.NimapRaw = buf.Bytes()
}

// NimapIndex returns the content id mapped to name, or -1 if absent.
func NimapIndex(nimap [][]byte, name []byte) int {
	for i, n := range nimap {
		if bytes.Equal(n, name) {
			return i
		}
	}
	return -1
}
