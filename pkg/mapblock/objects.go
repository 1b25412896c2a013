package mapblock

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// StaticObject is one persistent entity stored in a mapblock. Pos holds the
// raw 12-byte floating position; Data is the opaque entity payload.
type StaticObject struct {
	Type uint8
	Pos  []byte
	Data []byte
}

// DeserializeStaticObjects decodes the static object list.
func (b *Mapblock) DeserializeStaticObjects() ([]StaticObject, error) {
	objList := make([]StaticObject, 0, b.StaticObjectCount)
	c := 0

	for i := 0; i < int(b.StaticObjectCount); i++ {
		if len(b.StaticObjectsRaw) < c+15 {
			return nil, errors.New("truncated static object")
		}
		var obj StaticObject
		obj.Type = b.StaticObjectsRaw[c]
		obj.Pos = b.StaticObjectsRaw[c+1 : c+13]
		size := int(binary.BigEndian.Uint16(b.StaticObjectsRaw[c+13:]))
		c += 15
		if len(b.StaticObjectsRaw) < c+size {
			return nil, errors.New("truncated static object")
		}
		obj.Data = b.StaticObjectsRaw[c : c+size]
		c += size
		objList = append(objList, obj)
	}

	return objList, nil
}

// SerializeStaticObjects re-encodes the static object list.
func (b *Mapblock) SerializeStaticObjects(objList []StaticObject) {
	var buf bytes.Buffer
	var u16 [2]byte

	for _, obj := range objList {
		buf.WriteByte(obj.Type)
		buf.Write(obj.Pos)
		binary.BigEndian.PutUint16(u16[:], uint16(len(obj.Data)))
		buf.Write(u16[:])
		buf.Write(obj.Data)
	}

	b.StaticObjectsRaw = buf.Bytes()
	b.StaticObjectCount = uint16(len(objList))
}

// DeserializeObjectData splits an entity payload into its name and inner
// data blob. The leading version byte is skipped.
func DeserializeObjectData(blob []byte) (name, data []byte, err error) {
	if len(blob) < 3 {
		return nil, nil, errors.New("truncated object data")
	}
	size := int(binary.BigEndian.Uint16(blob[1:]))
	if len(blob) < 3+size {
		return nil, nil, errors.New("truncated object data")
	}
	name = blob[3 : 3+size]
	c := 3 + size

	if len(blob) < c+4 {
		return nil, nil, errors.New("truncated object data")
	}
	dsize := int(binary.BigEndian.Uint32(blob[c:]))
	if len(blob) < c+4+dsize {
		return nil, nil, errors.New("truncated object data")
	}
	data = blob[c+4 : c+4+dsize]

	return name, data, nil
}
