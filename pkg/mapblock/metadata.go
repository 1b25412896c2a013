package mapblock

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// invTerminator ends the textual inventory serialization of one metadata
// record.
var invTerminator = []byte("EndInventory\n")

// Metadata is one per-node metadata record. Vars and Inv hold the record's
// variable table and inventory in their raw encodings; use
// DeserializeMetadataVars to decode the former.
type Metadata struct {
	Pos     uint16
	NumVars uint32
	Vars    []byte
	Inv     []byte
}

// MetaVar is a single metadata variable. Private is the raw "is private"
// byte, present on disk only for metadata version 2.
type MetaVar struct {
	Key     []byte
	Value   []byte
	Private byte
}

// DeserializeMetadata decodes the node metadata section. It populates
// b.MetadataVersion; a version of 0 means no metadata is present.
func (b *Mapblock) DeserializeMetadata() ([]Metadata, error) {
	if len(b.NodeMetadata) < 1 {
		return nil, errors.New("empty node metadata")
	}
	b.MetadataVersion = b.NodeMetadata[0]

	if b.MetadataVersion == 0 {
		return nil, nil
	}
	if b.MetadataVersion > 2 {
		return nil, errors.Errorf("unsupported metadata version %d",
			b.MetadataVersion)
	}

	if len(b.NodeMetadata) < 3 {
		return nil, errors.New("truncated node metadata")
	}
	count := int(binary.BigEndian.Uint16(b.NodeMetadata[1:]))
	c := 3

	metaList := make([]Metadata, 0, count)
	for i := 0; i < count; i++ {
		if len(b.NodeMetadata) < c+6 {
			return nil, errors.New("truncated metadata record")
		}
		var meta Metadata
		meta.Pos = binary.BigEndian.Uint16(b.NodeMetadata[c:])
		meta.NumVars = binary.BigEndian.Uint32(b.NodeMetadata[c+2:])
		c += 6

		// Walk the variable table to find its extent.
		c2 := c
		for v := uint32(0); v < meta.NumVars; v++ {
			if len(b.NodeMetadata) < c2+2 {
				return nil, errors.New("truncated metadata variable")
			}
			size := int(binary.BigEndian.Uint16(b.NodeMetadata[c2:]))
			c2 += 2 + size
			if len(b.NodeMetadata) < c2+4 {
				return nil, errors.New("truncated metadata variable")
			}
			size = int(binary.BigEndian.Uint32(b.NodeMetadata[c2:]))
			c2 += 4 + size
			if b.MetadataVersion >= 2 {
				// Account for the extra "is private" byte.
				c2++
			}
		}
		if len(b.NodeMetadata) < c2 {
			return nil, errors.New("truncated metadata variable")
		}
		meta.Vars = b.NodeMetadata[c:c2]
		c = c2

		// The inventory is delimited by its textual terminator.
		end := bytes.Index(b.NodeMetadata[c:], invTerminator)
		if end < 0 {
			return nil, errors.New("unterminated inventory")
		}
		c2 = c + end + len(invTerminator)
		meta.Inv = b.NodeMetadata[c:c2]
		c = c2

		metaList = append(metaList, meta)
	}

	return metaList, nil
}

// SerializeMetadata re-encodes the node metadata section. An empty list
// serializes as version 0.
func (b *Mapblock) SerializeMetadata(metaList []Metadata) {
	if len(metaList) == 0 {
		b.NodeMetadata = []byte{0}
		return
	}

	version := b.MetadataVersion
	if version == 0 {
		// Records merged into a block that had no metadata of its own.
		version = 2
		b.MetadataVersion = version
	}

	var buf bytes.Buffer
	buf.WriteByte(version)

	var u16 [2]byte
	var u32 [4]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(metaList)))
	buf.Write(u16[:])

	for _, meta := range metaList {
		binary.BigEndian.PutUint16(u16[:], meta.Pos)
		buf.Write(u16[:])
		binary.BigEndian.PutUint32(u32[:], meta.NumVars)
		buf.Write(u32[:])
		buf.Write(meta.Vars)
		buf.Write(meta.Inv)
	}

	b.NodeMetadata = buf.Bytes()
}

// DeserializeMetadataVars decodes a metadata record's variable table,
// preserving on-disk order.
func DeserializeMetadataVars(blob []byte, count uint32, metaVersion uint8) ([]MetaVar, error) {
	vars := make([]MetaVar, 0, count)
	c := 0

	for i := uint32(0); i < count; i++ {
		if len(blob) < c+2 {
			return nil, errors.New("truncated metadata variable")
		}
		size := int(binary.BigEndian.Uint16(blob[c:]))
		if len(blob) < c+2+size {
			return nil, errors.New("truncated metadata variable")
		}
		key := blob[c+2 : c+2+size]
		c += 2 + size

		if len(blob) < c+4 {
			return nil, errors.New("truncated metadata variable")
		}
		size = int(binary.BigEndian.Uint32(blob[c:]))
		if len(blob) < c+4+size {
			return nil, errors.New("truncated metadata variable")
		}
		value := blob[c+4 : c+4+size]
		c += 4 + size

		var private byte
		if metaVersion >= 2 {
			if len(blob) < c+1 {
				return nil, errors.New("truncated metadata variable")
			}
			private = blob[c]
			c++
		}

		vars = append(vars, MetaVar{Key: key, Value: value, Private: private})
	}

	return vars, nil
}

// SerializeMetadataVars re-encodes a variable table.
func SerializeMetadataVars(vars []MetaVar, metaVersion uint8) []byte {
	var buf bytes.Buffer
	var u16 [2]byte
	var u32 [4]byte

	for _, v := range vars {
		binary.BigEndian.PutUint16(u16[:], uint16(len(v.Key)))
		buf.Write(u16[:])
		buf.Write(v.Key)
		binary.BigEndian.PutUint32(u32[:], uint32(len(v.Value)))
		buf.Write(u32[:])
		buf.Write(v.Value)
		if metaVersion >= 2 {
			buf.WriteByte(v.Private)
		}
	}

	return buf.Bytes()
}
