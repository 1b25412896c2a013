package mapblock

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
)

const (
	// MinVersion and MaxVersion bound the supported mapblock format range.
	MinVersion = 25
	MaxVersion = 28

	// NodeCount is the number of nodes in a mapblock (16^3). Node arrays
	// are z-major: index = z*256 + y*16 + x, identical to the u16 key.
	NodeCount = 4096

	// nodeDataSize is the decompressed size of the node data section:
	// a 2-byte content id plus param1 and param2 for each node.
	nodeDataSize = NodeCount * 4

	flagNotGenerated = 0x08
)

// Mapblock stores a parsed mapblock. Fixed header fields are decoded
// eagerly; variable-length sections are kept as raw bytes and decoded on
// demand by the Deserialize* methods, so that untouched sections pass
// through serialization verbatim.
type Mapblock struct {
	Version          uint8
	Flags            uint8
	LightingComplete uint16
	ContentWidth     uint8
	ParamsWidth      uint8

	// NodeData is the decompressed first zlib section.
	NodeData []byte
	// NodeMetadata is the decompressed second zlib section.
	NodeMetadata []byte

	StaticObjectVersion uint8
	StaticObjectCount   uint16
	StaticObjectsRaw    []byte

	Timestamp uint32

	NimapVersion uint8
	NimapCount   uint16
	NimapRaw     []byte

	NodeTimersCount uint16
	NodeTimersRaw   []byte

	// MetadataVersion is populated by DeserializeMetadata.
	MetadataVersion uint8
}

// decompressZlib inflates one zlib stream from the start of blob and
// reports how many compressed bytes it consumed, so the caller can locate
// the next section. The bytes.Reader satisfies io.ByteReader, which keeps
// the flate decoder from reading past the end of the stream.
func decompressZlib(blob []byte) (data []byte, consumed int, err error) {
	br := bytes.NewReader(blob)
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, 0, err
	}
	data, err = io.ReadAll(zr)
	if err != nil {
		return nil, 0, err
	}
	if err = zr.Close(); err != nil {
		return nil, 0, err
	}
	return data, len(blob) - br.Len(), nil
}

func compressZlib(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

// IsValidGenerated reports whether blob looks like a fully generated
// mapblock of a supported version. Blocks with the "not fully generated"
// flag set are treated as absent.
func IsValidGenerated(blob []byte) bool {
	if len(blob) <= 2 {
		return false
	}
	if blob[0] < MinVersion || blob[0] > MaxVersion {
		return false
	}
	return blob[1]&flagNotGenerated == 0
}

// Parse decodes a raw mapblock blob.
func Parse(blob []byte) (*Mapblock, error) {
	if len(blob) < 1 {
		return nil, errors.New("empty mapblock")
	}

	b := &Mapblock{Version: blob[0]}
	if b.Version < MinVersion || b.Version > MaxVersion {
		return nil, errors.Errorf("unsupported mapblock version %d", b.Version)
	}

	c := 1
	if len(blob) < c+1 {
		return nil, errors.New("truncated mapblock header")
	}
	b.Flags = blob[c]
	c++

	if b.Version >= 27 {
		if len(blob) < c+2 {
			return nil, errors.New("truncated mapblock header")
		}
		b.LightingComplete = binary.BigEndian.Uint16(blob[c:])
		c += 2
	} else {
		b.LightingComplete = 0xFFFF
	}

	if len(blob) < c+2 {
		return nil, errors.New("truncated mapblock header")
	}
	b.ContentWidth = blob[c]
	b.ParamsWidth = blob[c+1]
	c += 2

	if b.ContentWidth != 2 || b.ParamsWidth != 2 {
		return nil, errors.Errorf("unsupported content/params width %d/%d",
			b.ContentWidth, b.ParamsWidth)
	}

	// First compressed section: a content id, param1 and param2 per node.
	data, n, err := decompressZlib(blob[c:])
	if err != nil {
		return nil, errors.Wrap(err, "node data")
	}
	b.NodeData = data
	c += n

	if len(b.NodeData) != nodeDataSize {
		return nil, errors.Errorf("node data is %d bytes, want %d",
			len(b.NodeData), nodeDataSize)
	}

	// Second compressed section: node metadata.
	data, n, err = decompressZlib(blob[c:])
	if err != nil {
		return nil, errors.Wrap(err, "node metadata")
	}
	b.NodeMetadata = data
	c += n

	// Static objects.
	if len(blob) < c+3 {
		return nil, errors.New("truncated static objects")
	}
	b.StaticObjectVersion = blob[c]
	b.StaticObjectCount = binary.BigEndian.Uint16(blob[c+1:])
	c += 3

	c2 := c
	for i := 0; i < int(b.StaticObjectCount); i++ {
		// Skip the object type and position, then read the data length.
		if len(blob) < c2+15 {
			return nil, errors.New("truncated static objects")
		}
		size := int(binary.BigEndian.Uint16(blob[c2+13:]))
		c2 += 15 + size
	}
	if len(blob) < c2 {
		return nil, errors.New("truncated static objects")
	}
	b.StaticObjectsRaw = blob[c:c2]
	c = c2

	if len(blob) < c+4 {
		return nil, errors.New("truncated timestamp")
	}
	b.Timestamp = binary.BigEndian.Uint32(blob[c:])
	c += 4

	// Name-id mappings.
	if len(blob) < c+3 {
		return nil, errors.New("truncated name-id map")
	}
	b.NimapVersion = blob[c]
	if b.NimapVersion != 0 {
		return nil, errors.Errorf("unsupported name-id map version %d",
			b.NimapVersion)
	}
	b.NimapCount = binary.BigEndian.Uint16(blob[c+1:])
	c += 3

	c2 = c
	for i := 0; i < int(b.NimapCount); i++ {
		// Skip the node id, then read the name length.
		if len(blob) < c2+4 {
			return nil, errors.New("truncated name-id map")
		}
		size := int(binary.BigEndian.Uint16(blob[c2+2:]))
		c2 += 4 + size
	}
	if len(blob) < c2 {
		return nil, errors.New("truncated name-id map")
	}
	b.NimapRaw = blob[c:c2]
	c = c2

	// Node timers.
	if len(blob) < c+3 {
		return nil, errors.New("truncated node timers")
	}
	if blob[c] != 10 {
		return nil, errors.Errorf("unsupported node timer length %d", blob[c])
	}
	b.NodeTimersCount = binary.BigEndian.Uint16(blob[c+1:])
	c += 3

	if len(blob) < c+int(b.NodeTimersCount)*10 {
		return nil, errors.New("truncated node timers")
	}
	b.NodeTimersRaw = blob[c:]

	return b, nil
}

// Serialize re-encodes the mapblock into its on-disk form, recompressing
// the two zlib sections.
func (b *Mapblock) Serialize() []byte {
	var buf bytes.Buffer

	buf.WriteByte(b.Version)
	buf.WriteByte(b.Flags)

	if b.Version >= 27 {
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], b.LightingComplete)
		buf.Write(tmp[:])
	}

	buf.WriteByte(b.ContentWidth)
	buf.WriteByte(b.ParamsWidth)

	buf.Write(compressZlib(b.NodeData))
	buf.Write(compressZlib(b.NodeMetadata))

	buf.WriteByte(b.StaticObjectVersion)
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], b.StaticObjectCount)
	buf.Write(u16[:])
	buf.Write(b.StaticObjectsRaw)

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], b.Timestamp)
	buf.Write(u32[:])

	buf.WriteByte(b.NimapVersion)
	binary.BigEndian.PutUint16(u16[:], b.NimapCount)
	buf.Write(u16[:])
	buf.Write(b.NimapRaw)

	// The timer data length is fixed at 10 for all supported versions.
	buf.WriteByte(10)
	binary.BigEndian.PutUint16(u16[:], b.NodeTimersCount)
	buf.Write(u16[:])
	buf.Write(b.NodeTimersRaw)

	return buf.Bytes()
}
