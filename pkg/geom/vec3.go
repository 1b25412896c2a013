package geom

import (
	"encoding/binary"
	"fmt"
)

// BlockSize is the edge length of a mapblock, in nodes.
const BlockSize = 16

// MapLimit is the map horizon in nodes. Blocks beyond MapLimit/BlockSize
// are representable in a block key but never loaded by the game.
const MapLimit = 31000

// Vec3 is an integer vector in node or mapblock space.
type Vec3 struct {
	X, Y, Z int
}

// Vec3f holds a floating node-space position, as used by static objects.
type Vec3f struct {
	X, Y, Z float64
}

func divFloor(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func modFloor(a, b int) int {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// FromBlockKey decodes a packed 64-bit mapblock database key. Each axis is
// biased by 0x800 into the range [0, 0x1000) before packing.
func FromBlockKey(key int64) Vec3 {
	k := int(key)
	x := modFloor(k+0x800, 0x1000) - 0x800
	k = divFloor(k+0x800, 0x1000)
	y := modFloor(k+0x800, 0x1000) - 0x800
	k = divFloor(k+0x800, 0x1000)
	return Vec3{x, y, k}
}

// ToBlockKey packs a mapblock position into its database key.
func (v Vec3) ToBlockKey() int64 {
	return int64(v.X) + int64(v.Y)*0x1000 + int64(v.Z)*0x1000000
}

// IsValidBlockPos determines if a block position is valid and usable.
//
// Block positions up to 2048 can still be converted to a mapblock key, but
// the game only loads blocks within MapLimit nodes.
func (v Vec3) IsValidBlockPos() bool {
	limit := MapLimit / BlockSize
	return -limit <= v.X && v.X <= limit &&
		-limit <= v.Y && v.Y <= limit &&
		-limit <= v.Z && v.Z <= limit
}

// FromU16Key decodes an intra-block node index.
func FromU16Key(key uint16) Vec3 {
	return Vec3{
		int(key) % 16,
		(int(key) >> 4) % 16,
		(int(key) >> 8) % 16,
	}
}

// ToU16Key packs a block-relative node position into its intra-block index.
// All components must be within [0, 16).
func (v Vec3) ToU16Key() uint16 {
	return uint16(v.X + v.Y*16 + v.Z*256)
}

// FromV3F1000 decodes the on-disk floating position of a static object:
// three big-endian int32 values. The divisor includes a factor of 10 for the
// fixed-point scale used by the game engine, yielding node coordinates.
func FromV3F1000(b []byte) Vec3f {
	const fac = 1000.0 * 10
	x := int32(binary.BigEndian.Uint32(b[0:4]))
	y := int32(binary.BigEndian.Uint32(b[4:8]))
	z := int32(binary.BigEndian.Uint32(b[8:12]))
	return Vec3f{float64(x) / fac, float64(y) / fac, float64(z) / fac}
}

// Map applies fn to each component.
func (v Vec3) Map(fn func(n int) int) Vec3 {
	return Vec3{fn(v.X), fn(v.Y), fn(v.Z)}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Mul multiplies componentwise.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z}
}

// Scale multiplies each component by n.
func (v Vec3) Scale(n int) Vec3 {
	return Vec3{v.X * n, v.Y * n, v.Z * n}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}
