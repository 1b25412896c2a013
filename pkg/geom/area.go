package geom

// Area is an inclusive axis-aligned box defined by two corners. All of P1's
// components must be less than or equal to P2's.
type Area struct {
	P1, P2 Vec3
}

// AreaFromCorners builds an Area from two arbitrary opposite corners,
// normalizing them so that P1 <= P2 on every axis.
func AreaFromCorners(p1, p2 Vec3) Area {
	min := func(a, b int) int {
		if a < b {
			return a
		}
		return b
	}
	max := func(a, b int) int {
		if a > b {
			return a
		}
		return b
	}
	return Area{
		P1: Vec3{min(p1.X, p2.X), min(p1.Y, p2.Y), min(p1.Z, p2.Z)},
		P2: Vec3{max(p1.X, p2.X), max(p1.Y, p2.Y), max(p1.Z, p2.Z)},
	}
}

// Contains reports whether pos lies within the area, inclusive.
func (a Area) Contains(pos Vec3) bool {
	return a.P1.X <= pos.X && pos.X <= a.P2.X &&
		a.P1.Y <= pos.Y && pos.Y <= a.P2.Y &&
		a.P1.Z <= pos.Z && pos.Z <= a.P2.Z
}

// ContainsF is Contains for floating positions (static objects).
func (a Area) ContainsF(pos Vec3f) bool {
	return float64(a.P1.X) <= pos.X && pos.X <= float64(a.P2.X) &&
		float64(a.P1.Y) <= pos.Y && pos.Y <= float64(a.P2.Y) &&
		float64(a.P1.Z) <= pos.Z && pos.Z <= float64(a.P2.Z)
}

// IsFullMapblock reports whether the area covers exactly one whole mapblock
// in block-relative coordinates.
func (a Area) IsFullMapblock() bool {
	return a.P1 == Vec3{} && a.P2 == Vec3{15, 15, 15}
}

// Add translates both corners by offset.
func (a Area) Add(offset Vec3) Area {
	return Area{a.P1.Add(offset), a.P2.Add(offset)}
}

// Sub translates both corners by -offset.
func (a Area) Sub(offset Vec3) Area {
	return Area{a.P1.Sub(offset), a.P2.Sub(offset)}
}

// Each calls fn for every integer position within the area.
func (a Area) Each(fn func(pos Vec3)) {
	for x := a.P1.X; x <= a.P2.X; x++ {
		for y := a.P1.Y; y <= a.P2.Y; y++ {
			for z := a.P1.Z; z <= a.P2.Z; z++ {
				fn(Vec3{x, y, z})
			}
		}
	}
}

// BlockOverlap clips area against the mapblock at blockPos and returns the
// overlapping region, or ok == false if the block and area are disjoint.
// The result is in block-relative coordinates when relative is set, world
// coordinates otherwise.
func BlockOverlap(blockPos Vec3, area Area, relative bool) (Area, bool) {
	cornerPos := blockPos.Scale(BlockSize)
	relArea := area.Sub(cornerPos)

	overlap := Area{
		P1: relArea.P1.Map(func(n int) int {
			if n < 0 {
				return 0
			}
			return n
		}),
		P2: relArea.P2.Map(func(n int) int {
			if n > 15 {
				return 15
			}
			return n
		}),
	}

	if overlap.P1.X > overlap.P2.X ||
		overlap.P1.Y > overlap.P2.Y ||
		overlap.P1.Z > overlap.P2.Z {
		return Area{}, false
	}

	if relative {
		return overlap, true
	}
	return overlap.Add(cornerPos), true
}

// MapblockArea converts a node-space area into the block-space area of
// mapblocks to visit. If the selection is inverted, only mapblocks outside
// the area are modified, so the rounding direction flips.
func MapblockArea(area Area, invert, includePartial bool) Area {
	if invert == includePartial {
		// Partial mapblocks are excluded.
		return Area{
			P1: area.P1.Map(func(n int) int { return divFloor(n+15, BlockSize) }),
			P2: area.P2.Map(func(n int) int { return divFloor(n-15, BlockSize) }),
		}
	}
	// Partial mapblocks are included.
	return Area{
		P1: area.P1.Map(func(n int) int { return divFloor(n, BlockSize) }),
		P2: area.P2.Map(func(n int) int { return divFloor(n, BlockSize) }),
	}
}
