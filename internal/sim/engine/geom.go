package engine

import "math"

// Epsilon is the tolerance for every boundary comparison in the engine.
// Stacked pieces touch exactly; without a tolerance, accumulated float
// rounding turns touching faces into spurious collisions or disconnections.
const Epsilon = 0.001

// NormalizeRotation converts a client-provided rotation value into a stable
// quarter-turn count in [0,3].
//
// We accept either quarter-turns (0..3) or degrees (multiples of 90).
func NormalizeRotation(r int) int {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}

// RotateXZ rotates an (x,z) offset around the Y axis by rot*90 degrees
// clockwise. rot must be a normalized quarter-turn count in [0,3].
func RotateXZ(x, z float64, rot int) (rx, rz float64) {
	switch rot & 3 {
	case 0:
		return x, z
	case 1:
		return z, -x
	case 2:
		return -x, -z
	default: // 3
		return -z, x
	}
}

type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Rect is an axis-aligned rectangle in the horizontal plane.
type Rect struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
}

// Overlaps reports whether the rectangles share area beyond Epsilon.
// Rectangles that merely touch along an edge do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX < o.MaxX-Epsilon && r.MaxX > o.MinX+Epsilon &&
		r.MinZ < o.MaxZ-Epsilon && r.MaxZ > o.MinZ+Epsilon
}

// IntervalsOverlap reports whether [aMin,aMax] and [bMin,bMax] share length
// beyond Epsilon.
func IntervalsOverlap(aMin, aMax, bMin, bMax float64) bool {
	return aMin < bMax-Epsilon && aMax > bMin+Epsilon
}

// AABB is a 3-D axis-aligned box.
type AABB struct {
	Min Vec3
	Max Vec3
}

func (a AABB) Overlaps(b AABB) bool {
	return IntervalsOverlap(a.Min.X, a.Max.X, b.Min.X, b.Max.X) &&
		IntervalsOverlap(a.Min.Y, a.Max.Y, b.Min.Y, b.Max.Y) &&
		IntervalsOverlap(a.Min.Z, a.Max.Z, b.Min.Z, b.Max.Z)
}

// XZRect projects the box onto the horizontal plane.
func (a AABB) XZRect() Rect {
	return Rect{MinX: a.Min.X, MaxX: a.Max.X, MinZ: a.Min.Z, MaxZ: a.Max.Z}
}

// rotatedLocalRect maps a rectangle given in a piece's unrotated local frame
// (offsets from the piece center) into world space: rotate the two extreme
// corners, take the bounding rectangle, then translate to the center.
func rotatedLocalRect(cx, cz, lx1, lx2, lz1, lz2 float64, rot int) Rect {
	ax, az := RotateXZ(lx1, lz1, rot)
	bx, bz := RotateXZ(lx2, lz2, rot)
	return Rect{
		MinX: cx + math.Min(ax, bx),
		MaxX: cx + math.Max(ax, bx),
		MinZ: cz + math.Min(az, bz),
		MaxZ: cz + math.Max(az, bz),
	}
}
