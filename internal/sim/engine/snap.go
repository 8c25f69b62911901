package engine

import "math"

// Snap quantizes a continuous world point to the grid-aligned center of a
// piece with the given footprint. Rotation swaps the effective extents on odd
// quarter-turns. An axis with an even stud count centers on a whole grid
// coordinate; an odd count centers half a unit off, so every stud lands on a
// whole-unit cell either way.
//
// Snap is total and idempotent: re-snapping a snapped point is a no-op.
func Snap(worldX, worldZ float64, widthStuds, depthStuds, rot int) (x, z float64) {
	w, d := widthStuds, depthStuds
	if rot&1 == 1 {
		w, d = d, w
	}
	return snapAxis(worldX, w), snapAxis(worldZ, d)
}

func snapAxis(v float64, studs int) float64 {
	if studs%2 != 0 {
		return math.Round(v-0.5) + 0.5
	}
	return math.Round(v)
}
