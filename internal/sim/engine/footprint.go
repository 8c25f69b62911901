package engine

import "brickyard/internal/sim/catalogs"

// FootprintFor computes the world-space rectangle occupied by a footprint of
// widthStuds x depthStuds centered at (cx,cz) with the given rotation.
func FootprintFor(cx, cz float64, widthStuds, depthStuds, rot int) Rect {
	hw := float64(widthStuds) / 2
	hd := float64(depthStuds) / 2
	return rotatedLocalRect(cx, cz, -hw, hw, -hd, hd, rot)
}

// StudRect returns the part of the piece's top face that carries connectors,
// in world space. ok is false when the top is smooth (tiles).
//
// A plain slope only keeps studs on its single back row (local -z edge); a
// plain corner slope keeps one 1x1 cell in its back corner. Inverting either
// shape moves the cut to the underside, leaving the full top studded.
func StudRect(d catalogs.PieceDef, cx, cz float64, rot int) (Rect, bool) {
	hw := float64(d.Width) / 2
	hd := float64(d.Depth) / 2
	switch d.Shape {
	case catalogs.ShapeTile:
		return Rect{}, false
	case catalogs.ShapeBlock, catalogs.ShapePlate:
		return FootprintFor(cx, cz, d.Width, d.Depth, rot), true
	case catalogs.ShapeSlope:
		if d.Inverted {
			return FootprintFor(cx, cz, d.Width, d.Depth, rot), true
		}
		return rotatedLocalRect(cx, cz, -hw, hw, -hd, -hd+1, rot), true
	case catalogs.ShapeCornerSlope:
		if d.Inverted {
			return FootprintFor(cx, cz, d.Width, d.Depth, rot), true
		}
		return rotatedLocalRect(cx, cz, -hw, -hw+1, -hd, -hd+1, rot), true
	}
	return Rect{}, false
}

// SeatRect returns the part of the piece's underside that can seat on studs,
// in world space. The rule mirrors StudRect: an inverted slope or corner
// slope can only grip a support through its narrow back row or corner cell;
// every other shape seats across its full footprint.
func SeatRect(d catalogs.PieceDef, cx, cz float64, rot int) Rect {
	hw := float64(d.Width) / 2
	hd := float64(d.Depth) / 2
	switch d.Shape {
	case catalogs.ShapeSlope:
		if d.Inverted {
			return rotatedLocalRect(cx, cz, -hw, hw, -hd, -hd+1, rot)
		}
	case catalogs.ShapeCornerSlope:
		if d.Inverted {
			return rotatedLocalRect(cx, cz, -hw, -hw+1, -hd, -hd+1, rot)
		}
	case catalogs.ShapeBlock, catalogs.ShapePlate, catalogs.ShapeTile:
	}
	return FootprintFor(cx, cz, d.Width, d.Depth, rot)
}
