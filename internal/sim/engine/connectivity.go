package engine

import (
	"math"

	"brickyard/internal/sim/catalogs"
)

// IsConnected decides whether a candidate resting position is structurally
// legal. Three ways to be attached:
//
//   - the candidate sits on the ground plane;
//   - its seat (bottom-connection area) overlaps the studded part of a top it
//     rests on;
//   - something rests on the candidate from above. This is unconditional:
//     it is what keeps a tile attached once a piece sits on it, even though
//     the tile itself offers no studs.
//
// Only upright pieces offer or take vertical connections; side-mounted pieces
// attach through their lateral face at placement time and are skipped here.
func (w *World) IsConnected(d catalogs.PieceDef, cx, cz float64, rot int, bottom, top float64, exclude IDSet) bool {
	if math.Abs(bottom) <= Epsilon {
		return true
	}
	fp := FootprintFor(cx, cz, d.Width, d.Depth, rot)
	seat := SeatRect(d, cx, cz, rot)
	for _, p := range w.pieces {
		if exclude.Has(p.ID) {
			continue
		}
		if p.Orientation != OrientUp {
			continue
		}
		pd, ok := w.Def(p.Type)
		if !ok {
			continue
		}
		pfp := FootprintFor(p.Pos.X, p.Pos.Z, pd.Width, pd.Depth, p.Rotation)
		if !fp.Overlaps(pfp) {
			continue
		}
		pBottom := p.Pos.Y - pd.Height()/2
		pTop := p.Pos.Y + pd.Height()/2
		if math.Abs(bottom-pTop) <= Epsilon && pd.HasTopStuds() {
			if studs, ok := StudRect(pd, p.Pos.X, p.Pos.Z, p.Rotation); ok && seat.Overlaps(studs) {
				return true
			}
		}
		if math.Abs(top-pBottom) <= Epsilon {
			return true
		}
	}
	return false
}
