package engine

// WouldCollide tests a candidate footprint and vertical interval against
// every placed piece. A candidate dipping below the ground plane collides
// unconditionally. Pieces whose ids are in exclude are skipped, so a moving
// piece never collides with its own old position.
//
// This is the fast path for ordinary top-down placement; pieces in any
// orientation still participate through their world AABB.
func (w *World) WouldCollide(fp Rect, bottom, top float64, exclude IDSet) bool {
	if bottom < -Epsilon {
		return true
	}
	for _, p := range w.pieces {
		if exclude.Has(p.ID) {
			continue
		}
		box, ok := w.PieceBox(p)
		if !ok {
			// Unresolvable shape: fail safe, treat as occupying everything.
			return true
		}
		if !fp.Overlaps(box.XZRect()) {
			continue
		}
		if IntervalsOverlap(bottom, top, box.Min.Y, box.Max.Y) {
			return true
		}
	}
	return false
}

// WouldCollideBox is the general test for candidates with a non-default
// orientation, where the footprint/height decomposition breaks down: a full
// 3-axis AABB overlap against every placed piece.
func (w *World) WouldCollideBox(box AABB, exclude IDSet) bool {
	if box.Min.Y < -Epsilon {
		return true
	}
	for _, p := range w.pieces {
		if exclude.Has(p.ID) {
			continue
		}
		pb, ok := w.PieceBox(p)
		if !ok {
			return true
		}
		if box.Overlaps(pb) {
			return true
		}
	}
	return false
}
