package engine

import (
	"math"
	"sort"
)

// GroupResult is a computed rigid repositioning. Pieces always carries the
// candidate positions so the caller can render a ghost even when Valid is
// false; only a Valid result may be committed. Fallback marks the
// stacked-on-top placement used when no shared base height fits: legal, but
// not a true fit.
type GroupResult struct {
	Pieces   []Piece
	Valid    bool
	Fallback bool
}

// TransformGroup repositions a rigid set of pieces as one unit: rotate the
// set about its centroid, snap the first piece (the designated anchor) under
// the cursor, then search for a shared base height at which every piece
// simultaneously clears collision and stays connected. Pieces may lean on
// each other: a stack moved as a group restacks onto open ground with only
// its lowest piece touching down.
//
// exclude holds the ids of the moving pieces themselves (empty for a paste),
// so the set does not collide with its own old footprints.
func (w *World) TransformGroup(src []Piece, cursorX, cursorZ float64, groupRot int, exclude IDSet) GroupResult {
	if len(src) == 0 {
		return GroupResult{}
	}
	rot := NormalizeRotation(groupRot)

	// Rotate every position and every individual rotation about the centroid.
	var cx, cz float64
	for _, p := range src {
		cx += p.Pos.X
		cz += p.Pos.Z
	}
	cx /= float64(len(src))
	cz /= float64(len(src))

	moved := make([]Piece, len(src))
	for i, p := range src {
		dx, dz := RotateXZ(p.Pos.X-cx, p.Pos.Z-cz, rot)
		p.Pos.X = cx + dx
		p.Pos.Z = cz + dz
		p.Rotation = NormalizeRotation(p.Rotation + rot)
		p.Orientation = RotateOrientation(p.Orientation, rot)
		moved[i] = p
	}

	// Rebase: snap the anchor's center to the cursor and drag the rest along.
	anchor := moved[0]
	ad, ok := w.Def(anchor.Type)
	if !ok {
		return GroupResult{Pieces: moved}
	}
	sx, sz := Snap(cursorX, cursorZ, ad.Width, ad.Depth, anchor.Rotation)
	shiftX := sx - anchor.Pos.X
	shiftZ := sz - anchor.Pos.Z
	for i := range moved {
		moved[i].Pos.X += shiftX
		moved[i].Pos.Z += shiftZ
	}

	boxes := make([]AABB, len(moved))
	minBottom := math.Inf(1)
	for i, p := range moved {
		box, ok := w.PieceBox(p)
		if !ok {
			return GroupResult{Pieces: moved}
		}
		boxes[i] = box
		if box.Min.Y < minBottom {
			minBottom = box.Min.Y
		}
	}

	// Candidate shared vertical offsets, gathered the same way the layer
	// search gathers bottoms: ground, rest-on-top, and hang-below per piece.
	maxTop := 0.0
	dys := []float64{-minBottom}
	for i := range moved {
		fp := boxes[i].XZRect()
		for _, e := range w.pieces {
			if exclude.Has(e.ID) {
				continue
			}
			eb, ok := w.PieceBox(e)
			if !ok || !fp.Overlaps(eb.XZRect()) {
				continue
			}
			if eb.Max.Y > maxTop {
				maxTop = eb.Max.Y
			}
			dys = append(dys, eb.Max.Y-boxes[i].Min.Y)
			if dy := eb.Min.Y - boxes[i].Max.Y; minBottom+dy >= -Epsilon {
				dys = append(dys, dy)
			}
		}
	}
	sort.Float64s(dys)

	// Prefer the fitting offset closest to the group's original height.
	bestDy := math.Inf(1)
	found := false
	prev := math.Inf(-1)
	for _, dy := range dys {
		if dy-prev <= Epsilon {
			continue
		}
		prev = dy
		if minBottom+dy < -Epsilon {
			continue
		}
		if !w.groupFits(moved, dy, exclude) {
			continue
		}
		if math.Abs(dy) < math.Abs(bestDy) {
			bestDy = dy
			found = true
		}
	}
	if found {
		return GroupResult{Pieces: shiftGroupY(moved, bestDy), Valid: true}
	}

	// No shared height fits: stack the whole set on top of the tallest
	// obstruction under any of its footprints.
	dy := maxTop - minBottom
	out := shiftGroupY(moved, dy)
	valid := true
	for _, p := range out {
		box, _ := w.PieceBox(p)
		if w.WouldCollideBox(box, exclude) {
			valid = false
			break
		}
	}
	return GroupResult{Pieces: out, Valid: valid, Fallback: true}
}

func shiftGroupY(moved []Piece, dy float64) []Piece {
	out := make([]Piece, len(moved))
	for i, p := range moved {
		p.Pos.Y += dy
		out[i] = p
	}
	return out
}

// groupFits checks one shared vertical offset: every piece must clear
// collision against the remaining world and be connected, where group
// members count as support for each other.
func (w *World) groupFits(moved []Piece, dy float64, exclude IDSet) bool {
	shifted := shiftGroupY(moved, dy)
	for _, p := range shifted {
		box, ok := w.PieceBox(p)
		if !ok || w.WouldCollideBox(box, exclude) {
			return false
		}
	}

	// Connectivity runs against the world minus the old positions plus the
	// groupmates at their candidate positions.
	scratch := &World{cats: w.cats}
	for _, e := range w.pieces {
		if exclude.Has(e.ID) {
			continue
		}
		scratch.pieces = append(scratch.pieces, e)
	}
	scratch.pieces = append(scratch.pieces, shifted...)
	scratch.index = make(map[string]int, len(scratch.pieces))
	for i, p := range scratch.pieces {
		scratch.index[p.ID] = i
	}

	for _, p := range shifted {
		if p.Orientation != OrientUp {
			// Side-mounted pieces ride along; their lateral attachment moved
			// with the group.
			continue
		}
		d, ok := w.Def(p.Type)
		if !ok {
			return false
		}
		bottom := p.Pos.Y - d.Height()/2
		top := p.Pos.Y + d.Height()/2
		if !scratch.IsConnected(d, p.Pos.X, p.Pos.Z, p.Rotation, bottom, top, NewIDSet(p.ID)) {
			return false
		}
	}
	return true
}
