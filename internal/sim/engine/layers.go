package engine

import (
	"math"
	"sort"

	"brickyard/internal/sim/catalogs"
)

// FindValidLayers enumerates every legal bottom height for the given piece at
// the given footprint, sorted ascending. Candidates are the ground, the top
// of every overlapping piece, and the "hang" position under every overlapping
// piece (its bottom minus the candidate's height), kept only when they are
// collision-free and connected.
func (w *World) FindValidLayers(d catalogs.PieceDef, cx, cz float64, rot int, exclude IDSet) []float64 {
	h := d.Height()
	fp := FootprintFor(cx, cz, d.Width, d.Depth, rot)

	cands := []float64{0}
	for _, p := range w.pieces {
		if exclude.Has(p.ID) {
			continue
		}
		box, ok := w.PieceBox(p)
		if !ok || !fp.Overlaps(box.XZRect()) {
			continue
		}
		cands = append(cands, box.Max.Y)
		if hang := box.Min.Y - h; hang >= -Epsilon {
			cands = append(cands, math.Max(hang, 0))
		}
	}
	sort.Float64s(cands)

	var valid []float64
	for _, y := range cands {
		if len(valid) > 0 && math.Abs(y-valid[len(valid)-1]) <= Epsilon {
			continue
		}
		if w.WouldCollide(fp, y, y+h, exclude) {
			continue
		}
		if !w.IsConnected(d, cx, cz, rot, y, y+h, exclude) {
			continue
		}
		valid = append(valid, y)
	}
	return valid
}

// LayerChoice is a resolved vertical position. When Valid is false, BottomY
// is still usable as a visual height: the top of whatever is stacked at the
// footprint, so an invalid ghost renders above the stack instead of inside
// it.
type LayerChoice struct {
	BottomY float64
	Valid   bool
}

// LayerPosition picks one layer from FindValidLayers. The default base is the
// topmost valid layer; when preferred is non-nil the base is the valid layer
// nearest that height. layerStep then cycles the base index up or down,
// clamped to the list, so manual cycling never leaves a legal position.
func (w *World) LayerPosition(d catalogs.PieceDef, cx, cz float64, rot, layerStep int, preferred *float64, exclude IDSet) LayerChoice {
	layers := w.FindValidLayers(d, cx, cz, rot, exclude)
	if len(layers) == 0 {
		fp := FootprintFor(cx, cz, d.Width, d.Depth, rot)
		return LayerChoice{BottomY: w.StackTop(fp, exclude), Valid: false}
	}

	base := len(layers) - 1
	if preferred != nil {
		best := math.Inf(1)
		for i, y := range layers {
			if dist := math.Abs(y - *preferred); dist < best {
				best = dist
				base = i
			}
		}
	}

	idx := base + layerStep
	if idx < 0 {
		idx = 0
	}
	if idx > len(layers)-1 {
		idx = len(layers) - 1
	}
	return LayerChoice{BottomY: layers[idx], Valid: true}
}

// StackTop returns the highest top among pieces overlapping the footprint,
// or 0 on open ground.
func (w *World) StackTop(fp Rect, exclude IDSet) float64 {
	top := 0.0
	for _, p := range w.pieces {
		if exclude.Has(p.ID) {
			continue
		}
		box, ok := w.PieceBox(p)
		if !ok || !fp.Overlaps(box.XZRect()) {
			continue
		}
		if box.Max.Y > top {
			top = box.Max.Y
		}
	}
	return top
}
