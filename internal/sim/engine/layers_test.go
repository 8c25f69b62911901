package engine_test

import (
	"testing"
)

func TestFindValidLayersGround(t *testing.T) {
	w := testWorld(t)
	d := testCatalogs(t).Pieces.Defs["brick_2x2"]
	layers := w.FindValidLayers(d, 0, 0, 0, nil)
	if len(layers) != 1 || !approx(layers[0], 0) {
		t.Fatalf("empty world layers = %v, want [0]", layers)
	}
}

func TestFindValidLayersStacking(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	addPiece(w, "brick_2x2", 0, 0.6, 0, 0)

	// Same footprint: ground is blocked, the occupied top is the only layer.
	layers := w.FindValidLayers(defs["brick_2x2"], 0, 0, 0, nil)
	if len(layers) != 1 || !approx(layers[0], 1.2) {
		t.Fatalf("stacked layers = %v, want [1.2]", layers)
	}

	// Clear of the brick: back to ground only.
	layers = w.FindValidLayers(defs["brick_2x2"], 4, 4, 0, nil)
	if len(layers) != 1 || !approx(layers[0], 0) {
		t.Fatalf("clear layers = %v, want [0]", layers)
	}
}

func TestFindValidLayersUnderFloatingPlate(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	// A plate held at height: bottom 1.8, top 2.2. Tests drop it in directly;
	// the layer search only looks at geometry.
	addPiece(w, "plate_2x4", 0, 2.0, 0, 0)

	layers := w.FindValidLayers(defs["brick_1x1"], 0.5, 0.5, 0, nil)
	want := []float64{0, 0.6, 2.2}
	if len(layers) != len(want) {
		t.Fatalf("layers = %v, want %v", layers, want)
	}
	for i := range want {
		if !approx(layers[i], want[i]) {
			t.Fatalf("layers = %v, want %v", layers, want)
		}
	}
}

func TestLayerPositionDefaultTopmost(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	addPiece(w, "plate_2x4", 0, 2.0, 0, 0)

	c := w.LayerPosition(defs["brick_1x1"], 0.5, 0.5, 0, 0, nil, nil)
	if !c.Valid || !approx(c.BottomY, 2.2) {
		t.Fatalf("default layer = %+v, want bottom 2.2 valid", c)
	}
}

func TestLayerPositionPreferred(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	addPiece(w, "plate_2x4", 0, 2.0, 0, 0)

	pref := 0.0
	c := w.LayerPosition(defs["brick_1x1"], 0.5, 0.5, 0, 0, &pref, nil)
	if !c.Valid || !approx(c.BottomY, 0) {
		t.Fatalf("preferred-ground layer = %+v, want bottom 0 valid", c)
	}
}

func TestLayerPositionCycleClamped(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	addPiece(w, "plate_2x4", 0, 2.0, 0, 0)

	// Step down from the topmost layer, then far past both ends.
	c := w.LayerPosition(defs["brick_1x1"], 0.5, 0.5, 0, -1, nil, nil)
	if !c.Valid || !approx(c.BottomY, 0.6) {
		t.Fatalf("step -1 = %+v, want bottom 0.6", c)
	}
	c = w.LayerPosition(defs["brick_1x1"], 0.5, 0.5, 0, -99, nil, nil)
	if !c.Valid || !approx(c.BottomY, 0) {
		t.Fatalf("step -99 = %+v, want clamped to bottom 0", c)
	}
	c = w.LayerPosition(defs["brick_1x1"], 0.5, 0.5, 0, 99, nil, nil)
	if !c.Valid || !approx(c.BottomY, 2.2) {
		t.Fatalf("step +99 = %+v, want clamped to top 2.2", c)
	}
}

func TestLayerPositionInvalidRendersAboveStack(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	// Tile tops are smooth and nothing rests on them: no valid layer above,
	// ground blocked underneath.
	addPiece(w, "tile_2x2", 0, 0.2, 0, 0)

	c := w.LayerPosition(defs["brick_2x2"], 0, 0, 0, 0, nil, nil)
	if c.Valid {
		t.Fatalf("tile-top placement reported valid")
	}
	if !approx(c.BottomY, 0.4) {
		t.Fatalf("invalid ghost height = %v, want stack top 0.4", c.BottomY)
	}
}
