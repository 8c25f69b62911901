package engine_test

import (
	"testing"

	"brickyard/internal/sim/engine"
)

func TestIsConnectedGround(t *testing.T) {
	w := testWorld(t)
	d := testCatalogs(t).Pieces.Defs["brick_2x2"]
	if !w.IsConnected(d, 0, 0, 0, 0, 1.2, nil) {
		t.Fatalf("ground placement not connected")
	}
	if w.IsConnected(d, 0, 0, 0, 2.4, 3.6, nil) {
		t.Fatalf("floating placement connected")
	}
}

func TestIsConnectedOnStuds(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	addPiece(w, "brick_2x2", 0, 0.6, 0, 0) // top at 1.2

	d := defs["brick_1x1"]
	if !w.IsConnected(d, 0.5, 0.5, 0, 1.2, 2.4, nil) {
		t.Fatalf("brick on brick top not connected")
	}
	// Hovering a gap above the top is not a connection.
	if w.IsConnected(d, 0.5, 0.5, 0, 1.6, 2.8, nil) {
		t.Fatalf("gap above top counted as connected")
	}
	// Laterally clear of the support.
	if w.IsConnected(d, 3.5, 3.5, 0, 1.2, 2.4, nil) {
		t.Fatalf("non-overlapping footprint counted as connected")
	}
}

func TestTileTopIsSmooth(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	addPiece(w, "tile_2x2", 0, 0.2, 0, 0) // top at 0.4

	d := defs["brick_1x1"]
	if w.IsConnected(d, 0.5, 0.5, 0, 0.4, 1.6, nil) {
		t.Fatalf("piece gripped a smooth tile top")
	}
}

func TestRestedOnKeepsSupportAttached(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	// A brick floating at the height where a tile would slide under it.
	addPiece(w, "brick_2x2", 0, 1.0, 0, 0) // bottom at 0.4

	// The tile itself is connected because the brick rests on it, even though
	// the tile offers no studs.
	d := defs["tile_2x2"]
	if !w.IsConnected(d, 0, 0, 0, 0, 0.4, nil) {
		t.Fatalf("support under a resting piece not connected")
	}
}

func TestSlopeFrontRejectsSeat(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	addPiece(w, "slope_2x2", 0, 0.6, 0, 0) // studs only on z in [-1,0]

	d := defs["plate_1x1"]
	if !w.IsConnected(d, 0.5, -0.5, 0, 1.2, 1.6, nil) {
		t.Fatalf("plate on slope back row not connected")
	}
	if w.IsConnected(d, 0.5, 0.5, 0, 1.2, 1.6, nil) {
		t.Fatalf("plate on slope cut face connected")
	}
}

func TestSideMountedPiecesDoNotSupport(t *testing.T) {
	w := testWorld(t)
	defs := testCatalogs(t).Pieces.Defs
	p := addPiece(w, "brick_1x1", 2.1, 0.5, 0.5, 0)
	p.Orientation = engine.OrientPosX
	w.Replace(p)

	// The candidate's footprint overlaps the side-mounted piece's column, but
	// lateral pieces neither offer studs upward nor count as resting support.
	d := defs["plate_1x1"]
	box, _ := w.PieceBox(p)
	if w.IsConnected(d, 2.5, 0.5, 0, box.Max.Y, box.Max.Y+0.4, nil) {
		t.Fatalf("side-mounted piece acted as vertical support")
	}
}
