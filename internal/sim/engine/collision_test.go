package engine_test

import (
	"testing"

	"brickyard/internal/sim/engine"
)

func TestWouldCollide(t *testing.T) {
	w := testWorld(t)
	addPiece(w, "brick_2x2", 0, 0.6, 0, 0) // occupies [-1,1]x[-1,1], y 0..1.2

	fp := func(cx, cz float64) engine.Rect {
		return engine.FootprintFor(cx, cz, 2, 2, 0)
	}

	cases := []struct {
		name        string
		rect        engine.Rect
		bottom, top float64
		want        bool
	}{
		{"same_cell", fp(0, 0), 0, 1.2, true},
		{"partial_overlap", fp(1, 1), 0, 1.2, true},
		{"edge_touching", fp(2, 0), 0, 1.2, false},
		{"clear", fp(4, 4), 0, 1.2, false},
		{"stacked_on_top", fp(0, 0), 1.2, 2.4, false},
		{"vertical_overlap", fp(0, 0), 0.8, 2.0, true},
		{"below_ground", fp(4, 4), -0.4, 0.8, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := w.WouldCollide(tc.rect, tc.bottom, tc.top, nil)
			if got != tc.want {
				t.Fatalf("WouldCollide(%+v, %v, %v) = %v, want %v", tc.rect, tc.bottom, tc.top, got, tc.want)
			}
		})
	}
}

func TestWouldCollideExclude(t *testing.T) {
	w := testWorld(t)
	p := addPiece(w, "brick_2x2", 0, 0.6, 0, 0)

	fp := engine.FootprintFor(0, 0, 2, 2, 0)
	if !w.WouldCollide(fp, 0, 1.2, nil) {
		t.Fatalf("expected collision with own old position")
	}
	if w.WouldCollide(fp, 0, 1.2, engine.NewIDSet(p.ID)) {
		t.Fatalf("excluded piece still collides")
	}
}

func TestWouldCollideBoxSideMounted(t *testing.T) {
	w := testWorld(t)
	addPiece(w, "brick_2x2", 0, 0.6, 0, 0)

	// A box hugging the +x face does not collide; shifted into the brick it
	// does.
	clear := engine.AABB{
		Min: engine.Vec3{X: 1.0, Y: 0, Z: -0.5},
		Max: engine.Vec3{X: 2.2, Y: 1.0, Z: 0.5},
	}
	if w.WouldCollideBox(clear, nil) {
		t.Fatalf("face-adjacent box collided")
	}
	inside := engine.AABB{
		Min: engine.Vec3{X: 0.5, Y: 0, Z: -0.5},
		Max: engine.Vec3{X: 1.7, Y: 1.0, Z: 0.5},
	}
	if !w.WouldCollideBox(inside, nil) {
		t.Fatalf("intersecting box did not collide")
	}
}

func TestCollisionSymmetry(t *testing.T) {
	w := testWorld(t)
	a := addPiece(w, "brick_2x4", 0, 0.6, 0, 0)
	b := addPiece(w, "brick_2x4", 1, 0.6, 1, 1)

	boxA, _ := w.PieceBox(a)
	boxB, _ := w.PieceBox(b)
	if w.WouldCollideBox(boxA, engine.NewIDSet(a.ID)) != w.WouldCollideBox(boxB, engine.NewIDSet(b.ID)) {
		t.Fatalf("collision not symmetric")
	}
}

func TestUnknownTypeFailsSafe(t *testing.T) {
	w := testWorld(t)
	w.Add(engine.Piece{ID: "X", Type: "no_such_piece", Pos: engine.Vec3{X: 0, Y: 0.6, Z: 0}})

	fp := engine.FootprintFor(10, 10, 2, 2, 0)
	if !w.WouldCollide(fp, 0, 1.2, nil) {
		t.Fatalf("unknown piece type should fail safe as a collision")
	}
}
