package engine_test

import (
	"fmt"
	"testing"

	"brickyard/internal/sim/catalogs"
	"brickyard/internal/sim/engine"
	"brickyard/internal/sim/tuning"
)

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func testWorld(t *testing.T) *engine.World {
	t.Helper()
	return engine.NewWorld(testCatalogs(t))
}

func testSession(t *testing.T) *engine.Session {
	t.Helper()
	return engine.NewSession(testCatalogs(t), tuning.Default())
}

var pieceSeq int

// addPiece drops a piece into the world without any legality checks; tests
// construct scenarios directly, including deliberately floating pieces.
func addPiece(w *engine.World, typeID string, x, y, z float64, rot int) engine.Piece {
	pieceSeq++
	p := engine.Piece{
		ID:       fmt.Sprintf("T%d", pieceSeq),
		Type:     typeID,
		Pos:      engine.Vec3{X: x, Y: y, Z: z},
		Rotation: rot,
	}
	w.Add(p)
	return p
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
