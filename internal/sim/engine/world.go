package engine

import (
	"brickyard/internal/sim/catalogs"
)

// World is the committed piece collection. Operations on it are pure
// computations; mutation happens only through the session's commit path, on a
// single goroutine.
type World struct {
	cats   *catalogs.Catalogs
	pieces []Piece
	index  map[string]int
}

func NewWorld(cats *catalogs.Catalogs) *World {
	return &World{
		cats:  cats,
		index: map[string]int{},
	}
}

func (w *World) Len() int { return len(w.pieces) }

// Pieces returns the ordered piece list. Callers must not mutate it.
func (w *World) Pieces() []Piece { return w.pieces }

func (w *World) Get(id string) (Piece, bool) {
	i, ok := w.index[id]
	if !ok {
		return Piece{}, false
	}
	return w.pieces[i], true
}

func (w *World) Def(typeID string) (catalogs.PieceDef, bool) {
	d, ok := w.cats.Pieces.Defs[typeID]
	return d, ok
}

func (w *World) Add(p Piece) {
	if _, dup := w.index[p.ID]; dup {
		w.Replace(p)
		return
	}
	w.index[p.ID] = len(w.pieces)
	w.pieces = append(w.pieces, p)
}

func (w *World) Replace(p Piece) {
	if i, ok := w.index[p.ID]; ok {
		w.pieces[i] = p
	}
}

func (w *World) Remove(id string) {
	i, ok := w.index[id]
	if !ok {
		return
	}
	w.pieces = append(w.pieces[:i], w.pieces[i+1:]...)
	delete(w.index, id)
	for j := i; j < len(w.pieces); j++ {
		w.index[w.pieces[j].ID] = j
	}
}

// Snapshot captures the full world for the undo/redo stacks.
type Snapshot struct {
	Pieces []Piece
}

func (w *World) Snapshot() Snapshot {
	s := Snapshot{Pieces: make([]Piece, len(w.pieces))}
	copy(s.Pieces, w.pieces)
	return s
}

func (w *World) Restore(s Snapshot) {
	w.pieces = make([]Piece, len(s.Pieces))
	copy(w.pieces, s.Pieces)
	w.index = make(map[string]int, len(w.pieces))
	for i, p := range w.pieces {
		w.index[p.ID] = i
	}
}

// PieceBox builds the piece's world AABB from its type's half-extents,
// rotated by its quarter-turn and remapped by its orientation. ok is false
// for an unknown type.
func (w *World) PieceBox(p Piece) (AABB, bool) {
	d, ok := w.Def(p.Type)
	if !ok {
		return AABB{}, false
	}
	hx := float64(d.Width) / 2
	hy := d.Height() / 2
	hz := float64(d.Depth) / 2
	if p.Rotation&1 == 1 {
		hx, hz = hz, hx
	}
	switch p.Orientation {
	case OrientUp, OrientDown:
	case OrientPosX, OrientNegX:
		hx, hy = hy, hx
	case OrientPosZ, OrientNegZ:
		hy, hz = hz, hy
	}
	return AABB{
		Min: Vec3{X: p.Pos.X - hx, Y: p.Pos.Y - hy, Z: p.Pos.Z - hz},
		Max: Vec3{X: p.Pos.X + hx, Y: p.Pos.Y + hy, Z: p.Pos.Z + hz},
	}, true
}

// exclusion sets are id sets; a piece never collides with itself.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
