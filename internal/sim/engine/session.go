package engine

import (
	"math"

	"github.com/google/uuid"

	"brickyard/internal/protocol"
	"brickyard/internal/sim/catalogs"
	"brickyard/internal/sim/tuning"
)

// Session owns one editor's mutable state: the committed world, the
// selection, the pending move/paste ghost, the clipboard and the history.
// All methods run on a single goroutine; the transport serializes commands.
type Session struct {
	cats  *catalogs.Catalogs
	tun   tuning.Tuning
	world *World
	hist  *History
	rev   uint64

	selection IDSet
	selOrder  []string // insertion order; the first selected piece anchors group moves

	// Build-mode hover state.
	curType   string
	curRot    int
	curColor  string
	anchorIdx int
	layerStep int
	lastPoint *[2]float64
	lastHit   *protocol.RaycastHit

	pending   *pendingGroup
	clipboard []Piece
}

// pendingGroup is an in-flight move or paste. Nothing is committed until the
// confirm command; cancel just drops this struct.
type pendingGroup struct {
	op      string // protocol.OpMoveBegin or OpPasteBegin
	src     []Piece
	rot     int
	cursorX float64
	cursorZ float64
	exclude IDSet
	last    GroupResult
	hasCur  bool
}

func NewSession(cats *catalogs.Catalogs, tun tuning.Tuning) *Session {
	return &Session{
		cats:      cats,
		tun:       tun,
		world:     NewWorld(cats),
		hist:      NewHistory(tun.MaxUndoDepth),
		selection: IDSet{},
	}
}

// Outbound is everything one command produced for the client.
type Outbound struct {
	Events []protocol.Event
	State  *protocol.StateMsg
	Ghost  *protocol.GhostMsg
}

func (s *Session) World() *World { return s.world }
func (s *Session) Rev() uint64   { return s.rev }

// LoadPieces replaces the world content wholesale (project open). History is
// reset; there is nothing to undo back into.
func (s *Session) LoadPieces(pieces []Piece) {
	s.world.Restore(Snapshot{Pieces: pieces})
	s.hist = NewHistory(s.tun.MaxUndoDepth)
	s.selection = IDSet{}
	s.selOrder = nil
	s.pending = nil
	s.rev++
}

// SessionState exposes hover selections for project snapshots.
type SessionState struct {
	CurType   string
	CurRot    int
	CurColor  string
	AnchorIdx int
}

func (s *Session) State() SessionState {
	return SessionState{CurType: s.curType, CurRot: s.curRot, CurColor: s.curColor, AnchorIdx: s.anchorIdx}
}

func (s *Session) SetState(st SessionState) {
	s.curType = st.CurType
	s.curRot = NormalizeRotation(st.CurRot)
	s.curColor = st.CurColor
	s.anchorIdx = st.AnchorIdx
}

// commit pushes the pre-mutation snapshot, applies fn, and bumps the
// revision. Every committing mutation is exactly one undo step.
func (s *Session) commit(fn func()) {
	s.hist.Push(s.world.Snapshot())
	fn()
	s.rev++
}

// StateMessage renders the committed world for the wire. The transport sends
// it once after the handshake so a reconnecting client starts in sync.
func (s *Session) StateMessage() *protocol.StateMsg {
	return s.stateMsg()
}

func (s *Session) stateMsg() *protocol.StateMsg {
	m := &protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Rev:             s.rev,
		Pieces:          make([]protocol.PieceState, 0, s.world.Len()),
		CanUndo:         s.hist.CanUndo(),
		CanRedo:         s.hist.CanRedo(),
	}
	for _, p := range s.world.Pieces() {
		m.Pieces = append(m.Pieces, pieceState(p))
	}
	for _, id := range s.selOrder {
		if s.selection.Has(id) {
			m.Selection = append(m.Selection, id)
		}
	}
	return m
}

func ghostMsg(pieces []Piece, valid, fallback bool) *protocol.GhostMsg {
	m := &protocol.GhostMsg{
		Type:            protocol.TypeGhost,
		ProtocolVersion: protocol.Version,
		Pieces:          make([]protocol.PieceState, 0, len(pieces)),
		Valid:           valid,
		Fallback:        fallback,
	}
	for _, p := range pieces {
		m.Pieces = append(m.Pieces, pieceState(p))
	}
	return m
}

func pieceState(p Piece) protocol.PieceState {
	return protocol.PieceState{
		ID:          p.ID,
		PieceType:   p.Type,
		Pos:         [3]float64{p.Pos.X, p.Pos.Y, p.Pos.Z},
		Rotation:    p.Rotation,
		Orientation: p.Orientation.String(),
		Color:       p.Color,
	}
}

func newPieceID() string { return uuid.NewString() }

func (s *Session) selectedPieces() []Piece {
	out := make([]Piece, 0, len(s.selOrder))
	for _, id := range s.selOrder {
		if !s.selection.Has(id) {
			continue
		}
		if p, ok := s.world.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) setSelection(ids []string) {
	s.selection = IDSet{}
	s.selOrder = s.selOrder[:0]
	for _, id := range ids {
		if _, ok := s.world.Get(id); !ok {
			continue
		}
		if s.selection.Has(id) {
			continue
		}
		s.selection[id] = struct{}{}
		s.selOrder = append(s.selOrder, id)
	}
}

// hoverGhost computes the build-mode preview for the currently selected type
// at the last known cursor.
func (s *Session) hoverGhost() *protocol.GhostMsg {
	p, valid, ok := s.buildCandidate()
	if !ok {
		return ghostMsg(nil, false, false)
	}
	return ghostMsg([]Piece{p}, valid, false)
}

// buildCandidate resolves the current hover into a candidate piece and a
// validity flag. The connection-point cycle shifts which local anchor lands
// under the cursor; the raycast hit supplies the preferred layer when the
// cursor is over an existing piece's top. ok is false when there is no piece
// type or cursor to work from.
func (s *Session) buildCandidate() (Piece, bool, bool) {
	d, ok := s.cats.Pieces.Defs[s.curType]
	if !ok {
		return Piece{}, false, false
	}

	// Side-mounted path: hovering a lateral face that carries connectors.
	if p, onConnector, ok := s.sideAttach(d); ok {
		box, _ := s.world.PieceBox(p)
		valid := onConnector && !s.world.WouldCollideBox(box, nil)
		return p, valid, true
	}

	px, pz, ok := s.cursorPoint()
	if !ok {
		return Piece{}, false, false
	}

	// The active anchor point snaps to the cursor; the center is offset from
	// the snapped anchor by the rotated local offset.
	cycle := d.AnchorCycle()
	a := cycle[s.anchorIdx%len(cycle)]
	adx, adz := RotateXZ(a.DX, a.DZ, s.curRot)
	cx, cz := Snap(px+adx, pz+adz, d.Width, d.Depth, s.curRot)
	cx -= adx
	cz -= adz

	var preferred *float64
	if s.lastHit != nil && s.lastHit.PieceID != "" && s.lastHit.TopFace {
		if hp, ok := s.world.Get(s.lastHit.PieceID); ok {
			if box, ok := s.world.PieceBox(hp); ok {
				top := box.Max.Y
				preferred = &top
			}
		}
	}

	choice := s.world.LayerPosition(d, cx, cz, s.curRot, s.layerStep, preferred, nil)
	p := Piece{
		Type:     s.curType,
		Pos:      Vec3{X: cx, Y: choice.BottomY + d.Height()/2, Z: cz},
		Rotation: s.curRot,
		Color:    s.pieceColor(d),
	}
	return p, choice.Valid, true
}

func (s *Session) pieceColor(d catalogs.PieceDef) string {
	if s.curColor != "" {
		return s.curColor
	}
	return d.Color
}

func (s *Session) cursorPoint() (x, z float64, ok bool) {
	if s.lastHit != nil {
		return s.lastHit.Point[0], s.lastHit.Point[2], true
	}
	if s.lastPoint != nil {
		return s.lastPoint[0], s.lastPoint[1], true
	}
	return 0, 0, false
}

// sideAttach resolves a hover against a lateral face. ok reports that the
// side-mounted path applies at all; hit reports that the face actually
// carries a connector, so the caller can still render an invalid ghost when
// it does not.
func (s *Session) sideAttach(d catalogs.PieceDef) (p Piece, hit bool, ok bool) {
	h := s.lastHit
	if h == nil || h.PieceID == "" || h.TopFace || h.Ground {
		return Piece{}, false, false
	}
	orient := orientFromNormal(h.Normal)
	if orient == OrientUp || orient == OrientDown {
		return Piece{}, false, false
	}
	target, found := s.world.Get(h.PieceID)
	if !found {
		return Piece{}, false, false
	}
	td, found := s.world.Def(target.Type)
	if !found {
		return Piece{}, false, false
	}
	tbox, _ := s.world.PieceBox(target)

	p = Piece{
		Type:        d.ID,
		Rotation:    s.curRot,
		Orientation: orient,
		Color:       s.pieceColor(d),
	}
	// The candidate's local up axis lies along the face normal; its height
	// extends outward from the face.
	wStuds, dStuds := d.Width, d.Depth
	if s.curRot&1 == 1 {
		wStuds, dStuds = dStuds, wStuds
	}
	half := d.Height() / 2
	rowY := math.Round(h.Point[1]/catalogs.PlateHeight) * catalogs.PlateHeight
	switch orient {
	case OrientPosX:
		p.Pos = Vec3{X: tbox.Max.X + half, Y: rowY, Z: snapAxis(h.Point[2], dStuds)}
	case OrientNegX:
		p.Pos = Vec3{X: tbox.Min.X - half, Y: rowY, Z: snapAxis(h.Point[2], dStuds)}
	case OrientPosZ:
		p.Pos = Vec3{X: snapAxis(h.Point[0], wStuds), Y: rowY, Z: tbox.Max.Z + half}
	case OrientNegZ:
		p.Pos = Vec3{X: snapAxis(h.Point[0], wStuds), Y: rowY, Z: tbox.Min.Z - half}
	}

	return p, td.SideMask&sideBit(orient, target.Rotation) != 0, true
}

// sideBit maps a world-facing direction to the target's local side-connector
// bit, undoing the target's own rotation.
func sideBit(worldFace Orientation, targetRot int) uint8 {
	local := RotateOrientation(worldFace, 4-NormalizeRotation(targetRot))
	switch local {
	case OrientPosX:
		return catalogs.SidePosX
	case OrientNegX:
		return catalogs.SideNegX
	case OrientPosZ:
		return catalogs.SidePosZ
	case OrientNegZ:
		return catalogs.SideNegZ
	}
	return 0
}

func orientFromNormal(n [3]float64) Orientation {
	ax, ay, az := math.Abs(n[0]), math.Abs(n[1]), math.Abs(n[2])
	switch {
	case ay >= ax && ay >= az:
		if n[1] >= 0 {
			return OrientUp
		}
		return OrientDown
	case ax >= az:
		if n[0] >= 0 {
			return OrientPosX
		}
		return OrientNegX
	default:
		if n[2] >= 0 {
			return OrientPosZ
		}
		return OrientNegZ
	}
}
