package engine

import (
	"brickyard/internal/protocol"
)

// Apply runs one editor command against the session. It never mutates state
// on an invalid candidate: "no legal placement" is a first-class result, not
// an error.
func (s *Session) Apply(cmd protocol.CmdMsg) Outbound {
	var out Outbound
	h := cmdDispatch[cmd.Op]
	if h == nil {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "unknown op"))
		return out
	}
	h(s, cmd, &out)
	return out
}

var cmdDispatch = map[string]func(*Session, protocol.CmdMsg, *Outbound){
	protocol.OpHover:         (*Session).cmdHover,
	protocol.OpPlace:         (*Session).cmdPlace,
	protocol.OpSelect:        (*Session).cmdSelect,
	protocol.OpMoveBegin:     (*Session).cmdMoveBegin,
	protocol.OpMoveUpdate:    (*Session).cmdMoveUpdate,
	protocol.OpMoveConfirm:   (*Session).cmdMoveConfirm,
	protocol.OpMoveCancel:    (*Session).cmdMoveCancel,
	protocol.OpCopy:          (*Session).cmdCopy,
	protocol.OpPasteBegin:    (*Session).cmdPasteBegin,
	protocol.OpPasteConfirm:  (*Session).cmdPasteConfirm,
	protocol.OpRotatePreview: (*Session).cmdRotatePreview,
	protocol.OpRotateGroup:   (*Session).cmdRotateGroup,
	protocol.OpRotateInPlace: (*Session).cmdRotateInPlace,
	protocol.OpCycleLayer:    (*Session).cmdCycleLayer,
	protocol.OpCycleAnchor:   (*Session).cmdCycleAnchor,
	protocol.OpNudge:         (*Session).cmdNudge,
	protocol.OpRecolor:       (*Session).cmdRecolor,
	protocol.OpDelete:        (*Session).cmdDelete,
	protocol.OpUndo:          (*Session).cmdUndo,
	protocol.OpRedo:          (*Session).cmdRedo,
}

func actionResult(ref string, ok bool, code string, message string) protocol.Event {
	if !protocol.IsKnownCode(code) {
		code = protocol.ErrInternal
		if message == "" {
			message = "unknown error code"
		}
	}
	e := protocol.Event{
		"type": "ACTION_RESULT",
		"ref":  ref,
		"ok":   ok,
	}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}

func (s *Session) updateCursor(cmd protocol.CmdMsg) {
	if cmd.Hit != nil {
		s.lastHit = cmd.Hit
		s.lastPoint = nil
		return
	}
	if cmd.Point != nil {
		s.lastPoint = cmd.Point
		s.lastHit = nil
	}
}

func (s *Session) cmdHover(cmd protocol.CmdMsg, out *Outbound) {
	if cmd.PieceType != "" {
		if _, ok := s.cats.Pieces.Defs[cmd.PieceType]; !ok {
			out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrUnknownPiece, "unknown piece type"))
			return
		}
		if cmd.PieceType != s.curType {
			s.curType = cmd.PieceType
			s.layerStep = 0
			s.anchorIdx = 0
		}
	}
	if cmd.Color != "" {
		s.curColor = cmd.Color
	}
	s.updateCursor(cmd)
	out.Ghost = s.hoverGhost()
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
}

func (s *Session) cmdPlace(cmd protocol.CmdMsg, out *Outbound) {
	if s.pending != nil {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "group operation in progress"))
		return
	}
	if cmd.PieceType != "" {
		if _, ok := s.cats.Pieces.Defs[cmd.PieceType]; !ok {
			out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrUnknownPiece, "unknown piece type"))
			return
		}
		s.curType = cmd.PieceType
	}
	if cmd.Color != "" {
		s.curColor = cmd.Color
	}
	s.updateCursor(cmd)

	p, valid, ok := s.buildCandidate()
	if !ok {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "no piece type or cursor"))
		return
	}
	if !valid {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBlocked, "no legal placement"))
		out.Ghost = ghostMsg([]Piece{p}, false, false)
		return
	}
	if s.world.Len() >= s.tun.MaxPieces {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrTooLarge, "piece limit reached"))
		return
	}

	p.ID = newPieceID()
	s.commit(func() { s.world.Add(p) })
	s.layerStep = 0
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
	out.Ghost = s.hoverGhost()
}

func (s *Session) cmdSelect(cmd protocol.CmdMsg, out *Outbound) {
	s.setSelection(cmd.IDs)
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
}

func (s *Session) cmdMoveBegin(cmd protocol.CmdMsg, out *Outbound) {
	ids := cmd.IDs
	if len(ids) == 0 {
		ids = s.selectionIDs()
	}
	src := s.piecesByID(ids)
	if len(src) == 0 {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrInvalidTarget, "nothing to move"))
		return
	}
	if len(src) > s.tun.MaxGroupSize {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrTooLarge, "group too large"))
		return
	}
	excl := IDSet{}
	for _, p := range src {
		excl[p.ID] = struct{}{}
	}
	s.pending = &pendingGroup{op: protocol.OpMoveBegin, src: src, exclude: excl}
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	s.groupUpdate(cmd, out)
}

func (s *Session) cmdMoveUpdate(cmd protocol.CmdMsg, out *Outbound) {
	if s.pending == nil {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "no group operation in progress"))
		return
	}
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	s.groupUpdate(cmd, out)
}

// groupUpdate recomputes the pending ghost after a cursor or rotation change.
func (s *Session) groupUpdate(cmd protocol.CmdMsg, out *Outbound) {
	s.updateCursor(cmd)
	if x, z, ok := s.cursorPoint(); ok {
		s.pending.cursorX = x
		s.pending.cursorZ = z
		s.pending.hasCur = true
	}
	if !s.pending.hasCur {
		return
	}
	s.pending.last = s.world.TransformGroup(s.pending.src, s.pending.cursorX, s.pending.cursorZ, s.pending.rot, s.pending.exclude)
	out.Ghost = ghostMsg(s.pending.last.Pieces, s.pending.last.Valid, s.pending.last.Fallback)
}

func (s *Session) cmdMoveConfirm(cmd protocol.CmdMsg, out *Outbound) {
	if s.pending == nil || s.pending.op != protocol.OpMoveBegin {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "no move in progress"))
		return
	}
	s.groupUpdate(cmd, out)
	res := s.pending.last
	if !s.pending.hasCur || !res.Valid {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBlocked, "no legal position"))
		return
	}
	s.commit(func() {
		for _, p := range res.Pieces {
			s.world.Replace(p)
		}
	})
	s.pending = nil
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
	out.Ghost = ghostMsg(nil, false, false)
}

func (s *Session) cmdMoveCancel(cmd protocol.CmdMsg, out *Outbound) {
	// Cancelling never touches history; the ghost simply evaporates.
	s.pending = nil
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", "canceled"))
	out.Ghost = ghostMsg(nil, false, false)
}

func (s *Session) cmdCopy(cmd protocol.CmdMsg, out *Outbound) {
	src := s.selectedPieces()
	if len(cmd.IDs) > 0 {
		src = s.piecesByID(cmd.IDs)
	}
	if len(src) == 0 {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrInvalidTarget, "nothing to copy"))
		return
	}
	s.clipboard = src
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
}

func (s *Session) cmdPasteBegin(cmd protocol.CmdMsg, out *Outbound) {
	if len(s.clipboard) == 0 {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "clipboard empty"))
		return
	}
	src := make([]Piece, len(s.clipboard))
	copy(src, s.clipboard)
	s.pending = &pendingGroup{op: protocol.OpPasteBegin, src: src, exclude: IDSet{}}
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	s.groupUpdate(cmd, out)
}

func (s *Session) cmdPasteConfirm(cmd protocol.CmdMsg, out *Outbound) {
	if s.pending == nil || s.pending.op != protocol.OpPasteBegin {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "no paste in progress"))
		return
	}
	s.groupUpdate(cmd, out)
	res := s.pending.last
	if !s.pending.hasCur || !res.Valid {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBlocked, "no legal position"))
		return
	}
	if s.world.Len()+len(res.Pieces) > s.tun.MaxPieces {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrTooLarge, "piece limit reached"))
		return
	}
	ids := make([]string, 0, len(res.Pieces))
	s.commit(func() {
		for _, p := range res.Pieces {
			p.ID = newPieceID()
			ids = append(ids, p.ID)
			s.world.Add(p)
		}
	})
	s.pending = nil
	s.setSelection(ids)
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
	out.Ghost = ghostMsg(nil, false, false)
}

func (s *Session) cmdRotatePreview(cmd protocol.CmdMsg, out *Outbound) {
	s.curRot = NormalizeRotation(s.curRot + stepOrOne(cmd.Step))
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.Ghost = s.hoverGhost()
}

func (s *Session) cmdRotateGroup(cmd protocol.CmdMsg, out *Outbound) {
	if s.pending == nil {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "no group operation in progress"))
		return
	}
	s.pending.rot = NormalizeRotation(s.pending.rot + stepOrOne(cmd.Step))
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	s.groupUpdate(cmd, out)
}

func (s *Session) cmdRotateInPlace(cmd protocol.CmdMsg, out *Outbound) {
	sel := s.selectedPieces()
	if len(cmd.IDs) > 0 {
		sel = s.piecesByID(cmd.IDs)
	}
	if len(sel) == 0 {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrInvalidTarget, "nothing to rotate"))
		return
	}
	st := stepOrOne(cmd.Step)
	excl := IDSet{}
	for _, p := range sel {
		excl[p.ID] = struct{}{}
	}

	rotated := make([]Piece, len(sel))
	for i, p := range sel {
		d, ok := s.world.Def(p.Type)
		if !ok {
			out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrUnknownPiece, "unknown piece type"))
			return
		}
		p.Rotation = NormalizeRotation(p.Rotation + st)
		p.Orientation = RotateOrientation(p.Orientation, st)
		// Non-square footprints shift their grid parity when the extents
		// swap; re-snap each center in its new rotation.
		p.Pos.X, p.Pos.Z = Snap(p.Pos.X, p.Pos.Z, d.Width, d.Depth, p.Rotation)
		rotated[i] = p
	}
	if !s.placementLegal(rotated, excl) {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBlocked, "rotation blocked"))
		return
	}
	s.commit(func() {
		for _, p := range rotated {
			s.world.Replace(p)
		}
	})
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
}

func (s *Session) cmdCycleLayer(cmd protocol.CmdMsg, out *Outbound) {
	s.layerStep += stepOrOne(cmd.Step)
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.Ghost = s.hoverGhost()
}

func (s *Session) cmdCycleAnchor(cmd protocol.CmdMsg, out *Outbound) {
	d, ok := s.cats.Pieces.Defs[s.curType]
	if !ok {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrUnknownPiece, "no piece type selected"))
		return
	}
	n := len(d.AnchorCycle())
	s.anchorIdx = ((s.anchorIdx+stepOrOne(cmd.Step))%n + n) % n
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.Ghost = s.hoverGhost()
}

func (s *Session) cmdNudge(cmd protocol.CmdMsg, out *Outbound) {
	sel := s.selectedPieces()
	if len(cmd.IDs) > 0 {
		sel = s.piecesByID(cmd.IDs)
	}
	if len(sel) == 0 {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrInvalidTarget, "nothing to nudge"))
		return
	}
	excl := IDSet{}
	for _, p := range sel {
		excl[p.ID] = struct{}{}
	}
	moved := make([]Piece, len(sel))
	for i, p := range sel {
		p.Pos.X += float64(cmd.DX) * s.tun.GridUnit
		p.Pos.Y += float64(cmd.DY) * 0.4
		p.Pos.Z += float64(cmd.DZ) * s.tun.GridUnit
		moved[i] = p
	}
	// A nudge is a deliberate override: it skips the connectivity rule but
	// still may not intersect anything or sink below the ground.
	for _, p := range moved {
		box, ok := s.world.PieceBox(p)
		if !ok || s.world.WouldCollideBox(box, excl) {
			out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBlocked, "nudge blocked"))
			return
		}
	}
	s.commit(func() {
		for _, p := range moved {
			s.world.Replace(p)
		}
	})
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
}

func (s *Session) cmdRecolor(cmd protocol.CmdMsg, out *Outbound) {
	if cmd.Color == "" {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "missing color"))
		return
	}
	sel := s.selectedPieces()
	if len(cmd.IDs) > 0 {
		sel = s.piecesByID(cmd.IDs)
	}
	if len(sel) == 0 {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrInvalidTarget, "nothing to recolor"))
		return
	}
	s.commit(func() {
		for _, p := range sel {
			p.Color = cmd.Color
			s.world.Replace(p)
		}
	})
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
}

func (s *Session) cmdDelete(cmd protocol.CmdMsg, out *Outbound) {
	sel := s.selectedPieces()
	if len(cmd.IDs) > 0 {
		sel = s.piecesByID(cmd.IDs)
	}
	if len(sel) == 0 {
		out.Events = append(out.Events, actionResult(cmd.ID, false, protocol.ErrInvalidTarget, "nothing to delete"))
		return
	}
	s.commit(func() {
		for _, p := range sel {
			s.world.Remove(p.ID)
		}
	})
	s.pruneSelection()
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
}

func (s *Session) cmdUndo(cmd protocol.CmdMsg, out *Outbound) {
	prev, ok := s.hist.Undo(s.world.Snapshot())
	if !ok {
		out.Events = append(out.Events, actionResult(cmd.ID, true, "", "nothing to undo"))
		return
	}
	s.world.Restore(prev)
	s.rev++
	s.pending = nil
	s.pruneSelection()
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
}

func (s *Session) cmdRedo(cmd protocol.CmdMsg, out *Outbound) {
	next, ok := s.hist.Redo(s.world.Snapshot())
	if !ok {
		out.Events = append(out.Events, actionResult(cmd.ID, true, "", "nothing to redo"))
		return
	}
	s.world.Restore(next)
	s.rev++
	s.pending = nil
	s.pruneSelection()
	out.Events = append(out.Events, actionResult(cmd.ID, true, "", ""))
	out.State = s.stateMsg()
}

func stepOrOne(step int) int {
	if step == 0 {
		return 1
	}
	return step
}

func (s *Session) selectionIDs() []string {
	out := make([]string, 0, len(s.selOrder))
	for _, id := range s.selOrder {
		if s.selection.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Session) piecesByID(ids []string) []Piece {
	out := make([]Piece, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.world.Get(id); ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *Session) pruneSelection() {
	for id := range s.selection {
		if _, ok := s.world.Get(id); !ok {
			delete(s.selection, id)
		}
	}
}

// placementLegal validates a batch of repositioned pieces: collision against
// the rest of the world, connectivity against the world plus the batch
// itself.
func (s *Session) placementLegal(batch []Piece, excl IDSet) bool {
	for _, p := range batch {
		box, ok := s.world.PieceBox(p)
		if !ok || s.world.WouldCollideBox(box, excl) {
			return false
		}
	}
	scratch := &World{cats: s.cats}
	for _, e := range s.world.pieces {
		if excl.Has(e.ID) {
			continue
		}
		scratch.pieces = append(scratch.pieces, e)
	}
	scratch.pieces = append(scratch.pieces, batch...)
	scratch.index = make(map[string]int, len(scratch.pieces))
	for i, p := range scratch.pieces {
		scratch.index[p.ID] = i
	}
	for _, p := range batch {
		if p.Orientation != OrientUp {
			continue
		}
		d, ok := s.world.Def(p.Type)
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
