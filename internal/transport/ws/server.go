package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"brickyard/internal/protocol"
	"brickyard/internal/sim/catalogs"
	"brickyard/internal/sim/engine"
	"brickyard/internal/sim/tuning"
)

// Hooks are the server's ties to the host process. Both run on the session
// goroutine, so they must not call back into the server.
type Hooks struct {
	// Save persists the given world. Used by the SAVE command and by the
	// host's autosave ticker.
	Save func(rev uint64, pieces []engine.Piece, st engine.SessionState) error

	// OnEdit fires after every committed mutation (rev changed).
	OnEdit func(op string, rev uint64, sessionID string)
}

// Server owns the engine session and serializes all access to it through a
// single goroutine. Connections submit closures; replies come back on
// per-connection channels.
type Server struct {
	sess      *engine.Session
	cats      *catalogs.Catalogs
	tun       tuning.Tuning
	projectID string
	hooks     Hooks
	log       *log.Logger

	inbox    chan func(*engine.Session)
	upgrader websocket.Upgrader
}

func NewServer(sess *engine.Session, cats *catalogs.Catalogs, tun tuning.Tuning, projectID string, hooks Hooks, logger *log.Logger) *Server {
	return &Server{
		sess:      sess,
		cats:      cats,
		tun:       tun,
		projectID: projectID,
		hooks:     hooks,
		log:       logger,
		inbox:     make(chan func(*engine.Session), 256),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Run drains the inbox until ctx is cancelled. It is the only goroutine that
// touches the session.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.inbox:
			fn(s.sess)
		}
	}
}

// Do runs fn on the session goroutine and waits for it to finish.
func (s *Server) Do(ctx context.Context, fn func(*engine.Session)) error {
	done := make(chan struct{})
	select {
	case s.inbox <- func(sess *engine.Session) { fn(sess); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SaveNow snapshots the session and hands it to the Save hook. The host's
// autosave ticker and shutdown path both go through here.
func (s *Server) SaveNow(ctx context.Context) error {
	var err error
	doErr := s.Do(ctx, func(sess *engine.Session) {
		if s.hooks.Save == nil {
			return
		}
		err = s.hooks.Save(sess.Rev(), sess.World().Pieces(), sess.State())
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Per-connection command rate window.
		window := time.Duration(s.tun.RateLimits.CmdWindowMs) * time.Millisecond
		windowStart := time.Now()
		windowCount := 0

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeCmd {
				continue
			}
			var cmd protocol.CmdMsg
			if err := json.Unmarshal(msg, &cmd); err != nil {
				s.send(ctx, out, eventMsg(actionResult("", false, protocol.ErrProtoBadRequest, "bad CMD payload")))
				continue
			}
			if cmd.ProtocolVersion != protocol.Version {
				s.send(ctx, out, eventMsg(actionResult(cmd.ID, false, protocol.ErrProtoBadRequest, "bad protocol_version")))
				continue
			}

			now := time.Now()
			if now.Sub(windowStart) > window {
				windowStart = now
				windowCount = 0
			}
			windowCount++
			if windowCount > s.tun.RateLimits.CmdMax {
				s.send(ctx, out, eventMsg(actionResult(cmd.ID, false, protocol.ErrRateLimit, "command rate exceeded")))
				continue
			}

			s.dispatch(ctx, sessionID, cmd, out)
		}
	}
}

// dispatch runs one command on the session goroutine and queues the results.
func (s *Server) dispatch(ctx context.Context, sessionID string, cmd protocol.CmdMsg, out chan []byte) {
	var ob engine.Outbound
	err := s.Do(ctx, func(sess *engine.Session) {
		if cmd.Op == protocol.OpSave {
			ob = s.applySave(sess, cmd)
			return
		}
		before := sess.Rev()
		ob = sess.Apply(cmd)
		if s.hooks.OnEdit != nil && sess.Rev() != before {
			s.hooks.OnEdit(cmd.Op, sess.Rev(), sessionID)
		}
	})
	if err != nil {
		return
	}

	if len(ob.Events) > 0 {
		s.send(ctx, out, protocol.EventMsg{Type: protocol.TypeEvent, ProtocolVersion: protocol.Version, Events: ob.Events})
	}
	if ob.State != nil {
		s.send(ctx, out, ob.State)
	}
	if ob.Ghost != nil {
		s.send(ctx, out, ob.Ghost)
	}
}

// applySave runs on the session goroutine. Saving is host-side persistence,
// not an edit, so it bypasses the engine dispatch entirely.
func (s *Server) applySave(sess *engine.Session, cmd protocol.CmdMsg) engine.Outbound {
	var ob engine.Outbound
	if s.hooks.Save == nil {
		ob.Events = append(ob.Events, actionResult(cmd.ID, false, protocol.ErrBadRequest, "saving disabled"))
		return ob
	}
	if err := s.hooks.Save(sess.Rev(), sess.World().Pieces(), sess.State()); err != nil {
		s.log.Printf("save failed: %v", err)
		ob.Events = append(ob.Events, actionResult(cmd.ID, false, protocol.ErrInternal, "save failed"))
		return ob
	}
	ob.Events = append(ob.Events, actionResult(cmd.ID, true, "", ""))
	return ob
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}

	sessionID = uuid.NewString()
	out = make(chan []byte, 32)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		ProjectID:       s.projectID,
		Params: protocol.SessionParams{
			GridUnit:     s.tun.GridUnit,
			MaxPieces:    s.tun.MaxPieces,
			MaxUndoDepth: s.tun.MaxUndoDepth,
			MaxGroupSize: s.tun.MaxGroupSize,
		},
		Catalogs: protocol.CatalogDigests{
			PiecePalette: protocol.DigestRef{
				Digest: s.cats.Pieces.DefsDigest,
				Count:  len(s.cats.Pieces.Palette),
			},
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", nil
	}
	if err := writeJSON(conn, pieceCatalogMsg(s.cats.Pieces)); err != nil {
		return "", nil
	}

	// Initial world state, so the client renders before its first command.
	var st *protocol.StateMsg
	_ = s.Do(context.Background(), func(sess *engine.Session) { st = sess.StateMessage() })
	if st != nil {
		if err := writeJSON(conn, st); err != nil {
			return "", nil
		}
	}

	return sessionID, out
}

func (s *Server) send(ctx context.Context, out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("marshal outbound: %v", err)
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func eventMsg(events ...protocol.Event) protocol.EventMsg {
	return protocol.EventMsg{Type: protocol.TypeEvent, ProtocolVersion: protocol.Version, Events: events}
}

func actionResult(ref string, ok bool, code, message string) protocol.Event {
	e := protocol.Event{"type": "ACTION_RESULT", "ref": ref, "ok": ok}
	if code != "" {
		e["code"] = code
	}
	if message != "" {
		e["message"] = message
	}
	return e
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
