package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"brickyard/internal/protocol"
	"brickyard/internal/sim/catalogs"
	"brickyard/internal/sim/engine"
	"brickyard/internal/sim/tuning"
)

func testServer(t *testing.T, hooks Hooks) (*Server, *httptest.Server) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tun := tuning.Default()
	sess := engine.NewSession(cats, tun)
	srv := NewServer(sess, cats, tun, "proj_test", hooks, log.New(os.Stderr, "[test] ", 0))

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) (protocol.BaseMessage, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode %q: %v", b, err)
	}
	return base, b
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func handshakeClient(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test",
	})

	base, b := readMsg(t, conn)
	if base.Type != protocol.TypeWelcome {
		t.Fatalf("first message = %s, want WELCOME", base.Type)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(b, &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}

	base, b = readMsg(t, conn)
	if base.Type != protocol.TypeCatalog {
		t.Fatalf("second message = %s, want CATALOG", base.Type)
	}
	var cat protocol.CatalogMsg
	if err := json.Unmarshal(b, &cat); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if cat.Name != "piece_palette" || cat.Digest != welcome.Catalogs.PiecePalette.Digest {
		t.Fatalf("catalog = name %q digest %q", cat.Name, cat.Digest)
	}

	base, _ = readMsg(t, conn)
	if base.Type != protocol.TypeState {
		t.Fatalf("third message = %s, want STATE", base.Type)
	}
	return welcome
}

func TestHandshakeAndPlace(t *testing.T) {
	_, ts := testServer(t, Hooks{})
	conn := dial(t, ts)
	welcome := handshakeClient(t, conn)

	if welcome.SessionID == "" || welcome.ProjectID != "proj_test" {
		t.Fatalf("welcome = %+v", welcome)
	}
	if welcome.Params.GridUnit != 1.0 {
		t.Fatalf("grid unit = %v", welcome.Params.GridUnit)
	}

	sendJSON(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "c1",
		Op:              protocol.OpPlace,
		PieceType:       "brick_2x4",
		Point:           &[2]float64{0.3, -0.2},
	})

	base, b := readMsg(t, conn)
	if base.Type != protocol.TypeEvent {
		t.Fatalf("got %s, want EVENT", base.Type)
	}
	var ev protocol.EventMsg
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	if len(ev.Events) == 0 || ev.Events[0]["ok"] != true || ev.Events[0]["ref"] != "c1" {
		t.Fatalf("events = %+v", ev.Events)
	}

	base, b = readMsg(t, conn)
	if base.Type != protocol.TypeState {
		t.Fatalf("got %s, want STATE", base.Type)
	}
	var st protocol.StateMsg
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.Rev != 1 || len(st.Pieces) != 1 || st.Pieces[0].PieceType != "brick_2x4" {
		t.Fatalf("state = rev %d pieces %+v", st.Rev, st.Pieces)
	}
}

func TestHandshakeRejectsBadVersion(t *testing.T) {
	_, ts := testServer(t, Hooks{})
	conn := dial(t, ts)

	sendJSON(t, conn, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: "0.1",
		ClientName:      "test",
	})

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("err = %v, want policy violation close", err)
	}
}

func TestCmdBadVersionGetsEvent(t *testing.T) {
	_, ts := testServer(t, Hooks{})
	conn := dial(t, ts)
	handshakeClient(t, conn)

	sendJSON(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: "0.1",
		ID:              "c1",
		Op:              protocol.OpPlace,
	})

	base, b := readMsg(t, conn)
	if base.Type != protocol.TypeEvent {
		t.Fatalf("got %s, want EVENT", base.Type)
	}
	var ev protocol.EventMsg
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	if len(ev.Events) == 0 || ev.Events[0]["code"] != protocol.ErrProtoBadRequest {
		t.Fatalf("events = %+v", ev.Events)
	}
}

func TestSaveCommand(t *testing.T) {
	saved := make(chan uint64, 1)
	hooks := Hooks{
		Save: func(rev uint64, pieces []engine.Piece, st engine.SessionState) error {
			saved <- rev
			return nil
		},
	}
	_, ts := testServer(t, hooks)
	conn := dial(t, ts)
	handshakeClient(t, conn)

	sendJSON(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "s1",
		Op:              protocol.OpSave,
	})

	base, b := readMsg(t, conn)
	if base.Type != protocol.TypeEvent {
		t.Fatalf("got %s, want EVENT", base.Type)
	}
	var ev protocol.EventMsg
	if err := json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	if len(ev.Events) == 0 || ev.Events[0]["ok"] != true {
		t.Fatalf("events = %+v", ev.Events)
	}
	select {
	case rev := <-saved:
		if rev != 0 {
			t.Fatalf("saved rev = %d", rev)
		}
	case <-time.After(time.Second):
		t.Fatalf("save hook not called")
	}
}

func TestOnEditFiresOnlyOnCommit(t *testing.T) {
	edits := make(chan string, 8)
	hooks := Hooks{
		OnEdit: func(op string, rev uint64, sessionID string) { edits <- op },
	}
	_, ts := testServer(t, hooks)
	conn := dial(t, ts)
	handshakeClient(t, conn)

	// HOVER previews only; it must not reach the edit log.
	sendJSON(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "h1",
		Op:              protocol.OpHover,
		PieceType:       "brick_2x4",
		Point:           &[2]float64{0, 0},
	})
	sendJSON(t, conn, protocol.CmdMsg{
		Type:            protocol.TypeCmd,
		ProtocolVersion: protocol.Version,
		ID:              "p1",
		Op:              protocol.OpPlace,
		PieceType:       "brick_2x4",
		Point:           &[2]float64{0, 0},
	})

	select {
	case op := <-edits:
		if op != protocol.OpPlace {
			t.Fatalf("first edit op = %s", op)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("edit hook not called")
	}
}
