package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/game"
	"idlecraft.ai/internal/sim/gametest"
)

func startServer(t *testing.T) string {
	t.Helper()
	h := gametest.NewHarness(t, gametest.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.G.Run(ctx) }()
	srv := httptest.NewServer(NewServer(h.G, false, nil).Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil returns the first message of the given type.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read %s: %v", typ, err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if base.Type == typ {
			return msg
		}
	}
}

func hello() protocol.HelloMsg {
	return protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"}
}

func TestSession_HelloActResult(t *testing.T) {
	conn := dial(t, startServer(t))
	send(t, conn, hello())

	var welcome struct {
		SessionID  string              `json:"session_id"`
		GameParams protocol.GameParams `json:"game_params"`
		Player     struct {
			Inventory []json.RawMessage `json:"inventory"`
		} `json:"player"`
	}
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeWelcome), &welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.SessionID == "" || welcome.GameParams.InventorySize != 10 || len(welcome.Player.Inventory) != 1 {
		t.Fatalf("welcome: %+v", welcome)
	}

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: protocol.Version, ActID: "A1", Cmd: protocol.CmdStartGathering, NodeID: "node_copperRock"})

	// The actionStarted notification is published while the command runs, so
	// it may arrive before the RESULT.
	var res *protocol.ResultMsg
	var started *protocol.EventMsg
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for res == nil || started == nil {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, _ := protocol.DecodeBase(msg)
		switch base.Type {
		case protocol.TypeResult:
			res = &protocol.ResultMsg{}
			if err := json.Unmarshal(msg, res); err != nil {
				t.Fatalf("result: %v", err)
			}
		case protocol.TypeEvent:
			var ev protocol.EventMsg
			if err := json.Unmarshal(msg, &ev); err != nil {
				t.Fatalf("event: %v", err)
			}
			if ev.Event == "actionStarted" {
				started = &ev
			}
		}
	}
	if !res.OK || res.ActID != "A1" || res.Outcome != "started" {
		t.Fatalf("result: %+v", res)
	}
	if started.Seq == 0 {
		t.Fatalf("event: %+v", started)
	}
}

func TestSession_RejectsBadAct(t *testing.T) {
	conn := dial(t, startServer(t))
	send(t, conn, hello())
	readUntil(t, conn, protocol.TypeWelcome)

	send(t, conn, protocol.ActMsg{Type: protocol.TypeAct, ProtocolVersion: "0.1", ActID: "A9", Cmd: protocol.CmdSave})
	var res protocol.ResultMsg
	if err := json.Unmarshal(readUntil(t, conn, protocol.TypeResult), &res); err != nil {
		t.Fatalf("result: %v", err)
	}
	if res.OK || res.Code != protocol.ErrProtoBadRequest || res.ActID != "A9" {
		t.Fatalf("result: %+v", res)
	}
}

func TestHandshake_RequiresHello(t *testing.T) {
	conn := dial(t, startServer(t))
	send(t, conn, map[string]string{"type": protocol.TypeAct, "protocol_version": protocol.Version})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

// stoppedGame never services its channels.
type stoppedGame struct{}

func (stoppedGame) Inbox() chan<- game.Command        { return make(chan game.Command) }
func (stoppedGame) Attach() chan<- game.AttachRequest { return make(chan game.AttachRequest) }
func (stoppedGame) Detach() chan<- string             { return make(chan string) }

func TestHandshake_GivesUpWhenGameStopped(t *testing.T) {
	prev := attachTimeout
	attachTimeout = 50 * time.Millisecond
	t.Cleanup(func() { attachTimeout = prev })

	srv := httptest.NewServer(NewServer(stoppedGame{}, false, nil).Handler())
	t.Cleanup(srv.Close)
	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	send(t, conn, hello())

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestCheckOrigin(t *testing.T) {
	s := NewServer(nil, false, nil)
	cases := map[string]bool{
		"":                       true,
		"http://localhost:8080":  true,
		"http://127.0.0.1:3000":  true,
		"http://[::1]:3000":      true,
		"https://evil.example":   false,
		"http://192.168.1.10:80": false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := s.checkOrigin(r); got != want {
			t.Fatalf("origin %q: got %v want %v", origin, got, want)
		}
	}

	remote := NewServer(nil, true, nil)
	r := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
	r.Header.Set("Origin", "https://evil.example")
	if !remote.checkOrigin(r) {
		t.Fatalf("remote views should accept any origin")
	}
}

func TestLoopbackAddr(t *testing.T) {
	if !isLoopbackAddr("127.0.0.1:5555") || !isLoopbackAddr("[::1]:80") {
		t.Fatalf("expected loopback")
	}
	if isLoopbackAddr("10.0.0.2:5555") {
		t.Fatalf("expected non-loopback")
	}
}
