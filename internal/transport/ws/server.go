package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"idlecraft.ai/internal/protocol"
	"idlecraft.ai/internal/sim/game"
)

var attachTimeout = 5 * time.Second

// Game is the loop side of a view session.
type Game interface {
	Inbox() chan<- game.Command
	Attach() chan<- game.AttachRequest
	Detach() chan<- string
}

type Server struct {
	game        Game
	allowRemote bool
	log         *log.Logger

	upgrader websocket.Upgrader
}

// NewServer serves views on loopback only unless allowRemote is set.
func NewServer(g Game, allowRemote bool, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Server{
		game:        g,
		allowRemote: allowRemote,
		log:         logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowRemote && !isLoopbackAddr(r.RemoteAddr) {
			http.Error(rw, "views are served on loopback only", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID, out := s.handshake(conn)
		if sessionID == "" {
			return
		}
		defer s.detach(sessionID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		results := make(chan protocol.ResultMsg, cap(out))

		// Writer goroutine.
		go func() {
			for {
				var b []byte
				select {
				case <-ctx.Done():
					return
				case res := <-results:
					enc, err := json.Marshal(res)
					if err != nil {
						continue
					}
					b = enc
				case ev, ok := <-out:
					if !ok {
						return
					}
					b = ev
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			act, rej := decodeAct(msg)
			if rej != nil {
				select {
				case results <- *rej:
				default:
				}
				continue
			}
			select {
			case s.game.Inbox() <- game.Command{Act: act, Resp: results}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func decodeAct(msg []byte) (protocol.ActMsg, *protocol.ResultMsg) {
	reject := func(actID, cmd, message string) *protocol.ResultMsg {
		return &protocol.ResultMsg{
			Type:    protocol.TypeResult,
			ActID:   actID,
			Cmd:     cmd,
			Code:    protocol.ErrProtoBadRequest,
			Reason:  protocol.ReasonInvalidRequest,
			Message: message,
		}
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.ActMsg{}, reject("", "", "malformed message")
	}
	if base.Type != protocol.TypeAct {
		return protocol.ActMsg{}, reject("", "", "expected ACT, got "+base.Type)
	}
	var act protocol.ActMsg
	if err := json.Unmarshal(msg, &act); err != nil {
		return protocol.ActMsg{}, reject("", "", "malformed ACT")
	}
	if act.ProtocolVersion != protocol.Version {
		return act, reject(act.ActID, act.Cmd, "bad protocol_version")
	}
	return act, nil
}

func (s *Server) handshake(conn *websocket.Conn) (sessionID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 32
	}
	if maxQ > 256 {
		maxQ = 256
	}
	out = make(chan []byte, maxQ)

	sessionID = uuid.NewString()
	respCh := make(chan protocol.WelcomeMsg, 1)
	select {
	case s.game.Attach() <- game.AttachRequest{SessionID: sessionID, Out: out, Resp: respCh}:
	case <-time.After(attachTimeout):
		closeWith(conn, "game not running")
		return "", nil
	}
	var welcome protocol.WelcomeMsg
	select {
	case welcome = <-respCh:
	case <-time.After(attachTimeout):
		s.detach(sessionID)
		closeWith(conn, "game not running")
		return "", nil
	}

	if err := writeJSON(conn, welcome); err != nil {
		s.detach(sessionID)
		return "", nil
	}
	s.log.Printf("ws: view %s attached (client=%q)", sessionID, hello.ClientName)
	return sessionID, out
}

// detach gives up after a second when the loop has already stopped.
func (s *Server) detach(sessionID string) {
	select {
	case s.game.Detach() <- sessionID:
		s.log.Printf("ws: view %s detached", sessionID)
	case <-time.After(time.Second):
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.allowRemote {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return isLoopbackHost(u.Hostname())
}

func isLoopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return isLoopbackHost(host)
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
