package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"hegemon.sim/internal/protocol"
	"hegemon.sim/internal/sim/engine"
)

type Server struct {
	engine *engine.Engine
	hub    *Hub
	log    *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(eng *engine.Engine, hub *Hub, logger *log.Logger) *Server {
	return &Server{
		engine: eng,
		hub:    hub,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Handler upgrades the connection, expects a SUBSCRIBE handshake, then
// streams turn frames while accepting ORDER/CANCEL envelopes.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.handshake(conn) {
			return
		}

		id, out := s.hub.Attach(16)
		defer s.hub.Detach(id)

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

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeOrder:
				s.handleOrder(out, msg)
			case protocol.TypeCancel:
				s.handleCancel(out, msg)
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) bool {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return false
	}
	var sub protocol.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil || sub.Type != protocol.TypeSubscribe {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"),
			time.Now().Add(time.Second))
		return false
	}
	if sub.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return false
	}
	return true
}

func (s *Server) handleOrder(out chan []byte, raw []byte) {
	msg, err := protocol.ValidateOrder(raw)
	if err != nil {
		s.replyJSON(out, protocol.RejectMsg{
			Type: protocol.TypeReject, Code: protocol.ErrOrderMalformed, Reason: err.Error(),
		})
		return
	}
	if rej := s.engine.SubmitOrder(msg); rej != nil {
		s.replyJSON(out, protocol.RejectMsg{
			Type: protocol.TypeReject, FactionID: msg.FactionID, Tick: msg.Tick,
			Code: rej.Code, Reason: rej.Reason,
		})
		return
	}
	s.replyJSON(out, protocol.AckMsg{Type: protocol.TypeAck, FactionID: msg.FactionID, Tick: msg.Tick})
}

func (s *Server) handleCancel(out chan []byte, raw []byte) {
	var msg protocol.CancelMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if s.engine.CancelOrder(msg.FactionID, msg.Tick) {
		s.replyJSON(out, protocol.AckMsg{Type: protocol.TypeAck, FactionID: msg.FactionID, Tick: msg.Tick})
		return
	}
	s.replyJSON(out, protocol.RejectMsg{
		Type: protocol.TypeReject, FactionID: msg.FactionID, Tick: msg.Tick,
		Code: protocol.ErrOrderLate, Reason: "no cancellable order",
	})
}

// replyJSON puts a control reply on the subscriber's own queue so it is
// ordered with the broadcast stream.
func (s *Server) replyJSON(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
		// Queue full; the client is lagging and loses the reply.
	}
}
