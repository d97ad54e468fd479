package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"live-docs/auth"
	"live-docs/domain/event"
	"live-docs/errors"
	"live-docs/runtime"
)

// Server upgrades HTTP requests to collaboration connections and pumps
// inbound frames into the hub. Identity is asserted once, at upgrade time,
// from the JWT; it is immutable for the connection's lifetime.
type Server struct {
	log        *slog.Logger
	hub        *runtime.Hub
	bufferSize int
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, hub *runtime.Hub, bufferSize int) *Server {
	return &Server{
		log:        log,
		hub:        hub,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The editor client is served from its own origin in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP authenticates the caller, upgrades the connection and runs the
// read loop until the peer goes away. Disconnect cleanup happens exactly
// once, whether the peer left explicitly beforehand or not.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := newConn(wsConn, claims.UserID, claims.Username, s.bufferSize, s.log)
	s.log.Info("connection opened", "socket_id", conn.ID(), "user_id", conn.userID)

	go conn.writePump()
	s.readLoop(conn)

	// Transport disconnect is a normal lifecycle transition, never an error.
	s.hub.Disconnect(context.Background(), conn.ID())
	conn.close()
	s.log.Info("connection closed", "socket_id", conn.ID(), "user_id", conn.userID)
}

func (s *Server) authenticate(r *http.Request) (*auth.CustomClaims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if cookie, err := r.Cookie("jwt"); err == nil {
			token = cookie.Value
		}
	}
	return auth.ValidateToken(token)
}

func (s *Server) readLoop(conn *Conn) {
	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("unexpected close", "socket_id", conn.ID(), "error", err)
			}
			return
		}

		var envelope event.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			s.log.Warn("dropping malformed frame", "socket_id", conn.ID(), "error", err)
			continue
		}
		s.dispatch(conn, envelope)
	}
}

// dispatch validates the payload at the boundary and routes it to the hub.
// Malformed or incomplete requests are dropped with a warning; the
// connection remains usable.
func (s *Server) dispatch(conn *Conn, envelope event.Envelope) {
	ctx := context.Background()

	switch envelope.Type {
	case event.TypeJoinDocument:
		var req event.JoinDocument
		if err := event.Decode(envelope.Payload, &req); err != nil {
			s.log.Warn("invalid join-document request", "socket_id", conn.ID(), "error", err)
			return
		}
		// The connection identity was asserted at upgrade time; a join
		// claiming someone else is dropped, not propagated.
		if req.User.ID != conn.userID {
			s.log.Warn("dropping join-document",
				"socket_id", conn.ID(),
				"asserted", conn.userID,
				"claimed", req.User.ID,
				"error", errors.ErrIdentityMismatch)
			return
		}
		s.hub.Join(ctx, conn, req)

	case event.TypeLeaveDocument:
		var req event.LeaveDocument
		if err := event.Decode(envelope.Payload, &req); err != nil {
			s.log.Warn("invalid leave-document request", "socket_id", conn.ID(), "error", err)
			return
		}
		if req.User.ID == "" {
			req.User.ID = conn.userID
		}
		s.hub.Leave(ctx, conn.ID(), req)

	case event.TypeTextChange:
		var req event.TextChange
		if err := event.Decode(envelope.Payload, &req); err != nil {
			s.log.Warn("invalid text-change", "socket_id", conn.ID(), "error", err)
			return
		}
		s.hub.RelayChange(ctx, conn.ID(), req)

	case event.TypeCursorMove:
		var req event.CursorMove
		if err := event.Decode(envelope.Payload, &req); err != nil {
			s.log.Warn("invalid cursor-move", "socket_id", conn.ID(), "error", err)
			return
		}
		s.hub.RelayCursor(ctx, conn.ID(), req)

	case event.TypeSaveDocument:
		var req event.SaveDocument
		if err := event.Decode(envelope.Payload, &req); err != nil {
			s.log.Warn("invalid save-document", "socket_id", conn.ID(), "error", err)
			return
		}
		s.hub.Save(ctx, conn, req)

	default:
		s.log.Warn("unknown event type", "socket_id", conn.ID(), "type", envelope.Type)
	}
}
