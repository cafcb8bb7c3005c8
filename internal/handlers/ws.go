// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mkrivenko/pokerroom/internal/middleware"
	"github.com/mkrivenko/pokerroom/internal/room"
)

// RoomSocket upgrades the connection and attaches it to a room. The identity
// hint from the query string is verified before it grants a redacted view;
// connections with a missing or invalid hint are served as anonymous
// spectators receiving public snapshots only.
func (s *Server) RoomSocket(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("game_id"))
	if err != nil {
		http.Error(w, "invalid game_id", http.StatusBadRequest)
		return
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Log.Warnf("websocket accept for room %s: %v", gameID, err)
		return
	}
	defer sock.Close(websocket.StatusInternalError, "handler exit")

	identity := s.socketIdentity(r)
	middleware.LogSocketConnect(s.Log, r.RemoteAddr, gameID.String(), identity)

	conn := room.NewConn(sock, identity)
	rm := s.Hub.Attach(r.Context(), gameID, conn)

	readErr := s.readSocket(r.Context(), sock, conn)

	s.Hub.Detach(context.Background(), rm, conn)
	middleware.LogSocketDisconnect(s.Log, r.RemoteAddr, gameID.String(), readErr)
	sock.Close(websocket.StatusNormalClosure, "")
}

// readSocket drains client messages until the connection closes. Game
// actions arrive over HTTP, not the socket, so inbound traffic is limited
// to pings; everything else is ignored.
func (s *Server) readSocket(ctx context.Context, sock *websocket.Conn, conn *room.Conn) error {
	for {
		msgType, data, err := sock.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			pong, _ := json.Marshal(map[string]string{"type": "pong"})
			_ = conn.Write(ctx, pong)
		}
	}
}

// socketIdentity resolves the connection's identity hint. A signed token
// wins; a bare email hint must exist in the identity store. Failures fall
// back to anonymous.
func (s *Server) socketIdentity(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		if email, err := s.verifyToken(token); err == nil {
			return email
		}
		s.Log.Debugf("socket token rejected from %s", r.RemoteAddr)
	}
	if email := r.URL.Query().Get("email"); email != "" {
		ok, err := s.Users.Exists(r.Context(), email)
		if err != nil {
			s.Log.Warnf("identity lookup for %s: %v", email, err)
			return ""
		}
		if ok {
			return email
		}
	}
	return ""
}
