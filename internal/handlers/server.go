// internal/handlers/server.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mkrivenko/pokerroom/internal/engine"
	"github.com/mkrivenko/pokerroom/internal/identity"
	"github.com/mkrivenko/pokerroom/internal/room"
)

// Server bundles the dependencies the HTTP and websocket handlers share.
type Server struct {
	Log   *logrus.Logger
	Hub   *room.Hub
	Eng   engine.Engine
	Users identity.Store
}

// NewServer constructs a handler server.
func NewServer(log *logrus.Logger, hub *room.Hub, eng engine.Engine, users identity.Store) *Server {
	return &Server{Log: log, Hub: hub, Eng: eng, Users: users}
}

// Routes registers all HTTP routes on the given mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/users/register", s.RegisterUser)
	mux.HandleFunc("POST /api/users/login", s.LoginUser)

	mux.HandleFunc("POST /api/games", s.CreateGame)
	mux.HandleFunc("GET /api/games", s.ListGames)
	mux.HandleFunc("GET /api/games/{game_id}", s.GameState)
	mux.HandleFunc("POST /api/games/{game_id}/start", s.StartGame)
	mux.HandleFunc("POST /api/games/{game_id}/join", s.JoinGame)
	mux.HandleFunc("POST /api/games/{game_id}/leave", s.LeaveGame)
	mux.HandleFunc("DELETE /api/games/{game_id}", s.DeleteGame)
	mux.HandleFunc("POST /api/games/players/{player_id}/actions/{action}", s.PlayerAction)
	mux.HandleFunc("POST /api/games/players/{player_id}/replace-cards", s.ReplaceCards)

	mux.HandleFunc("/ws/{game_id}", s.RoomSocket)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {success:false, error} envelope the clients expect.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

// extractCookieToken pulls a named cookie value out of a raw Cookie header.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}
