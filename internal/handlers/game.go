// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mkrivenko/pokerroom/internal/engine"
)

type createGameRequest struct {
	Name        string `json:"name"`
	MaxPlayers  int    `json:"max_players"`
	MaxTurnTime int    `json:"max_turn_time"`
	BigBlind    int64  `json:"big_blind"`
	MinStack    int64  `json:"min_stack"`
	MaxStack    int64  `json:"max_stack"`
}

type joinGameRequest struct {
	Email string `json:"email"`
	BuyIn int64  `json:"buy_in"`
}

// CreateGame creates a new table with schema defaults for omitted options.
func (s *Server) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "game name is required")
		return
	}

	opts := engine.DefaultRoomOptions()
	if req.MaxPlayers > 0 {
		opts.MaxPlayers = req.MaxPlayers
	}
	if req.MaxTurnTime > 0 {
		opts.MaxTurnTime = req.MaxTurnTime
	}
	if req.BigBlind > 0 {
		opts.BigBlind = req.BigBlind
	}
	if req.MinStack > 0 {
		opts.MinStack = req.MinStack
	}
	if req.MaxStack > 0 {
		opts.MaxStack = req.MaxStack
	}

	gameID, err := s.Eng.CreateRoom(r.Context(), req.Name, opts)
	if err != nil {
		s.Log.Warnf("create game %q: %v", req.Name, err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "game_id": gameID})
}

// ListGames returns the engine's joinable-table listing verbatim.
func (s *Server) ListGames(w http.ResponseWriter, r *http.Request) {
	raw, err := s.Eng.ListRooms(r.Context())
	if err != nil {
		s.Log.Warnf("list games: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list games")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if len(raw) == 0 {
		_, _ = w.Write([]byte("[]"))
		return
	}
	_, _ = w.Write(raw)
}

// GameState returns a snapshot redacted for the requesting viewer. Requests
// without a valid identity get the public snapshot.
func (s *Server) GameState(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.gameID(w, r)
	if !ok {
		return
	}
	viewer := s.identityFromRequest(r)
	snap, err := s.Eng.Snapshot(r.Context(), gameID, viewer)
	if err != nil {
		s.Log.Warnf("game state %s: %v", gameID, err)
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(snap)
}

// StartGame begins play and pushes the new state to connected clients.
func (s *Server) StartGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.gameID(w, r)
	if !ok {
		return
	}
	if err := s.Eng.StartRound(r.Context(), gameID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Hub.PushRoom(r.Context(), gameID)
	s.Hub.ArmRoom(r.Context(), gameID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// JoinGame seats the player immediately when no round is in progress, or
// queues the request for admission at the next round boundary.
func (s *Server) JoinGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.gameID(w, r)
	if !ok {
		return
	}
	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Email == "" || req.BuyIn <= 0 {
		writeError(w, http.StatusBadRequest, "email and buy_in are required")
		return
	}

	queued, err := s.Hub.JoinOrEnqueue(r.Context(), gameID, req.Email, req.BuyIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "queued": queued})
}

// LeaveGame removes a player's seat, then refreshes state and the turn clock,
// since the departing player may have held the turn.
func (s *Server) LeaveGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.gameID(w, r)
	if !ok {
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			email = req.Email
		}
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := s.Eng.Leave(r.Context(), gameID, email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Hub.PushRoom(r.Context(), gameID)
	s.Hub.ArmRoom(r.Context(), gameID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// PlayerAction applies a betting action for a seat, then pushes the updated
// state and re-arms the clock for the next actor.
func (s *Server) PlayerAction(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuid.Parse(r.PathValue("player_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player_id")
		return
	}

	var kind engine.ActionKind
	switch r.PathValue("action") {
	case "fold":
		kind = engine.ActionFold
	case "check":
		kind = engine.ActionCheck
	case "call":
		kind = engine.ActionCall
	case "raise":
		kind = engine.ActionRaise
	case "all-in":
		kind = engine.ActionAllIn
	case "replace":
		kind = engine.ActionReplace
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}

	var amount int64
	if kind == engine.ActionRaise {
		var req struct {
			RaiseAmount int64 `json:"raise_amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RaiseAmount <= 0 {
			writeError(w, http.StatusBadRequest, "raise amount is required")
			return
		}
		amount = req.RaiseAmount
	}

	if err := s.Eng.Action(r.Context(), playerID, kind, amount); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if roomID, err := s.Eng.RoomOfSeat(r.Context(), playerID); err == nil {
		s.Hub.PushRoom(r.Context(), roomID)
		s.Hub.ArmRoom(r.Context(), roomID)
	} else {
		s.Log.Warnf("resolve room for seat %s: %v", playerID, err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ReplaceCards exchanges the listed cards during the draw phase. An empty
// or absent list stands pat.
func (s *Server) ReplaceCards(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuid.Parse(r.PathValue("player_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player_id")
		return
	}

	var req struct {
		CardIDs []uuid.UUID `json:"card_ids_to_discard"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := s.Eng.ReplaceCards(r.Context(), playerID, req.CardIDs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if roomID, err := s.Eng.RoomOfSeat(r.Context(), playerID); err == nil {
		s.Hub.PushRoom(r.Context(), roomID)
		s.Hub.ArmRoom(r.Context(), roomID)
	} else {
		s.Log.Warnf("resolve room for seat %s: %v", playerID, err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// DeleteGame removes a table and pushes the idle state to any viewers still
// attached.
func (s *Server) DeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := s.gameID(w, r)
	if !ok {
		return
	}
	if err := s.Eng.DeleteRoom(r.Context(), gameID); err != nil {
		if errors.Is(err, engine.ErrNoRoom) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		s.Log.Warnf("delete game %s: %v", gameID, err)
		writeError(w, http.StatusInternalServerError, "failed to delete game")
		return
	}
	// With the seats gone the rearm stops the room and broadcasts idle state.
	s.Hub.ArmRoom(r.Context(), gameID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "game_id": gameID})
}

// gameID parses the game_id path segment, writing a 400 on failure.
func (s *Server) gameID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("game_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid game_id")
		return uuid.Nil, false
	}
	return id, true
}

// identityFromRequest resolves the caller's identity from a session token or,
// failing that, an email hint checked against the identity store. Any failure
// degrades to the anonymous (public) identity.
func (s *Server) identityFromRequest(r *http.Request) string {
	token := extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	if token == "" {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		}
	}
	if token != "" {
		if email, err := s.verifyToken(token); err == nil {
			return email
		}
	}

	if email := r.URL.Query().Get("email"); email != "" {
		ok, err := s.Users.Exists(r.Context(), email)
		if err == nil && ok {
			return email
		}
	}
	return ""
}
