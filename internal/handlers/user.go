// internal/handlers/user.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mkrivenko/pokerroom/internal/auth"
	"github.com/mkrivenko/pokerroom/internal/identity"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Success  bool   `json:"success"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Balance  int64  `json:"balance"`
	Token    string `json:"token"`
}

// RegisterUser creates an account and returns a signed session token.
func (s *Server) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if req.Username == "" {
		req.Username = req.Email
	}

	u, err := s.Users.Create(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.Log.Warnf("register user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	s.issueSession(w, u)
}

// LoginUser verifies credentials and returns a signed session token.
func (s *Server) LoginUser(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	u, err := s.Users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrBadCredentials) {
		writeError(w, http.StatusForbidden, "invalid email or password")
		return
	}
	if err != nil {
		s.Log.Warnf("login user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.issueSession(w, u)
}

func (s *Server) verifyToken(token string) (string, error) {
	return auth.VerifyToken(token)
}

func (s *Server) issueSession(w http.ResponseWriter, u *identity.User) {
	token, err := auth.CreateToken(u.Email)
	if err != nil {
		s.Log.Errorf("sign token for %s: %v", u.Email, err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, sessionResponse{
		Success:  true,
		Email:    u.Email,
		Username: u.Username,
		Balance:  u.Balance,
		Token:    token,
	})
}
