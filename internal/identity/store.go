// internal/identity/store.go
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrBadCredentials is returned when an email/password pair does not match.
var ErrBadCredentials = errors.New("invalid email or password")

// User is a registered account. The email doubles as the player identity
// used for state scoping in live rooms.
type User struct {
	ID       uuid.UUID
	Email    string
	Username string
	Balance  int64
}

// Store verifies and persists player accounts. Connection identity hints
// are checked against it; hints that fail the check degrade to anonymous.
type Store interface {
	Create(ctx context.Context, email, username, password string) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	Exists(ctx context.Context, email string) (bool, error)
}

// PG is the Postgres-backed Store.
type PG struct {
	pool *pgxpool.Pool
}

// NewPG wraps an existing pool. The pool is shared with the rules engine.
func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

// Create registers a new user with an Argon2id password hash.
func (s *PG) Create(ctx context.Context, email, username, password string) (*User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{Email: email, Username: username}
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO users (email, username, password)
			VALUES ($1, $2, $3)
			RETURNING id, balance
		`, email, username, hash).Scan(&u.ID, &u.Balance)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate looks up the user by email and verifies the password.
func (s *PG) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u := &User{Email: email}
	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password, balance
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Username, &hash, &u.Balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := verifyPassword(password, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// Exists reports whether an account with the given email is registered.
func (s *PG) Exists(ctx context.Context, email string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM users WHERE email = $1`, email).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
