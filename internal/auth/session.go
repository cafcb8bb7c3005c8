// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Tokens are signed with an ed25519 key pair. The "sub" claim carries the
// player's email, which is the identity used for state scoping in rooms.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	tokenTTL time.Duration
)

// Init generates a fresh ed25519 key pair at runtime. Tokens signed by a
// previous process become invalid on restart, which is acceptable here:
// players just log in again.
func Init() error {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate ed25519 key pair: %w", err)
	}
	tokenTTL = parseTokenTTL()
	return nil
}

// InitFromPath loads the ed25519 key pair from raw key files so that tokens
// survive restarts.
func InitFromPath(privatePath, publicPath string) error {
	priv, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("read private key: %w", err)
	}
	pub, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	privateKey = ed25519.PrivateKey(priv)
	publicKey = ed25519.PublicKey(pub)
	tokenTTL = parseTokenTTL()
	return nil
}

// parseTokenTTL reads TOKEN_EXPIRE_TIME ("never", "0", or a Go duration).
// Zero means tokens never expire.
func parseTokenTTL() time.Duration {
	v := os.Getenv("TOKEN_EXPIRE_TIME")
	if v == "" || v == "never" || v == "0" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// CreateToken signs a JWT whose subject is the given email.
func CreateToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"sub": email,
	}
	if tokenTTL > 0 {
		claims["exp"] = time.Now().Add(tokenTTL).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// VerifyToken checks the signature and expiry and returns the email subject.
func VerifyToken(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	email, ok := claims["sub"].(string)
	if !ok || email == "" {
		return "", fmt.Errorf("missing sub claim")
	}
	return email, nil
}
