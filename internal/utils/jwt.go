package utils // package utils provides helpers for session tokens and image handling

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/event-hub/internal/model"
)

// SessionToken is a signed HS256 JWT carrying the logged-in user's identity.
// It travels in an HttpOnly cookie rather than an Authorization header
// because the login flow ends with a browser redirect.
type SessionToken struct {
	Token string
	Exp   time.Time
}

type sessionClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// ErrInvalidSession covers malformed, expired and badly signed tokens.
var ErrInvalidSession = errors.New("invalid session token")

// NewSessionToken signs a token for u that expires after ttl.
func NewSessionToken(secret string, u model.User, ttl time.Duration) (SessionToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := sessionClaims{
		Email:   u.Email,
		Name:    u.Name,
		Picture: u.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, Exp: exp}, nil
}

// ParseSessionToken verifies raw and returns the user it was issued for.
func ParseSessionToken(secret, raw string) (model.User, error) {
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid || claims.Email == "" {
		return model.User{}, ErrInvalidSession
	}
	return model.User{ID: claims.Subject, Email: claims.Email, Name: claims.Name, Picture: claims.Picture}, nil
}

// RandomHex returns n bytes of crypto-random data hex encoded.  Used for the
// OAuth state parameter.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
