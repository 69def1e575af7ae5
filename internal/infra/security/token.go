package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenRequired = errors.New("token: token is required")
	ErrTokenInvalid  = errors.New("token: invalid or expired token")
)

// SessionClaims is the payload carried by a signed session token: the
// authenticated user's id and display name, which the realtime gateway
// needs without a database round trip.
type SessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens.
type TokenManager struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{Secret: []byte(secret), TTL: ttl, Issuer: "paperhub"}, nil
}

// Issue signs a session token for the given user.
func (m *TokenManager) Issue(userID, name string) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.Secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning the user id
// and display name it carries.
func (m *TokenManager) Verify(raw string) (userID, name string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrTokenRequired
	}
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("token: unexpected signing method %q", t.Method.Alg())
		}
		return m.Secret, nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", "", ErrTokenInvalid
	}
	return claims.Subject, claims.Name, nil
}
