package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Session is a signed token together with the instant it stops being valid.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Sessions issues and verifies HS256 session tokens. A token is valid while
// the current time is strictly before its expiry.
type Sessions struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewSessions(secret string, lifetime time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), lifetime: lifetime, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	s.now = now
	return s
}

func (s *Sessions) Lifetime() time.Duration { return s.lifetime }

func (s *Sessions) Issue(userID string) (Session, error) {
	issuedAt := s.now().Truncate(jwt.TimePrecision)
	expiresAt := issuedAt.Add(s.lifetime)

	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Sessions) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !tok.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
