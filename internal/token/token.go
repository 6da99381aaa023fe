// Package token mints and verifies the signed session credential carried in
// the auth-token cookie. Verification is stateless: there is no server-side
// session table and no revocation list, so a token stays valid until expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: malformed input, wrong
// signature, wrong algorithm, expiry. Callers treat it as "not
// authenticated", which is a normal outcome, not a server error.
var ErrInvalidToken = errors.New("invalid or expired session token")

// Claims is the minimal identity carried by a session token.
type Claims struct {
	UserID string
	Email  string
	Name   string
}

type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the clock used for both minting and expiry checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// TTL reports the configured session lifetime, which the gateway mirrors in
// the cookie Max-Age.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

func (s *Service) Mint(c Claims) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   c.UserID,
		"email": c.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}
	if c.Name != "" {
		claims["name"] = c.Name
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) Verify(raw string) (*Claims, error) {
	parsed, err := jwt.Parse(raw,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	return &Claims{UserID: sub, Email: email, Name: name}, nil
}
