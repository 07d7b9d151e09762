// Package auth issues and verifies the signed session tokens handed out by
// the identity service and checked by the gateway.
//
// Tokens are HS256 JWTs. Verification is a pure function of the token, the
// shared secret and the clock; there is no server-side revocation state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultIssuer   = "platform"
	DefaultValidity = 24 * time.Hour
)

var ErrEmptySubject = errors.New("token subject must not be empty")

// Identity is the claim set a token is issued for.
type Identity struct {
	ID       string
	Username string
}

// Claims are the registered JWT claims plus the identity id.
// Subject carries the username.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid,omitempty"`
}

type TokenService struct {
	secret   []byte
	issuer   string
	validity time.Duration
	now      func() time.Time
}

type Option func(*TokenService)

// WithClock replaces time.Now, used for both issuing and verifying.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService builds a service around an explicit secret. Empty issuer
// and zero validity fall back to DefaultIssuer and DefaultValidity.
func NewTokenService(secret []byte, issuer string, validity time.Duration, opts ...Option) *TokenService {
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if validity <= 0 {
		validity = DefaultValidity
	}
	s := &TokenService{
		secret:   append([]byte(nil), secret...),
		issuer:   issuer,
		validity: validity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenService) Issue(_ context.Context, id Identity) (string, error) {
	if id.Username == "" {
		return "", ErrEmptySubject
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
		UserID: id.ID,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, the issuer and the expiry. Every failure is
// a *VerificationError.
func (s *TokenService) Verify(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, &VerificationError{Kind: Malformed, Err: jwt.ErrTokenMalformed}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, &VerificationError{Kind: Malformed, Err: ErrEmptySubject}
	}
	return claims, nil
}

func classify(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &VerificationError{Kind: Malformed, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &VerificationError{Kind: BadSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerificationError{Kind: Expired, Err: err}
	default:
		// wrong issuer, missing exp, not-yet-valid: not a token we issued
		return &VerificationError{Kind: Malformed, Err: err}
	}
}
