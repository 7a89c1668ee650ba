// Package auth verifies bearer tokens issued by the identity provider.
//
// Tokens are HS256 JWTs; the subject claim is the user id that scopes
// staging and rate limiting. Sign exists for tests and local tooling.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, expired and badly signed tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrIssuerMismatch is returned when the token's issuer is not the configured one.
	ErrIssuerMismatch = errors.New("issuer mismatch")

	// ErrMissingSubject is returned for tokens without a subject.
	ErrMissingSubject = errors.New("token has no subject")
)

// Claims represents the JWT payload.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c Claims) UserID() string { return c.Subject }

// Verifier checks and issues tokens with a shared HMAC key.
type Verifier struct {
	key    []byte
	issuer string
}

// NewVerifier returns a Verifier. An empty issuer accepts any issuer.
func NewVerifier(key, issuer string) *Verifier {
	return &Verifier{key: []byte(key), issuer: issuer}
}

// Sign issues a token for subject valid for ttl.
func (v *Verifier) Sign(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.key)
}

// Verify validates tokenStr and returns its claims.
func (v *Verifier) Verify(tokenStr string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	})
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrIssuerMismatch
	}
	if claims.Subject == "" {
		return Claims{}, ErrMissingSubject
	}
	return *claims, nil
}
