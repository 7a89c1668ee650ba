package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("secret", "rollcall")

	token, err := v.Sign("instructor-1", "instructor", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID() != "instructor-1" || claims.Role != "instructor" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestVerifier_Rejects(t *testing.T) {
	good := NewVerifier("secret", "rollcall")

	expired, _ := good.Sign("u1", "", -time.Minute)
	wrongKey, _ := NewVerifier("other", "rollcall").Sign("u1", "", time.Hour)
	wrongIssuer, _ := NewVerifier("secret", "elsewhere").Sign("u1", "", time.Hour)
	noSubject, _ := good.Sign("", "", time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: "rollcall"},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-token", ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"wrong key", wrongKey, ErrInvalidToken},
		{"alg none", unsigned, ErrInvalidToken},
		{"wrong issuer", wrongIssuer, ErrIssuerMismatch},
		{"no subject", noSubject, ErrMissingSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := good.Verify(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("Verify err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifier_AnyIssuer(t *testing.T) {
	token, _ := NewVerifier("secret", "someone").Sign("u1", "", time.Hour)
	if _, err := NewVerifier("secret", "").Verify(token); err != nil {
		t.Errorf("empty issuer should accept any issuer, got %v", err)
	}
}
