package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"shoplist/internal/auth"
	"shoplist/internal/list"
)

const testClientID = "client-123.apps.googleusercontent.com"

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   "https://accounts.google.com",
		"aud":   testClientID,
		"sub":   "user-42",
		"email": "ana@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestIDTokenVerifier(t *testing.T) {
	key := newTestKey(t)
	other := newTestKey(t)
	keyFunc := func(*jwt.Token) (interface{}, error) { return &key.PublicKey, nil }
	v := auth.NewIDTokenVerifier(keyFunc, testClientID, "https://accounts.google.com", "accounts.google.com")

	with := func(k string, val interface{}) jwt.MapClaims {
		c := validClaims()
		if val == nil {
			delete(c, k)
		} else {
			c[k] = val
		}
		return c
	}

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid", signToken(t, key, validClaims()), false},
		{"short issuer", signToken(t, key, with("iss", "accounts.google.com")), false},
		{"empty", "", true},
		{"garbage", "not.a.jwt", true},
		{"wrong key", signToken(t, other, validClaims()), true},
		{"expired", signToken(t, key, with("exp", time.Now().Add(-time.Hour).Unix())), true},
		{"missing exp", signToken(t, key, with("exp", nil)), true},
		{"wrong audience", signToken(t, key, with("aud", "someone-else")), true},
		{"wrong issuer", signToken(t, key, with("iss", "https://evil.example")), true},
		{"missing sub", signToken(t, key, with("sub", nil)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := v.Verify(context.Background(), tt.token)
			if tt.wantErr {
				if !errors.Is(err, list.ErrInvalidCredential) {
					t.Errorf("Verify error = %v, want ErrInvalidCredential", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if id.Kind != list.Individual || id.UserID != "user-42" || id.Email != "ana@example.com" {
				t.Errorf("identity = %+v", id)
			}
		})
	}
}

func TestIDTokenVerifier_RejectsHS256(t *testing.T) {
	secret := []byte("shared")
	keyFunc := func(*jwt.Token) (interface{}, error) { return secret, nil }
	v := auth.NewIDTokenVerifier(keyFunc, testClientID)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString(secret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(context.Background(), raw); !errors.Is(err, list.ErrInvalidCredential) {
		t.Errorf("expected HS256 token to be rejected, got %v", err)
	}
}
