// Package auth implements the authentication gates used by the list controller.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"shoplist/internal/list"
)

const (
	// MinPasswordLen is the minimum family password length in characters.
	MinPasswordLen = 4

	// MaxPasswordLen is the maximum family password length in characters.
	MaxPasswordLen = 20
)

// ErrNoPassword is returned when shared mode has no family password configured.
var ErrNoPassword = errors.New("family password not configured")

// ValidateFamilyPassword checks the configured family password.
// Surrounding whitespace does not count.
func ValidateFamilyPassword(pw string) error {
	pw = strings.TrimSpace(pw)
	if pw == "" {
		return ErrNoPassword
	}
	n := utf8.RuneCountInString(pw)
	if n < MinPasswordLen || n > MaxPasswordLen {
		return fmt.Errorf("family password must be %d to %d characters", MinPasswordLen, MaxPasswordLen)
	}
	return nil
}

// SharedSecretGate authenticates the whole family with one shared password.
type SharedSecretGate struct {
	secret string
	flag   SessionFlag
}

// NewSharedSecretGate creates a gate for the given family password.
// Surrounding whitespace is dropped, as it is from user input.
// flag persists the session marker; nil keeps it in memory.
func NewSharedSecretGate(secret string, flag SessionFlag) (*SharedSecretGate, error) {
	secret = strings.TrimSpace(secret)
	if err := ValidateFamilyPassword(secret); err != nil {
		return nil, err
	}
	if flag == nil {
		flag = NewMemoryFlag(false)
	}
	return &SharedSecretGate{secret: secret, flag: flag}, nil
}

// Mode implements list.AuthGate.
func (g *SharedSecretGate) Mode() list.Mode { return list.ModeShared }

// CheckSharedSecret reports whether input matches the family password.
// Surrounding whitespace is ignored.
func (g *SharedSecretGate) CheckSharedSecret(input string) bool {
	input = strings.TrimSpace(input)
	return subtle.ConstantTimeCompare([]byte(input), []byte(g.secret)) == 1
}

// Restore implements list.AuthGate.
func (g *SharedSecretGate) Restore(ctx context.Context) (list.Identity, bool, error) {
	ok, err := g.flag.Load()
	if err != nil || !ok {
		return list.Identity{}, false, err
	}
	return list.FamilyIdentity(), true, nil
}

// SignIn implements list.AuthGate.
func (g *SharedSecretGate) SignIn(ctx context.Context, credential string) (list.Identity, error) {
	if !g.CheckSharedSecret(credential) {
		return list.Identity{}, list.ErrInvalidCredential
	}
	if err := g.flag.Save(true); err != nil {
		return list.Identity{}, err
	}
	return list.FamilyIdentity(), nil
}

// SignOut implements list.AuthGate.
func (g *SharedSecretGate) SignOut(ctx context.Context) error {
	return g.flag.Save(false)
}
