package testutil

import (
	"context"
	"errors"

	"shoplist/internal/list"
)

// FakeGate is a scriptable list.AuthGate.
// SignIn succeeds when the credential equals Password, or always when
// Password is empty and GateMode is list.ModeOAuth.
type FakeGate struct {
	GateMode list.Mode
	Password string
	Identity list.Identity

	// Persisted simulates a restorable session marker.
	Persisted bool

	SignOutErr error
	RestoreErr error

	listeners []func(list.Identity, bool)
}

// NewSharedGate returns a shared-mode FakeGate accepting password.
func NewSharedGate(password string) *FakeGate {
	return &FakeGate{GateMode: list.ModeShared, Password: password, Identity: list.FamilyIdentity()}
}

// NewOAuthGate returns an OAuth-mode FakeGate signing in as the given user.
func NewOAuthGate(userID, email string) *FakeGate {
	return &FakeGate{
		GateMode: list.ModeOAuth,
		Identity: list.Identity{Kind: list.Individual, UserID: userID, Email: email},
	}
}

// Mode implements list.AuthGate.
func (g *FakeGate) Mode() list.Mode { return g.GateMode }

// Restore implements list.AuthGate.
func (g *FakeGate) Restore(ctx context.Context) (list.Identity, bool, error) {
	if g.RestoreErr != nil {
		return list.Identity{}, false, g.RestoreErr
	}
	if !g.Persisted {
		return list.Identity{}, false, nil
	}
	return g.Identity, true, nil
}

// SignIn implements list.AuthGate.
func (g *FakeGate) SignIn(ctx context.Context, credential string) (list.Identity, error) {
	if g.GateMode == list.ModeShared && credential != g.Password {
		return list.Identity{}, list.ErrInvalidCredential
	}
	if g.GateMode == list.ModeOAuth && g.Identity.UserID == "" {
		return list.Identity{}, errors.New("sign-in cancelled")
	}
	g.Persisted = true
	return g.Identity, nil
}

// SignOut implements list.AuthGate.
func (g *FakeGate) SignOut(ctx context.Context) error {
	g.Persisted = false
	return g.SignOutErr
}

// OnIdentityChanged implements list.IdentityNotifier.
func (g *FakeGate) OnIdentityChanged(fn func(list.Identity, bool)) {
	g.listeners = append(g.listeners, fn)
}

// Push notifies registered listeners of an identity change.
func (g *FakeGate) Push(id list.Identity, ok bool) {
	for _, fn := range g.listeners {
		fn(id, ok)
	}
}
