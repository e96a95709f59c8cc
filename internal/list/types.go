// Package list holds the in-memory shopping list state and the rules for mutating it.
package list

import (
	"context"
	"strings"

	"shoplist/internal/store"
)

// FamilyTag is the owner tag stamped on items created in shared mode.
const FamilyTag = "family"

// Mode is the deployment mode of an AuthGate.
type Mode string

const (
	// ModeShared authenticates the whole family with one shared password.
	ModeShared Mode = "shared"

	// ModeOAuth authenticates individual users through an OAuth provider.
	ModeOAuth Mode = "oauth"
)

// IdentityKind distinguishes a shared-secret confirmation from an individual principal.
type IdentityKind int

const (
	// SharedFamily is the identity produced by a shared-secret login. It carries no user.
	SharedFamily IdentityKind = iota + 1

	// Individual is a signed-in user with an ID and email.
	Individual
)

// Identity is who the current session acts as.
type Identity struct {
	Kind   IdentityKind `json:"kind"`
	UserID string       `json:"userId,omitempty"`
	Email  string       `json:"email,omitempty"`
}

// FamilyIdentity returns the identity used in shared mode.
func FamilyIdentity() Identity {
	return Identity{Kind: SharedFamily}
}

// OwnerTag returns the tag written to items created by this identity.
func (id Identity) OwnerTag() string {
	if id.Kind == Individual {
		return id.UserID
	}
	return FamilyTag
}

// Scope returns the store scope holding the items visible to this identity.
func (id Identity) Scope() store.Scope {
	if id.Kind == Individual {
		return store.OwnedBy(id.UserID)
	}
	return store.AllItems()
}

// String returns a display form of the identity.
func (id Identity) String() string {
	switch id.Kind {
	case Individual:
		if id.Email != "" {
			return id.Email
		}
		return id.UserID
	case SharedFamily:
		return "family"
	default:
		return "(none)"
	}
}

// Session is the authentication state of a controller.
type Session struct {
	Authenticated bool
	Identity      Identity
}

// Filter selects which items a view shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// ParseFilter converts a filter name to a Filter.
// Names are case-insensitive and trimmed; an empty name means FilterAll.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "pending":
		return FilterPending, nil
	case "completed", "done":
		return FilterCompleted, nil
	default:
		return "", ErrUnknownFilter
	}
}

// Keep reports whether item belongs to the filtered view.
func (f Filter) Keep(item store.Item) bool {
	switch f {
	case FilterPending:
		return !item.Completed
	case FilterCompleted:
		return item.Completed
	default:
		return true
	}
}

// Stats are counts derived from the local collection.
// Total always equals Pending + Completed.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
}

// AuthGate is the authentication collaborator of the controller.
type AuthGate interface {
	// Mode returns the deployment mode the gate serves.
	Mode() Mode

	// Restore returns the persisted session, if any.
	// ok is false when there is nothing to restore.
	Restore(ctx context.Context) (id Identity, ok bool, err error)

	// SignIn authenticates with credential and persists the session.
	// Shared-secret gates compare the credential; OAuth gates ignore it and
	// run the interactive flow. A mismatch returns ErrInvalidCredential.
	SignIn(ctx context.Context, credential string) (Identity, error)

	// SignOut forgets the persisted session.
	SignOut(ctx context.Context) error
}

// IdentityNotifier is implemented by gates that push identity changes,
// for example when an OAuth token is revoked.
type IdentityNotifier interface {
	// OnIdentityChanged registers fn. ok is false after a sign-out.
	OnIdentityChanged(fn func(id Identity, ok bool))
}

// Renderer receives the derived views after every state-affecting operation.
type Renderer interface {
	Render(items []store.Item, filter Filter)
	RenderStats(stats Stats)
}
