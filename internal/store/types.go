// Package store defines the backend-agnostic interface for shopping item persistence.
package store

import (
	"strings"
	"time"
)

// Item represents a single shopping list entry.
type Item struct {
	ID        string    `json:"id,omitempty"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	OwnerTag  string    `json:"ownerTag"`
}

// Persisted reports whether the store has assigned an ID to the item.
func (i Item) Persisted() bool {
	return i.ID != ""
}

// Scope restricts a query to the items visible to one identity.
// The zero value selects every item.
type Scope struct {
	OwnerTag string
}

// AllItems returns the scope used in shared mode.
func AllItems() Scope {
	return Scope{}
}

// OwnedBy returns a scope limited to items carrying the given owner tag.
func OwnedBy(tag string) Scope {
	return Scope{OwnerTag: strings.TrimSpace(tag)}
}

// All reports whether the scope selects every item.
func (s Scope) All() bool {
	return s.OwnerTag == ""
}

// Matches reports whether the item falls inside the scope.
func (s Scope) Matches(item Item) bool {
	return s.All() || item.OwnerTag == s.OwnerTag
}

// Key returns a stable string form of the scope, suitable for cache keys.
func (s Scope) Key() string {
	if s.All() {
		return "*"
	}
	return "owner=" + s.OwnerTag
}

// Order is the requested result order for a query.
type Order int

const (
	// Unordered leaves results in whatever order the backend returns.
	Unordered Order = iota

	// NewestFirst sorts by CreatedAt descending.
	NewestFirst
)

// Patch carries the fields of a partial update. Nil fields are left untouched.
type Patch struct {
	Completed *bool
}

// Apply returns a copy of item with the patch applied.
func (p Patch) Apply(item Item) Item {
	if p.Completed != nil {
		item.Completed = *p.Completed
	}
	return item
}
