package store

import (
	"context"
	"errors"
	"sort"
)

// ErrNotFound is returned when an item does not exist in the backend.
var ErrNotFound = errors.New("not found")

// ItemStore defines the interface for item backend operations.
// All remote document store calls go through this interface.
// The list controller never imports a backend SDK directly.
type ItemStore interface {
	// Create persists a new item and returns the ID assigned by the backend.
	// The ID field of item is ignored.
	Create(ctx context.Context, item Item) (string, error)

	// Query returns the items inside scope.
	// Backends that cannot order server-side may ignore order.
	Query(ctx context.Context, scope Scope, order Order) ([]Item, error)

	// Update applies a partial update to the item with the given ID.
	Update(ctx context.Context, id string, patch Patch) error

	// Delete removes the item with the given ID.
	Delete(ctx context.Context, id string) error
}

// BatchDeleter is implemented by backends that can delete several items in one
// request. DeleteBatch returns the IDs that could not be deleted mapped to
// their cause; an empty map means every ID was deleted.
type BatchDeleter interface {
	DeleteBatch(ctx context.Context, ids []string) map[string]error
}

// SortNewestFirst orders items by CreatedAt descending.
// The sort is stable so items with equal timestamps keep their backend order.
func SortNewestFirst(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
