// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"shoplist/internal/store"
)

// FakeStore is an in-memory implementation of store.ItemStore for testing.
// It is safe for concurrent use.
type FakeStore struct {
	mu     sync.RWMutex
	items  []store.Item
	nextID int

	// Calls counts store calls by operation name.
	calls map[string]int

	// Error injection for testing
	CreateErr error
	QueryErr  error
	UpdateErr error
	DeleteErr map[string]error // id -> error

	// Unordered makes Query ignore the requested order and return items in
	// insertion order, like a backend without server-side sorting.
	Unordered bool
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		calls:     make(map[string]int),
		DeleteErr: make(map[string]error),
	}
}

// Seed adds an item directly, bypassing Create. An empty ID gets a generated one.
// Returns the item's ID.
func (f *FakeStore) Seed(item store.Item) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == "" {
		item.ID = f.newIDLocked()
	}
	f.items = append(f.items, item)
	return item.ID
}

// Get returns the stored item with the given ID.
func (f *FakeStore) Get(id string) (store.Item, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, it := range f.items {
		if it.ID == id {
			return it, true
		}
	}
	return store.Item{}, false
}

// Len returns the number of stored items.
func (f *FakeStore) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Calls returns how many times the named operation was called.
func (f *FakeStore) Calls(op string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (f *FakeStore) TotalCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeStore) newIDLocked() string {
	f.nextID++
	return fmt.Sprintf("item-%d", f.nextID)
}

func (f *FakeStore) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

// Create implements store.ItemStore.
func (f *FakeStore) Create(ctx context.Context, item store.Item) (string, error) {
	f.record("create")
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.newIDLocked()
	f.items = append(f.items, item)
	return item.ID, nil
}

// Query implements store.ItemStore.
func (f *FakeStore) Query(ctx context.Context, scope store.Scope, order store.Order) ([]store.Item, error) {
	f.record("query")
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []store.Item
	for _, it := range f.items {
		if scope.Matches(it) {
			out = append(out, it)
		}
	}
	if order == store.NewestFirst && !f.Unordered {
		store.SortNewestFirst(out)
	}
	return out, nil
}

// Update implements store.ItemStore.
func (f *FakeStore) Update(ctx context.Context, id string, patch store.Patch) error {
	f.record("update")
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, it := range f.items {
		if it.ID == id {
			f.items[i] = patch.Apply(it)
			return nil
		}
	}
	return store.ErrNotFound
}

// Delete implements store.ItemStore.
func (f *FakeStore) Delete(ctx context.Context, id string) error {
	f.record("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.DeleteErr[id]; ok && err != nil {
		return err
	}
	for i, it := range f.items {
		if it.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// BatchStore wraps a FakeStore and adds store.BatchDeleter.
type BatchStore struct {
	*FakeStore

	// BatchCalls counts DeleteBatch calls.
	BatchCalls int
}

// NewBatchStore creates an empty BatchStore.
func NewBatchStore() *BatchStore {
	return &BatchStore{FakeStore: NewFakeStore()}
}

// DeleteBatch implements store.BatchDeleter.
func (b *BatchStore) DeleteBatch(ctx context.Context, ids []string) map[string]error {
	b.BatchCalls++
	failed := make(map[string]error)
	for _, id := range ids {
		if err := b.Delete(ctx, id); err != nil {
			failed[id] = err
		}
	}
	return failed
}
