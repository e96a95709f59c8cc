package list

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthRequired is returned by every mutating operation while logged out.
	ErrAuthRequired = errors.New("login required")

	// ErrInvalidCredential is returned by a gate when the credential does not match.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrItemNotFound is returned when an ID is not in the local collection.
	ErrItemNotFound = errors.New("item not found")

	// ErrNothingSelected is returned by ConfirmDelete with an empty selection.
	ErrNothingSelected = errors.New("no items selected")

	// ErrUnknownFilter is returned by ParseFilter for unknown names.
	ErrUnknownFilter = errors.New("unknown filter")
)

// ValidationReason names the check an item text failed.
type ValidationReason string

const (
	ReasonEmpty     ValidationReason = "empty"
	ReasonDuplicate ValidationReason = "duplicate"
)

// ValidationError reports item text rejected before reaching the store.
type ValidationError struct {
	Reason ValidationReason
	Text   string
}

// Sentinels for errors.Is; they match any ValidationError with the same reason.
var (
	ErrEmptyText     = &ValidationError{Reason: ReasonEmpty}
	ErrDuplicateText = &ValidationError{Reason: ReasonDuplicate}
)

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "item text required"
	case ReasonDuplicate:
		if e.Text != "" {
			return fmt.Sprintf("item already on the list: %s", e.Text)
		}
		return "item already on the list"
	default:
		return "invalid item text"
	}
}

func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Reason == e.Reason
}

// StoreError wraps a failed ItemStore call.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// BatchDeleteError reports a bulk delete where some IDs could not be deleted.
// The IDs that were deleted are already gone from the local state.
type BatchDeleteError struct {
	Requested int
	Failed    map[string]error
}

func (e *BatchDeleteError) Error() string {
	return fmt.Sprintf("failed to delete %d of %d items", len(e.Failed), e.Requested)
}
