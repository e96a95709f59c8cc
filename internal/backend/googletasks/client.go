// Package googletasks implements store.ItemStore on a Google Tasks list.
//
// Each shopping item is one task. The creation time is kept in the task
// notes because the API only exposes the last update time.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"shoplist/internal/store"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements store.ItemStore using Google Tasks API.
type Client struct {
	svc    *tasks.Service
	listID string
}

// New creates a Google Tasks client for listID authorized by ts.
// An empty listID selects the user's default list.
func New(ctx context.Context, ts oauth2.TokenSource, listID string) (*Client, error) {
	svc, err := tasks.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return newClient(svc, listID), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, listID string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newClient(svc, listID), nil
}

func newClient(svc *tasks.Service, listID string) *Client {
	if listID == "" {
		listID = DefaultListID
	}
	return &Client{svc: svc, listID: listID}
}

// Create implements store.ItemStore.
func (c *Client) Create(ctx context.Context, item store.Item) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	task := &tasks.Task{
		Title:  item.Text,
		Notes:  item.CreatedAt.UTC().Format(time.RFC3339Nano),
		Status: statusNeedsAction,
	}
	if item.Completed {
		task.Status = statusCompleted
	}
	created, err := c.svc.Tasks.Insert(c.listID, task).Context(ctx).Do()
	if err != nil {
		return "", wrapError(err)
	}
	return created.Id, nil
}

// Query implements store.ItemStore. A task list belongs to one account, so
// every task is inside the caller's scope and carries its owner tag.
func (c *Client) Query(ctx context.Context, scope store.Scope, order store.Order) ([]store.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	items := []store.Item{}
	err := c.svc.Tasks.List(c.listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, task := range resp.Items {
				if task.Deleted {
					continue
				}
				items = append(items, itemFromTask(task, scope.OwnerTag))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	if order == store.NewestFirst {
		store.SortNewestFirst(items)
	}
	return items, nil
}

func itemFromTask(task *tasks.Task, ownerTag string) store.Item {
	return store.Item{
		ID:        task.Id,
		Text:      task.Title,
		Completed: task.Status == statusCompleted,
		CreatedAt: createdAt(task),
		OwnerTag:  ownerTag,
	}
}

// createdAt reads the creation time from the notes, falling back to the
// last update time for tasks created elsewhere.
func createdAt(task *tasks.Task) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(task.Notes)); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, task.Updated); err == nil {
		return t
	}
	return time.Time{}
}

// Update implements store.ItemStore.
func (c *Client) Update(ctx context.Context, id string, patch store.Patch) error {
	if patch.Completed == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	task := &tasks.Task{Status: statusCompleted}
	if !*patch.Completed {
		// Reopening requires clearing the completion timestamp.
		task.Status = statusNeedsAction
		task.NullFields = []string{"Completed"}
	}
	_, err := c.svc.Tasks.Patch(c.listID, id, task).Context(ctx).Do()
	return wrapError(err)
}

// Delete implements store.ItemStore. Deleting a missing task succeeds.
func (c *Client) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	err := c.svc.Tasks.Delete(c.listID, id).Context(ctx).Do()
	if err != nil {
		err = wrapError(err)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	// Check for timeout
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("token expired or revoked (run: shoplist login)")
		case http.StatusNotFound:
			return store.ErrNotFound
		}
	}
	return err
}
