// Package tables implements store.ItemStore on Azure Table Storage.
//
// Items are partitioned by owner tag. The item ID exposed to callers is
// "<PartitionKey>:<RowKey>" so updates and deletes can address an entity
// without a lookup.
package tables

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"shoplist/internal/list"
	"shoplist/internal/store"
)

const (
	// APITimeout bounds a single store call.
	APITimeout = 5 * time.Second

	// maxBatch is the entity limit of one table transaction.
	maxBatch = 100

	edmDateTime = "Edm.DateTime"
)

// Store implements store.ItemStore and store.BatchDeleter.
type Store struct {
	client *aztables.Client
}

// New connects to the table named table using an Azure storage connection string.
func New(connStr, table string) (*Store, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    30 * time.Second,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("tables: %w", err)
	}
	return &Store{client: svc.NewClient(table)}, nil
}

// EnsureTable creates the table when it does not exist yet.
func (s *Store) EnsureTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := s.client.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
			return nil
		}
		return err
	}
	return nil
}

type itemEntity struct {
	PartitionKey  string    `json:"PartitionKey"`
	RowKey        string    `json:"RowKey"`
	Text          string    `json:"Text"`
	Completed     bool      `json:"Completed"`
	CreatedAt     time.Time `json:"CreatedAt"`
	CreatedAtType string    `json:"CreatedAt@odata.type,omitempty"`
	OwnerTag      string    `json:"OwnerTag"`
}

type itemUpdate struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Completed    *bool  `json:"Completed,omitempty"`
}

type entityKey struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

// partitionFor returns the partition an item with owner tag lives in.
func partitionFor(ownerTag string) string {
	if ownerTag == "" {
		return list.FamilyTag
	}
	return ownerTag
}

// JoinID builds the item ID of an entity.
func JoinID(pk, rk string) string {
	return pk + ":" + rk
}

// SplitID splits an item ID into partition and row keys.
// The row key never contains ':', so the last one separates the two.
func SplitID(id string) (pk, rk string, err error) {
	i := strings.LastIndexByte(id, ':')
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("%w: malformed id %q", store.ErrNotFound, id)
	}
	return id[:i], id[i+1:], nil
}

// partitionFilter returns an OData filter selecting one partition.
func partitionFilter(pk string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(pk, "'", "''") + "'"
}

func encodeItem(pk, rk string, item store.Item) ([]byte, error) {
	return json.Marshal(itemEntity{
		PartitionKey:  pk,
		RowKey:        rk,
		Text:          item.Text,
		Completed:     item.Completed,
		CreatedAt:     item.CreatedAt.UTC(),
		CreatedAtType: edmDateTime,
		OwnerTag:      item.OwnerTag,
	})
}

func decodeItem(data []byte) (store.Item, error) {
	var ent itemEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return store.Item{}, err
	}
	return store.Item{
		ID:        JoinID(ent.PartitionKey, ent.RowKey),
		Text:      ent.Text,
		Completed: ent.Completed,
		CreatedAt: ent.CreatedAt,
		OwnerTag:  ent.OwnerTag,
	}, nil
}

// Create implements store.ItemStore.
func (s *Store) Create(ctx context.Context, item store.Item) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	pk := partitionFor(item.OwnerTag)
	rk := uuid.NewString()
	payload, err := encodeItem(pk, rk, item)
	if err != nil {
		return "", err
	}
	if _, err := s.client.AddEntity(ctx, payload, nil); err != nil {
		return "", wrapError(err)
	}
	return JoinID(pk, rk), nil
}

// Query implements store.ItemStore. Tables has no server-side ordering, so
// NewestFirst is applied after the pages are read.
func (s *Store) Query(ctx context.Context, scope store.Scope, order store.Order) ([]store.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var opts *aztables.ListEntitiesOptions
	if !scope.All() {
		filter := partitionFilter(scope.OwnerTag)
		opts = &aztables.ListEntitiesOptions{Filter: &filter}
	}

	items := []store.Item{}
	pager := s.client.NewListEntitiesPager(opts)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapError(err)
		}
		for _, e := range resp.Entities {
			item, err := decodeItem(e)
			if err != nil {
				return nil, fmt.Errorf("tables: decode entity: %w", err)
			}
			items = append(items, item)
		}
	}
	if order == store.NewestFirst {
		store.SortNewestFirst(items)
	}
	return items, nil
}

// Update implements store.ItemStore with a merge update.
func (s *Store) Update(ctx context.Context, id string, patch store.Patch) error {
	pk, rk, err := SplitID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	payload, err := json.Marshal(itemUpdate{PartitionKey: pk, RowKey: rk, Completed: patch.Completed})
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.client.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	return wrapError(err)
}

// Delete implements store.ItemStore. Deleting a missing entity succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	pk, rk, err := SplitID(id)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err = s.client.DeleteEntity(ctx, pk, rk, nil)
	if isNotFound(err) {
		return nil
	}
	return wrapError(err)
}

// DeleteBatch implements store.BatchDeleter. IDs are grouped by partition
// and submitted as transactions of at most 100 entities. A transaction is
// all or nothing, so a rejected one fails every ID it carried.
func (s *Store) DeleteBatch(ctx context.Context, ids []string) map[string]error {
	failed := make(map[string]error)
	groups := make(map[string][]string)
	var partitions []string
	for _, id := range ids {
		pk, _, err := SplitID(id)
		if err != nil {
			failed[id] = err
			continue
		}
		if _, ok := groups[pk]; !ok {
			partitions = append(partitions, pk)
		}
		groups[pk] = append(groups[pk], id)
	}

	for _, pk := range partitions {
		group := groups[pk]
		for start := 0; start < len(group); start += maxBatch {
			end := min(start+maxBatch, len(group))
			chunk := group[start:end]
			if err := s.submitDeletes(ctx, chunk); err != nil {
				err = fmt.Errorf("transaction rejected: %w", wrapError(err))
				for _, id := range chunk {
					failed[id] = err
				}
			}
		}
	}
	return failed
}

func (s *Store) submitDeletes(ctx context.Context, ids []string) error {
	actions := make([]aztables.TransactionAction, 0, len(ids))
	for _, id := range ids {
		pk, rk, _ := SplitID(id)
		payload, err := json.Marshal(entityKey{PartitionKey: pk, RowKey: rk})
		if err != nil {
			return err
		}
		actions = append(actions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeDelete,
			Entity:     payload,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	_, err := s.client.SubmitTransaction(ctx, actions, nil)
	return err
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// wrapError maps Azure errors onto store errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	if isNotFound(err) {
		return store.ErrNotFound
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("tables: %s (%d)", respErr.ErrorCode, respErr.StatusCode)
	}
	return err
}
