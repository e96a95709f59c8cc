// Package rediscache wraps a store.ItemStore with a Redis read-through cache
// for queries.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"shoplist/internal/logging"
	"shoplist/internal/store"
)

const (
	keyPrefix     = "shoplist:items:"
	generationKey = keyPrefix + "gen"
)

// Cache caches Query results. Every successful write bumps a generation
// counter that is part of the query key, so stale entries are never read
// and simply expire.
type Cache struct {
	base   store.ItemStore
	redis  *redis.Client
	ttl    time.Duration
	logger log.FieldLogger
}

// BatchCache is a Cache over a backend that supports batch deletes.
type BatchCache struct {
	*Cache
	batch store.BatchDeleter
}

// New wraps base. The result implements store.BatchDeleter when base does.
// A nil logger discards warnings.
func New(base store.ItemStore, client *redis.Client, ttl time.Duration, logger log.FieldLogger) store.ItemStore {
	if base == nil {
		panic("rediscache.New: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Cache{base: base, redis: client, ttl: ttl, logger: logger}
	if bd, ok := base.(store.BatchDeleter); ok {
		return &BatchCache{Cache: c, batch: bd}
	}
	return c
}

// EnsureTable creates the backing table of the wrapped store, if it has one.
func (c *Cache) EnsureTable(ctx context.Context) error {
	if tc, ok := c.base.(interface{ EnsureTable(context.Context) error }); ok {
		return tc.EnsureTable(ctx)
	}
	return nil
}

// Create implements store.ItemStore.
func (c *Cache) Create(ctx context.Context, item store.Item) (string, error) {
	id, err := c.base.Create(ctx, item)
	if err != nil {
		return "", err
	}
	c.bump(ctx)
	return id, nil
}

// Query implements store.ItemStore.
func (c *Cache) Query(ctx context.Context, scope store.Scope, order store.Order) ([]store.Item, error) {
	key, ok := c.queryKey(ctx, scope, order)
	if ok {
		if items, hit := c.load(ctx, key); hit {
			return items, nil
		}
	}

	items, err := c.base.Query(ctx, scope, order)
	if err != nil {
		return nil, err
	}
	if ok {
		c.save(ctx, key, items)
	}
	return items, nil
}

// Update implements store.ItemStore.
func (c *Cache) Update(ctx context.Context, id string, patch store.Patch) error {
	if err := c.base.Update(ctx, id, patch); err != nil {
		return err
	}
	c.bump(ctx)
	return nil
}

// Delete implements store.ItemStore.
func (c *Cache) Delete(ctx context.Context, id string) error {
	if err := c.base.Delete(ctx, id); err != nil {
		return err
	}
	c.bump(ctx)
	return nil
}

// DeleteBatch implements store.BatchDeleter.
func (c *BatchCache) DeleteBatch(ctx context.Context, ids []string) map[string]error {
	failed := c.batch.DeleteBatch(ctx, ids)
	if len(failed) < len(ids) {
		c.bump(ctx)
	}
	return failed
}

func (c *Cache) queryKey(ctx context.Context, scope store.Scope, order store.Order) (string, bool) {
	if c.redis == nil || c.ttl == 0 {
		return "", false
	}
	gen, err := c.redis.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		gen = 0
	} else if err != nil {
		c.logger.WithError(err).Warn("redis unavailable, reading from store")
		return "", false
	}
	return fmt.Sprintf("%s%s:%s:%d", keyPrefix, strconv.FormatInt(gen, 10), scope.Key(), order), true
}

func (c *Cache) load(ctx context.Context, key string) ([]store.Item, bool) {
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Warn("redis get failed")
		}
		return nil, false
	}
	var items []store.Item
	if err := json.Unmarshal(data, &items); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return items, true
}

func (c *Cache) save(ctx context.Context, key string, items []store.Item) {
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("redis set failed")
	}
}

func (c *Cache) bump(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.WithError(err).Warn("redis incr failed")
	}
}
