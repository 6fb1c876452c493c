package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore caches single products in redis under product:{id}.
// Writes go to the wrapped store first and evict the cached entry afterwards.
// Cache failures are logged and never fail the call.
type CachedStore struct {
	next   ProductStore
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(next ProductStore, rdb redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With("component", "product_cache"),
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func (c *CachedStore) Create(ctx context.Context, product *Product) (*Product, error) {
	return c.next.Create(ctx, product)
}

func (c *CachedStore) FindByID(ctx context.Context, id int64) (*Product, error) {
	key := cacheKey(id)
	val, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var product Product
		if err := json.Unmarshal(val, &product); err == nil {
			return &product, nil
		}
		c.logger.WarnContext(ctx, "discarding malformed cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}

	product, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(product); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
		}
	}
	return product, nil
}

func (c *CachedStore) FindAll(ctx context.Context) ([]Product, error) {
	return c.next.FindAll(ctx)
}

func (c *CachedStore) Update(ctx context.Context, product *Product) error {
	if err := c.next.Update(ctx, product); err != nil {
		return err
	}
	c.evict(ctx, product.ID)
	return nil
}

func (c *CachedStore) Delete(ctx context.Context, id int64) error {
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.evict(ctx, id)
	return nil
}

func (c *CachedStore) evict(ctx context.Context, id int64) {
	if err := c.rdb.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache eviction failed", "key", cacheKey(id), "error", err)
	}
}
