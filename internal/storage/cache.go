package storage

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erancha/RENTracker-sub000/pkg/json"
	"github.com/erancha/RENTracker-sub000/pkg/redis"
)

// Cache is a cache-aside read accelerator in front of a Store. Single-entity
// reads are served from Redis when possible; every write invalidates the
// affected entry. Cache failures degrade to the underlying store, never to
// an error.
type Cache struct {
	next Store
	rdb  *redis.Client
	keys *redis.Keys
	ttl  time.Duration
	log  *zap.Logger
}

// NewCache wraps a store with the cache-aside layer.
func NewCache(next Store, rdb *redis.Client, keys *redis.Keys, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		next: next,
		rdb:  rdb,
		keys: keys,
		ttl:  ttl,
		log:  log.With(zap.String("module", "storage-cache")),
	}
}

func (c *Cache) EnsureUser(ctx context.Context, id, displayName string) error {
	return c.next.EnsureUser(ctx, id, displayName)
}

func (c *Cache) Create(ctx context.Context, res Resource, userID string, data []byte) (*Result, error) {
	return c.next.Create(ctx, res, userID, data)
}

func (c *Cache) Read(ctx context.Context, res Resource, userID string, params ReadParams) (*Result, error) {
	if params.ID == "" {
		// List reads always hit the store; their scope is per-user and not
		// worth keeping coherent here.
		return c.next.Read(ctx, res, userID, params)
	}

	key := c.keys.CacheEntry(string(res), params.ID)
	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		payload := decodeCached(res, raw)
		if payload != nil {
			return &Result{Payload: payload, Targets: []string{userID}}, nil
		}
	} else if err != goredis.Nil {
		c.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	result, err := c.next.Read(ctx, res, userID, params)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(result.Payload); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Warn("cache fill failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

func (c *Cache) Update(ctx context.Context, res Resource, userID string, data []byte) (*Result, error) {
	result, err := c.next.Update(ctx, res, userID, data)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, res, result.Payload)
	return result, nil
}

func (c *Cache) Delete(ctx context.Context, res Resource, userID, id string) (*Result, error) {
	result, err := c.next.Delete(ctx, res, userID, id)
	if err != nil {
		return nil, err
	}
	key := c.keys.CacheEntry(string(res), id)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}

func (c *Cache) invalidate(ctx context.Context, res Resource, payload interface{}) {
	var id string
	switch v := payload.(type) {
	case *Apartment:
		id = v.ID
	case *Document:
		id = v.ID
	case *Activity:
		id = v.ID
	}
	if id == "" {
		return
	}
	key := c.keys.CacheEntry(string(res), id)
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}

func decodeCached(res Resource, raw []byte) interface{} {
	switch res {
	case ResourceApartment:
		var a Apartment
		if json.Unmarshal(raw, &a) == nil {
			return &a
		}
	case ResourceDocument:
		var d Document
		if json.Unmarshal(raw, &d) == nil {
			return &d
		}
	case ResourceActivity:
		var act Activity
		if json.Unmarshal(raw, &act) == nil {
			return &act
		}
	}
	return nil
}
