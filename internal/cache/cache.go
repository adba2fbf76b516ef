// Package cache provides a Redis-backed key-value cache fronted by an
// in-process ristretto layer, plus the Redis-backed InteractionLog store
// (lock-guarded via redsync) that backs the per-thread pending-offer state.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
)

// Cache is the key-value cache interface the rest of the core depends on.
// Shape kept identical to the teacher's tool-level cache abstraction. Its
// one production consumer is store.CachedStore, which caches meeting
// metadata.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl *time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, ttl *time.Duration) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) bool
}

// RedisCache implements Cache against Redis, with an in-process ristretto
// L1 in front for the hottest, smallest reads (meeting metadata, mostly).
// The L1 is best-effort: a miss there always falls through to Redis, and a
// write always goes to both, so Redis stays the source of truth.
type RedisCache struct {
	client     *redis.Client
	l1         *ristretto.Cache[string, []byte]
	defaultTTL *time.Duration
	keyPrefix  string
}

// NewRedisCache builds a cache fronting client, namespacing every key under
// keyPrefix to avoid collisions between unrelated callers sharing one
// Redis instance.
func NewRedisCache(client *redis.Client, keyPrefix string, defaultTTL *time.Duration) (*RedisCache, error) {
	l1, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     1 << 24, // 16MiB
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: new l1: %w", err)
	}
	return &RedisCache{client: client, l1: l1, defaultTTL: defaultTTL, keyPrefix: keyPrefix}, nil
}

func (c *RedisCache) formatKey(key string) string {
	if c.keyPrefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", c.keyPrefix, key)
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	fk := c.formatKey(key)
	if v, ok := c.l1.Get(fk); ok {
		return v, nil
	}
	v, err := c.client.Get(ctx, fk).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get: %w", err)
	}
	c.l1.Set(fk, v, int64(len(v)))
	return v, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl *time.Duration) error {
	fk := c.formatKey(key)
	useTTL := ttl
	if useTTL == nil {
		useTTL = c.defaultTTL
	}
	var exp time.Duration
	if useTTL != nil {
		exp = *useTTL
	}
	if err := c.client.Set(ctx, fk, value, exp).Err(); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	c.l1.SetWithTTL(fk, value, int64(len(value)), exp)
	return nil
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("cache: key not found: %s", key)
	}
	return json.Unmarshal(data, dest)
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl *time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	fk := c.formatKey(key)
	c.l1.Del(fk)
	if err := c.client.Del(ctx, fk).Err(); err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

func (c *RedisCache) Has(ctx context.Context, key string) bool {
	v, err := c.Get(ctx, key)
	return err == nil && v != nil
}

// Standard TTLs for the few things worth caching across turns. Only
// per-meeting metadata is cached today (store.CachedStore); the
// company-lookup TTL and key pattern have no caller. Artifacts (QAPairs,
// ActionItems, Chunks) are read live every turn — the Design Notes in
// SPEC_FULL.md §9 explicitly omit a cache for them.
var (
	CompanyLookupTTL  = 10 * time.Minute
	MeetingMetaTTL    = 10 * time.Minute
)

// Cache key patterns.
const (
	CompanyLookupKeyPattern = "company-lookup:%s"   // company-lookup:acme
	MeetingMetaKeyPattern   = "meeting-meta:%s"      // meeting-meta:mtg_123
)
