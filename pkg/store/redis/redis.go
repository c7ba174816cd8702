// Package redis provides a Redis-backed detail cache, for setups where
// several machines (or repeated CI runs) share one cache. Semantics match
// the SQLite cache: failures degrade to misses.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meeplelab/boardgraph/pkg/bgg"
)

const keyPrefix = "boardgraph:item:"

// ItemCache caches Items in Redis with a per-key TTL.
type ItemCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewItemCache wraps an existing Redis client. ttl <= 0 disables expiry.
func NewItemCache(client *redis.Client, ttl time.Duration) *ItemCache {
	return &ItemCache{client: client, ttl: ttl}
}

func makeKey(id string) string {
	return keyPrefix + id
}

// Get returns the cached item for id, or a miss.
func (c *ItemCache) Get(ctx context.Context, id string) (*bgg.Item, bool) {
	data, err := c.client.Get(ctx, makeKey(id)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis: GET %s failed: %v", makeKey(id), err)
		}
		return nil, false
	}

	var item bgg.Item
	if err := json.Unmarshal([]byte(data), &item); err != nil {
		log.Printf("redis: payload for %s unreadable: %v", id, err)
		return nil, false
	}
	return &item, true
}

// Put stores an item under its id key.
func (c *ItemCache) Put(ctx context.Context, item *bgg.Item) {
	data, err := json.Marshal(item)
	if err != nil {
		log.Printf("redis: encode %s failed: %v", item.ID, err)
		return
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, makeKey(item.ID), data, ttl).Err(); err != nil {
		log.Printf("redis: SET %s failed: %v", makeKey(item.ID), err)
	}
}

// Ping verifies the connection, so the CLI can fail fast on a bad address.
func (c *ItemCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
