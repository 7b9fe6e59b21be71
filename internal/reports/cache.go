package reports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a best-effort Redis layer over report snapshots. Keys carry the
// report version, so a refresh never serves a stale entry; old versions age
// out via TTL. A nil Cache disables caching.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(ctx context.Context, key string, data json.RawMessage) {
	if c == nil {
		return
	}
	c.rdb.Set(ctx, key, []byte(data), c.ttl)
}
