package server

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matst80/slask-browser/pkg/common/jsoncompat"
)

type localEntry struct {
	expires time.Time
	body    []byte
}

// Cache memoizes filter responses in redis with a short-lived in-process
// layer in front of it.
type Cache struct {
	mu       sync.Mutex
	client   *redis.Client
	memCache map[string]localEntry
}

func NewCache(addr, password string, db int) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{client: rdb, memCache: make(map[string]localEntry)}
}

func (c *Cache) Get(ctx context.Context, key string, out any) error {
	c.mu.Lock()
	local, found := c.memCache[key]
	if found && time.Now().After(local.expires) {
		delete(c.memCache, key)
		found = false
	}
	c.mu.Unlock()
	if found {
		return jsoncompat.Unmarshal(local.body, out)
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.memCache[key] = localEntry{expires: time.Now().Add(time.Minute), body: data}
	c.mu.Unlock()
	return jsoncompat.Unmarshal(data, out)
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := jsoncompat.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.memCache[key] = localEntry{expires: time.Now().Add(expiration), body: data}
	c.mu.Unlock()
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Invalidate drops the local layer; redis entries age out on their own.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.memCache = make(map[string]localEntry)
	c.mu.Unlock()
}

func (c *Cache) Close() {
	c.client.Close()
}
