package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss reports a key that is not cached.
var ErrMiss = errors.New("cache miss")

// Cache holds rendered public read shapes under one namespace so a mutation
// can flush them all in one sweep.
type Cache struct {
	Redis     redis.UniversalClient
	Namespace string
	TTL       time.Duration
}

func NewCache(namespace string, ttl time.Duration, redisCl redis.UniversalClient) *Cache {
	return &Cache{
		Namespace: namespace,
		TTL:       ttl,
		Redis:     redisCl,
	}
}

// GetJSON loads key into dst, returning ErrMiss when absent.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) error {
	raw, err := c.Redis.Get(ctx, c.Namespace+":"+key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dst)
}

func (c *Cache) StoreJSON(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, c.Namespace+":"+key, raw, c.TTL).Err()
}

// Flush drops every key in the namespace.
func (c *Cache) Flush(ctx context.Context) error {
	keys := c.Redis.Keys(ctx, c.Namespace+":*")
	//using pipeline to delete keys efficiently
	pl := c.Redis.Pipeline()

	for _, key := range keys.Val() {
		pl.Del(ctx, key)
	}

	_, err := pl.Exec(ctx)
	return err
}

func (c *Cache) Remove(ctx context.Context, key string) error {
	return c.Redis.Del(ctx, c.Namespace+":"+key).Err()
}
