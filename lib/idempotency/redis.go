package idempotency

import (
	"context"
	"encoding/json"
	"errors"

	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared Cache backend, used when the gateway runs more
// than one replica. Expiry is delegated to the Redis key TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Get(ctx context.Context, operation, key string) (*Response, error) {
	value, err := c.client.Get(ctx, cacheKey(operation, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var response Response
	if err := json.Unmarshal(value, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *RedisCache) Set(ctx context.Context, operation, key string, statusCode int, body []byte, ttl time.Duration) error {
	value, err := json.Marshal(Response{StatusCode: statusCode, Body: body})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(operation, key), value, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
