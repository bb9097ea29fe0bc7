package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache wraps the Redis client with the operations the partitions and
// registration record need. Redis is what makes cached responses and the
// worker registration visible to every context on the device.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ctx: context.Background(),
	}
}

// Client exposes the underlying client for transports sharing the
// connection (the broadcast bus).
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Get retrieves a value from Redis
func (c *RedisCache) Get(key string) ([]byte, error) {
	val, err := c.client.Get(c.ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Key doesn't exist
	}
	return val, err
}

// Set stores a value in Redis with TTL
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.client.Set(c.ctx, key, value, ttl).Err()
}

// Delete removes a key from Redis
func (c *RedisCache) Delete(key string) error {
	return c.client.Del(c.ctx, key).Err()
}

// SetAdd adds members to a Redis set
func (c *RedisCache) SetAdd(key string, members ...string) error {
	return c.client.SAdd(c.ctx, key, toInterfaces(members)...).Err()
}

// SetRemove removes members from a Redis set
func (c *RedisCache) SetRemove(key string, members ...string) error {
	return c.client.SRem(c.ctx, key, toInterfaces(members)...).Err()
}

// SetMembers returns all members of a Redis set
func (c *RedisCache) SetMembers(key string) ([]string, error) {
	return c.client.SMembers(c.ctx, key).Result()
}

// ZAdd adds a scored member to a sorted set
func (c *RedisCache) ZAdd(key string, score float64, member string) error {
	return c.client.ZAdd(c.ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// ZCard returns the size of a sorted set
func (c *RedisCache) ZCard(key string) (int64, error) {
	return c.client.ZCard(c.ctx, key).Result()
}

// ZRangeOldest returns up to n members with the lowest scores
func (c *RedisCache) ZRangeOldest(key string, n int64) ([]string, error) {
	stop := n - 1
	if n < 0 {
		stop = -1
	}
	return c.client.ZRange(c.ctx, key, 0, stop).Result()
}

// ZRangeByScoreBelow returns members with score <= max
func (c *RedisCache) ZRangeByScoreBelow(key string, max float64) ([]string, error) {
	return c.client.ZRangeByScore(c.ctx, key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatFloat(max, 'f', -1, 64),
	}).Result()
}

// ZRem removes members from a sorted set
func (c *RedisCache) ZRem(key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return c.client.ZRem(c.ctx, key, toInterfaces(members)...).Err()
}

// Ping checks if Redis is alive
func (c *RedisCache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func toInterfaces(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}
