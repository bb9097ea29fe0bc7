package cache

import "time"

// Store is the narrow key/value surface the cache partitions and the
// worker registration record need. RedisCache is the shared cross-context
// implementation; MemoryStore is the in-process fallback used when redis
// is unreachable.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error

	SetAdd(key string, members ...string) error
	SetRemove(key string, members ...string) error
	SetMembers(key string) ([]string, error)

	ZAdd(key string, score float64, member string) error
	ZCard(key string) (int64, error)
	// ZRangeOldest returns up to n members with the lowest scores.
	// n < 0 returns all members.
	ZRangeOldest(key string, n int64) ([]string, error)
	// ZRangeByScoreBelow returns members with score <= max.
	ZRangeByScoreBelow(key string, max float64) ([]string, error)
	ZRem(key string, members ...string) error

	Ping() error
	Close() error
}
