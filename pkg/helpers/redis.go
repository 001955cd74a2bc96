package helpers

import "github.com/redis/go-redis/v9"

// NewRedisClient initializes a redis client for the distributed cache
// backend. Connectivity is not probed here; the cache layer treats an
// unreachable server as a per-call condition, not a startup failure.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
