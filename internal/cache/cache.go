package cache

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable signals that the backend could not be reached. It is
// caught at the resolver boundary and treated as a miss; it never
// propagates past the permission layer.
var ErrUnavailable = errors.New("cache: backend unavailable")

// Backend is a key/value store with TTL. Implementations must be safe
// for concurrent use; writes are idempotent so racing repopulations of
// the same key are harmless.
type Backend interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
