package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// FallbackBackend fronts a distributed backend with an in-process one.
// The primary is retried on every call, so a transient outage self-heals
// once connectivity returns; nothing is pinned at startup.
type FallbackBackend struct {
	primary   Backend
	secondary Backend
	logger    *logrus.Logger
}

func NewFallbackBackend(primary, secondary Backend, logger *logrus.Logger) *FallbackBackend {
	return &FallbackBackend{primary: primary, secondary: secondary, logger: logger}
}

func (b *FallbackBackend) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.primary.Get(ctx, key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return nil, err
	}
	b.warn("get", key, err)
	return b.secondary.Get(ctx, key)
}

func (b *FallbackBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.primary.Set(ctx, key, value, ttl)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return err
	}
	b.warn("set", key, err)
	return b.secondary.Set(ctx, key, value, ttl)
}

func (b *FallbackBackend) Delete(ctx context.Context, key string) error {
	err := b.primary.Delete(ctx, key)
	if err != nil && errors.Is(err, ErrUnavailable) {
		b.warn("delete", key, err)
	}
	// Always clear the secondary too; a stale local copy must not
	// outlive an invalidation that reached only one side.
	return b.secondary.Delete(ctx, key)
}

func (b *FallbackBackend) warn(op, key string, err error) {
	if b.logger != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{"op": op, "key": key}).
			Warn("distributed cache unreachable, using in-process fallback")
	}
}

var _ Backend = (*FallbackBackend)(nil)
