package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores session keys in Redis. Writes and deletes are sent as one
// MULTI/EXEC transaction so both keys change together.
type RedisBackend struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewRedisBackend creates a [RedisBackend]. A ttl of zero keeps keys until deleted.
func NewRedisBackend(client redis.UniversalClient, ttl time.Duration) *RedisBackend {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisBackend{
		redis: client,
		ttl:   ttl,
	}
}

// Get reads key, mapping redis.Nil to [ErrNotFound].
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return data, nil
}

// PutAll sets all entries, with the configured TTL, in one MULTI/EXEC pipeline.
func (r *RedisBackend) PutAll(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range entries {
			pipe.Set(ctx, k, v, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// DeleteAll removes keys in one MULTI/EXEC pipeline.
func (r *RedisBackend) DeleteAll(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Close does not close the client; the caller that created it owns it.
func (r *RedisBackend) Close() error { return nil }
