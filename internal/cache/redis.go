package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores entries in redis under "<prefix>:<key>". The client
// dials lazily and redials on the next command after a failure.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend returns a Backend over client.
func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// NewRedisBackendAddrs dials the given addresses (a single node, a sentinel
// group or a cluster, as redis.NewUniversalClient decides).
func NewRedisBackendAddrs(addrs []string, prefix string) *RedisBackend {
	return NewRedisBackend(redis.NewUniversalClient(&redis.UniversalOptions{Addrs: addrs}), prefix)
}

func (r *RedisBackend) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

// Set implements Backend. TTL maps to SET ... EX.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

// Close closes the client.
func (r *RedisBackend) Close() error { return r.client.Close() }
