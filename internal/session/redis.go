package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "n8napp"
	DefaultSessionTTL  = 12 * time.Hour
)

// RedisBackend stores records under <prefix>:<session>:<key>. Every write
// refreshes the TTL, so an idle session expires on its own.
type RedisBackend struct {
	client  redis.UniversalClient
	prefix  string
	session string
	ttl     time.Duration
}

func NewRedisBackend(client redis.UniversalClient, prefix, sessionID string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisBackend{
		client:  client,
		prefix:  prefix,
		session: sessionID,
		ttl:     ttl,
	}
}

func (r *RedisBackend) key(k string) string {
	return r.prefix + ":" + r.session + ":" + k
}

func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisBackend) Put(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.key(key), value, r.ttl).Err()
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
