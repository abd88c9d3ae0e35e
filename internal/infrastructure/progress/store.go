package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/touchdown-picks/internal/platform/cache"
)

// KV is the short-lived key/value store snapshots are written to.
type KV interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
}

// RedisStore writes snapshots with SET key value EX ttl.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

// CacheStore keeps snapshots in process, for single-node and test setups.
type CacheStore struct {
	cache *cache.Store
}

func NewCacheStore(store *cache.Store) *CacheStore {
	return &CacheStore{cache: store}
}

func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.SetWithTTL(ctx, key, append([]byte(nil), value...), ttl)
	return nil
}

func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false, nil
	}
	raw, ok := value.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("unexpected progress value type %T", value)
	}
	return append([]byte(nil), raw...), true, nil
}
