package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps state in Redis so several machines can share one login.
// All keys are namespaced with the profile name.
type RedisStore struct {
	rdb     *redis.Client
	profile string
}

// NewRedisStore creates a store for the given profile.
// Returns an error if profile is empty.
func NewRedisStore(redisOpts *redis.Options, profile string) (*RedisStore, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile name cannot be empty")
	}
	return &RedisStore{
		rdb:     redis.NewClient(redisOpts),
		profile: profile,
	}, nil
}

// OpenRedis parses a redis:// URL and pings the server.
func OpenRedis(ctx context.Context, url, profile string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	store, err := NewRedisStore(opts, profile)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return store, nil
}

// Key returns the namespaced Redis key.
// Pattern: shop:{profile}:{key}
func (s *RedisStore) Key(key string) string {
	var builder strings.Builder
	builder.Grow(len("shop:") + len(s.profile) + 1 + len(key))
	builder.WriteString("shop:")
	builder.WriteString(s.profile)
	builder.WriteString(":")
	builder.WriteString(key)
	return builder.String()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Get returns the value for key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.Key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from Redis: %w", key, err)
	}
	return data, nil
}

// Set stores value under key with Redis-native expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.Key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s to Redis: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s from Redis: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key in this profile starting with prefix,
// walking the keyspace with SCAN.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return fmt.Errorf("state key prefix is required")
	}
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.Key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan %s* in Redis: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete %s* from Redis: %w", prefix, err)
	}
	return nil
}
