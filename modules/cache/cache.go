// Package cache provides an optional Redis-backed read-through cache for
// paginated room history, with cache-aside semantics and prefix
// invalidation. When Redis is not configured the no-op store keeps every
// caller on the database path.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the caching contract the room module consumes.
type Store interface {
	// Get retrieves a value into dest. The boolean reports a cache hit.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores a value under key with the store's TTL.
	Set(ctx context.Context, key string, value any) error
	// DeletePrefix removes every key sharing the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// Stats tracks cache counters.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Sets    uint64 `json:"sets"`
	Deletes uint64 `json:"deletes"`
	Errors  uint64 `json:"errors"`
}

// Noop is a Store that caches nothing. Every Get is a miss.
type Noop struct{}

func (Noop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, any) error         { return nil }
func (Noop) DeletePrefix(context.Context, string) error     { return nil }

// RedisStore is a Store backed by a Redis client.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	stats  Stats
}

// NewRedisStore creates a Redis-backed store. prefix namespaces all keys so
// DeletePrefix and test cleanup never touch foreign data.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get retrieves a value from Redis.
func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			atomic.AddUint64(&s.stats.Misses, 1)
			return false, nil
		}
		atomic.AddUint64(&s.stats.Errors, 1)
		return false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}

	atomic.AddUint64(&s.stats.Hits, 1)
	return true, nil
}

// Set stores a value in Redis with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return fmt.Errorf("cache set error: %w", err)
	}

	atomic.AddUint64(&s.stats.Sets, 1)
	return nil
}

// DeletePrefix scans and removes every key under prefix.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	pattern := s.prefix + prefix + "*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			atomic.AddUint64(&s.stats.Errors, 1)
			return fmt.Errorf("cache scan error: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				atomic.AddUint64(&s.stats.Errors, 1)
				return fmt.Errorf("cache delete error: %w", err)
			}
			atomic.AddUint64(&s.stats.Deletes, uint64(len(keys)))
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Snapshot returns a copy of the current counters.
func (s *RedisStore) Snapshot() Stats {
	return Stats{
		Hits:    atomic.LoadUint64(&s.stats.Hits),
		Misses:  atomic.LoadUint64(&s.stats.Misses),
		Sets:    atomic.LoadUint64(&s.stats.Sets),
		Deletes: atomic.LoadUint64(&s.stats.Deletes),
		Errors:  atomic.LoadUint64(&s.stats.Errors),
	}
}

// Handle is a Store whose backing implementation can be swapped when the
// module starts. It is handed to dependents before Start runs, so it
// defaults to the no-op store.
type Handle struct {
	mu   sync.RWMutex
	impl Store
}

// NewHandle creates a Handle backed by the no-op store.
func NewHandle() *Handle {
	return &Handle{impl: Noop{}}
}

// swap replaces the backing store.
func (h *Handle) swap(impl Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.impl = impl
}

func (h *Handle) backend() Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.impl
}

func (h *Handle) Get(ctx context.Context, key string, dest any) (bool, error) {
	return h.backend().Get(ctx, key, dest)
}

func (h *Handle) Set(ctx context.Context, key string, value any) error {
	return h.backend().Set(ctx, key, value)
}

func (h *Handle) DeletePrefix(ctx context.Context, prefix string) error {
	return h.backend().DeletePrefix(ctx, prefix)
}
