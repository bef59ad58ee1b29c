package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// Module manages the optional Redis connection behind a Handle. The cache
// is strictly an accelerator: when REDIS_ADDR is unset or the server is
// unreachable the application runs uncached.
type Module struct {
	logger types.Logger
	addr   string
	prefix string
	ttl    time.Duration
	client *redis.Client
	store  *RedisStore
	handle *Handle
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new cache module. Configuration comes from the
// environment: REDIS_ADDR enables the cache, CACHE_TTL overrides the TTL.
func NewModule(logger types.Logger) *Module {
	ttl := defaultTTL
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			ttl = parsed
		}
	}
	return &Module{
		logger: logger,
		addr:   os.Getenv("REDIS_ADDR"),
		prefix: "chat:",
		ttl:    ttl,
		handle: NewHandle(),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cache"
}

// Store returns the handle dependents hold. Valid before Start; reads are
// misses until the Redis backend is attached.
func (m *Module) Store() *Handle {
	return m.handle
}

// Start connects to Redis when configured. An unreachable server downgrades
// to the no-op store with a warning instead of failing startup.
func (m *Module) Start(ctx context.Context) error {
	if m.addr == "" {
		m.logger.Info("REDIS_ADDR not set, history cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: m.addr})
	if err := client.Ping(ctx).Err(); err != nil {
		m.logger.Warn("Redis unreachable, history cache disabled", "addr", m.addr, "error", err)
		_ = client.Close()
		return nil
	}

	m.client = client
	m.store = NewRedisStore(client, m.prefix, m.ttl)
	m.handle.swap(m.store)
	m.logger.Info("History cache enabled", "addr", m.addr, "ttl", m.ttl.String())
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if m.client == nil {
		return nil
	}
	m.handle.swap(Noop{})
	if err := m.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	m.logger.Info("Cache module stopped")
	return nil
}

// Health reports the cache state. A disabled cache is healthy: the
// application is designed to run without it.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.client == nil {
		return mono.HealthStatus{
			Healthy: true,
			Message: "disabled",
		}
	}

	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}

	stats := m.store.Snapshot()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":   m.addr,
			"hits":   stats.Hits,
			"misses": stats.Misses,
			"sets":   stats.Sets,
		},
	}
}
