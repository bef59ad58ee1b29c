package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// Integration tests require Redis on localhost:6379 and are skipped
// otherwise.
const testRedisAddr = "localhost:6379"

// setupRedisStore creates a Redis-backed store with an isolated prefix.
// Returns the store and a cleanup function.
func setupRedisStore(t *testing.T, prefix string) (*RedisStore, func()) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	store := NewRedisStore(client, prefix, time.Minute)

	cleanup := func() {
		_ = store.DeletePrefix(ctx, "")
		_ = client.Close()
	}
	return store, cleanup
}

func TestRedisStore_SetGet(t *testing.T) {
	store, cleanup := setupRedisStore(t, "test:setget:")
	defer cleanup()
	ctx := context.Background()

	type page struct {
		Contents []string `json:"contents"`
	}

	if err := store.Set(ctx, "history:general:0:20", page{Contents: []string{"a", "b"}}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got page
	hit, err := store.Get(ctx, "history:general:0:20", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit {
		t.Fatal("expected a cache hit")
	}
	if len(got.Contents) != 2 || got.Contents[0] != "a" {
		t.Errorf("unexpected cached value %+v", got)
	}

	t.Run("miss on unknown key", func(t *testing.T) {
		var dest page
		hit, err := store.Get(ctx, "history:nowhere:0:20", &dest)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if hit {
			t.Error("expected a miss for an unknown key")
		}
	})

	stats := store.Snapshot()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRedisStore_DeletePrefix(t *testing.T) {
	store, cleanup := setupRedisStore(t, "test:delprefix:")
	defer cleanup()
	ctx := context.Background()

	keys := []string{
		"history:general:0:20",
		"history:general:1:20",
		"history:other:0:20",
	}
	for _, k := range keys {
		if err := store.Set(ctx, k, "v"); err != nil {
			t.Fatalf("Set(%s) error = %v", k, err)
		}
	}

	if err := store.DeletePrefix(ctx, "history:general:"); err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}

	var dest string
	for _, k := range keys[:2] {
		if hit, _ := store.Get(ctx, k, &dest); hit {
			t.Errorf("expected %s to be invalidated", k)
		}
	}
	if hit, _ := store.Get(ctx, keys[2], &dest); !hit {
		t.Error("expected sibling room's pages to survive invalidation")
	}
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var store Store = Noop{}

	if err := store.Set(ctx, "key", "value"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var dest string
	hit, err := store.Get(ctx, "key", &dest)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("noop store must never report a hit")
	}

	if err := store.DeletePrefix(ctx, "key"); err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}
}

// recordingStore counts calls, for verifying handle swapping.
type recordingStore struct {
	gets int
}

func (r *recordingStore) Get(context.Context, string, any) (bool, error) {
	r.gets++
	return false, nil
}
func (r *recordingStore) Set(context.Context, string, any) error     { return nil }
func (r *recordingStore) DeletePrefix(context.Context, string) error { return nil }

func TestHandle_Swap(t *testing.T) {
	ctx := context.Background()
	h := NewHandle()

	// Before any swap the handle is a miss-only store
	var dest string
	hit, err := h.Get(ctx, "key", &dest)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Error("expected miss from the default backend")
	}

	rec := &recordingStore{}
	h.swap(rec)

	if _, err := h.Get(ctx, "key", &dest); err != nil {
		t.Fatalf("Get() after swap error = %v", err)
	}
	if rec.gets != 1 {
		t.Errorf("expected the swapped backend to serve reads, gets = %d", rec.gets)
	}

	h.swap(Noop{})
	if _, err := h.Get(ctx, "key", &dest); err != nil {
		t.Fatalf("Get() after swap back error = %v", err)
	}
	if rec.gets != 1 {
		t.Error("expected the detached backend to stop receiving reads")
	}
}
