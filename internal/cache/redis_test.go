package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test unless ASOC_TEST_REDIS_URL points at a
// reachable server.
func skipIfNoRedis(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("ASOC_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: ASOC_TEST_REDIS_URL not set")
	}

	opts := DefaultRedisCacheOptions()
	opts.URL = url
	opts.Prefix = "asociados-test:"
	opts.DefaultTTL = time.Minute
	c, err := NewRedisCache(opts)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		_ = c.Close()
	})
	return c
}

func TestRedisCache_Basic(t *testing.T) {
	c := skipIfNoRedis(t)
	ctx := context.Background()

	if err := c.Set(ctx, "session:abc", []byte(`{"token":"x"}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := c.Get(ctx, "session:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"token":"x"}` {
		t.Errorf("Get returned %q", got)
	}

	if ok, err := c.Has(ctx, "session:abc"); err != nil || !ok {
		t.Errorf("Has = %v, %v, want true", ok, err)
	}

	if err := c.Delete(ctx, "session:abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "session:abc"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after Delete returned %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_DeleteByPrefix(t *testing.T) {
	c := skipIfNoRedis(t)
	ctx := context.Background()

	_ = c.Set(ctx, "session:1", []byte("a"), 0)
	_ = c.Set(ctx, "session:2", []byte("b"), 0)
	_ = c.Set(ctx, "catalog", []byte("c"), 0)

	if err := c.DeleteByPrefix(ctx, "session:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if ok, _ := c.Has(ctx, "session:1"); ok {
		t.Error("session:1 survived DeleteByPrefix")
	}
	if ok, _ := c.Has(ctx, "catalog"); !ok {
		t.Error("catalog was removed by DeleteByPrefix")
	}
}

func TestRedisCache_TTL(t *testing.T) {
	c := skipIfNoRedis(t)
	ctx := context.Background()

	if err := c.Set(ctx, "short", []byte("v"), 100*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(250 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get after TTL returned %v, want ErrCacheMiss", err)
	}
}

func TestRedisCache_Closed(t *testing.T) {
	c := skipIfNoRedis(t)
	_ = c.Close()

	if _, err := c.Get(context.Background(), "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get on closed cache returned %v, want ErrCacheClosed", err)
	}
}

func TestNewRedisCacheRequiresURL(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheOptions{}); err == nil {
		t.Error("NewRedisCache accepted an empty URL")
	}
}
