package cache

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a test Redis client, skipping when Redis is
// not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func testKey(page string) Key {
	return Key{
		URL:    "https://api.example.com/items",
		Params: url.Values{"page": []string{page}},
	}
}

func TestManager_SetGet(t *testing.T) {
	m := NewManager(setupTestRedis(t))
	ctx := context.Background()

	body := []byte(`[{"id":1}]`)
	if err := m.Set(ctx, testKey("1"), NewEntry(body, 200, time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entry, err := m.Get(ctx, testKey("1"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(entry.Body) != string(body) {
		t.Errorf("Body = %s, want %s", entry.Body, body)
	}
	if entry.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", entry.StatusCode)
	}
}

func TestManager_GetMiss(t *testing.T) {
	m := NewManager(setupTestRedis(t))

	_, err := m.Get(context.Background(), testKey("404"))
	if err != ErrCacheMiss {
		t.Errorf("Error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_ExpiredEntryNotCached(t *testing.T) {
	m := NewManager(setupTestRedis(t))
	ctx := context.Background()

	if err := m.Set(ctx, testKey("1"), NewEntry([]byte(`[]`), 200, -time.Second)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := m.Get(ctx, testKey("1")); err != ErrCacheMiss {
		t.Errorf("Error = %v, want ErrCacheMiss for expired entry", err)
	}
}

func TestManager_Delete(t *testing.T) {
	m := NewManager(setupTestRedis(t))
	ctx := context.Background()

	if err := m.Set(ctx, testKey("1"), NewEntry([]byte(`[]`), 200, time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.Delete(ctx, testKey("1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(ctx, testKey("1")); err != ErrCacheMiss {
		t.Errorf("Error = %v, want ErrCacheMiss after delete", err)
	}
}

func TestNewManager_NilRedisPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic on nil redis client")
		}
	}()
	NewManager(nil)
}
