//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/donlluque/api-etl/internal/testutil"
	"github.com/donlluque/api-etl/pkg/cache"
	"github.com/donlluque/api-etl/pkg/fetcher"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func cachedConfig(baseURL string, manager *cache.Manager) fetcher.Config {
	cfg := fetcher.DefaultConfig(baseURL)
	cfg.MaxPages = 5
	cfg.Sleep = time.Millisecond
	cfg.Cache = manager
	cfg.CacheTTL = time.Minute
	return cfg
}

func TestFetch_PageCache(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	manager := cache.NewManager(redisClient)

	mock := testutil.NewMockAPI(
		testutil.MockResponse{Body: `[{"id":1},{"id":2}]`},
		testutil.MockResponse{Body: `[{"id":3}]`},
		testutil.MockResponse{Body: `[]`},
	)
	defer mock.Close()

	ctx := context.Background()

	f, err := fetcher.New(cachedConfig(mock.URL(), manager))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	records, err := f.Fetch(ctx)
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Records = %d, want 3", len(records))
	}
	if mock.RequestCount() != 3 {
		t.Fatalf("Requests = %d, want 3", mock.RequestCount())
	}

	// Second run: all three pages, the empty terminator included, come
	// from cache, so no request reaches the server.
	f2, err := fetcher.New(cachedConfig(mock.URL(), manager))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	records, err = f2.Fetch(ctx)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Records = %d, want 3", len(records))
	}
	if mock.RequestCount() != 3 {
		t.Errorf("Requests = %d, want 3 (cached pages must not hit the server)", mock.RequestCount())
	}
}

func TestFetch_CacheExpiry(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	manager := cache.NewManager(redisClient)

	mock := testutil.NewMockAPI(
		testutil.MockResponse{Body: `[{"id":1}]`},
		testutil.MockResponse{Body: `[{"id":1}]`},
	)
	defer mock.Close()

	ctx := context.Background()

	cfg := cachedConfig(mock.URL(), manager)
	cfg.MaxPages = 1
	cfg.CacheTTL = 500 * time.Millisecond

	for run := 0; run < 2; run++ {
		f, err := fetcher.New(cfg)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, err := f.Fetch(ctx); err != nil {
			t.Fatalf("Fetch %d failed: %v", run, err)
		}
		if run == 0 {
			time.Sleep(time.Second) // let the entry expire
		}
	}

	if mock.RequestCount() != 2 {
		t.Errorf("Requests = %d, want 2 (expired entry must be refetched)", mock.RequestCount())
	}
}
