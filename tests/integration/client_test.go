package integration

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/webharvest/scrape-client/internal/testutil"
	"github.com/webharvest/scrape-client/pkg/cache"
	"github.com/webharvest/scrape-client/pkg/client"
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
		t.Skipf("Failed to start Redis container: %v", err)
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

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// TestFullFetchFlow tests the complete flow against a Redis-backed
// cache: rate limit admission, cache miss, origin fetch, cache write,
// then a cache hit.
func TestFullFetchFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/catalog", testutil.NewHTMLResponse(`<html><title>Catalog</title><body>items</body></html>`))

	cfg := client.DefaultConfig("", "scrape-integration/1.0 (integration@test.com)")
	cfg.Store = cache.NewRedisStore(redisClient)
	cfg.RequestsPerSecond = 10
	cfg.RequestsPerMinute = 100
	cfg.RequestsPerHour = 1000
	cfg.CacheTTL = time.Minute

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()

	// Request 1: miss, fetched from origin, written to Redis
	first, err := c.Get(ctx, origin.URL()+"/catalog")
	if err != nil {
		t.Fatalf("Request 1 failed: %v", err)
	}
	if first.StatusCode != http.StatusOK {
		t.Errorf("Request 1 status = %d, want %d", first.StatusCode, http.StatusOK)
	}
	if first.FromCache {
		t.Error("Request 1 should not come from cache")
	}
	if origin.GetRequestCount() != 1 {
		t.Errorf("After request 1: origin requests = %d, want 1", origin.GetRequestCount())
	}

	// Request 2: served from Redis without touching the origin
	second, err := c.Get(ctx, origin.URL()+"/catalog")
	if err != nil {
		t.Fatalf("Request 2 failed: %v", err)
	}
	if !second.FromCache {
		t.Error("Request 2 should come from cache")
	}
	if string(second.Body) != string(first.Body) {
		t.Error("cached body differs from fetched body")
	}
	if origin.GetRequestCount() != 1 {
		t.Errorf("After request 2: origin requests = %d, want 1", origin.GetRequestCount())
	}

	// The entry is visible through the store directly
	key := cache.RequestKey{Method: http.MethodGet, URL: origin.URL() + "/catalog"}
	if _, err := cfg.Store.Get(ctx, key.Hash()); err != nil {
		t.Errorf("entry not found in Redis store: %v", err)
	}

	// Clearing drops the entry and the next fetch goes to origin
	if err := c.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	if _, err := cfg.Store.Get(ctx, key.Hash()); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("store Get after clear = %v, want ErrNotFound", err)
	}

	third, err := c.Get(ctx, origin.URL()+"/catalog")
	if err != nil {
		t.Fatalf("Request 3 failed: %v", err)
	}
	if third.FromCache {
		t.Error("Request 3 after clear should go to origin")
	}
	if origin.GetRequestCount() != 2 {
		t.Errorf("After request 3: origin requests = %d, want 2", origin.GetRequestCount())
	}
}

// TestRateLimitAcrossFetches verifies the limiter paces real fetches.
func TestRateLimitAcrossFetches(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	origin := testutil.NewMockOrigin()
	defer origin.Close()

	cfg := client.DefaultConfig(t.TempDir(), "scrape-integration/1.0")
	cfg.NoCache = true
	cfg.RequestsPerSecond = 2
	cfg.RequestsPerMinute = 100
	cfg.RequestsPerHour = 1000

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := c.Get(ctx, origin.URL()+"/paced"); err != nil {
			t.Fatalf("fetch %d failed: %v", i+1, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 1500*time.Millisecond {
		t.Errorf("five fetches at 2/s took %v, want at least 1.5s", elapsed)
	}
	if origin.GetRequestCount() != 5 {
		t.Errorf("origin requests = %d, want 5", origin.GetRequestCount())
	}
}
