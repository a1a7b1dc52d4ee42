// Package cache maps outbound HTTP requests to previously received
// response bodies, with uniform time-based expiration and persistent
// storage.
//
// The cache manager provides:
//
// - Deterministic request keys (method + normalized URL + parameters)
// - A pluggable backing store (file-per-key on disk, or Redis)
// - Uniform configurable TTL with lazy expiry and an explicit sweep
// - Hit/miss/write/eviction accounting plus Prometheus metrics
// - Single-flight fetch on concurrent cold misses
//
// # Basic Usage
//
//	store, err := cache.NewFileStore(".cache")
//	if err != nil {
//		return err
//	}
//
//	manager, err := cache.NewManager(store, 6*time.Hour)
//	if err != nil {
//		return err
//	}
//
//	key := cache.RequestKey{
//		Method: "GET",
//		URL:    "https://example.com/news",
//		Params: url.Values{"page": []string{"1"}},
//	}
//
//	entry, err := manager.GetOrFetch(ctx, key, func() (*cache.Entry, error) {
//		// perform the network call, return the entry to cache
//	})
//
// # Durability
//
// The file store commits entries with a temp-file-plus-rename step, so
// a partially written entry is never visible to readers and the cache
// survives process restarts. Read failures and corrupt entries degrade
// to a miss: the caller transparently falls back to the network.
//
// # Metrics
//
// The package exports Prometheus metrics:
//
//   - scrape_cache_hits_total{store} - Cache hits by backend
//   - scrape_cache_misses_total - Cache misses
//   - scrape_cache_writes_total - Entry writes
//   - scrape_cache_evictions_total - Expired entries removed
//   - scrape_cache_errors_total{operation} - Cache operation errors
package cache
