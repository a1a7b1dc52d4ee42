package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by store backend
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"store"}, // "file", "redis"
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheWrites tracks successful entry writes
	CacheWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_cache_writes_total",
			Help: "Total number of response cache writes",
		},
	)

	// CacheEvictions tracks expired or corrupt entries removed
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_cache_evictions_total",
			Help: "Total number of cache entries evicted on expiry",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "put", "delete", "sweep"
	)
)
