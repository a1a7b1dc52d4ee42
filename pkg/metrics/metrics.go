// Package metrics provides centralized Prometheus metrics registry for the
// scrape client. All metrics are defined in their respective packages
// (client, cache, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the scrape client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - scrape_rate_limit_admissions_total (Counter): Requests admitted by the limiter
//   - scrape_rate_limit_throttles_total (Counter): Requests delayed waiting for a free slot
//   - scrape_rate_limit_wait_seconds (Histogram): Time spent waiting for admission
//
// Cache Metrics (pkg/cache):
//   - scrape_cache_hits_total{store} (Counter): Cache hits by store backend
//   - scrape_cache_misses_total (Counter): Cache misses
//   - scrape_cache_writes_total (Counter): Entries written to the cache
//   - scrape_cache_evictions_total (Counter): Expired entries removed
//   - scrape_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - scrape_requests_total{host, outcome} (Counter): Fetches by host and outcome
//     (cache_hit, fetched, error)
//   - scrape_request_duration_seconds{host} (Histogram): Fetch duration by host
//   - scrape_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - scrape_retries_total{error_class} (Counter): Retry attempts by error class
//   - scrape_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - scrape_retry_exhausted_total{error_class} (Counter): Fetches that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(scrape_cache_hits_total[5m])) /
//   (sum(rate(scrape_cache_hits_total[5m])) + sum(rate(scrape_cache_misses_total[5m])))
//
//   # Throttle Rate
//   rate(scrape_rate_limit_throttles_total[5m]) / rate(scrape_rate_limit_admissions_total[5m])
//
//   # Request Error Rate
//   rate(scrape_errors_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(scrape_request_duration_seconds_bucket[5m]))
