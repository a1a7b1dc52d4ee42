// Package client provides the polite fetch wrapper that scraping code
// calls: it sequences rate-limit admission, response caching, the
// network call and retry handling behind a single Fetch method.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/webharvest/scrape-client/pkg/cache"
	"github.com/webharvest/scrape-client/pkg/ratelimit"
)

// Prometheus metrics for fetch operations.
var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_requests_total",
		Help: "Total fetches by host and outcome",
	}, []string{"host", "outcome"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scrape_request_duration_seconds",
		Help:    "Fetch duration in seconds by host",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"host"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scrape_errors_total",
		Help: "Total fetch errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// UserAgent identifies the scraper to target sites (required).
	UserAgent string

	// CacheDir is the directory for the default file-backed cache.
	CacheDir string

	// CacheTTL is the uniform entry freshness window.
	// Zero selects cache.DefaultTTL (daily refresh cadence).
	CacheTTL time.Duration

	// Store overrides the default file store (e.g. a RedisStore).
	Store cache.Store

	// NoCache disables response caching entirely; every fetch goes to
	// the network (still rate limited).
	NoCache bool

	// Rate ceilings, one per sliding window.
	RequestsPerSecond int
	RequestsPerMinute int
	RequestsPerHour   int

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// Retry configures backoff for retryable failures.
	Retry RetryConfig

	// HTTPClient overrides the default HTTP client (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration for polite
// scraping.
func DefaultConfig(cacheDir, userAgent string) Config {
	return Config{
		UserAgent:         userAgent,
		CacheDir:          cacheDir,
		CacheTTL:          cache.DefaultTTL,
		RequestsPerSecond: 1,
		RequestsPerMinute: 30,
		RequestsPerHour:   500,
		Timeout:           30 * time.Second,
		Retry:             DefaultRetryConfig(),
	}
}

// Client is the fetch wrapper. It owns a cache manager and a rate
// limiter received at construction; there is no ambient shared state.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	limiter    *ratelimit.Limiter
	config     Config
	logger     zerolog.Logger
}

// Result is the outcome of a fetch.
type Result struct {
	// URL is the requested URL (before redirects).
	URL string

	// StatusCode is the HTTP status of the (possibly cached) response.
	StatusCode int

	// ContentType is the response content type.
	ContentType string

	// Body is the raw response body.
	Body []byte

	// FromCache is true when no network call was made.
	FromCache bool
}

// New creates a fetch client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	limiter, err := ratelimit.NewLimiter(ratelimit.Config{
		PerSecond: cfg.RequestsPerSecond,
		PerMinute: cfg.RequestsPerMinute,
		PerHour:   cfg.RequestsPerHour,
	})
	if err != nil {
		return nil, err
	}

	var manager *cache.Manager
	if !cfg.NoCache {
		store := cfg.Store
		if store == nil {
			if cfg.CacheDir == "" {
				return nil, fmt.Errorf("cache directory is required unless caching is disabled")
			}
			store, err = cache.NewFileStore(cfg.CacheDir)
			if err != nil {
				return nil, err
			}
		}
		manager, err = cache.NewManager(store, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: httpClient,
		cache:      manager,
		limiter:    limiter,
		config:     cfg,
		logger:     log.With().Str("component", "scrape-client").Logger(),
	}, nil
}

// Fetch retrieves a URL, serving from the response cache when a fresh
// entry exists. On a miss it waits for rate-limit admission, performs
// the HTTP call with retries, stores the result and returns it.
// Network failures propagate unchanged and are never cached.
func (c *Client) Fetch(ctx context.Context, method, rawurl string, params url.Values) (*Result, error) {
	host := hostOf(rawurl)
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
	}()

	key := cache.RequestKey{Method: method, URL: rawurl, Params: params}

	if c.cache == nil {
		entry, err := c.fetchOrigin(ctx, method, rawurl, params)
		if err != nil {
			fetchRequestsTotal.WithLabelValues(host, "error").Inc()
			return nil, err
		}
		fetchRequestsTotal.WithLabelValues(host, "fetched").Inc()
		return resultFrom(rawurl, entry, false), nil
	}

	fetched := false
	entry, err := c.cache.GetOrFetch(ctx, key, func() (*cache.Entry, error) {
		fetched = true
		return c.fetchOrigin(ctx, method, rawurl, params)
	})
	if err != nil {
		fetchRequestsTotal.WithLabelValues(host, "error").Inc()
		return nil, err
	}

	if fetched {
		fetchRequestsTotal.WithLabelValues(host, "fetched").Inc()
	} else {
		fetchRequestsTotal.WithLabelValues(host, "cache_hit").Inc()
		c.logger.Debug().Str("url", rawurl).Msg("Served from cache")
	}

	return resultFrom(rawurl, entry, !fetched), nil
}

// Get fetches a URL with the GET method and no extra parameters.
func (c *Client) Get(ctx context.Context, rawurl string) (*Result, error) {
	return c.Fetch(ctx, http.MethodGet, rawurl, nil)
}

// fetchOrigin performs the rate-limited network call with retries.
// Every attempt that reaches the network counts against the limiter,
// whether or not it succeeds.
func (c *Client) fetchOrigin(ctx context.Context, method, rawurl string, params url.Values) (*cache.Entry, error) {
	if method == "" {
		method = http.MethodGet
	}

	fullURL, err := buildURL(rawurl, params)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	var entry *cache.Entry
	retryErr := retryWithBackoff(ctx, c.config.Retry, func() error {
		if err := c.limiter.Admit(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		c.logger.Debug().
			Str("method", method).
			Str("url", fullURL).
			Msg("Fetching from origin")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return err
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			class := classifyStatus(resp.StatusCode)
			fetchErrorsTotal.WithLabelValues(string(class)).Inc()

			c.logger.Warn().
				Str("url", fullURL).
				Int("status", resp.StatusCode).
				Str("error_class", string(class)).
				Msg("Fetch returned error status")

			return &HTTPError{
				StatusCode: resp.StatusCode,
				Class:      class,
				URL:        fullURL,
			}
		}

		entry, err = cache.ResponseToEntry(resp)
		resp.Body.Close()
		if err != nil {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return err
		}
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	return entry, nil
}

// CacheStats returns a snapshot of the cache counters.
// Returns zero stats when caching is disabled.
func (c *Client) CacheStats() cache.Stats {
	if c.cache == nil {
		return cache.Stats{}
	}
	return c.cache.Stats()
}

// ClearCache removes all cached entries and resets statistics.
func (c *Client) ClearCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear(ctx)
}

// SweepCache deletes expired entries, returning the count removed.
func (c *Client) SweepCache(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	return c.cache.SweepExpired(ctx)
}

// Cache returns the underlying cache manager, or nil when caching is
// disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Limiter returns the underlying rate limiter.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

func resultFrom(rawurl string, entry *cache.Entry, fromCache bool) *Result {
	return &Result{
		URL:         rawurl,
		StatusCode:  entry.StatusCode,
		ContentType: entry.ContentType,
		Body:        entry.Body,
		FromCache:   fromCache,
	}
}

// buildURL merges params into the URL's query string.
func buildURL(rawurl string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawurl, nil
	}

	u, err := url.Parse(rawurl)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func hostOf(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
