// Package batch provides parallel fetching for lists of URLs
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/webharvest/scrape-client/pkg/client"
)

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel fetch workers.
	// The shared rate limiter still bounds the aggregate request rate,
	// so extra workers mostly overlap cache lookups and waits.
	MaxConcurrency int
	// Timeout per URL fetch
	Timeout time.Duration
	// Buffer size for channels (default: estimated URL count)
	BufferSize int
}

// DefaultConfig returns safe default configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        60 * time.Second,
		BufferSize:     256,
	}
}

// Fetcher is the interface the scrape client implements for single-URL fetching
type Fetcher interface {
	Get(ctx context.Context, rawurl string) (*client.Result, error)
}

// URLResult represents the result of fetching a single URL
type URLResult struct {
	URL    string
	Result *client.Result
	Error  error
}

// BatchFetcher handles parallel fetching of multiple URLs
type BatchFetcher struct {
	fetcher Fetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher Fetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 256
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches all URLs in parallel using a worker pool.
// Failed URLs are recorded in the returned map with their error; one
// bad URL never aborts the rest of the batch.
func (bf *BatchFetcher) FetchAll(ctx context.Context, urls []string) map[string]URLResult {
	start := time.Now()

	results := make(map[string]URLResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	log.Info().
		Int("urls", len(urls)).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel fetch")

	urlQueue := make(chan string, bf.config.BufferSize)
	urlResults := make(chan URLResult, bf.config.BufferSize)

	go func() {
		for _, u := range urls {
			urlQueue <- u
		}
		close(urlQueue)
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, urlQueue, urlResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(urlResults)
	}()

	fetched := 0
	failed := 0
	for result := range urlResults {
		if result.Error != nil {
			failed++
			log.Warn().
				Err(result.Error).
				Str("url", result.URL).
				Msg("URL fetch failed")
		} else {
			fetched++
		}
		results[result.URL] = result

		// Progress logging every 50 URLs
		if (fetched+failed)%50 == 0 {
			log.Info().
				Int("done", fetched+failed).
				Int("total", len(urls)).
				Float64("progress_pct", float64(fetched+failed)/float64(len(urls))*100).
				Msg("Fetch progress")
		}
	}

	log.Info().
		Int("fetched", fetched).
		Int("failed", failed).
		Int("total", len(urls)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return results
}

// worker processes URLs from the queue
func (bf *BatchFetcher) worker(ctx context.Context, urlQueue <-chan string, results chan<- URLResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for rawurl := range urlQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		fetchCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		res, err := bf.fetcher.Get(fetchCtx, rawurl)
		cancel()

		select {
		case results <- URLResult{URL: rawurl, Result: res, Error: err}:
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled after fetch)")
			return
		}

		processed++
	}

	if processed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("processed", processed).
			Msg("Worker completed")
	}
}
