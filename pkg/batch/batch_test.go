package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/webharvest/scrape-client/pkg/client"
)

// stubFetcher records fetched URLs and fails those containing "bad".
type stubFetcher struct {
	mu      sync.Mutex
	fetched []string
}

func (f *stubFetcher) Get(ctx context.Context, rawurl string) (*client.Result, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, rawurl)
	f.mu.Unlock()

	if strings.Contains(rawurl, "bad") {
		return nil, errors.New("simulated fetch failure")
	}
	return &client.Result{
		URL:        rawurl,
		StatusCode: 200,
		Body:       []byte("body of " + rawurl),
	}, nil
}

func (f *stubFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func TestFetchAll(t *testing.T) {
	fetcher := &stubFetcher{}
	bf := NewBatchFetcher(fetcher, Config{MaxConcurrency: 3})

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/page-%d", i)
	}

	results := bf.FetchAll(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("got %d results, want %d", len(results), len(urls))
	}
	for _, u := range urls {
		r, ok := results[u]
		if !ok {
			t.Errorf("missing result for %s", u)
			continue
		}
		if r.Error != nil {
			t.Errorf("%s failed: %v", u, r.Error)
			continue
		}
		if string(r.Result.Body) != "body of "+u {
			t.Errorf("%s body = %q", u, r.Result.Body)
		}
	}
	if fetcher.count() != len(urls) {
		t.Errorf("fetcher called %d times, want %d", fetcher.count(), len(urls))
	}
}

func TestFetchAllPartialFailure(t *testing.T) {
	fetcher := &stubFetcher{}
	bf := NewBatchFetcher(fetcher, Config{MaxConcurrency: 2})

	urls := []string{
		"https://example.com/good-1",
		"https://example.com/bad-1",
		"https://example.com/good-2",
		"https://example.com/bad-2",
	}

	results := bf.FetchAll(context.Background(), urls)

	if len(results) != len(urls) {
		t.Fatalf("got %d results, want %d", len(results), len(urls))
	}

	failed := 0
	for u, r := range results {
		if strings.Contains(u, "bad") {
			if r.Error == nil {
				t.Errorf("%s should have failed", u)
			}
			failed++
		} else if r.Error != nil {
			t.Errorf("%s failed unexpectedly: %v", u, r.Error)
		}
	}
	if failed != 2 {
		t.Errorf("failed = %d, want 2", failed)
	}
}

func TestFetchAllEmpty(t *testing.T) {
	bf := NewBatchFetcher(&stubFetcher{}, DefaultConfig())
	results := bf.FetchAll(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("got %d results for empty input", len(results))
	}
}

func TestNewBatchFetcherDefaults(t *testing.T) {
	bf := NewBatchFetcher(&stubFetcher{}, Config{})
	if bf.config.MaxConcurrency <= 0 {
		t.Error("MaxConcurrency not defaulted")
	}
	if bf.config.Timeout <= 0 {
		t.Error("Timeout not defaulted")
	}
	if bf.config.BufferSize <= 0 {
		t.Error("BufferSize not defaulted")
	}
}
