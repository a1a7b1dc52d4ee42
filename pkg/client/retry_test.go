package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    5 * time.Millisecond,
		MaxBackoff:        20 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("retryWithBackoff failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 503, Class: ErrorClassServer}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("retryWithBackoff failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return &HTTPError{StatusCode: 500, Class: ErrorClassServer}
	})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestRetryClientErrorNotRetried(t *testing.T) {
	calls := 0
	clientErr := &HTTPError{StatusCode: 404, Class: ErrorClassClient}
	err := retryWithBackoff(context.Background(), fastRetryConfig(3), func() error {
		calls++
		return clientErr
	})

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 404 {
		t.Errorf("error = %v, want the original 404", err)
	}
	if errors.Is(err, ErrRetryExhausted) {
		t.Error("client errors must not be reported as retry exhaustion")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestRetryNetworkErrorRetried(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetryConfig(2), func() error {
		calls++
		return errors.New("connection reset")
	})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       5,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := retryWithBackoff(ctx, cfg, func() error {
		calls++
		return &HTTPError{StatusCode: 500, Class: ErrorClassServer}
	})
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times before cancellation, want 1", calls)
	}
}

func TestRetryBackoffGrows(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    30 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
	}

	start := time.Now()
	retryWithBackoff(context.Background(), cfg, func() error {
		return &HTTPError{StatusCode: 503, Class: ErrorClassServer}
	})
	elapsed := time.Since(start)

	// Two backoffs of roughly 30ms and 60ms, each jittered down to at
	// most -20%.
	if elapsed < 72*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 72ms of backoff", elapsed)
	}
}
