// Package ratelimit bounds outbound request rate across three
// concurrent sliding windows (per-second, per-minute, per-hour),
// protecting scrapers against service throttling or bans.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for admission control.
var (
	limiterAdmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrape_rate_limit_admissions_total",
		Help: "Total number of requests admitted by the rate limiter",
	})

	limiterThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scrape_rate_limit_throttles_total",
		Help: "Total number of waits forced by a saturated rate window",
	})

	limiterWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scrape_rate_limit_wait_seconds",
		Help:    "Time spent waiting for an admission slot",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 30, 60},
	})
)

// ErrInvalidConfig indicates a ceiling of zero or below. This is a
// programmer error surfaced at construction time, never a runtime
// condition.
var ErrInvalidConfig = errors.New("invalid rate limiter config")

// The three sliding windows.
const (
	windowSecond = time.Second
	windowMinute = time.Minute
	windowHour   = time.Hour
)

// Config holds the per-window admission ceilings. Every ceiling must
// be at least 1.
type Config struct {
	// PerSecond bounds admissions within any trailing 1s interval.
	PerSecond int

	// PerMinute bounds admissions within any trailing 60s interval.
	PerMinute int

	// PerHour bounds admissions within any trailing 3600s interval.
	PerHour int
}

// DefaultConfig returns conservative ceilings suitable for polite
// scraping of a single site.
func DefaultConfig() Config {
	return Config{
		PerSecond: 1,
		PerMinute: 30,
		PerHour:   500,
	}
}

// Limiter admits requests only while all three sliding windows have
// headroom. It never fails an admission, it only delays it.
//
// Admissions are recorded in one ordered timestamp ledger; entries
// older than the largest window are pruned on every check to bound
// memory.
type Limiter struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	stamps []time.Time

	// now is replaced in tests to pin the clock.
	now func() time.Time
}

// NewLimiter creates a sliding-window limiter.
// Fails fast on a non-positive ceiling so a misconfigured limiter can
// never hang Admit forever.
func NewLimiter(cfg Config) (*Limiter, error) {
	if cfg.PerSecond < 1 {
		return nil, fmt.Errorf("%w: per-second ceiling must be >= 1 (got %d)", ErrInvalidConfig, cfg.PerSecond)
	}
	if cfg.PerMinute < 1 {
		return nil, fmt.Errorf("%w: per-minute ceiling must be >= 1 (got %d)", ErrInvalidConfig, cfg.PerMinute)
	}
	if cfg.PerHour < 1 {
		return nil, fmt.Errorf("%w: per-hour ceiling must be >= 1 (got %d)", ErrInvalidConfig, cfg.PerHour)
	}

	return &Limiter{
		cfg:    cfg,
		logger: log.With().Str("component", "ratelimit").Logger(),
		now:    time.Now,
	}, nil
}

// Config returns the configured ceilings.
func (l *Limiter) Config() Config {
	return l.cfg
}

// Admit blocks until all three windows have headroom, then atomically
// records the admission timestamp. The read-check-append sequence is a
// single critical section, so concurrent callers can never
// over-subscribe a window.
//
// Context cancellation support is an extension over the blocking-only
// contract: with a plain context.Background() the call only ever
// delays, never fails.
func (l *Limiter) Admit(ctx context.Context) error {
	start := l.now()

	for {
		l.mu.Lock()
		now := l.now()
		l.pruneLocked(now)

		if l.headroomLocked(now) {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()

			limiterAdmissionsTotal.Inc()
			if waited := now.Sub(start); waited > 0 {
				limiterWaitSeconds.Observe(waited.Seconds())
			}
			return nil
		}

		wait := l.waitLocked(now)
		l.mu.Unlock()

		limiterThrottlesTotal.Inc()
		l.logger.Debug().
			Dur("wait", wait).
			Msg("Rate limit reached, waiting for slot")

		if wait <= 0 {
			wait = time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// CanAdmitNow reports whether an admission would succeed without
// waiting.
func (l *Limiter) CanAdmitNow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)
	return l.headroomLocked(now)
}

// TimeUntilNextSlot returns the minimum wait before a new admission
// could succeed given current timestamps. Returns 0 when a slot is
// free. When multiple windows are at capacity the result is the
// maximum of the individual waits: the caller must outwait the
// strictest constraint.
func (l *Limiter) TimeUntilNextSlot() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.pruneLocked(now)
	if l.headroomLocked(now) {
		return 0
	}
	return l.waitLocked(now)
}

// pruneLocked drops timestamps older than the largest window.
// Caller must hold l.mu.
func (l *Limiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-windowHour)
	idx := sort.Search(len(l.stamps), func(i int) bool {
		return l.stamps[i].After(cutoff)
	})
	if idx > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[idx:]...)
	}
}

// headroomLocked reports whether all three windows are strictly below
// their ceilings. Caller must hold l.mu and have pruned.
func (l *Limiter) headroomLocked(now time.Time) bool {
	return l.countLocked(now, windowSecond) < l.cfg.PerSecond &&
		l.countLocked(now, windowMinute) < l.cfg.PerMinute &&
		len(l.stamps) < l.cfg.PerHour
}

// countLocked counts admissions younger than window.
// Caller must hold l.mu.
func (l *Limiter) countLocked(now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	idx := sort.Search(len(l.stamps), func(i int) bool {
		return l.stamps[i].After(cutoff)
	})
	return len(l.stamps) - idx
}

// waitLocked computes how long until each saturated window frees a
// slot and returns the maximum. Caller must hold l.mu.
func (l *Limiter) waitLocked(now time.Time) time.Duration {
	var wait time.Duration

	for _, w := range []struct {
		window  time.Duration
		ceiling int
	}{
		{windowSecond, l.cfg.PerSecond},
		{windowMinute, l.cfg.PerMinute},
		{windowHour, l.cfg.PerHour},
	} {
		count := l.countLocked(now, w.window)
		if count < w.ceiling {
			continue
		}
		// The slot frees when the (count-ceiling+1)-th newest
		// admission inside the window ages out of it.
		oldest := l.stamps[len(l.stamps)-count+(count-w.ceiling)]
		if d := oldest.Add(w.window).Sub(now); d > wait {
			wait = d
		}
	}

	return wait
}
