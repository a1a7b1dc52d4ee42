package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrCacheMiss indicates the requested key was not found, was
	// expired, or could not be read back.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")

	// ErrInvalidTTL indicates a TTL below the supported resolution.
	ErrInvalidTTL = errors.New("cache TTL below minimum resolution")
)

const (
	// MinTTL is the minimum supported expiration resolution.
	MinTTL = time.Second

	// DefaultTTL matches a daily refresh cadence.
	DefaultTTL = 24 * time.Hour
)

// Stats is a snapshot of a cache instance's counters. All counters are
// monotonically non-decreasing within the instance's lifetime and reset
// only by Clear.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Writes    uint64 `json:"writes"`
	Evictions uint64 `json:"evictions"`
}

// FetchFunc performs the actual network call on a cache miss and
// returns the entry to store. A returned error propagates to the
// caller and nothing is cached.
type FetchFunc func() (*Entry, error)

// Manager applies a uniform TTL to entries held in a backing Store and
// keeps hit/miss accounting. Concurrent GetOrFetch calls for the same
// cold key are collapsed into a single fetch.
type Manager struct {
	store     Store
	storeName string
	ttl       time.Duration
	logger    zerolog.Logger

	mu    sync.Mutex
	stats Stats

	flight singleflight.Group
}

// NewManager creates a cache manager on top of store. A zero ttl
// selects DefaultTTL; a ttl below MinTTL is a configuration error.
func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		panic("cache store cannot be nil")
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < MinTTL {
		return nil, fmt.Errorf("%w: %v < %v", ErrInvalidTTL, ttl, MinTTL)
	}

	return &Manager{
		store:     store,
		storeName: storeLabel(store),
		ttl:       ttl,
		logger:    log.With().Str("component", "cache").Logger(),
	}, nil
}

// storeLabel determines the metric label for the backing store.
func storeLabel(store Store) string {
	switch store.(type) {
	case *FileStore:
		return "file"
	case *RedisStore:
		return "redis"
	default:
		return "custom"
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// TTL returns the uniform entry TTL.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Get retrieves a non-expired entry by key.
// Returns ErrCacheMiss if the key is absent, expired, unreadable or
// corrupt; read problems degrade to a miss rather than failing the
// lookup.
func (m *Manager) Get(ctx context.Context, key RequestKey) (*Entry, error) {
	entry, err := m.load(ctx, key)
	if err != nil {
		m.countMiss()
		return nil, err
	}

	m.countHit()
	return entry, nil
}

// load reads and validates an entry without touching statistics.
func (m *Manager) load(ctx context.Context, key RequestKey) (*Entry, error) {
	hash := key.Hash()

	data, err := m.store.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		m.logger.Warn().Err(err).Str("key", hash).Msg("Cache read failed, treating as miss")
		return nil, ErrCacheMiss
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt entry: left in place, overwritten on next write.
		CacheErrors.WithLabelValues("get").Inc()
		m.logger.Warn().Err(err).Str("key", hash).Msg("Corrupt cache entry, treating as miss")
		return nil, fmt.Errorf("%w: %w", ErrCacheMiss, ErrInvalidEntry)
	}

	if entry.IsExpired() {
		if err := m.store.Delete(ctx, hash); err != nil {
			CacheErrors.WithLabelValues("delete").Inc()
		}
		m.countEviction(1)
		return nil, ErrCacheMiss
	}

	return &entry, nil
}

// Set stores an entry under key, stamping StoredAt and ExpiresAt with
// the manager's uniform TTL. A write replaces any previous entry.
func (m *Manager) Set(ctx context.Context, key RequestKey, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now()
	}
	entry.ExpiresAt = entry.StoredAt.Add(m.ttl)

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.store.Put(ctx, key.Hash(), data, entry.TTL()); err != nil {
		CacheErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("store cache entry: %w", err)
	}

	m.countWrite()
	return nil
}

// Delete removes the entry for key.
func (m *Manager) Delete(ctx context.Context, key RequestKey) error {
	if err := m.store.Delete(ctx, key.Hash()); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// GetOrFetch returns the cached entry for key, or runs fetch on a miss
// and stores its result. Guarantees for an unexpired entry: repeated
// calls return the identical body without invoking fetch. Concurrent
// callers missing on the same key share a single fetch. A failed store
// write is logged and reported via metrics, but the freshly fetched
// entry is still returned.
func (m *Manager) GetOrFetch(ctx context.Context, key RequestKey, fetch FetchFunc) (*Entry, error) {
	if entry, err := m.Get(ctx, key); err == nil {
		return entry, nil
	}

	v, err, _ := m.flight.Do(key.Hash(), func() (interface{}, error) {
		// Another caller's in-flight fetch may have landed between the
		// miss above and acquiring the flight slot.
		if entry, err := m.load(ctx, key); err == nil {
			return entry, nil
		}

		entry, err := fetch()
		if err != nil {
			return nil, err
		}

		if err := m.Set(ctx, key, entry); err != nil {
			m.logger.Warn().Err(err).Str("key", key.Hash()).
				Msg("Cache write failed, serving uncached response")
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

// Clear removes all entries and resets statistics to zero.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("clear cache: %w", err)
	}

	m.mu.Lock()
	m.stats = Stats{}
	m.mu.Unlock()

	m.logger.Debug().Msg("Cache cleared")
	return nil
}

// SweepExpired scans stored entries and deletes every one whose
// expiration has passed, plus any entry that can no longer be decoded.
// Returns the number of entries removed. Safe to call concurrently
// with GetOrFetch.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		CacheErrors.WithLabelValues("sweep").Inc()
		return 0, fmt.Errorf("list cache entries: %w", err)
	}

	removed := 0
	for _, hash := range keys {
		data, err := m.store.Get(ctx, hash)
		if err != nil {
			// Concurrently deleted or unreadable; nothing to sweep.
			continue
		}

		var entry Entry
		stale := false
		if err := json.Unmarshal(data, &entry); err != nil {
			stale = true
		} else if entry.IsExpired() {
			stale = true
		}

		if !stale {
			continue
		}
		if err := m.store.Delete(ctx, hash); err != nil {
			CacheErrors.WithLabelValues("sweep").Inc()
			continue
		}
		removed++
	}

	if removed > 0 {
		m.countEviction(removed)
		m.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries")
	}
	return removed, nil
}

// Stats returns a snapshot of the cache counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *Manager) countHit() {
	m.mu.Lock()
	m.stats.Hits++
	m.mu.Unlock()
	CacheHits.WithLabelValues(m.storeName).Inc()
}

func (m *Manager) countMiss() {
	m.mu.Lock()
	m.stats.Misses++
	m.mu.Unlock()
	CacheMisses.Inc()
}

func (m *Manager) countWrite() {
	m.mu.Lock()
	m.stats.Writes++
	m.mu.Unlock()
	CacheWrites.Inc()
}

func (m *Manager) countEviction(n int) {
	m.mu.Lock()
	m.stats.Evictions += uint64(n)
	m.mu.Unlock()
	CacheEvictions.Add(float64(n))
}
