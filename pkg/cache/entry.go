// Package cache provides persistent HTTP response caching for scrapers.
package cache

import (
	"time"
)

// Entry represents a cached HTTP response.
type Entry struct {
	// Body is the raw response body
	Body []byte `json:"body"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type header of the cached response
	ContentType string `json:"content_type"`

	// StoredAt is when the entry was written
	StoredAt time.Time `json:"stored_at"`

	// ExpiresAt is when the entry becomes stale (StoredAt + configured TTL)
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the entry has passed its expiration time.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.ExpiresAt)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
