package cache

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"lukechampine.com/blake3"
)

// RequestKey identifies an outbound HTTP request for caching purposes.
// Two keys with the same method, normalized URL and parameters are
// guaranteed to produce the same storage key across process restarts.
type RequestKey struct {
	// Method is the HTTP method (defaults to GET if empty)
	Method string

	// URL is the request URL without query parameters carried in Params
	URL string

	// Params are the query parameters that affect the response
	Params url.Values
}

// String generates a deterministic canonical key string.
// Format: fetch:METHOD:normalized-url:param1=val1:param2=val2
//
// Example:
//
//	fetch:GET:https://example.com/news:page=2:q=inovaweek
func (k RequestKey) String() string {
	method := strings.ToUpper(k.Method)
	if method == "" {
		method = "GET"
	}

	parts := []string{"fetch", method, normalizeURL(k.URL)}

	// Add params (sorted for determinism)
	if len(k.Params) > 0 {
		paramKeys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			paramKeys = append(paramKeys, key)
		}
		sort.Strings(paramKeys)

		for _, key := range paramKeys {
			values := append([]string(nil), k.Params[key]...)
			sort.Strings(values)
			for _, v := range values {
				parts = append(parts, fmt.Sprintf("%s=%s", key, v))
			}
		}
	}

	return strings.Join(parts, ":")
}

// Hash returns the fixed-length hex digest of the canonical key string.
// It is used as the storage key, including the on-disk filename of the
// file-backed store.
func (k RequestKey) Hash() string {
	sum := blake3.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:])
}

// normalizeURL lowercases scheme and host, strips the fragment and a
// trailing slash so that trivially different spellings of the same
// page share a cache entry. Unparseable URLs are used verbatim.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}
