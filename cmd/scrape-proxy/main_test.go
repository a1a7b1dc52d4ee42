package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/webharvest/scrape-client/internal/testutil"
	"github.com/webharvest/scrape-client/pkg/client"
)

func newProxyTestClient(t *testing.T) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig(t.TempDir(), "scrape-proxy-test/1.0")
	cfg.RequestsPerSecond = 100
	cfg.RequestsPerMinute = 1000
	cfg.RequestsPerHour = 10000

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", rec.Body.String())
	}
}

func TestFetchHandlerMissingURL(t *testing.T) {
	handler := fetchHandler(newProxyTestClient(t))

	req := httptest.NewRequest(http.MethodGet, "/fetch", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFetchHandlerCacheHeader(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/page", testutil.NewHTMLResponse("<html>proxied</html>"))

	handler := fetchHandler(newProxyTestClient(t))
	target := url.QueryEscape(origin.URL() + "/page")

	// First request misses
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/fetch?url="+target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}
	body, _ := io.ReadAll(rec.Body)
	if string(body) != "<html>proxied</html>" {
		t.Errorf("body = %q", body)
	}

	// Second request hits
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/fetch?url="+target, nil))

	if got := rec.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
	if origin.GetRequestCount() != 1 {
		t.Errorf("origin hit %d times, want 1", origin.GetRequestCount())
	}
}

func TestFetchHandlerUpstreamError(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/gone", testutil.NewNotFoundResponse())

	handler := fetchHandler(newProxyTestClient(t))
	target := url.QueryEscape(origin.URL() + "/gone")

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/fetch?url="+target, nil))

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SCRAPE_PROXY_TEST_VAR", "set")

	if got := getEnv("SCRAPE_PROXY_TEST_VAR", "default"); got != "set" {
		t.Errorf("getEnv = %q, want set", got)
	}
	if got := getEnv("SCRAPE_PROXY_TEST_UNSET", "default"); got != "default" {
		t.Errorf("getEnv = %q, want default", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SCRAPE_PROXY_TEST_INT", "42")
	if got := getEnvInt("SCRAPE_PROXY_TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt = %d, want 42", got)
	}

	t.Setenv("SCRAPE_PROXY_TEST_INT", "notanumber")
	if got := getEnvInt("SCRAPE_PROXY_TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt = %d, want fallback 7", got)
	}
}
