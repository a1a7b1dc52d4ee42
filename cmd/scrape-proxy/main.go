// Command scrape-proxy exposes the fetch client over HTTP: callers hit
// /fetch?url=... and get the cached or freshly fetched body back, with
// an X-Cache header indicating where it came from.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/webharvest/scrape-client/pkg/cache"
	"github.com/webharvest/scrape-client/pkg/client"
	"github.com/webharvest/scrape-client/pkg/logging"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	cacheDir := getEnv("CACHE_DIR", "/var/cache/scrape-proxy")
	redisURL := getEnv("REDIS_URL", "")
	userAgent := getEnv("USER_AGENT", "scrape-proxy/1.0")
	logLevel := getEnv("LOG_LEVEL", "info")

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Output: os.Stderr,
	})

	cfg := client.DefaultConfig(cacheDir, userAgent)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", cache.DefaultTTL)
	cfg.RequestsPerSecond = getEnvInt("PER_SECOND", 1)
	cfg.RequestsPerMinute = getEnvInt("PER_MINUTE", 30)
	cfg.RequestsPerHour = getEnvInt("PER_HOUR", 500)

	// Redis store when REDIS_URL is set, file store otherwise
	if redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
		}
		cfg.Store = cache.NewRedisStore(redisClient)
		log.Info().Str("redis_url", redisURL).Msg("Using Redis cache store")
	}

	fetchClient, err := client.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create fetch client")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/fetch", fetchHandler(fetchClient))
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	log.Info().Str("addr", addr).Str("user_agent", userAgent).Msg("Starting scrape proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func fetchHandler(fetchClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("url")
		if target == "" {
			http.Error(w, "missing url parameter", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()

		result, err := fetchClient.Get(ctx, target)
		if err != nil {
			http.Error(w, fmt.Sprintf("fetch failed: %v", err), http.StatusBadGateway)
			return
		}

		if result.FromCache {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		if result.ContentType != "" {
			w.Header().Set("Content-Type", result.ContentType)
		}
		w.WriteHeader(result.StatusCode)

		if _, err := w.Write(result.Body); err != nil {
			log.Warn().Err(err).Msg("Failed to write response")
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer env var, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration env var, using default")
	}
	return defaultValue
}
