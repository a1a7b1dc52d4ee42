// Package cli implements the scrapectl command tree.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/webharvest/scrape-client/pkg/client"
	"github.com/webharvest/scrape-client/pkg/logging"
)

var (
	cacheDir  string
	userAgent string
	cacheTTL  time.Duration
	perSecond int
	perMinute int
	perHour   int
	timeout   time.Duration
	noCache   bool
	logLevel  string
	pretty    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrapectl",
	Short: "A polite fetch tool with response caching and rate limiting.",
	Long: `scrapectl fetches web pages through a disk-backed response cache and a
sliding-window rate limiter, so repeated runs against the same site stay
fast and respectful of the target's resources.

Cached responses are keyed by method, URL and query parameters and kept
fresh for a uniform TTL. The limiter enforces per-second, per-minute and
per-hour ceilings across all fetches in a run.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Config{
			Level:  logging.LogLevel(logLevel),
			Pretty: pretty,
			Output: os.Stderr,
		})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "directory for cached responses")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "scrapectl/1.0", "user agent string for HTTP requests")
	rootCmd.PersistentFlags().DurationVar(&cacheTTL, "ttl", 24*time.Hour, "freshness window for cached responses")
	rootCmd.PersistentFlags().IntVar(&perSecond, "per-second", 1, "maximum requests per second")
	rootCmd.PersistentFlags().IntVar(&perMinute, "per-minute", 30, "maximum requests per minute")
	rootCmd.PersistentFlags().IntVar(&perHour, "per-hour", 500, "maximum requests per hour")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "timeout for HTTP requests")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/scrapectl"
	}
	return ".scrape-cache"
}

// newClient builds a fetch client from the persistent flags.
func newClient() (*client.Client, error) {
	cfg := client.DefaultConfig(cacheDir, userAgent)
	cfg.CacheTTL = cacheTTL
	cfg.RequestsPerSecond = perSecond
	cfg.RequestsPerMinute = perMinute
	cfg.RequestsPerHour = perHour
	cfg.Timeout = timeout
	cfg.NoCache = noCache
	return client.New(cfg)
}
