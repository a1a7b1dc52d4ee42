package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache hit/miss counters for this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		stats := c.CacheStats()
		fmt.Fprintf(cmd.OutOrStdout(), "hits:      %d\n", stats.Hits)
		fmt.Fprintf(cmd.OutOrStdout(), "misses:    %d\n", stats.Misses)
		fmt.Fprintf(cmd.OutOrStdout(), "writes:    %d\n", stats.Writes)
		fmt.Fprintf(cmd.OutOrStdout(), "evictions: %d\n", stats.Evictions)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached responses",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.ClearCache(cmdContext(cmd)); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
		return nil
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired responses, keeping fresh ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		removed, err := c.SweepCache(cmdContext(cmd))
		if err != nil {
			return fmt.Errorf("sweep cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
