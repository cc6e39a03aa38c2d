package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fyind/setupkit/pkg/setup/config"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the compressed blob cache",
	Long: `Commands for managing the setupkit blob cache.

The cache stores compressed file blobs keyed by content hash, so rebuilds
only recompress files that actually changed. Cache data is stored in the
XDG cache directory (typically ~/.cache/setupkit/blobs).`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the cache location, how many blobs it holds, and their total size.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		path := cachePath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Println("Cache: empty")
			fmt.Printf("Cache location: %s\n", path)
			return nil
		}

		cache, err := openCache()
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer func() { _ = cache.Close() }()

		stats, err := cache.Stats()
		if err != nil {
			return fmt.Errorf("failed to read cache statistics: %w", err)
		}

		fmt.Printf("Cache location: %s\n", path)
		fmt.Printf("Cached blobs:   %d\n", stats.Entries)
		fmt.Printf("Cache size:     %s\n", humanize.Bytes(uint64(stats.Bytes)))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached blobs",
	Long:  `Removes every cached blob. The next build will recompress all files.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		path := cachePath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Println("Cache is already empty.")
			return nil
		}

		cache, err := openCache()
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer func() { _ = cache.Close() }()

		if err := cache.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Println("Cache cleared.")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// cachePath returns the configured blob cache location.
func cachePath() string {
	if path := viper.GetString("cache.path"); path != "" {
		expanded, err := config.ExpandPath(path)
		if err == nil {
			return expanded
		}
	}
	return config.DefaultCachePath()
}
