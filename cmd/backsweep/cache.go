package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/backsweep/pkg/backsweep/cache"
	"github.com/jamesainslie/backsweep/pkg/backsweep/config"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fingerprint cache",
	Long: `Commands for managing the persistent fingerprint cache.

With --cache (or fingerprint.cache: true) digests are stored per file and
reused while the file's size and modification time are unchanged. Cache
data lives in the XDG cache directory (typically ~/.cache/backsweep/fingerprints).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [ROOT]",
	Short: "Clear cached fingerprints",
	Long:  `Removes all cached fingerprints, or only those of files below ROOT.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheClear,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Long:  `Displays the cache location and the number of cached fingerprints.`,
	RunE:  runCacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove stale fingerprints",
	Long:  `Removes entries for files that no longer exist or have changed.`,
	RunE:  runCachePrune,
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := cachePath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func cachePath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Fingerprint.CachePath == "" {
		return config.DefaultCachePath(), nil
	}
	return cfg.Fingerprint.CachePath, nil
}

var errNoCache = errors.New("no cache")

// openExistingCache opens the cache without creating it. errNoCache is
// returned when the cache directory does not exist.
func openExistingCache() (*cache.Cache, string, error) {
	path, err := cachePath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, path, errNoCache
	}
	c, err := cache.Open(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to open cache: %w", err)
	}
	return c, path, nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, _, err := openExistingCache()
	if errors.Is(err, errNoCache) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache is already empty.")
		return nil
	}
	if err != nil {
		return err
	}
	defer c.Close()

	var removed int
	if len(args) == 1 {
		root, expandErr := config.ExpandPath(args[0])
		if expandErr != nil {
			return expandErr
		}
		if root, err = filepath.Abs(root); err != nil {
			return err
		}
		removed, err = c.Clear(root)
	} else {
		removed, err = c.ClearAll()
	}
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached fingerprints.\n", removed)
	return nil
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	c, path, err := openExistingCache()
	if errors.Is(err, errNoCache) {
		fmt.Fprintln(w, "Cache: empty (no cache directory)")
		fmt.Fprintf(w, "Cache location: %s\n", path)
		return nil
	}
	if err != nil {
		return err
	}
	defer c.Close()

	stats, err := c.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	fmt.Fprintf(w, "Cache location: %s\n", path)
	fmt.Fprintf(w, "Fingerprints:   %d (%d sampled)\n", stats.Entries, stats.Sampled)
	fmt.Fprintf(w, "Covered data:   %s\n", types.FormatSize(stats.Bytes))
	return nil
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	c, _, err := openExistingCache()
	if errors.Is(err, errNoCache) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty.")
		return nil
	}
	if err != nil {
		return err
	}
	defer c.Close()

	removed, err := c.Prune()
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale fingerprints.\n", removed)
	return nil
}
