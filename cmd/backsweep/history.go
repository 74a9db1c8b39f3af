package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/backsweep/pkg/backsweep/config"
	"github.com/jamesainslie/backsweep/pkg/backsweep/manifest"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	Long: `View the history of scan and apply operations.

The manifest stores a record of every scan and apply run, including each
origin file's proposed or performed action.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show details of a specific operation",
	Long:  `Display detailed information about an operation. A unique ID prefix is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than manifest.retention_days.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit     int
	historyShowLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyShowCmd.Flags().IntVarP(&historyShowLimit, "limit", "l", 50, "maximum number of files to show (0 for all)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getManifest returns a manifest for the configured directory, even when
// history recording is disabled.
func getManifest() (*manifest.Manifest, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	path := cfg.Manifest.Path
	if path == "" {
		path = config.ManifestDir()
	}
	m, err := manifest.New(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize manifest: %w", err)
	}
	return m, cfg, nil
}

// runHistory lists recent operations.
func runHistory(cmd *cobra.Command, _ []string) error {
	m, _, err := getManifest()
	if err != nil {
		return err
	}

	all, err := m.List(0)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(all) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'backsweep scan ORIGIN TARGET' to record one.")
		return nil
	}

	entries := all
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-36s  %-19s  %-7s  %-7s  %-10s  %s\n", "ID", "TIME", "TYPE", "FILES", "SIZE", "ORIGIN")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, entry := range entries {
		op := string(entry.Operation)
		if entry.DryRun {
			op += "*"
		}
		fmt.Fprintf(w, "%-36s  %-19s  %-7s  %-7d  %-10s  %s\n",
			entry.ID,
			entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
			op,
			entry.Summary.TotalFiles,
			types.FormatSize(entry.Summary.TotalBytes),
			entry.Origin,
		)
	}

	printInfo("\nShowing %d of %d entries (* = dry run). Use --limit to see more.", len(entries), len(all))
	printInfo("Use 'backsweep history show <id>' for details on a specific entry.")
	return nil
}

// runHistoryShow displays details of a specific operation.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, _, err := getManifest()
	if err != nil {
		return err
	}

	entry, err := m.Get(args[0])
	if err != nil {
		if errors.Is(err, manifest.ErrAmbiguousID) {
			return fmt.Errorf("%w; use more characters", err)
		}
		return fmt.Errorf("failed to get entry: %w", err)
	}

	printEntry(cmd.OutOrStdout(), entry, historyShowLimit)
	return nil
}

// printEntry writes the details of entry, listing at most limit files.
func printEntry(w io.Writer, entry *manifest.Entry, limit int) {
	fmt.Fprintln(w, "Operation Details")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "ID:         %s\n", entry.ID)
	fmt.Fprintf(w, "Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Operation:  %s\n", entry.Operation)
	if entry.DryRun {
		fmt.Fprintln(w, "Dry run:    yes")
	}
	fmt.Fprintf(w, "Origin:     %s\n", entry.Origin)
	fmt.Fprintf(w, "Target:     %s\n", entry.Target)
	fmt.Fprintf(w, "Files:      %d\n", entry.Summary.TotalFiles)
	fmt.Fprintf(w, "Total Size: %s\n", types.FormatSize(entry.Summary.TotalBytes))
	if entry.Operation == manifest.OpApply {
		fmt.Fprintf(w, "Succeeded:  %d\n", entry.Summary.Succeeded)
		fmt.Fprintf(w, "Failed:     %d\n", entry.Summary.Failed)
		fmt.Fprintf(w, "Pruned:     %d\n", entry.Summary.Pruned)
	}
	if entry.Summary.Errors > 0 {
		fmt.Fprintf(w, "Errors:     %d\n", entry.Summary.Errors)
	}

	if len(entry.Files) == 0 {
		return
	}

	n := len(entry.Files)
	if limit > 0 && n > limit {
		n = limit
	}

	fmt.Fprintln(w, "\nFiles:")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	fmt.Fprintf(w, "%-12s  %-12s  %s\n", "ACTION", "SIZE", "PATH")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, file := range entry.Files[:n] {
		fmt.Fprintf(w, "%-12s  %-12s  %s\n", file.Action, types.FormatSize(file.Size), file.Path)
		if file.Destination != "" {
			fmt.Fprintf(w, "%-12s  %-12s  -> %s\n", "", "", file.Destination)
		}
		if file.Error != "" {
			fmt.Fprintf(w, "%-12s  %-12s  error: %s\n", "", "", file.Error)
		}
	}

	if len(entry.Files) > n {
		fmt.Fprintf(w, "\n... and %d more files\n", len(entry.Files)-n)
	}
}

// runHistoryClean removes old history entries.
func runHistoryClean(_ *cobra.Command, _ []string) error {
	m, cfg, err := getManifest()
	if err != nil {
		return err
	}

	retentionDays := cfg.Manifest.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("Removed %d entries.", removed)
	return nil
}
