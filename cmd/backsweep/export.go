package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/backsweep/pkg/backsweep/config"
	"github.com/jamesainslie/backsweep/pkg/backsweep/output"
)

var exportCmd = &cobra.Command{
	Use:   "export ORIGIN TARGET",
	Short: "Write a comparison log file",
	Long: `Export scans ORIGIN against TARGET and writes a plain-text comparison log
named backsweep_log_YYYYMMDD_HHMMSS.txt. The log lists summary statistics,
every record with its match and proposed action, and per-scenario tallies.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

var exportDir string

func init() {
	addPassFlags(exportCmd)
	exportCmd.Flags().StringVar(&exportDir, "dir", ".", "directory the log file is written to")
	rootCmd.AddCommand(exportCmd)
}

// runExport is the export command handler.
func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir, err := config.ExpandPath(exportDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	opts, err := passOptions(cfg, args[0], args[1])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	scan, err := runPass(ctx, cfg, opts, "Classifying")
	if err != nil {
		return err
	}

	f, err := output.Get("log")
	if err != nil {
		return err
	}

	result := output.NewResult(scan)
	var buf bytes.Buffer
	if err := f.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format log: %w", err)
	}

	path := filepath.Join(dir, output.ExportFileName(result.Generated))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	printVerbose("Exported %d records", len(scan.Records))
	return nil
}
