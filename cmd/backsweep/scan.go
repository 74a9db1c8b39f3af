package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scanCmd = &cobra.Command{
	Use:   "scan ORIGIN TARGET",
	Short: "Classify every origin file against the backup",
	Long: `Scan walks ORIGIN and classifies each file against TARGET:

  Exact match   same relative path (or a "copy" variant), same size, same content
  Name match    same relative path, different content
  Size match    a "copy" variant with the same size but different content
  No match      nothing comparable in the target

With --other-locations, directories anywhere in TARGET named like the file's
parent are searched too; extra hits are listed as alternatives.

Nothing is changed on disk. Use 'backsweep apply' to act on the results.`,
	Args: cobra.ExactArgs(2),
	RunE: runScan,
}

var scanTemplate string

func init() {
	addPassFlags(scanCmd)
	scanCmd.Flags().StringP("output", "o", "", "output format (pretty, plain, log, json, jsonl, yaml, csv, tsv, markdown, template)")
	scanCmd.Flags().StringVar(&scanTemplate, "template", "", "Go template used with -o template")
	rootCmd.AddCommand(scanCmd)
}

// runScan is the scan command handler.
func runScan(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlag("output", cmd.Flags().Lookup("output")); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatter, err := formatterFor(cfg.Output, scanTemplate)
	if err != nil {
		return err
	}

	opts, err := passOptions(cfg, args[0], args[1])
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	if showProgress() {
		printInfo("Reconciling %s against %s...", filepath.Clean(opts.Origin), filepath.Clean(opts.Target))
	}

	result, err := runPass(ctx, cfg, opts, "Classifying")
	if err != nil {
		return err
	}

	if !result.Interrupted {
		recordScan(cfg, result)
	}

	return writeResult(cmd.OutOrStdout(), formatter, result)
}
