package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/jamesainslie/backsweep/pkg/backsweep/config"
	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
	"github.com/jamesainslie/backsweep/pkg/backsweep/mutate"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply ORIGIN TARGET",
	Short: "Delete, copy or move origin files according to a fresh scan",
	Long: `Apply scans ORIGIN against TARGET and performs the proposed action of every
selected record:

  Delete       exact matches are removed from the origin
  Copy as _v2  conflicting versions are copied next to their counterpart as
               name_v2.ext, then removed from the origin
  Move         unmatched files are moved to the mirrored path in the target

Each origin file is acted on at most once. Empty origin directories are
pruned afterwards. A summary is shown and confirmed before anything changes.`,
	Args: cobra.ExactArgs(2),
	RunE: runApply,
}

var (
	applySelection selectionFlags
	applyDryRun    bool
	applyYes       bool
	applyNoRescan  bool
)

func init() {
	addPassFlags(applyCmd)
	applyCmd.Flags().StringVar(&applySelection.kinds, "select", "", "act on these kinds: exact,name,size,unmatched or all (default: every matched file)")
	applyCmd.Flags().StringVar(&applySelection.minSize, "min-size", "", "only act on files at least this large (e.g. 10M)")
	applyCmd.Flags().StringVar(&applySelection.include, "include", "", "only act on origin paths matching these globs (comma-separated)")
	applyCmd.Flags().StringVar(&applySelection.exclude, "skip", "", "never act on origin paths matching these globs (comma-separated)")
	applyCmd.Flags().BoolVarP(&applyDryRun, "dry-run", "d", false, "show what would happen without changing anything")
	applyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "do not ask for confirmation")
	applyCmd.Flags().Bool("trash", false, "move deleted files to the system trash")
	applyCmd.Flags().BoolVar(&applyNoRescan, "no-rescan", false, "skip the scan that reports the state after applying")
	applyCmd.Flags().StringP("output", "o", "", "output format of the post-apply scan")
	rootCmd.AddCommand(applyCmd)
}

// runApply is the apply command handler.
func runApply(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlag("delete.use_trash", cmd.Flags().Lookup("trash")); err != nil {
		return err
	}
	if err := viper.BindPFlag("output", cmd.Flags().Lookup("output")); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatter, err := formatterFor(cfg.Output, "")
	if err != nil {
		return err
	}

	selector, err := applySelection.selector()
	if err != nil {
		return err
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
	if scan.Interrupted {
		return errors.New("scan interrupted, nothing applied")
	}

	if selector != nil {
		n := selector.Apply(scan.Records)
		printVerbose("Selector chose %d records", n)
	}

	plan := mutate.PlanFor(scan.Records)
	if plan.Empty() {
		printInfo("Nothing to apply.")
		return nil
	}

	printPlan(cmd.ErrOrStderr(), plan, applyDryRun)

	if !applyDryRun && !applyYes {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return errors.New("refusing to apply without confirmation; pass --yes")
		}
		if !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Proceed?") {
			printInfo("Aborted.")
			return nil
		}
	}

	bar := newProgressBar("Applying")
	result, err := mutate.Apply(ctx, scan.Records, scan.OriginRoot, scan.TargetRoot, mutate.Options{
		DryRun:   applyDryRun,
		UseTrash: cfg.Delete.UseTrash,
		OnProgress: func(p mutate.Progress) {
			bar.Update(int64(p.Processed), int64(p.Total))
		},
	})
	bar.Finish()
	if result == nil {
		return err
	}

	recordApply(cfg, scan, result)
	printApplyResult(cmd.ErrOrStderr(), result)

	if err != nil {
		return fmt.Errorf("apply interrupted: %w", err)
	}

	if !applyDryRun && !applyNoRescan {
		printInfo("\nRescanning...")
		rescan, err := runPass(ctx, cfg, opts, "Rescanning")
		if err != nil {
			return err
		}
		if err := writeResult(cmd.OutOrStdout(), formatter, rescan); err != nil {
			return err
		}
	}

	if n := result.Failed(); n > 0 {
		return fmt.Errorf("%d of %d operations failed", n, n+result.Succeeded)
	}
	return nil
}

// printPlan writes the confirmation summary.
func printPlan(w io.Writer, plan mutate.Plan, dryRun bool) {
	if getQuiet() {
		return
	}
	header := "The following changes will be made:"
	if dryRun {
		header = "Dry run, the following changes would be made:"
	}
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "  Move to target:   %d\n", plan.Moves)
	fmt.Fprintf(w, "  Delete:           %d\n", plan.Deletes)
	fmt.Fprintf(w, "  Copy as _v2:      %d\n", plan.Copies)
	fmt.Fprintf(w, "  Total:            %d files, %s\n", plan.Total(), types.FormatSize(plan.Bytes))
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// printApplyResult writes the outcome of an apply run.
func printApplyResult(w io.Writer, result *mutate.Result) {
	for _, f := range result.Failures {
		fmt.Fprintf(w, "Failed to %s %s: %v\n", strings.ToLower(f.Action.String()), f.Path, f.Err)
	}
	if getQuiet() {
		return
	}

	verb := "Applied"
	if result.DryRun {
		verb = "Would apply"
	}
	fmt.Fprintf(w, "%s %d operations", verb, result.Succeeded)
	if n := result.Failed(); n > 0 {
		fmt.Fprintf(w, ", %d failed", n)
	}
	if result.Pruned > 0 {
		fmt.Fprintf(w, ", removed %d empty directories", result.Pruned)
	}
	fmt.Fprintf(w, " in %s\n", result.Elapsed.Round(time.Millisecond))

	if result.DryRun && getVerbose() {
		for _, op := range result.Operations {
			if op.Destination == "" {
				fmt.Fprintf(w, "  %-12s %s\n", op.Action, op.Origin)
				continue
			}
			fmt.Fprintf(w, "  %-12s %s -> %s\n", op.Action, op.Origin, op.Destination)
		}
	}
}

// recordApply adds an apply run to the history. Failures are logged.
func recordApply(cfg *config.Config, scan *types.ScanResult, result *mutate.Result) {
	m, err := openManifest(cfg)
	if err != nil || m == nil {
		return
	}

	sizes := make(map[string]int64, len(scan.Records))
	for i := range scan.Records {
		sizes[scan.Records[i].OriginPath] = scan.Records[i].Size
	}

	if _, err := m.LogApply(scan.OriginRoot, scan.TargetRoot, result, sizes); err != nil {
		logging.Get("cli").Warn("recording apply failed", "err", err)
	}
}
