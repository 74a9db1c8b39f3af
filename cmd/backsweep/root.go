package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/backsweep/pkg/backsweep/config"
	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "backsweep",
		Short: "Reconcile a working tree against its backup",
		Long: `Backsweep compares an origin directory with an authoritative backup
(the target) and decides, for every origin file, whether it is already
backed up, backed up under another name, or missing.

Files that are safely in the backup can be deleted from the origin,
conflicting versions are copied next to their counterpart as name_v2.ext,
and files missing from the backup are moved into it.

Examples:
  backsweep scan ~/Pictures /Volumes/Backup/Pictures
  backsweep scan ~/Docs /mnt/backup/Docs --other-locations -o json
  backsweep apply ~/Docs /mnt/backup/Docs --select exact --dry-run
  backsweep export ~/Docs /mnt/backup/Docs --dir ~/reports
  backsweep history`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Close()
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/backsweep/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "glob patterns skipped in both trees (can be specified multiple times)")
	rootCmd.PersistentFlags().Bool("cache", false, "reuse fingerprints from the persistent cache")

	bindGlobalFlags()
}

// bindGlobalFlags binds the persistent flags to their config keys.
func bindGlobalFlags() {
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("fingerprint.cache", rootCmd.PersistentFlags().Lookup("cache"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if err := config.AddConfigPaths(v); err != nil {
		printVerbose("Config search paths unavailable: %v", err)
	}

	config.BindEnv(v)
	config.SetDefaults(v)

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()
}

// loadConfig decodes the merged flag, env, file and default settings.
func loadConfig() (*config.Config, error) {
	return config.Decode(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled. Messages go to
// stderr so stdout carries only formatted results.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
