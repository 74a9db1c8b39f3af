package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/backsweep/pkg/backsweep/config"
	"github.com/jamesainslie/backsweep/pkg/backsweep/logging"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// initializeLogging is the PersistentPreRunE hook: it creates the XDG
// directories and starts the file logger.
func initializeLogging(_ *cobra.Command, _ []string) error {
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path := cfg.Logging.Path
	if path == "" {
		path = config.DefaultLogPath()
	}

	consoleLevel := "warn"
	switch {
	case getQuiet():
		consoleLevel = "error"
	case getVerbose():
		consoleLevel = "debug"
	}

	if err := logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         path,
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: consoleLevel,
	}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	logging.Get("cli").Debug("logging initialized", "path", path)
	return nil
}

// parseRotationConfig converts the config rotation settings. An empty or
// invalid max_size falls back to 10MB.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(10 * types.MiB)
	if rc.MaxSize != "" {
		if parsed, err := types.ParseSize(rc.MaxSize); err == nil {
			maxSize = parsed
		}
	}

	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}
