package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/backsweep/pkg/backsweep/filter"
	"github.com/jamesainslie/backsweep/pkg/backsweep/types"
)

// addPassFlags registers the flags shared by every command that runs a
// reconciliation pass.
func addPassFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("other-locations", false, "also search same-named directories elsewhere in the target")
	cmd.Flags().Int("budget", 0, "percentage of CPU cores used for classification (25-100)")
	cmd.Flags().IntP("workers", "w", 0, "override worker count (0=auto)")
	cmd.PreRunE = bindPassFlags
}

// bindPassFlags binds the running command's pass flags to their config keys.
// Binding happens per invocation because several commands share the keys.
func bindPassFlags(cmd *cobra.Command, _ []string) error {
	bindings := map[string]string{
		"search_other_locations": "other-locations",
		"budget_percent":         "budget",
		"workers":                "workers",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// selectionFlags holds the apply flags that narrow the default selection.
type selectionFlags struct {
	kinds   string
	minSize string
	include string
	exclude string
}

// selector creates a filter.Selector from the flags. Without any flag set it
// returns nil, keeping the classifier's selection.
func (f selectionFlags) selector() (*filter.Selector, error) {
	var opts []filter.Option

	if f.kinds != "" {
		kinds, err := filter.ParseKinds(f.kinds)
		if err != nil {
			return nil, fmt.Errorf("invalid --select %q: %w", f.kinds, err)
		}
		opts = append(opts, filter.WithKinds(kinds...))
	}

	if f.minSize != "" {
		size, err := types.ParseSize(f.minSize)
		if err != nil {
			return nil, fmt.Errorf("invalid --min-size %q: %w", f.minSize, err)
		}
		opts = append(opts, filter.WithMinSize(size))
	}

	if patterns := parseCommaSeparated(f.include); len(patterns) > 0 {
		opts = append(opts, filter.WithInclude(patterns...))
	}
	if patterns := parseCommaSeparated(f.exclude); len(patterns) > 0 {
		opts = append(opts, filter.WithExclude(patterns...))
	}

	if len(opts) == 0 {
		return nil, nil
	}
	return filter.NewSelector(opts...)
}

// parseCommaSeparated splits a comma-separated string and trims whitespace.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
