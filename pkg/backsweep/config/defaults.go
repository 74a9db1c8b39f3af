// Package config provides configuration management for backsweep.
package config

// AppName names the XDG subdirectories and the environment prefix.
const AppName = "backsweep"

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "BACKSWEEP"

// Default configuration values for backsweep.
const (
	// DefaultBudgetPercent is the share of CPU cores used for classification.
	DefaultBudgetPercent = 75

	// DefaultOutput is the scan output format.
	DefaultOutput = "pretty"

	// DefaultRetentionDays is the default number of days to retain manifests.
	DefaultRetentionDays = 30

	// DefaultLogLevel is the file log level.
	DefaultLogLevel = "info"

	// DefaultRotationMaxSize is the log size that triggers rotation.
	DefaultRotationMaxSize = "10MB"
)

// DefaultComponents sets the per-component log levels.
var DefaultComponents = map[string]string{
	"scanner":     "info",
	"classifier":  "info",
	"mutate":      "info",
	"fingerprint": "warn",
	"cli":         "info",
}
