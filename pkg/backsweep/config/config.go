package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// FingerprintConfig configures the persistent fingerprint cache.
type FingerprintConfig struct {
	Cache     bool   `mapstructure:"cache"`
	CachePath string `mapstructure:"cache_path"`
}

// ManifestConfig configures the operation history.
type ManifestConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	BudgetPercent        int               `mapstructure:"budget_percent"`
	Workers              int               `mapstructure:"workers"`
	SearchOtherLocations bool              `mapstructure:"search_other_locations"`
	Exclude              []string          `mapstructure:"exclude"`
	Output               string            `mapstructure:"output"`
	Fingerprint          FingerprintConfig `mapstructure:"fingerprint"`
	Delete               struct {
		UseTrash bool `mapstructure:"use_trash"`
	} `mapstructure:"delete"`
	Manifest ManifestConfig `mapstructure:"manifest"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables. If path is
// empty the file is searched for in:
//   - $XDG_CONFIG_HOME/backsweep/config.yaml
//   - $HOME/.config/backsweep/config.yaml
//
// Environment variables are prefixed with BACKSWEEP_ (e.g. BACKSWEEP_BUDGET_PERCENT).
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		if err := AddConfigPaths(v); err != nil {
			return nil, err
		}
	}

	BindEnv(v)
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals v into a Config and expands ~ in path settings.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Manifest.Path, &cfg.Fingerprint.CachePath, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	return &cfg, nil
}

// AddConfigPaths registers the config file name and search directories on v.
func AddConfigPaths(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, AppName))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", AppName))
	return nil
}

// BindEnv enables BACKSWEEP_ environment overrides on v. Nested keys use
// underscores: manifest.retention_days becomes BACKSWEEP_MANIFEST_RETENTION_DAYS.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("budget_percent", DefaultBudgetPercent)
	v.SetDefault("workers", 0)
	v.SetDefault("search_other_locations", false)
	v.SetDefault("exclude", []string{})
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("fingerprint.cache", false)
	v.SetDefault("fingerprint.cache_path", DefaultCachePath())

	v.SetDefault("delete.use_trash", false)

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", ManifestDir())
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // empty means DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultRotationMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponents)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultFile()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// DefaultFile renders the commented default config file.
func DefaultFile() string {
	return fmt.Sprintf(`# backsweep configuration

# Share of CPU cores used to classify files (25-100)
budget_percent: %d

# Fixed worker count; 0 derives it from budget_percent
workers: 0

# Also look for copies in same-named directories elsewhere in the target
search_other_locations: false

# Glob patterns skipped in both trees. Patterns without a slash match names.
# Excluded origin files get no record and are never moved or deleted, e.g.
#   exclude: [".DS_Store", "Thumbs.db", "desktop.ini"]
exclude: []

# Default scan output: pretty, plain, log, json, jsonl, yaml, csv, tsv, markdown, template
output: %s

# Persistent fingerprint cache, keyed by path and validated by size and mtime
fingerprint:
  cache: false
  cache_path: %s

# Send deleted files to the system trash instead of removing them
delete:
  use_trash: false

# Operation history
manifest:
  enabled: true
  path: %s
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: %s
  # Log file path (empty means use default: $XDG_STATE_HOME/backsweep/backsweep.log)
  path: ""
  rotation:
    max_size: %s
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    scanner: info
    classifier: info
    mutate: info
    fingerprint: warn
    cli: info
`, DefaultBudgetPercent, DefaultOutput, DefaultCachePath(), ManifestDir(),
		DefaultRetentionDays, DefaultLogLevel, DefaultRotationMaxSize)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/backsweep/ for the operation history.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// StateDir returns $XDG_STATE_HOME/backsweep/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// CacheDir returns $XDG_CACHE_HOME/backsweep/ for the fingerprint cache.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// ManifestDir returns the default manifest directory.
func ManifestDir() string {
	return filepath.Join(DataDir(), "manifest")
}

// DefaultCachePath returns the default fingerprint cache directory.
func DefaultCachePath() string {
	return filepath.Join(CacheDir(), "fingerprints")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), AppName+".log")
}

// EnsureDirs creates the config, data and state directories.
func EnsureDirs() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	for _, dir := range []string{DataDir(), StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}
