// Package config provides configuration types and defaults for futari.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/futari/internal/log"
	"github.com/zjrosen/futari/internal/tracing"
)

// FirestoreConfig holds the connection settings for the backing
// Firestore project.
type FirestoreConfig struct {
	// Project is the GCP project ID. Required unless EmulatorHost is set.
	Project string `mapstructure:"project"`

	// CredentialsFile points at a service account key file. When empty,
	// application default credentials are used.
	CredentialsFile string `mapstructure:"credentials_file"`

	// EmulatorHost targets a local Firestore emulator, e.g. "localhost:8080".
	// Mirrors the FIRESTORE_EMULATOR_HOST environment variable.
	EmulatorHost string `mapstructure:"emulator_host"`
}

// RegistryConfig tunes the registry stores.
type RegistryConfig struct {
	// UsageCountTTL bounds how long a cached usage count may serve
	// delete confirmations before it is recounted.
	UsageCountTTL time.Duration `mapstructure:"usage_count_ttl"`
}

// Config holds all configuration options for futari.
type Config struct {
	Firestore FirestoreConfig `mapstructure:"firestore"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Tracing   tracing.Config  `mapstructure:"tracing"`

	// LogFile is where the key=value debug log is written.
	// Default: ~/.config/futari/futari.log
	LogFile string `mapstructure:"log_file"`

	// Debug enables debug-level log output.
	Debug bool `mapstructure:"debug"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Firestore: FirestoreConfig{},
		Registry: RegistryConfig{
			UsageCountTTL: 5 * time.Second,
		},
		Tracing: tracing.DefaultConfig(),
		LogFile: DefaultLogFilePath(),
		Debug:   false,
	}
}

// Dir returns the futari config directory, ~/.config/futari, or empty
// string if the home directory is unavailable.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "futari")
}

// DefaultLogFilePath returns the default log file location.
func DefaultLogFilePath() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "futari.log")
}

// Validate checks the configuration for errors. Empty values fall back
// to defaults and are valid.
func (c Config) Validate() error {
	if err := ValidateFirestore(c.Firestore); err != nil {
		return err
	}
	if c.Registry.UsageCountTTL < 0 {
		return fmt.Errorf("registry.usage_count_ttl must not be negative, got %v", c.Registry.UsageCountTTL)
	}
	if err := c.Tracing.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateFirestore checks the Firestore connection settings. A project
// ID is required unless an emulator host is configured; the emulator
// accepts any project name.
func ValidateFirestore(fs FirestoreConfig) error {
	if fs.Project == "" && fs.EmulatorHost == "" {
		return fmt.Errorf("firestore.project is required (or set firestore.emulator_host)")
	}
	if fs.CredentialsFile != "" {
		if _, err := os.Stat(fs.CredentialsFile); err != nil {
			return fmt.Errorf("firestore.credentials_file: %w", err)
		}
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Futari Configuration

# Firestore connection
firestore:
  # GCP project ID (required unless emulator_host is set)
  project: ""

  # Service account key file (optional; application default credentials otherwise)
  # credentials_file: /path/to/key.json

  # Local emulator, for development
  # emulator_host: localhost:8080

# Registry tuning
registry:
  # How long a cached usage count may serve delete confirmations
  usage_count_ttl: 5s

# Log output
# log_file: ~/.config/futari/futari.log
debug: false

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: stdout               # Export backend: none, file, stdout, otlp
#   file_path: ~/.config/futari/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with
// default settings and comments. Creates the parent directory if it
// doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
