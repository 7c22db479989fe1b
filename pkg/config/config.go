// Package config loads, defaults and validates the complete clusterfs
// configuration, and builds the runtime components it describes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/clusterfs/clusterfs/pkg/fs"
)

// Config is the complete clusterfs configuration.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (CLUSTERFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Native Client Pattern:
// Each native client implementation defines its own settings, carried here
// as a type-specific map section. Only the section matching the selected
// Type is decoded; the factory owns the decoding.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Filesystem holds the adapter-level settings handed to Initialize
	Filesystem fs.Config `mapstructure:"filesystem"`

	// Native selects and configures the native client implementation
	Native NativeConfig `mapstructure:"native"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Output is where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled turns metrics collection and the HTTP endpoint on
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics HTTP port
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
}

// NativeConfig selects the native client implementation.
//
// Type determines which client is built; only the matching section is used.
type NativeConfig struct {
	// Type is the native client implementation.
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory holds memory-client settings (only used when Type = "memory")
	Memory map[string]any `mapstructure:"memory"`

	// Badger holds badger-client settings (only used when Type = "badger")
	Badger map[string]any `mapstructure:"badger"`

	// Content selects the content store backing the badger client
	Content ContentConfig `mapstructure:"content"`
}

// ContentConfig selects the content store implementation.
type ContentConfig struct {
	// Type is the content store implementation.
	// Valid values: memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory s3"`

	// Memory holds memory-store settings (only used when Type = "memory")
	Memory map[string]any `mapstructure:"memory"`

	// S3 holds S3-store settings (only used when Type = "s3")
	S3 map[string]any `mapstructure:"s3"`
}

// Load reads configuration from file and environment, applies defaults and
// validates the result.
//
// An empty configPath falls back to the default search location; a missing
// config file is fine, the defaults carry a working memory-backed setup.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variable mapping and the config file
// location.
func setupViper(v *viper.Viper, configPath string) {
	// Example: CLUSTERFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("CLUSTERFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file: defaults and environment carry the setup.
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory: $XDG_CONFIG_HOME or
// ~/.config, falling back to the current directory.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "clusterfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "clusterfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
