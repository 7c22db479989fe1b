package config

import (
	"strings"

	"github.com/clusterfs/clusterfs/pkg/fs"
)

// ApplyDefaults fills unspecified configuration fields with defaults.
//
// Zero values are replaced; explicit values are preserved. Client-specific
// defaults inside the map sections belong to the factories, not here.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyFilesystemDefaults(&cfg.Filesystem)
	applyNativeDefaults(&cfg.Native)

	// Embedded clients run in-process and ignore the monitor address, but
	// the adapter's startup contract still wants one.
	if cfg.Filesystem.MonitorAddr == "" {
		cfg.Filesystem.MonitorAddr = "localhost"
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyFilesystemDefaults(cfg *fs.Config) {
	if cfg.URI == "" {
		cfg.URI = "clusterfs://main"
	}
	if cfg.BlockSize == 0 {
		cfg.BlockSize = fs.DefaultBlockSize
	}
	if cfg.Readahead == 0 {
		cfg.Readahead = fs.DefaultReadahead
	}
}

func applyNativeDefaults(cfg *NativeConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if cfg.Content.Type == "" {
		cfg.Content.Type = "memory"
	}
	if cfg.Content.Memory == nil {
		cfg.Content.Memory = make(map[string]any)
	}
	if cfg.Content.S3 == nil {
		cfg.Content.S3 = make(map[string]any)
	}
}
