package config

import (
	"github.com/clusterfs/clusterfs/pkg/metrics"
)

// MetricsResult holds the metrics components built from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if
	// disabled)
	Server *metrics.Server

	// Filesystem is the collector handed to the adapter (never nil, noop
	// when disabled)
	Filesystem metrics.FilesystemMetrics
}

// InitializeMetrics builds the metrics stack described by the
// configuration.
//
// Enabled: the global Prometheus registry is initialized, an HTTP server
// is created and a Prometheus-backed collector is returned. Disabled: no
// server, no-op collector, zero overhead.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Server:     nil,
			Filesystem: metrics.NewFilesystemMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Metrics.Port,
	})

	return &MetricsResult{
		Server:     server,
		Filesystem: metrics.NewFilesystemMetrics(),
	}
}
