// Package metrics provides Prometheus metrics collection for clusterfs
// components.
//
// All metrics are optional - if the registry is never initialized, the
// constructors return no-op implementations with zero overhead, so the
// adapter can run with or without metrics collection enabled.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	fsMetrics := metrics.NewFilesystemMetrics()
//
//	// Or skip InitRegistry for no-op behavior
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all clusterfs metrics
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Must be called before creating metrics instances. Safe to call multiple
// times - subsequent calls are ignored. If never called, constructors return
// no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil if
// InitRegistry has not been called.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return registry != nil
}
