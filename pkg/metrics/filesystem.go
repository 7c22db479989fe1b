package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FilesystemMetrics provides observability for adapter operations.
//
// This interface is optional - a nil value passed to fs.New disables
// collection entirely.
type FilesystemMetrics interface {
	// RecordOperation records a completed adapter operation with its
	// name, duration, and outcome.
	//
	// Parameters:
	//   - operation: Adapter operation name (e.g., "open", "delete")
	//   - duration: Time taken to complete the operation
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordHandleOpened increments the live native-handle gauge.
	RecordHandleOpened()

	// RecordHandleClosed decrements the live native-handle gauge.
	RecordHandleClosed()
}

// filesystemMetrics is the Prometheus implementation of FilesystemMetrics.
type filesystemMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	openHandles       prometheus.Gauge
}

// NewFilesystemMetrics creates a Prometheus-backed FilesystemMetrics
// instance, or a no-op implementation when the registry is not initialized.
func NewFilesystemMetrics() FilesystemMetrics {
	if !IsEnabled() {
		return &noopFilesystemMetrics{}
	}

	reg := GetRegistry()

	return &filesystemMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "clusterfs_fs_operations_total",
				Help: "Total number of adapter operations by name and status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "clusterfs_fs_operation_duration_seconds",
				Help: "Duration of adapter operations in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.025, // 25ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.25,  // 250ms
					0.5,   // 500ms
					1.0,   // 1s
					2.5,   // 2.5s
					5.0,   // 5s
				},
			},
			[]string{"operation"},
		),
		openHandles: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "clusterfs_fs_open_native_handles",
				Help: "Number of native file handles currently open",
			},
		),
	}
}

func (m *filesystemMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *filesystemMetrics) RecordHandleOpened() {
	m.openHandles.Inc()
}

func (m *filesystemMetrics) RecordHandleClosed() {
	m.openHandles.Dec()
}

// noopFilesystemMetrics is used when metrics are disabled.
type noopFilesystemMetrics struct{}

func (*noopFilesystemMetrics) RecordOperation(string, time.Duration, error) {}
func (*noopFilesystemMetrics) RecordHandleOpened()                          {}
func (*noopFilesystemMetrics) RecordHandleClosed()                          {}
