package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StoreMetrics provides observability for position store operations.
//
// This interface is optional - stores that are not wrapped with metrics run
// without any collection overhead.
//
// Example usage:
//
//	// With metrics enabled
//	store = position.WithMetrics(store, metrics.NewStoreMetrics("badger"))
//
//	// Without metrics
//	store = position.WithMetrics(store, nil) // returns store unchanged
type StoreMetrics interface {
	// RecordOperation records a completed store operation.
	//
	// Parameters:
	//   - operation: Operation name ("get", "update", "delete", "count")
	//   - duration: Time taken to complete the operation
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// SetUsers updates the number of users with a stored position.
	SetUsers(count int)
}

// storeMetrics is the Prometheus implementation of StoreMetrics.
type storeMetrics struct {
	storeType         string
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	users             *prometheus.GaugeVec
}

// Store collectors are shared by every store type; the type is a label.
// Registering them twice on the same registry would panic.
var (
	storeCollectorsOnce sync.Once
	storeCollectors     *storeMetrics
)

// NewStoreMetrics creates a Prometheus-backed StoreMetrics instance.
//
// Parameters:
//   - storeType: Type of position store (e.g., "memory", "badger"), used
//     as a label.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewStoreMetrics(storeType string) StoreMetrics {
	if !IsEnabled() {
		return noopStoreMetrics{}
	}

	storeCollectorsOnce.Do(func() {
		reg := GetRegistry()
		storeCollectors = &storeMetrics{
			operationsTotal: promauto.With(reg).NewCounterVec(
				prometheus.CounterOpts{
					Name: "restd_store_operations_total",
					Help: "Total number of position store operations by store type, operation, and status",
				},
				[]string{"store_type", "operation", "status"},
			),
			operationDuration: promauto.With(reg).NewHistogramVec(
				prometheus.HistogramOpts{
					Name: "restd_store_operation_duration_seconds",
					Help: "Duration of position store operations in seconds",
					Buckets: []float64{
						0.00001, // 10µs
						0.0001,  // 100µs
						0.0005,  // 500µs
						0.001,   // 1ms
						0.005,   // 5ms
						0.025,   // 25ms
						0.1,     // 100ms
					},
				},
				[]string{"store_type", "operation"},
			),
			users: promauto.With(reg).NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "restd_store_users",
					Help: "Number of users with a stored position",
				},
				[]string{"store_type"},
			),
		}
	})

	m := *storeCollectors
	m.storeType = storeType
	return &m
}

func (m *storeMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(m.storeType, operation, status).Inc()
	m.operationDuration.WithLabelValues(m.storeType, operation).Observe(duration.Seconds())
}

func (m *storeMetrics) SetUsers(count int) {
	m.users.WithLabelValues(m.storeType).Set(float64(count))
}

type noopStoreMetrics struct{}

func (noopStoreMetrics) RecordOperation(string, time.Duration, error) {}
func (noopStoreMetrics) SetUsers(int)                                 {}
