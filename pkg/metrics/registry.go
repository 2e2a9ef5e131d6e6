// Package metrics defines the observability interfaces of restd and the
// process-wide Prometheus registry backing them.
//
// Metrics are optional. Until InitRegistry is called every constructor
// returns a no-op implementation, so the server runs the same code path
// with collection on or off.
//
// Usage:
//
//	metrics.InitRegistry()
//	restMetrics := prometheus.NewRESTMetrics()
//	store = position.WithMetrics(store, metrics.NewStoreMetrics("badger"))
//
//	// Or pass nil for no metrics
//	adapter := rest.New(config, dispatcher, nil)
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// registry is written once by InitRegistry and read by every
	// constructor afterwards.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the global registry with the Go runtime and process
// collectors attached. Later calls are ignored.
//
// It must run before any metrics constructor; constructors called earlier
// return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "restd"}),
		)
		registry = reg
	})
}

// GetRegistry returns the global registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
