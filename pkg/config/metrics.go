package config

import (
	"github.com/marmos91/restd/pkg/metrics"
	promMetrics "github.com/marmos91/restd/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// RESTMetrics is the collector for the REST adapter (never nil, no-op if disabled)
	RESTMetrics metrics.RESTMetrics

	// StoreMetrics is the collector for the position store (nil if disabled,
	// which leaves the store unwrapped)
	StoreMetrics metrics.StoreMetrics
}

// InitializeMetrics creates the metrics components described by cfg.
//
// If metrics are enabled the global Prometheus registry is initialized and
// Prometheus-backed collectors are returned together with the HTTP server.
// Otherwise collectors are no-ops and Server is nil.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			RESTMetrics: metrics.NewNoopRESTMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Address: cfg.Server.Metrics.Address,
		Port:    cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:       server,
		RESTMetrics:  promMetrics.NewRESTMetrics(),
		StoreMetrics: metrics.NewStoreMetrics(cfg.Store.Type),
	}
}
