package config

import (
	"strings"
	"time"

	"github.com/marmos91/restd/pkg/adapter/rest"
)

const (
	// DefaultMetricsPort is the port of the Prometheus endpoint.
	DefaultMetricsPort = 9090

	// DefaultBadgerPath is where the badger store keeps its files when no
	// path is configured.
	DefaultBadgerPath = "/tmp/restd-positions"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans are left alone; Load decides adapter enablement
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyStoreDefaults(&cfg.Store)
	applyRESTDefaults(&cfg.Adapters.REST)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}

// applyStoreDefaults sets position store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	// Filled in for every type so a generated config file shows them.
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = DefaultBadgerPath
	}
	if _, ok := cfg.Badger["sync_writes"]; !ok {
		cfg.Badger["sync_writes"] = false
	}
}

// applyRESTDefaults sets REST adapter defaults.
//
// ListenPort keeps the adapter default only when unset; 0 is not reachable
// from a config file because it means "unset" here. Tests that need an
// ephemeral port build rest.RESTConfig directly.
func applyRESTDefaults(cfg *rest.RESTConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = rest.DefaultListenAddress
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = rest.DefaultListenPort
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = rest.DefaultWorkerCount
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = rest.DefaultPollTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = rest.DefaultWriteTimeout
	}

	// MaxConnections defaults to 0 (unlimited)

	if cfg.Backlog == 0 {
		cfg.Backlog = rest.DefaultBacklog
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = rest.DefaultBufferSize
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = rest.DefaultMaxHeaderBytes
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = rest.DefaultMaxBodySize
	}
	if cfg.MaxRequestsPerPass == 0 {
		cfg.MaxRequestsPerPass = rest.DefaultMaxRequestsPerPass
	}

	// AcceptRate defaults to 0 (unlimited); a configured rate without a
	// burst admits one second's worth at once.
	if cfg.AcceptRate > 0 && cfg.AcceptBurst == 0 {
		cfg.AcceptBurst = cfg.AcceptRate
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = rest.DefaultShutdownTimeout
	}
	if cfg.MetricsLogInterval == 0 {
		cfg.MetricsLogInterval = rest.DefaultMetricsLogInterval
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: AdaptersConfig{
			REST: rest.RESTConfig{
				Enabled: true,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
