package config

import (
	"testing"
	"time"

	"github.com/marmos91/restd/pkg/adapter/rest"
)

func TestApplyDefaults_Empty(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected output stdout, got %q", cfg.Logging.Output)
	}
	if cfg.Server.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Expected metrics port %d, got %d", DefaultMetricsPort, cfg.Server.Metrics.Port)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected store type memory, got %q", cfg.Store.Type)
	}
	if cfg.Store.Memory == nil {
		t.Error("Expected memory options map to be initialized")
	}
	if cfg.Store.Badger["db_path"] != DefaultBadgerPath {
		t.Errorf("Expected badger db_path %q, got %v", DefaultBadgerPath, cfg.Store.Badger["db_path"])
	}

	rc := cfg.Adapters.REST
	if rc.Enabled {
		t.Error("ApplyDefaults must not flip Enabled")
	}
	if rc.ListenPort != rest.DefaultListenPort {
		t.Errorf("Expected listen port %d, got %d", rest.DefaultListenPort, rc.ListenPort)
	}
	if rc.BufferSize != rest.DefaultBufferSize {
		t.Errorf("Expected buffer size %d, got %d", rest.DefaultBufferSize, rc.BufferSize)
	}
	if rc.MaxRequestsPerPass != rest.DefaultMaxRequestsPerPass {
		t.Errorf("Expected max requests per pass %d, got %d", rest.DefaultMaxRequestsPerPass, rc.MaxRequestsPerPass)
	}
	if rc.MaxConnections != 0 {
		t.Errorf("Expected unlimited connections, got %d", rc.MaxConnections)
	}
	if rc.AcceptRate != 0 || rc.AcceptBurst != 0 {
		t.Errorf("Expected no accept limit, got rate=%d burst=%d", rc.AcceptRate, rc.AcceptBurst)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "warn", Format: "json", Output: "stderr"},
		Server:  ServerConfig{ShutdownTimeout: 5 * time.Second},
		Store: StoreConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": "/var/lib/restd", "sync_writes": true},
		},
		Adapters: AdaptersConfig{
			REST: rest.RESTConfig{
				ListenPort:  9000,
				WorkerCount: 8,
				AcceptRate:  50,
			},
		},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level normalized to WARN, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Logging values overwritten: %+v", cfg.Logging)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Badger["db_path"] != "/var/lib/restd" || cfg.Store.Badger["sync_writes"] != true {
		t.Errorf("Badger options overwritten: %v", cfg.Store.Badger)
	}
	if cfg.Adapters.REST.ListenPort != 9000 || cfg.Adapters.REST.WorkerCount != 8 {
		t.Errorf("REST values overwritten: %+v", cfg.Adapters.REST)
	}
	if cfg.Adapters.REST.AcceptBurst != 50 {
		t.Errorf("Expected accept burst to follow accept rate, got %d", cfg.Adapters.REST.AcceptBurst)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if !cfg.Adapters.REST.Enabled {
		t.Error("Expected REST adapter enabled in the default config")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}
