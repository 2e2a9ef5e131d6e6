package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "debug"

adapters:
  rest:
    listen_port: 8080
    worker_count: 6
    poll_timeout: 50ms
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("Expected default store type 'memory', got %q", cfg.Store.Type)
	}

	rc := cfg.Adapters.REST
	if !rc.Enabled {
		t.Error("Expected REST adapter enabled when the key is absent")
	}
	if rc.ListenPort != 8080 {
		t.Errorf("Expected listen_port 8080, got %d", rc.ListenPort)
	}
	if rc.WorkerCount != 6 {
		t.Errorf("Expected worker_count 6, got %d", rc.WorkerCount)
	}
	if rc.PollTimeout != 50*time.Millisecond {
		t.Errorf("Expected poll_timeout 50ms, got %v", rc.PollTimeout)
	}
	if rc.ListenAddress != "127.0.0.1" {
		t.Errorf("Expected default listen_address 127.0.0.1, got %q", rc.ListenAddress)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.REST.ListenPort != 27016 {
		t.Errorf("Expected default REST port 27016, got %d", cfg.Adapters.REST.ListenPort)
	}
	if cfg.Adapters.REST.WorkerCount != 3 {
		t.Errorf("Expected default worker count 3, got %d", cfg.Adapters.REST.WorkerCount)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("RESTD_LOGGING_LEVEL", "warn")
	t.Setenv("RESTD_ADAPTERS_REST_WORKER_COUNT", "12")
	t.Setenv("RESTD_ADAPTERS_REST_WRITE_TIMEOUT", "2s")
	t.Setenv("RESTD_STORE_TYPE", "badger")
	t.Setenv("RESTD_ADAPTERS_REST_MAX_HEADER_BYTES", "131072")

	configPath := writeConfig(t, `
adapters:
  rest:
    worker_count: 4
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected env level WARN, got %q", cfg.Logging.Level)
	}
	if cfg.Adapters.REST.WorkerCount != 12 {
		t.Errorf("Expected env to override worker_count to 12, got %d", cfg.Adapters.REST.WorkerCount)
	}
	if cfg.Adapters.REST.WriteTimeout != 2*time.Second {
		t.Errorf("Expected write_timeout 2s, got %v", cfg.Adapters.REST.WriteTimeout)
	}
	if cfg.Adapters.REST.MaxHeaderBytes != 128<<10 {
		t.Errorf("Expected max_header_bytes 131072, got %d", cfg.Adapters.REST.MaxHeaderBytes)
	}
	if cfg.Store.Type != "badger" {
		t.Errorf("Expected store type badger, got %q", cfg.Store.Type)
	}
}

func TestLoad_DisabledAdapter(t *testing.T) {
	configPath := writeConfig(t, `
adapters:
  rest:
    enabled: false
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected an error when every adapter is disabled")
	}
	if !strings.Contains(err.Error(), "at least one adapter") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "logging: [unterminated\n")

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected an error for malformed YAML")
	}
}

func TestLoad_InvalidValue(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  format: xml
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected a validation error for logging.format")
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	if got := GetConfigDir(); got != filepath.Join(tmpDir, "restd") {
		t.Errorf("GetConfigDir() = %q, want %q", got, filepath.Join(tmpDir, "restd"))
	}
	if got := GetDefaultConfigPath(); got != filepath.Join(tmpDir, "restd", "config.yaml") {
		t.Errorf("GetDefaultConfigPath() = %q", got)
	}
	if ConfigExists() {
		t.Error("ConfigExists() should be false in an empty directory")
	}
}
