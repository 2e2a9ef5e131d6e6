package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitConfigToPath_Success(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read generated config: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"# restd Configuration File",
		"logging:",
		"store:",
		"adapters:",
		"listen_port: 27016",
		"poll_timeout: 100ms",
		"# Pipelined requests served before yielding a connection",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Generated config missing %q", want)
		}
	}
}

func TestInitConfigToPath_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := InitConfigToPath(configPath, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Generated config does not load: %v", err)
	}

	want := GetDefaultConfig()
	if cfg.Adapters.REST != want.Adapters.REST {
		t.Errorf("REST config changed by round trip:\n got  %+v\n want %+v", cfg.Adapters.REST, want.Adapters.REST)
	}
	if cfg.Logging != want.Logging {
		t.Errorf("Logging config changed by round trip: got %+v, want %+v", cfg.Logging, want.Logging)
	}
	if cfg.Store.Type != want.Store.Type {
		t.Errorf("Store type changed by round trip: got %q", cfg.Store.Type)
	}
}

func TestInitConfigToPath_AlreadyExists(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to create existing file: %v", err)
	}

	err := InitConfigToPath(configPath, false)
	if err == nil {
		t.Fatal("Expected error when config already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Unexpected error: %v", err)
	}

	if err := InitConfigToPath(configPath, true); err != nil {
		t.Fatalf("Expected force to overwrite, got: %v", err)
	}
	data, _ := os.ReadFile(configPath)
	if string(data) == "existing" {
		t.Error("Config file was not overwritten")
	}
}

func TestInitConfig_DefaultLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if path != GetDefaultConfigPath() {
		t.Errorf("Expected %q, got %q", GetDefaultConfigPath(), path)
	}
	if !ConfigExists() {
		t.Error("ConfigExists() should report the generated file")
	}
}
