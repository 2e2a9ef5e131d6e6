package config

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/restd/internal/protocol/command"
	"github.com/marmos91/restd/pkg/store/position"
)

func TestCreatePositionStore_Memory(t *testing.T) {
	ctx := context.Background()

	store, err := CreatePositionStore(ctx, &StoreConfig{Type: "memory"}, nil)
	if err != nil {
		t.Fatalf("CreatePositionStore failed: %v", err)
	}
	defer store.Close()

	if _, err := store.Get(ctx, "nobody"); !errors.Is(err, position.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a fresh store, got %v", err)
	}
}

func TestCreatePositionStore_Badger(t *testing.T) {
	ctx := context.Background()
	cfg := &StoreConfig{
		Type: "badger",
		Badger: map[string]any{
			"db_path":     filepath.Join(t.TempDir(), "positions"),
			"sync_writes": "false",
		},
	}

	store, err := CreatePositionStore(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("CreatePositionStore failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestCreatePositionStore_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     StoreConfig
		wantErr string
	}{
		{
			name:    "unknown type",
			cfg:     StoreConfig{Type: "postgres"},
			wantErr: "unknown position store type",
		},
		{
			name:    "memory with options",
			cfg:     StoreConfig{Type: "memory", Memory: map[string]any{"size": 10}},
			wantErr: "invalid memory store config",
		},
		{
			name:    "badger with unknown option",
			cfg:     StoreConfig{Type: "badger", Badger: map[string]any{"db_path": "/tmp/x", "compression": "zstd"}},
			wantErr: "invalid badger store config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreatePositionStore(context.Background(), &tt.cfg, nil)
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateAdapters(t *testing.T) {
	cfg := GetDefaultConfig()
	store, err := CreatePositionStore(context.Background(), &cfg.Store, nil)
	if err != nil {
		t.Fatalf("CreatePositionStore failed: %v", err)
	}
	defer store.Close()

	adapters, err := CreateAdapters(cfg, command.NewDispatcher(store), nil)
	if err != nil {
		t.Fatalf("CreateAdapters failed: %v", err)
	}
	if len(adapters) != 1 || adapters[0].Protocol() != "REST" {
		t.Fatalf("Expected a single REST adapter, got %v", adapters)
	}

	cfg.Adapters.REST.Enabled = false
	if _, err := CreateAdapters(cfg, command.NewDispatcher(store), nil); err == nil {
		t.Error("Expected an error with every adapter disabled")
	}
}
