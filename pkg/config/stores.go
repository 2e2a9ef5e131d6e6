package config

import (
	"context"
	"fmt"

	"github.com/marmos91/restd/internal/logger"
	"github.com/marmos91/restd/pkg/metrics"
	"github.com/marmos91/restd/pkg/store/position"
	"github.com/marmos91/restd/pkg/store/position/badger"
	"github.com/marmos91/restd/pkg/store/position/memory"
	"github.com/mitchellh/mapstructure"
)

// CreatePositionStore creates the position store selected by cfg.Type.
//
// The type-specific map (cfg.Memory or cfg.Badger) is decoded into the
// store's own configuration type. When storeMetrics is non-nil the store is
// wrapped so every operation is reported.
//
// Supported types:
//   - "memory": pkg/store/position/memory (lost on restart)
//   - "badger": pkg/store/position/badger (embedded BadgerDB)
func CreatePositionStore(ctx context.Context, cfg *StoreConfig, storeMetrics metrics.StoreMetrics) (position.Store, error) {
	var (
		store position.Store
		err   error
	)

	switch cfg.Type {
	case "memory":
		store, err = createMemoryPositionStore(cfg.Memory)
	case "badger":
		store, err = createBadgerPositionStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown position store type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Position store: %s", cfg.Type)
	return position.WithMetrics(store, storeMetrics), nil
}

func createMemoryPositionStore(options map[string]any) (position.Store, error) {
	// The memory store has no options; reject anything set so a typo in
	// store.type does not silently drop configuration.
	var memoryCfg struct{}
	if err := decodeOptions(options, &memoryCfg); err != nil {
		return nil, fmt.Errorf("invalid memory store config: %w", err)
	}
	return memory.NewMemoryPositionStore(), nil
}

func createBadgerPositionStore(ctx context.Context, options map[string]any) (position.Store, error) {
	var badgerCfg badger.BadgerPositionStoreConfig
	if err := decodeOptions(options, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger store config: %w", err)
	}

	store, err := badger.NewBadgerPositionStore(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return store, nil
}

// decodeOptions decodes a store options map into out. Values coming from
// environment variables are strings, so weak typing is enabled.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}
