package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/restd/internal/logger"
	"github.com/marmos91/restd/pkg/store/position"
)

// Key layout:
//
//	Prefix   Key Format       Value
//	"u:"     u:<userName>     Position (JSON)
const prefixUser = "u:"

func keyUser(user string) []byte {
	return []byte(prefixUser + user)
}

// BadgerPositionStoreConfig configures a BadgerPositionStore.
type BadgerPositionStoreConfig struct {
	// DBPath is the directory holding the BadgerDB files. Created if missing.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs Badger without touching disk. DBPath is ignored.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `mapstructure:"sync_writes"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 16)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 8)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// BadgerPositionStore persists positions in an embedded BadgerDB so users
// keep their place across restarts.
//
// Reads run in concurrent View transactions. Mutations are serialised by mu,
// which keeps Update atomic per user without having to retry on
// badger.ErrConflict.
type BadgerPositionStore struct {
	mu     sync.Mutex
	db     *badger.DB
	closed atomic.Bool
}

// NewBadgerPositionStore opens (or creates) the database described by config.
func NewBadgerPositionStore(ctx context.Context, config BadgerPositionStoreConfig) (*BadgerPositionStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, errors.New("badger position store requires a db path")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 16
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 8
	}

	opts = opts.
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None). // values are a few bytes each
		WithSyncWrites(config.SyncWrites).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	logger.Debug("Badger position store opened: path=%q in_memory=%v", config.DBPath, config.InMemory)
	return &BadgerPositionStore{db: db}, nil
}

func (s *BadgerPositionStore) Get(ctx context.Context, user string) (position.Position, error) {
	if err := ctx.Err(); err != nil {
		return position.Position{}, err
	}
	if s.closed.Load() {
		return position.Position{}, position.ErrClosed
	}
	if err := position.ValidateUser(user); err != nil {
		return position.Position{}, err
	}

	var pos position.Position
	err := s.db.View(func(txn *badger.Txn) error {
		var found bool
		var err error
		pos, found, err = readPosition(txn, user)
		if err != nil {
			return err
		}
		if !found {
			return position.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return position.Position{}, mapError(err)
	}
	return pos, nil
}

func (s *BadgerPositionStore) Update(ctx context.Context, user string, fn position.UpdateFunc) (position.Position, error) {
	if err := ctx.Err(); err != nil {
		return position.Position{}, err
	}
	if s.closed.Load() {
		return position.Position{}, position.ErrClosed
	}
	if err := position.ValidateUser(user); err != nil {
		return position.Position{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var next position.Position
	err := s.db.Update(func(txn *badger.Txn) error {
		current, found, err := readPosition(txn, user)
		if err != nil {
			return err
		}
		if !found {
			current = position.Default
		}

		next, err = fn(current, found)
		if err != nil {
			return err
		}

		data, err := encodePosition(next)
		if err != nil {
			return err
		}
		return txn.Set(keyUser(user), data)
	})
	if err != nil {
		return position.Position{}, mapError(err)
	}
	return next, nil
}

func (s *BadgerPositionStore) Delete(ctx context.Context, user string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return position.ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyUser(user))
	})
	return mapError(err)
}

func (s *BadgerPositionStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.closed.Load() {
		return 0, position.ErrClosed
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixUser)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// Close flushes and closes the database.
func (s *BadgerPositionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func readPosition(txn *badger.Txn, user string) (position.Position, bool, error) {
	item, err := txn.Get(keyUser(user))
	if err == badger.ErrKeyNotFound {
		return position.Position{}, false, nil
	}
	if err != nil {
		return position.Position{}, false, fmt.Errorf("failed to read user %q: %w", user, err)
	}

	var pos position.Position
	err = item.Value(func(val []byte) error {
		decoded, err := decodePosition(val)
		if err != nil {
			return err
		}
		pos = decoded
		return nil
	})
	if err != nil {
		return position.Position{}, false, err
	}
	return pos, true, nil
}

func encodePosition(pos position.Position) ([]byte, error) {
	data, err := json.Marshal(pos)
	if err != nil {
		return nil, fmt.Errorf("failed to encode position: %w", err)
	}
	return data, nil
}

func decodePosition(data []byte) (position.Position, error) {
	var pos position.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return position.Position{}, fmt.Errorf("failed to decode position: %w", err)
	}
	return pos, nil
}

func mapError(err error) error {
	if errors.Is(err, badger.ErrDBClosed) || errors.Is(err, badger.ErrBlockedWrites) {
		return position.ErrClosed
	}
	return err
}
