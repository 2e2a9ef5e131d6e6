package badger

import (
	"context"
	"testing"

	"github.com/marmos91/restd/pkg/store/position"
	storetest "github.com/marmos91/restd/pkg/store/position/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerPositionStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) position.Store {
			store, err := NewBadgerPositionStore(context.Background(), BadgerPositionStoreConfig{
				DBPath: t.TempDir(),
			})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestBadgerPositionStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewBadgerPositionStore(ctx, BadgerPositionStoreConfig{DBPath: dir})
	require.NoError(t, err)

	_, err = store.Update(ctx, "alice", func(position.Position, bool) (position.Position, error) {
		return position.Position{X: -3, Y: 42}, nil
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewBadgerPositionStore(ctx, BadgerPositionStoreConfig{DBPath: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	pos, err := reopened.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, position.Position{X: -3, Y: 42}, pos)
}

func TestBadgerPositionStoreInMemory(t *testing.T) {
	store, err := NewBadgerPositionStore(context.Background(), BadgerPositionStoreConfig{InMemory: true})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = store.Get(context.Background(), "x")
	assert.ErrorIs(t, err, position.ErrNotFound)
}

func TestBadgerPositionStoreRequiresPath(t *testing.T) {
	_, err := NewBadgerPositionStore(context.Background(), BadgerPositionStoreConfig{})
	assert.Error(t, err)
}
