// Package testing provides a conformance suite for position.Store
// implementations.
package testing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/marmos91/restd/pkg/store/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite tests the position.Store contract, independent of the
// backing implementation.
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) position.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("GetMissing", suite.testGetMissing)
	t.Run("UpdateCreatesAtDefault", suite.testUpdateCreatesAtDefault)
	t.Run("UpdateAccumulates", suite.testUpdateAccumulates)
	t.Run("UpdateErrorLeavesState", suite.testUpdateErrorLeavesState)
	t.Run("Delete", suite.testDelete)
	t.Run("InvalidUser", suite.testInvalidUser)
	t.Run("ConcurrentUpdates", suite.testConcurrentUpdates)
	t.Run("CancelledContext", suite.testCancelledContext)
	t.Run("Closed", suite.testClosed)
}

func (suite *StoreTestSuite) newStore(t *testing.T) position.Store {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func (suite *StoreTestSuite) testGetMissing(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "nobody")
	assert.ErrorIs(t, err, position.ErrNotFound)

	pos, err := position.GetOrDefault(ctx, store, "nobody")
	require.NoError(t, err)
	assert.Equal(t, position.Default, pos)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "GetOrDefault must not create users")
}

func (suite *StoreTestSuite) testUpdateCreatesAtDefault(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	var sawFound bool
	var sawPos position.Position
	got, err := store.Update(ctx, "alice", func(pos position.Position, found bool) (position.Position, error) {
		sawPos, sawFound = pos, found
		return pos, nil
	})
	require.NoError(t, err)
	assert.False(t, sawFound)
	assert.Equal(t, position.Default, sawPos)
	assert.Equal(t, position.Default, got)

	stored, err := store.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, position.Default, stored)
}

func (suite *StoreTestSuite) testUpdateAccumulates(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	step := func(pos position.Position, _ bool) (position.Position, error) {
		return position.Position{X: pos.X + 1, Y: pos.Y - 2}, nil
	}
	for i := 0; i < 3; i++ {
		_, err := store.Update(ctx, "bob", step)
		require.NoError(t, err)
	}

	pos, err := store.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, position.Position{X: 13, Y: 4}, pos)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func (suite *StoreTestSuite) testUpdateErrorLeavesState(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := store.Update(ctx, "carol", func(position.Position, bool) (position.Position, error) {
		return position.Position{}, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, "carol")
	assert.ErrorIs(t, err, position.ErrNotFound)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "dave", func(position.Position, bool) (position.Position, error) {
		return position.Position{X: 1, Y: 1}, nil
	})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "dave"))
	require.NoError(t, store.Delete(ctx, "dave"))

	_, err = store.Get(ctx, "dave")
	assert.ErrorIs(t, err, position.ErrNotFound)
}

func (suite *StoreTestSuite) testInvalidUser(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, position.ErrInvalidUser)

	_, err = store.Update(ctx, strings.Repeat("x", position.MaxUserNameLength+1),
		func(pos position.Position, _ bool) (position.Position, error) { return pos, nil })
	assert.ErrorIs(t, err, position.ErrInvalidUser)
}

func (suite *StoreTestSuite) testConcurrentUpdates(t *testing.T) {
	store := suite.newStore(t)
	ctx := context.Background()

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_, err := store.Update(ctx, "shared", func(pos position.Position, _ bool) (position.Position, error) {
					return position.Position{X: pos.X + 1, Y: pos.Y}, nil
				})
				if err != nil {
					errs <- fmt.Errorf("goroutine %d: %w", g, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	pos, err := store.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, position.Default.X+goroutines*perGoroutine, pos.X)
	assert.Equal(t, position.Default.Y, pos.Y)
}

func (suite *StoreTestSuite) testCancelledContext(t *testing.T) {
	store := suite.newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Get(ctx, "erin")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = store.Update(ctx, "erin", func(pos position.Position, _ bool) (position.Position, error) { return pos, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func (suite *StoreTestSuite) testClosed(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	require.NoError(t, store.Close())

	_, err := store.Get(ctx, "frank")
	assert.ErrorIs(t, err, position.ErrClosed)

	_, err = store.Update(ctx, "frank", func(pos position.Position, _ bool) (position.Position, error) { return pos, nil })
	assert.ErrorIs(t, err, position.ErrClosed)

	_, err = store.Count(ctx)
	assert.ErrorIs(t, err, position.ErrClosed)
}
