package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marmos91/restd/pkg/store/position"
	"github.com/marmos91/restd/pkg/store/position/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	protocol string
	port     int
	failWith error

	stopped atomic.Int32
	stop    chan struct{}
}

func newFakeAdapter(protocol string, port int) *fakeAdapter {
	return &fakeAdapter{protocol: protocol, port: port, stop: make(chan struct{})}
}

func (f *fakeAdapter) Serve(ctx context.Context) error {
	if f.failWith != nil {
		return f.failWith
	}
	select {
	case <-ctx.Done():
	case <-f.stop:
	}
	return nil
}

func (f *fakeAdapter) Stop(context.Context) error {
	if f.stopped.Add(1) == 1 {
		close(f.stop)
	}
	return nil
}

func (f *fakeAdapter) Protocol() string { return f.protocol }
func (f *fakeAdapter) Port() int        { return f.port }

type closeTrackingStore struct {
	position.Store
	closed atomic.Bool
}

func (s *closeTrackingStore) Close() error {
	s.closed.Store(true)
	return s.Store.Close()
}

func newStore() *closeTrackingStore {
	return &closeTrackingStore{Store: memory.NewMemoryPositionStore()}
}

func TestNewPanicsOnNilStore(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestAddAdapterRejectsConflicts(t *testing.T) {
	srv := New(newStore())

	require.NoError(t, srv.AddAdapter(newFakeAdapter("REST", 8080)))
	assert.Error(t, srv.AddAdapter(newFakeAdapter("REST", 9000)), "duplicate protocol")
	assert.Error(t, srv.AddAdapter(newFakeAdapter("OTHER", 8080)), "duplicate port")
	assert.NoError(t, srv.AddAdapter(newFakeAdapter("EPHEMERAL", 0)))
	assert.Len(t, srv.Adapters(), 2)
}

func TestServeWithoutAdapters(t *testing.T) {
	store := newStore()
	srv := New(store)
	assert.Error(t, srv.Serve(context.Background()))
	assert.True(t, store.closed.Load())
}

func TestServeStopsOnCancel(t *testing.T) {
	store := newStore()
	srv := New(store)
	a := newFakeAdapter("REST", 1)
	require.NoError(t, srv.AddAdapter(a))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, int32(1), a.stopped.Load())
	assert.True(t, store.closed.Load(), "store is closed after the adapters stop")

	assert.Error(t, srv.Serve(context.Background()), "Serve may only run once")
	assert.Error(t, srv.AddAdapter(newFakeAdapter("LATE", 2)))
}

func TestServeAdapterFailureStopsOthers(t *testing.T) {
	store := newStore()
	srv := New(store)

	healthy := newFakeAdapter("REST", 1)
	broken := newFakeAdapter("BROKEN", 2)
	broken.failWith = errors.New("bind failed")
	require.NoError(t, srv.AddAdapter(healthy))
	require.NoError(t, srv.AddAdapter(broken))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(context.Background()) }()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BROKEN adapter error")
		assert.ErrorIs(t, err, broken.failWith)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after adapter failure")
	}
	assert.Equal(t, int32(1), healthy.stopped.Load())
	assert.True(t, store.closed.Load())
}
