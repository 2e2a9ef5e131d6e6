// Package server wires the position store, the protocol adapters and the
// metrics endpoint into one process lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/restd/internal/logger"
	"github.com/marmos91/restd/pkg/adapter"
	"github.com/marmos91/restd/pkg/metrics"
	"github.com/marmos91/restd/pkg/store/position"
)

// stopTimeout bounds each adapter's Stop call once shutdown begins.
const stopTimeout = 30 * time.Second

// Server manages the lifecycle of the protocol adapters that share one
// position store.
//
// Lifecycle:
//  1. Creation: New() with the store
//  2. Registration: AddAdapter() for each front end
//  3. Startup: Serve() starts every adapter (and the metrics server, if
//     set) concurrently
//  4. Shutdown: context cancellation or a failing adapter stops all
//     adapters in reverse order, then the store is closed
//
// Example usage:
//
//	srv := server.New(store)
//	srv.AddAdapter(rest.New(restConfig, command.NewDispatcher(store), nil))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
type Server struct {
	store         position.Store
	metricsServer *metrics.Server

	mu       sync.RWMutex
	adapters []adapter.Adapter
	served   bool
}

// New creates a Server around store. The store is closed when Serve
// returns.
//
// Panics if store is nil (programmer error).
func New(store position.Store) *Server {
	if store == nil {
		panic("position store cannot be nil")
	}
	return &Server{
		store:    store,
		adapters: make([]adapter.Adapter, 0, 2),
	}
}

// SetMetricsServer attaches a metrics HTTP server that runs alongside the
// adapters. Must be called before Serve.
func (s *Server) SetMetricsServer(ms *metrics.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsServer = ms
}

// AddAdapter registers an adapter.
//
// Returns an error if another adapter already uses the same protocol or a
// non-zero port, or if Serve has already been called.
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return errors.New("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()
	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Adapters returns a copy of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]adapter.Adapter, len(s.adapters))
	copy(out, s.adapters)
	return out
}

// Serve starts every adapter and blocks until ctx is cancelled or an
// adapter fails.
//
// Returns:
//   - nil after a graceful shutdown triggered by ctx
//   - the failing adapter's error otherwise
//
// Serve may only be called once.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return errors.New("server: Serve() has already been called")
	}
	s.served = true
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	metricsServer := s.metricsServer
	s.mu.Unlock()

	defer s.closeStore()

	if len(adapters) == 0 {
		return errors.New("no adapters registered; call AddAdapter() before Serve()")
	}

	logger.Info("Starting restd with %d adapter(s)", len(adapters))

	// Adapters watch runCtx rather than ctx so a failing adapter can bring
	// the rest down too.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan adapterError, len(adapters)+1)
	var wg sync.WaitGroup

	for _, a := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			if err := a.Serve(runCtx); err != nil && runCtx.Err() == nil {
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
				return
			}
			logger.Info("%s adapter stopped", protocol)
		}(a)
	}

	if metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metricsServer.Start(runCtx); err != nil && runCtx.Err() == nil {
				// Losing the scrape endpoint is not worth taking the
				// server down.
				logger.Error("Metrics server failed: %v", err)
			}
		}()
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	cancel()
	stopAllAdapters(adapters)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("restd stopped")
	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters stops adapters in reverse registration order.
func stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	for i := len(adapters) - 1; i >= 0; i-- {
		a := adapters[i]
		if err := a.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", a.Protocol(), err)
		}
	}
}

func (s *Server) closeStore() {
	if err := s.store.Close(); err != nil {
		logger.Error("Error closing position store: %v", err)
		return
	}
	logger.Debug("Position store closed")
}
