// Package rest implements restd's TCP front end: a readiness-driven event
// loop over raw non-blocking sockets, incremental HTTP/1 framing per
// connection and a fixed pool of workers that answer complete requests.
//
// Architecture:
//
//	listener ─┐
//	          ├─ event loop (poll) ── claim + enqueue ──> job queue ──> workers
//	idle conns┘        ^                                                  │
//	                   └──────────── release (ownership cleared) ─────────┘
//
// A connection is watched by the event loop while no worker owns it, and is
// in the job queue only between being claimed and being dequeued, so each
// readable connection is processed by exactly one worker at a time.
package rest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/restd/internal/logger"
	"github.com/marmos91/restd/internal/protocol/command"
	"github.com/marmos91/restd/internal/protocol/http1"
	"github.com/marmos91/restd/internal/ratelimiter"
	"github.com/marmos91/restd/pkg/adapter"
	"github.com/marmos91/restd/pkg/metrics"
)

var _ adapter.Adapter = (*RESTAdapter)(nil)

// Dispatcher turns one complete request into one response payload.
//
// Returning a *command.Error produces an error response and keeps the
// connection open; any other error is answered with 500.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *http1.Request) (*command.Result, error)
}

// RESTAdapter implements adapter.Adapter for the JSON command protocol.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Event loop exits after its current wait (at most PollTimeout)
//  3. Listener closed, job queue closed
//  4. Workers finish the connections they hold (up to ShutdownTimeout)
//  5. Remaining connections are closed; after a timeout in-flight requests
//     are cancelled and sockets force-closed
//
// All exported methods are safe for concurrent use.
type RESTAdapter struct {
	// config holds the adapter configuration with defaults applied
	config RESTConfig

	// dispatcher turns each complete request into a response payload
	// Shared by all workers; must be safe for concurrent use
	dispatcher Dispatcher

	// metrics provides optional Prometheus metrics collection
	// Never nil: a no-op implementation stands in when metrics are disabled
	metrics metrics.RESTMetrics

	// framerLimits bounds the header and body buffers of every connection
	// Derived from BufferSize, MaxHeaderBytes and MaxBodySize
	framerLimits http1.Limits

	// acceptLimiter throttles how fast the event loop accepts connections
	// nil if AcceptRate is 0 (unlimited)
	acceptLimiter *ratelimiter.RateLimiter

	// listenFD is the non-blocking listening socket, -1 until Serve binds it
	listenFD int

	// boundPort is the port chosen by the kernel, useful when ListenPort is 0
	boundPort atomic.Int32

	// registry maps socket descriptors to their connections
	// Written by the event loop on accept and by whoever closes a connection
	registry *registry

	// queue hands readable connections from the event loop to the workers
	queue *jobQueue

	// workers tracks the worker goroutines for graceful shutdown
	workers sync.WaitGroup

	// connCount tracks the number of registered connections
	// Used for MaxConnections, metrics and shutdown logging
	connCount atomic.Int32

	// requests counts responses written since the adapter started
	requests atomic.Uint64

	// started guards against Serve being called twice
	started atomic.Bool

	// ready is closed once the listener is bound
	ready chan struct{}

	// shutdownOnce ensures shutdown is only initiated once
	shutdownOnce sync.Once

	// shutdown signals that graceful shutdown has been initiated
	// Closed by initiateShutdown(), monitored by the event loop
	shutdown chan struct{}

	// shuttingDown mirrors shutdown for the workers' hot path
	shuttingDown atomic.Bool

	// done is closed when Serve returns; Stop waits on it
	done chan struct{}

	// serveErr is the value Serve returned, reported again by Stop
	serveErr error

	// requestCtx is handed to the dispatcher. It is cancelled only when
	// shutdown times out, or when Serve fails before starting any worker.
	requestCtx context.Context

	// cancelRequests cancels requestCtx
	cancelRequests context.CancelFunc
}

// New creates a RESTAdapter. Zero values in config are replaced with
// defaults.
//
// Parameters:
//   - config: listener, worker pool and buffer settings
//   - dispatcher: answers complete requests (shared by all workers)
//   - restMetrics: optional metrics collector (nil = no metrics)
//
// Returns an adapter ready for Serve.
//
// Panics if the configuration is invalid or dispatcher is nil (programmer
// error; pkg/config validates user input before this point).
func New(config RESTConfig, dispatcher Dispatcher, restMetrics metrics.RESTMetrics) *RESTAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid REST config: %v", err))
	}
	if dispatcher == nil {
		panic("REST adapter requires a dispatcher")
	}
	if restMetrics == nil {
		restMetrics = metrics.NewNoopRESTMetrics()
	}

	var limiter *ratelimiter.RateLimiter
	if config.AcceptRate > 0 {
		limiter = ratelimiter.New(config.AcceptRate, config.AcceptBurst)
		logger.Debug("REST accept rate limit: %d/s (burst %d)", config.AcceptRate, config.AcceptBurst)
	}

	requestCtx, cancelRequests := context.WithCancel(context.Background())

	return &RESTAdapter{
		config:     config,
		dispatcher: dispatcher,
		metrics:    restMetrics,
		framerLimits: http1.Limits{
			MaxHeaderLineSize: config.BufferSize,
			MaxHeaderBytes:    config.MaxHeaderBytes,
			MaxBodySize:       config.MaxBodySize,
		},
		acceptLimiter:  limiter,
		listenFD:       -1,
		registry:       newRegistry(),
		queue:          newJobQueue(),
		ready:          make(chan struct{}),
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		requestCtx:     requestCtx,
		cancelRequests: cancelRequests,
	}
}

// Serve binds the listener, starts the worker pool and runs the event loop
// until ctx is cancelled or Stop is called.
//
// Returns nil after a graceful shutdown, or an error if the listener cannot
// be created or workers had to be force-stopped. When the listener cannot be
// created Ready never fires, so callers waiting on it must also watch the
// error returned here.
func (a *RESTAdapter) Serve(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return fmt.Errorf("REST adapter already serving")
	}
	defer close(a.done)

	addr, err := resolveListenAddress(a.config.ListenAddress)
	if err != nil {
		a.cancelRequests()
		a.serveErr = err
		return err
	}

	fd, port, err := listenTCP(addr, a.config.ListenPort, a.config.Backlog)
	if err != nil {
		a.cancelRequests()
		a.serveErr = fmt.Errorf("failed to create REST listener on %s:%d: %w", a.config.ListenAddress, a.config.ListenPort, err)
		return a.serveErr
	}
	a.listenFD = fd
	a.boundPort.Store(int32(port))
	close(a.ready)

	logger.Info("REST server listening on %s:%d", a.config.ListenAddress, port)
	logger.Debug("REST config: workers=%d poll_timeout=%v write_timeout=%v max_connections=%d buffer_size=%d max_body_size=%d",
		a.config.WorkerCount, a.config.PollTimeout, a.config.WriteTimeout,
		a.config.MaxConnections, a.config.BufferSize, a.config.MaxBodySize)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("REST shutdown signal received: %v", ctx.Err())
			a.initiateShutdown()
		case <-a.shutdown:
		}
	}()

	if a.config.MetricsLogInterval > 0 {
		go a.logMetrics()
	}

	for i := 0; i < a.config.WorkerCount; i++ {
		w := newWorker(i, a)
		a.workers.Add(1)
		go func() {
			defer a.workers.Done()
			w.run(a.requestCtx)
		}()
	}

	newEventLoop(a).run()

	if err := closeFD(a.listenFD); err != nil {
		logger.Debug("Error closing REST listener: %v", err)
	}

	a.serveErr = a.gracefulShutdown()
	return a.serveErr
}

// Ready is closed once the listener is bound. It stays open if Serve fails
// before binding.
func (a *RESTAdapter) Ready() <-chan struct{} {
	return a.ready
}

func (a *RESTAdapter) isShuttingDown() bool {
	return a.shuttingDown.Load()
}

// initiateShutdown is idempotent; the event loop notices the flag after its
// current wait.
func (a *RESTAdapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		logger.Debug("REST shutdown initiated")
		a.shuttingDown.Store(true)
		close(a.shutdown)
	})
}

// gracefulShutdown stops the workers and closes every connection.
func (a *RESTAdapter) gracefulShutdown() error {
	logger.Info("REST graceful shutdown: %d active connection(s), %d queued (timeout: %v)",
		a.connCount.Load(), a.queue.len(), a.config.ShutdownTimeout)

	a.queue.close()

	workersDone := make(chan struct{})
	go func() {
		a.workers.Wait()
		close(workersDone)
	}()

	var err error
	select {
	case <-workersDone:
		logger.Debug("REST workers stopped")
	case <-time.After(a.config.ShutdownTimeout):
		logger.Warn("REST shutdown timeout exceeded after %v - cancelling in-flight requests", a.config.ShutdownTimeout)
		a.cancelRequests()
		err = fmt.Errorf("REST shutdown timeout: %d connection(s) force-closed", a.connCount.Load())
	}

	a.closeAllConnections()
	a.cancelRequests()

	if err == nil {
		logger.Info("REST graceful shutdown complete")
	}
	return err
}

// closeAllConnections closes whatever is still registered.
func (a *RESTAdapter) closeAllConnections() {
	conns := a.registry.drain()
	for _, c := range conns {
		a.connCount.Add(-1)
		if err := c.close(); err != nil {
			logger.Debug("Error closing REST connection %s: %v", c.id, err)
		}
		a.metrics.RecordConnectionClosed(closeShutdown)
	}
	a.metrics.SetActiveConnections(a.connCount.Load())
	if len(conns) > 0 {
		logger.Info("Closed %d REST connection(s)", len(conns))
	}
}

// closeConnection deregisters c and closes its socket. Deregistering first
// guarantees the descriptor number is not reused while still registered.
func (a *RESTAdapter) closeConnection(c *Connection, reason string) {
	if a.registry.remove(c) {
		count := a.connCount.Add(-1)
		a.metrics.SetActiveConnections(count)
	}
	if err := c.close(); err != nil {
		logger.Debug("Error closing REST connection %s: %v", c.id, err)
	}
	a.metrics.RecordConnectionClosed(reason)
	logger.Debug("REST connection %s from %s closed (%s) after %d request(s), %v",
		c.id, c.peer, reason, c.Requests(), time.Since(c.acceptedAt).Round(time.Millisecond))
}

// Stop initiates graceful shutdown and waits for Serve to return or ctx to
// expire.
func (a *RESTAdapter) Stop(ctx context.Context) error {
	a.initiateShutdown()

	if !a.started.Load() {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-a.done:
		return a.serveErr
	case <-ctx.Done():
		logger.Warn("REST shutdown context cancelled: %d connection(s) still active: %v",
			a.connCount.Load(), ctx.Err())
		return ctx.Err()
	}
}

func (a *RESTAdapter) logMetrics() {
	ticker := time.NewTicker(a.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.shutdown:
			return
		case <-ticker.C:
			logger.Info("REST metrics: active_connections=%d queued=%d requests_total=%d",
				a.connCount.Load(), a.queue.len(), a.requests.Load())
		}
	}
}

// GetActiveConnections returns the number of registered connections.
func (a *RESTAdapter) GetActiveConnections() int32 {
	return a.connCount.Load()
}

// RequestsServed returns the number of responses written since start.
func (a *RESTAdapter) RequestsServed() uint64 {
	return a.requests.Load()
}

// Port returns the bound port once listening, the configured one before.
func (a *RESTAdapter) Port() int {
	if p := a.boundPort.Load(); p != 0 {
		return int(p)
	}
	return a.config.ListenPort
}

// Protocol returns "REST".
func (a *RESTAdapter) Protocol() string {
	return "REST"
}
