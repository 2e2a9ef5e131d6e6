// Package adapter defines the contract between the restd server and the
// network front ends that feed it requests.
package adapter

import (
	"context"
)

// Adapter is a protocol front end managed by server.Server.
//
// Lifecycle:
//  1. Creation: the adapter is built with its configuration and the
//     dispatcher it forwards complete requests to
//  2. Startup: Serve() binds, serves and blocks until shutdown
//  3. Shutdown: Stop() or context cancellation drains and releases
//     every connection
//
// Thread safety:
// Stop() may be called concurrently with Serve() and more than once.
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled, Stop is called, or an unrecoverable error occurs.
	//
	// Returns:
	//   - nil on graceful shutdown
	//   - error if startup fails or shutdown is not graceful
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown and waits for Serve to return or
	// ctx to expire. It is idempotent.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name used in logs (e.g., "REST").
	Protocol() string

	// Port returns the TCP port the adapter listens on. Before Serve has
	// bound the listener this is the configured port, which may be 0.
	Port() int
}
