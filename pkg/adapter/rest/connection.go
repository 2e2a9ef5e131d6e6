package rest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/restd/internal/protocol/http1"
)

// Connection is one accepted client socket and its parse state.
//
// Ownership: while owned is false the connection belongs to the event loop,
// which may watch it for readiness. The event loop hands it to a worker by
// winning owned.CompareAndSwap(false, true) and enqueueing it; the worker
// hands it back with owned.Store(false). Only the current owner touches
// framer and pending.
type Connection struct {
	// fd is the non-blocking client socket and the registry key
	fd int

	// id correlates log lines of one connection
	id uuid.UUID

	// peer is the remote address, for logs
	peer string

	// owned is true while a worker (or the job queue) holds the connection
	// The event loop leaves owned connections out of the readiness set
	owned atomic.Bool

	// framer holds the parse state of the request in progress
	// Reset after every response; the socket outlives it
	framer *http1.Framer

	// pending holds bytes received past the end of the last complete
	// request. They are framed before the socket is read again.
	pending []byte

	// acceptedAt records when the connection was accepted
	acceptedAt time.Time

	// requests counts responses written on this connection
	requests atomic.Uint64

	// closeOnce makes close idempotent; closeErr keeps its result
	closeOnce sync.Once
	closeErr  error
}

func newConnection(fd int, peer string, limits http1.Limits) *Connection {
	return &Connection{
		fd:         fd,
		id:         uuid.New(),
		peer:       peer,
		framer:     http1.NewFramer(limits),
		acceptedAt: time.Now(),
	}
}

// ID returns the correlation id used in logs.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// FD returns the socket descriptor.
func (c *Connection) FD() int {
	return c.fd
}

// Peer returns the remote address.
func (c *Connection) Peer() string {
	return c.peer
}

// Owned reports whether a worker currently holds the connection.
func (c *Connection) Owned() bool {
	return c.owned.Load()
}

// Requests returns the number of requests answered on this connection.
func (c *Connection) Requests() uint64 {
	return c.requests.Load()
}

// claim marks the connection as owned by a worker. It fails if someone else
// already holds it.
func (c *Connection) claim() bool {
	return c.owned.CompareAndSwap(false, true)
}

// release hands the connection back to the event loop.
func (c *Connection) release() {
	c.owned.Store(false)
}

// close releases the socket exactly once. Callers must deregister the
// connection first so the descriptor number cannot be reused while still
// present in the registry.
func (c *Connection) close() error {
	c.closeOnce.Do(func() {
		c.closeErr = closeFD(c.fd)
	})
	return c.closeErr
}
