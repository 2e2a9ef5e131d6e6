package rest

import "sync"

// registry maps socket descriptors to live connections.
//
// The event loop inserts on accept and snapshots the idle set; workers and
// the event loop both erase. Every access goes through mu, so a snapshot
// never observes a half-applied mutation.
type registry struct {
	mu    sync.Mutex
	conns map[int]*Connection
}

func newRegistry() *registry {
	return &registry{conns: make(map[int]*Connection)}
}

func (r *registry) add(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.fd] = c
}

// remove erases c. An entry for the same descriptor that belongs to a
// different connection is left untouched.
func (r *registry) remove(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.conns[c.fd]; ok && cur == c {
		delete(r.conns, c.fd)
		return true
	}
	return false
}

func (r *registry) get(fd int) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[fd]
	return c, ok
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// appendIdle appends every connection not currently owned by a worker.
func (r *registry) appendIdle(dst []*Connection) []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.conns {
		if !c.owned.Load() {
			dst = append(dst, c)
		}
	}
	return dst
}

// drain empties the registry and returns what it held.
func (r *registry) drain() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Connection, 0, len(r.conns))
	for fd, c := range r.conns {
		out = append(out, c)
		delete(r.conns, fd)
	}
	return out
}
