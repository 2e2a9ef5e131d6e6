package rest

import (
	"time"

	"github.com/marmos91/restd/internal/logger"
)

// eventLoop is the single goroutine that waits for readiness on the
// listener and on every idle connection, accepts new clients and hands
// readable connections to the workers.
//
// No goroutine exists per connection: an idle connection costs one slot in
// the readiness set.
type eventLoop struct {
	adapter *RESTAdapter
	poller  *poller

	// scratch slices reused across iterations
	watched []*Connection
	doomed  []*Connection

	// acceptPausedUntil keeps the listener out of the readiness set while
	// the accept rate limiter has no tokens; otherwise a pending backlog
	// would make every wait return immediately.
	acceptPausedUntil time.Time
}

func newEventLoop(a *RESTAdapter) *eventLoop {
	return &eventLoop{
		adapter: a,
		poller:  newPoller(64),
	}
}

// run iterates until the adapter shuts down.
func (l *eventLoop) run() {
	logger.Debug("REST event loop started")
	defer logger.Debug("REST event loop stopped")

	for !l.adapter.isShuttingDown() {
		l.iterate()
	}
}

// iterate performs one readiness wait and reacts to its outcome.
func (l *eventLoop) iterate() {
	a := l.adapter

	// 1. Build the readiness set: the listener, then every connection that
	// no worker owns. The snapshot is taken under the registry lock.
	l.poller.reset()
	listenSlot := -1
	if l.acceptAllowed() {
		listenSlot = l.poller.add(a.listenFD)
	}

	l.watched = a.registry.appendIdle(l.watched[:0])
	for _, c := range l.watched {
		l.poller.add(c.fd)
	}

	// 2. Bounded wait.
	ready, err := l.poller.wait(a.config.PollTimeout)
	if err != nil {
		logger.Warn("REST readiness wait failed: %v", err)
		return
	}
	if ready == 0 {
		return
	}

	// 3. New connections.
	if listenSlot >= 0 && l.poller.readable(listenSlot) {
		l.acceptPending()
	}

	// 4 and 5. Exceptional connections are scheduled for removal; readable
	// ones go to the workers.
	l.doomed = l.doomed[:0]
	base := 0
	if listenSlot >= 0 {
		base = 1
	}
	for i, c := range l.watched {
		slot := base + i
		switch {
		case l.poller.exceptional(slot):
			l.doomed = append(l.doomed, c)
		case l.poller.readable(slot):
			if !c.claim() {
				continue
			}
			if !a.queue.enqueue(c) {
				// Queue closed underneath us: shutdown is in progress.
				c.release()
				continue
			}
			a.metrics.SetQueueDepth(a.queue.len())
		}
	}

	// 6. Deregister what was marked during this iteration.
	for _, c := range l.doomed {
		if !c.claim() {
			continue
		}
		logger.Debug("REST connection %s from %s reported an exceptional condition", c.id, c.peer)
		a.closeConnection(c, closeExceptional)
	}

	clear(l.watched)
	clear(l.doomed)
}

// acceptAllowed reports whether the listener should be watched in this
// iteration.
func (l *eventLoop) acceptAllowed() bool {
	a := l.adapter
	if a.config.MaxConnections > 0 && a.registry.len() >= a.config.MaxConnections {
		return false
	}
	return !time.Now().Before(l.acceptPausedUntil)
}

// acceptPending accepts until the backlog is empty, the connection cap is
// reached or the rate limiter runs dry.
func (l *eventLoop) acceptPending() {
	a := l.adapter

	for {
		if a.config.MaxConnections > 0 && a.registry.len() >= a.config.MaxConnections {
			a.metrics.RecordAcceptThrottled()
			logger.Debug("REST connection limit reached (%d), deferring accept", a.config.MaxConnections)
			return
		}
		if a.acceptLimiter != nil && !a.acceptLimiter.Allow() {
			l.acceptPausedUntil = time.Now().Add(a.acceptLimiter.RetryAfter())
			a.metrics.RecordAcceptThrottled()
			return
		}

		fd, peer, err := acceptConn(a.listenFD)
		if err != nil {
			if !isWouldBlock(err) {
				logger.Warn("REST accept failed: %v", &TransportError{Op: "accept", FD: a.listenFD, Err: err})
			}
			return
		}

		c := newConnection(fd, peer, a.framerLimits)
		a.registry.add(c)

		count := a.connCount.Add(1)
		a.metrics.RecordConnectionAccepted()
		a.metrics.SetActiveConnections(count)
		logger.Debug("REST connection %s accepted from %s fd=%d (active: %d)", c.id, peer, fd, count)
	}
}
