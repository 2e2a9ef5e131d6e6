package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/marmos91/restd/internal/logger"
	"github.com/marmos91/restd/internal/protocol/command"
	"github.com/marmos91/restd/internal/protocol/http1"
)

// Reasons reported to metrics when a connection is closed.
const (
	closePeer        = "peer"
	closeProtocol    = "protocol"
	closeTransport   = "transport"
	closeExceptional = "exceptional"
	closeShutdown    = "shutdown"
)

// worker drains readable connections handed over by the event loop.
//
// Each worker owns one receive buffer; bytes that outlive a pass are copied
// into the connection's pending slice.
type worker struct {
	id      int
	adapter *RESTAdapter
	buf     []byte
}

func newWorker(id int, a *RESTAdapter) *worker {
	return &worker{
		id:      id,
		adapter: a,
		buf:     make([]byte, a.config.BufferSize),
	}
}

// run processes jobs until the queue is closed and drained.
func (w *worker) run(ctx context.Context) {
	logger.Debug("REST worker %d started", w.id)
	defer logger.Debug("REST worker %d stopped", w.id)

	for {
		c, ok := w.adapter.queue.dequeue()
		if !ok {
			return
		}
		w.adapter.metrics.SetQueueDepth(w.adapter.queue.len())
		w.serve(ctx, c)
	}
}

// serve reads and answers requests on c until the socket would block, the
// pass budget is spent, or the connection dies.
//
// On return the connection has been handed back (ownership cleared),
// re-queued, or closed and deregistered.
func (w *worker) serve(ctx context.Context, c *Connection) {
	defer func() {
		// A handler panic must not take the worker down with it.
		if r := recover(); r != nil {
			logger.Error("Panic serving REST connection %s from %s: %v", c.id, c.peer, r)
			w.adapter.closeConnection(c, closeTransport)
		}
	}()

	served := 0
	for {
		var data []byte
		fromPending := len(c.pending) > 0

		if fromPending {
			data = c.pending
		} else {
			n, err := recvConn(c.fd, w.buf)
			if err != nil {
				if isWouldBlock(err) {
					c.release()
					return
				}
				logger.Debug("REST connection %s from %s: %v", c.id, c.peer, &TransportError{Op: "recv", FD: c.fd, Err: err})
				w.adapter.closeConnection(c, closeTransport)
				return
			}
			if n == 0 {
				if err := c.framer.Close(); err != nil {
					logger.Debug("REST connection %s from %s closed mid-request: %v", c.id, c.peer, err)
					w.adapter.metrics.RecordProtocolError(reasonOf(err))
					w.adapter.closeConnection(c, closeProtocol)
					return
				}
				logger.Debug("REST connection %s from %s closed by peer", c.id, c.peer)
				w.adapter.closeConnection(c, closePeer)
				return
			}
			data = w.buf[:n]
			w.adapter.metrics.RecordBytesTransferred("read", int64(n))
		}

		consumed, err := c.framer.Feed(data)
		if err != nil {
			logger.Debug("REST connection %s from %s: %v", c.id, c.peer, err)
			w.adapter.metrics.RecordProtocolError(reasonOf(err))
			w.adapter.closeConnection(c, closeProtocol)
			return
		}

		rest := data[consumed:]
		if fromPending {
			c.pending = c.pending[:copy(c.pending, rest)]
		} else if len(rest) > 0 {
			c.pending = append(c.pending[:0], rest...)
		}

		if !c.framer.Complete() {
			continue
		}

		if err := w.respond(ctx, c); err != nil {
			logger.Debug("REST connection %s from %s: %v", c.id, c.peer, err)
			w.adapter.closeConnection(c, closeTransport)
			return
		}
		c.framer.Reset()
		served++

		if w.adapter.isShuttingDown() {
			c.release()
			return
		}

		if served >= w.adapter.config.MaxRequestsPerPass {
			w.yield(c)
			return
		}
	}
}

// yield gives other connections a turn. Buffered pipelined bytes are
// invisible to poll, so a connection holding some goes straight back into
// the queue (still owned); otherwise it returns to the event loop.
func (w *worker) yield(c *Connection) {
	if len(c.pending) > 0 {
		if w.adapter.queue.enqueue(c) {
			w.adapter.metrics.SetQueueDepth(w.adapter.queue.len())
			return
		}
	}
	c.release()
}

// respond dispatches the framed request and writes the response.
//
// Application errors become error responses; they never close the
// connection. Only a failed write does.
func (w *worker) respond(ctx context.Context, c *Connection) error {
	req := c.framer.Request()
	start := time.Now()

	status, body := w.dispatch(ctx, c, req)

	out := responseBuffers.get(len(body) + 128)
	out = http1.AppendResponse(out, status, body)
	err := w.sendAll(c, out)
	responseBuffers.put(out)

	c.requests.Add(1)
	w.adapter.requests.Add(1)
	w.adapter.metrics.RecordRequest(req.Method, status, time.Since(start))
	logger.Debug("REST %s %s -> %d (conn=%s bytes=%d)", req.Method, req.Target, status, c.id, len(body))
	return err
}

func (w *worker) dispatch(ctx context.Context, c *Connection, req *http1.Request) (int, []byte) {
	res, err := w.adapter.dispatcher.Dispatch(ctx, req)
	if err == nil {
		return res.Status, res.Body
	}

	var cmdErr *command.Error
	if errors.As(err, &cmdErr) {
		return cmdErr.Status, cmdErr.Body()
	}

	logger.Error("REST request %q on connection %s failed: %v", req.RequestLine(), c.id, err)
	internal := &command.Error{Status: http.StatusInternalServerError, Message: "internal error"}
	return internal.Status, internal.Body()
}

// sendAll writes buf completely, waiting for write readiness when the
// socket buffer is full.
func (w *worker) sendAll(c *Connection, buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := sendConn(c.fd, buf[written:])
		if err != nil {
			if !isWouldBlock(err) {
				return &TransportError{Op: "send", FD: c.fd, Err: err}
			}
			w.adapter.metrics.RecordWriteStall()
			if err := waitWritable(c.fd, w.adapter.config.WriteTimeout); err != nil {
				return &TransportError{Op: "send", FD: c.fd, Err: err}
			}
			continue
		}
		written += n
	}
	w.adapter.metrics.RecordBytesTransferred("write", int64(written))
	return nil
}

func reasonOf(err error) string {
	var pe *http1.ProtocolError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return fmt.Sprintf("%T", err)
}
