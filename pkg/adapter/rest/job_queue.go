package rest

import "sync"

// jobQueue is the FIFO hand-off between the event loop and the workers.
//
// A connection is enqueued only after its ownership flag was claimed, so it
// appears in the queue at most once.
type jobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*Connection
	head   int
	closed bool
}

func newJobQueue() *jobQueue {
	q := &jobQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// enqueue appends c. One waiter is woken when the queue goes from empty to
// non-empty; a worker that finds more work keeps draining without a signal.
// Enqueueing on a closed queue returns false and drops c.
func (q *jobQueue) enqueue(c *Connection) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	wasEmpty := q.lenLocked() == 0
	q.items = append(q.items, c)
	if wasEmpty {
		q.cond.Signal()
	}
	return true
}

// dequeue blocks until a connection is available or the queue is closed
// and drained, in which case it returns false.
func (q *jobQueue) dequeue() (*Connection, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.lenLocked() == 0 {
		return nil, false
	}

	c := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// More work left: make sure another idle worker picks it up too.
	if q.lenLocked() > 0 {
		q.cond.Signal()
	}

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return c, true
}

// close wakes every waiter. Remaining entries are still handed out.
func (q *jobQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *jobQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *jobQueue) lenLocked() int {
	return len(q.items) - q.head
}
