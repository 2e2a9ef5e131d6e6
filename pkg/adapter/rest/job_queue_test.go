package rest

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConn(fd int) *Connection {
	return &Connection{fd: fd}
}

func TestJobQueueFIFO(t *testing.T) {
	q := newJobQueue()
	for fd := 1; fd <= 5; fd++ {
		require.True(t, q.enqueue(testConn(fd)))
	}
	assert.Equal(t, 5, q.len())

	for want := 1; want <= 5; want++ {
		c, ok := q.dequeue()
		require.True(t, ok)
		assert.Equal(t, want, c.fd)
	}
	assert.Zero(t, q.len())
}

func TestJobQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := newJobQueue()
	got := make(chan *Connection, 1)

	go func() {
		c, ok := q.dequeue()
		if ok {
			got <- c
		}
	}()

	select {
	case <-got:
		t.Fatal("dequeue returned on an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	q.enqueue(testConn(7))

	select {
	case c := <-got:
		assert.Equal(t, 7, c.fd)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not wake up after enqueue")
	}
}

func TestJobQueueCloseWakesWaiters(t *testing.T) {
	q := newJobQueue()

	var wg sync.WaitGroup
	results := make(chan bool, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.dequeue()
			results <- ok
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.close()
	wg.Wait()
	close(results)

	for ok := range results {
		assert.False(t, ok)
	}
}

func TestJobQueueDrainsAfterClose(t *testing.T) {
	q := newJobQueue()
	q.enqueue(testConn(1))
	q.enqueue(testConn(2))
	q.close()

	assert.False(t, q.enqueue(testConn(3)), "enqueue after close must be refused")

	c, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, 1, c.fd)
	c, ok = q.dequeue()
	require.True(t, ok)
	assert.Equal(t, 2, c.fd)

	_, ok = q.dequeue()
	assert.False(t, ok)
}

// Every enqueued connection is handed to exactly one consumer, even when
// producers only signal on the empty to non-empty transition.
func TestJobQueueEachItemDeliveredOnce(t *testing.T) {
	q := newJobQueue()

	const consumers = 4
	const items = 2000

	var mu sync.Mutex
	seen := make(map[int]int)

	var wg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				c, ok := q.dequeue()
				if !ok {
					return
				}
				mu.Lock()
				seen[c.fd]++
				mu.Unlock()
			}
		}()
	}

	for fd := 0; fd < items; fd++ {
		q.enqueue(testConn(fd))
		if fd%100 == 0 {
			time.Sleep(time.Millisecond)
		}
	}

	require.Eventually(t, func() bool { return q.len() == 0 }, 5*time.Second, 5*time.Millisecond)
	q.close()
	wg.Wait()

	assert.Len(t, seen, items)
	for fd, n := range seen {
		assert.Equal(t, 1, n, "fd %d delivered %d times", fd, n)
	}
}

func TestJobQueueCompacts(t *testing.T) {
	q := newJobQueue()
	for fd := 0; fd < 200; fd++ {
		q.enqueue(testConn(fd))
	}
	for i := 0; i < 150; i++ {
		_, ok := q.dequeue()
		require.True(t, ok)
	}
	assert.Equal(t, 50, q.len())
	assert.Less(t, q.head, 150, "head should have been reset by compaction")

	c, ok := q.dequeue()
	require.True(t, ok)
	assert.Equal(t, 150, c.fd)
}

func TestRegistry(t *testing.T) {
	r := newRegistry()
	a, b := testConn(3), testConn(4)
	r.add(a)
	r.add(b)
	assert.Equal(t, 2, r.len())

	b.owned.Store(true)
	idle := r.appendIdle(nil)
	require.Len(t, idle, 1)
	assert.Same(t, a, idle[0])

	// A stale connection sharing a reused descriptor does not evict the
	// live entry.
	stale := testConn(3)
	assert.False(t, r.remove(stale))
	got, ok := r.get(3)
	require.True(t, ok)
	assert.Same(t, a, got)

	assert.True(t, r.remove(a))
	assert.False(t, r.remove(a))

	drained := r.drain()
	require.Len(t, drained, 1)
	assert.Same(t, b, drained[0])
	assert.Zero(t, r.len())
}

func TestConnectionClaimRelease(t *testing.T) {
	c := testConn(9)
	require.True(t, c.claim())
	assert.False(t, c.claim(), "second claim must fail while owned")
	assert.True(t, c.Owned())

	c.release()
	assert.False(t, c.Owned())
	assert.True(t, c.claim())
}

func TestBufferPool(t *testing.T) {
	buf := responseBuffers.get(10)
	assert.Zero(t, len(buf))
	assert.Equal(t, smallBufferSize, cap(buf))
	responseBuffers.put(buf)

	buf = responseBuffers.get(mediumBufferSize)
	assert.Equal(t, mediumBufferSize, cap(buf))
	responseBuffers.put(buf)

	buf = responseBuffers.get(largeBufferSize + 1)
	assert.GreaterOrEqual(t, cap(buf), largeBufferSize+1)
	responseBuffers.put(buf)
}
