package rest

import "sync"

// Response buffers are pooled by size class. Most responses are a status
// line, two headers and a short JSON document; error payloads that echo
// validation messages can reach a few KB.
const (
	smallBufferSize  = 512
	mediumBufferSize = 4 << 10
	largeBufferSize  = 64 << 10
)

type bufferPool struct {
	small  sync.Pool
	medium sync.Pool
	large  sync.Pool
}

func newSizedPool(size int) sync.Pool {
	return sync.Pool{
		New: func() any {
			buf := make([]byte, 0, size)
			return &buf
		},
	}
}

var responseBuffers = &bufferPool{
	small:  newSizedPool(smallBufferSize),
	medium: newSizedPool(mediumBufferSize),
	large:  newSizedPool(largeBufferSize),
}

// get returns an empty slice with capacity for at least size bytes.
// Requests above largeBufferSize are allocated and never pooled.
func (p *bufferPool) get(size int) []byte {
	var bufPtr *[]byte
	switch {
	case size <= smallBufferSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= mediumBufferSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= largeBufferSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, 0, size)
	}
	return (*bufPtr)[:0]
}

// put returns buf to the pool matching its capacity. Buffers that grew
// past their class, or were never pooled, are left to the GC.
func (p *bufferPool) put(buf []byte) {
	if buf == nil {
		return
	}

	buf = buf[:0]
	switch cap(buf) {
	case smallBufferSize:
		p.small.Put(&buf)
	case mediumBufferSize:
		p.medium.Put(&buf)
	case largeBufferSize:
		p.large.Put(&buf)
	}
}
