// Package http1 implements incremental framing of HTTP/1.x requests.
//
// A Framer consumes whatever bytes a socket read produced, however small or
// large, and advances through request line, header lines and body until one
// request is complete. Chunk boundaries never influence the parsed result:
// feeding a message one byte at a time, in arbitrary slices, or whole yields
// the same Request.
//
// Wire format:
//
//	METHOD SP TARGET SP VERSION CRLF
//	KEY: VALUE CRLF          (zero or more)
//	CRLF
//	<Content-Length bytes of body>
//
// Chunked transfer-encoding is not supported.
package http1

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
)

// State is the position of a Framer in the request grammar.
type State uint8

const (
	StateRequestLine State = iota
	StateHeaderLine
	StateBody
	StateComplete
	StateMalformed
)

func (s State) String() string {
	switch s {
	case StateRequestLine:
		return "request-line"
	case StateHeaderLine:
		return "header-line"
	case StateBody:
		return "body"
	case StateComplete:
		return "complete"
	case StateMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

const (
	// DefaultMaxHeaderLineSize bounds one request or header line, CRLF included.
	DefaultMaxHeaderLineSize = 8 << 10

	// DefaultMaxHeaderBytes bounds the whole header section: request line,
	// header lines and the blank line that ends them.
	DefaultMaxHeaderBytes = 64 << 10

	// DefaultMaxBodySize bounds the declared Content-Length.
	DefaultMaxBodySize = 1 << 20
)

// Limits bounds the per-connection buffers. Zero fields take the defaults.
type Limits struct {
	// MaxHeaderLineSize bounds one request or header line, CRLF included.
	MaxHeaderLineSize int

	// MaxHeaderBytes bounds every byte read before the body, so a peer
	// cannot hold a worker by streaming header lines forever.
	MaxHeaderBytes int

	// MaxBodySize bounds the declared Content-Length.
	MaxBodySize int
}

func (l *Limits) applyDefaults() {
	if l.MaxHeaderLineSize <= 0 {
		l.MaxHeaderLineSize = DefaultMaxHeaderLineSize
	}
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if l.MaxHeaderLineSize > l.MaxHeaderBytes {
		l.MaxHeaderLineSize = l.MaxHeaderBytes
	}
	if l.MaxBodySize <= 0 {
		l.MaxBodySize = DefaultMaxBodySize
	}
}

// Framer holds the parse state of one connection.
//
// It is not safe for concurrent use; the ownership flag of the connection
// guarantees a single goroutine drives it at a time.
type Framer struct {
	limits Limits

	state State
	err   error

	// line accumulates the current request or header line including its CRLF.
	line []byte

	// headerBytes counts every completed line of the header section,
	// leading empty lines included.
	headerBytes int

	// body accumulates body bytes until len(body) == declaredBodyLength.
	body []byte

	headersDone        bool
	declaredBodyLength int
	sawContentLength   bool

	req Request
}

// NewFramer returns a Framer waiting for a request line.
func NewFramer(limits Limits) *Framer {
	limits.applyDefaults()
	f := &Framer{limits: limits}
	f.Reset()
	return f
}

// Reset discards all parse state so the next request on the connection can
// be framed. Buffers are kept for reuse.
func (f *Framer) Reset() {
	f.state = StateRequestLine
	f.err = nil
	f.line = f.line[:0]
	f.body = f.body[:0]
	f.headerBytes = 0
	f.headersDone = false
	f.declaredBodyLength = 0
	f.sawContentLength = false
	f.req = Request{Header: make(http.Header)}
}

// State returns the current state.
func (f *Framer) State() State {
	return f.state
}

// Err returns the framing failure after the Framer entered StateMalformed.
func (f *Framer) Err() error {
	return f.err
}

// HeadersDone reports whether the blank line ending the header section has
// been consumed.
func (f *Framer) HeadersDone() bool {
	return f.headersDone
}

// DeclaredBodyLength returns the Content-Length of the request in progress.
func (f *Framer) DeclaredBodyLength() int {
	return f.declaredBodyLength
}

// ParseOffset returns the number of bytes buffered for the current line or
// body segment.
func (f *Framer) ParseOffset() int {
	if f.state == StateBody || f.state == StateComplete {
		return len(f.body)
	}
	return len(f.line)
}

// InProgress reports whether part of a request has been consumed. A peer
// close while InProgress is a protocol violation; otherwise it is an orderly
// close.
func (f *Framer) InProgress() bool {
	switch f.state {
	case StateHeaderLine, StateBody:
		return true
	case StateRequestLine:
		return len(f.line) > 0
	default:
		return false
	}
}

// Complete reports whether a full request is available through Request.
func (f *Framer) Complete() bool {
	return f.state == StateComplete
}

// Request returns the framed request. Only meaningful once Complete.
func (f *Framer) Request() *Request {
	return &f.req
}

// Remaining returns how many more bytes the current segment can take before
// it either completes or hits a limit. It is used to size socket reads.
func (f *Framer) Remaining() int {
	switch f.state {
	case StateBody:
		return f.declaredBodyLength - len(f.body)
	case StateRequestLine, StateHeaderLine:
		return min(f.limits.MaxHeaderLineSize, f.limits.MaxHeaderBytes-f.headerBytes) - len(f.line)
	default:
		return 0
	}
}

// Feed advances the state machine with chunk and returns how many bytes were
// consumed. Once a request completes, Feed stops; the unconsumed tail belongs
// to the next request and must be fed again after Reset.
//
// A returned error is always a *ProtocolError and leaves the Framer in
// StateMalformed.
func (f *Framer) Feed(chunk []byte) (int, error) {
	if f.state == StateMalformed {
		return 0, f.err
	}

	n := 0
	for n < len(chunk) && f.state != StateComplete {
		switch f.state {
		case StateRequestLine, StateHeaderLine:
			i := bytes.IndexByte(chunk[n:], '\n')
			if i < 0 {
				f.line = append(f.line, chunk[n:]...)
				n = len(chunk)
				if err := f.checkHeaderSize(); err != nil {
					return n, f.fail(err)
				}
				return n, nil
			}

			f.line = append(f.line, chunk[n:n+i+1]...)
			n += i + 1
			if err := f.checkHeaderSize(); err != nil {
				return n, f.fail(err)
			}

			// Lines end on CRLF only. A bare LF would otherwise end up
			// inside a token.
			if len(f.line) < 2 || f.line[len(f.line)-2] != '\r' {
				if f.state == StateRequestLine {
					return n, f.fail(ErrMalformedRequestLine)
				}
				return n, f.fail(ErrMalformedHeader)
			}
			f.headerBytes += len(f.line)
			if err := f.completeLine(f.line[:len(f.line)-2]); err != nil {
				return n, f.fail(err)
			}
			f.line = f.line[:0]

		case StateBody:
			take := f.declaredBodyLength - len(f.body)
			if avail := len(chunk) - n; take > avail {
				take = avail
			}
			f.body = append(f.body, chunk[n:n+take]...)
			n += take
			if len(f.body) == f.declaredBodyLength {
				f.complete()
			}
		}
	}

	return n, nil
}

// Close tells the Framer the peer closed the stream. It returns
// ErrUnexpectedEOF (as a *ProtocolError) if a request was in progress.
func (f *Framer) Close() error {
	if f.state == StateMalformed {
		return f.err
	}
	if f.InProgress() {
		return f.fail(ErrUnexpectedEOF)
	}
	return nil
}

// checkHeaderSize enforces both header limits on the line being buffered.
func (f *Framer) checkHeaderSize() error {
	if len(f.line) > f.limits.MaxHeaderLineSize {
		return ErrLineTooLong
	}
	if f.headerBytes+len(f.line) > f.limits.MaxHeaderBytes {
		return ErrHeadersTooLarge
	}
	return nil
}

func (f *Framer) completeLine(content []byte) error {
	if f.state == StateRequestLine {
		// Empty lines ahead of a request line are skipped (RFC 9112 2.2).
		if len(content) == 0 {
			return nil
		}
		return f.parseRequestLine(content)
	}

	if len(content) == 0 {
		f.headersDone = true
		if f.declaredBodyLength == 0 {
			f.complete()
		} else {
			f.state = StateBody
		}
		return nil
	}

	return f.parseHeaderLine(content)
}

func (f *Framer) parseRequestLine(content []byte) error {
	parts := strings.Split(string(content), " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return ErrMalformedRequestLine
	}

	f.req.Method = parts[0]
	f.req.Target = parts[1]
	f.req.Version = parts[2]
	f.state = StateHeaderLine
	return nil
}

func (f *Framer) parseHeaderLine(content []byte) error {
	colon := bytes.IndexByte(content, ':')
	if colon <= 0 {
		return ErrMalformedHeader
	}

	key := strings.TrimSpace(string(content[:colon]))
	value := strings.TrimSpace(string(content[colon+1:]))
	if key == "" || strings.ContainsAny(key, " \t") {
		return ErrMalformedHeader
	}

	switch {
	case strings.EqualFold(key, "Content-Length"):
		length, err := strconv.Atoi(value)
		if err != nil || length < 0 {
			return ErrInvalidContentLength
		}
		if f.sawContentLength && length != f.declaredBodyLength {
			return ErrInvalidContentLength
		}
		if length > f.limits.MaxBodySize {
			return ErrBodyTooLarge
		}
		f.sawContentLength = true
		f.declaredBodyLength = length

	case strings.EqualFold(key, "Transfer-Encoding"):
		if !strings.EqualFold(value, "identity") {
			return ErrUnsupportedTransferEncoding
		}
	}

	f.req.Header.Add(key, value)
	return nil
}

func (f *Framer) complete() {
	f.state = StateComplete
	f.req.Body = f.body
}

func (f *Framer) fail(err error) error {
	failedIn := f.state
	f.state = StateMalformed
	f.err = &ProtocolError{State: failedIn, Err: err}
	return f.err
}
