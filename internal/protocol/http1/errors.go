package http1

import (
	"errors"
	"fmt"
)

// Framing failures. Every one of them is fatal to the connection: the peer
// broke the wire contract, so no response is written.
var (
	ErrMalformedRequestLine        = errors.New("malformed request line")
	ErrMalformedHeader             = errors.New("malformed header line")
	ErrInvalidContentLength        = errors.New("invalid Content-Length")
	ErrUnsupportedTransferEncoding = errors.New("unsupported Transfer-Encoding")
	ErrLineTooLong                 = errors.New("header line too long")
	ErrHeadersTooLarge             = errors.New("header section too large")
	ErrBodyTooLarge                = errors.New("body exceeds buffer limit")
	ErrUnexpectedEOF               = errors.New("peer closed mid-message")
)

// ProtocolError records the framer state in which a framing failure happened.
type ProtocolError struct {
	State State
	Err   error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s: %v", e.State, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err (or anything it wraps) is a framing
// failure.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
