package rest

import (
	"errors"
	"fmt"
)

var (
	// ErrWriteTimeout is returned when a response cannot be flushed within
	// the configured write timeout.
	ErrWriteTimeout = errors.New("write timeout")

	// ErrUnsupportedPlatform is returned by the raw socket transport on
	// platforms other than Linux.
	ErrUnsupportedPlatform = errors.New("raw socket transport requires linux")
)

// TransportError is a socket-level failure (accept, recv, send, poll).
//
// On a connection it is fatal: the connection is closed and deregistered.
// At the listener or poll level it is only logged.
type TransportError struct {
	Op  string
	FD  int
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s fd=%d: %v", e.Op, e.FD, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err (or anything it wraps) is a
// TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
