package command

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is an application-level failure. The request was framed correctly,
// so the server answers with Status and keeps the connection open.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s: %v", e.Status, http.StatusText(e.Status), e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Body renders the error payload sent to the client.
func (e *Error) Body() []byte {
	msg, err := json.Marshal(e.Message)
	if err != nil {
		msg = []byte(`""`)
	}
	return fmt.Appendf(nil, `{"tag": "error", "status": %d, "message": %s}`, e.Status, msg)
}

func newError(status int, err error, format string, args ...any) *Error {
	return &Error{
		Status:  status,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func badRequest(err error, format string, args ...any) *Error {
	return newError(http.StatusBadRequest, err, format, args...)
}
