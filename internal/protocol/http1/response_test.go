package http1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatResponse(t *testing.T) {
	body := []byte(`{"tag": "position", "x": 10, "y": 10}`)

	got := FormatResponse(http.StatusOK, body)

	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Length: 37\r\n" +
		"Content-Type: application/json\r\n" +
		"\r\n" +
		`{"tag": "position", "x": 10, "y": 10}`
	assert.Equal(t, want, string(got))
}

func TestFormatResponseErrorStatus(t *testing.T) {
	got := FormatResponse(http.StatusUnsupportedMediaType, []byte(`{}`))
	assert.Equal(t, "HTTP/1.1 415 Unsupported Media Type\r\nContent-Length: 2\r\nContent-Type: application/json\r\n\r\n{}", string(got))
}

func TestFormatResponseUnknownStatus(t *testing.T) {
	got := FormatResponse(599, nil)
	assert.Contains(t, string(got), "HTTP/1.1 599 Status 599\r\n")
	assert.Contains(t, string(got), "Content-Length: 0\r\n")
}
