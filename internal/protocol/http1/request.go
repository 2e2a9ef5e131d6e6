package http1

import (
	"mime"
	"net/http"
	"strings"
)

// Request is one fully framed HTTP request.
//
// Body aliases the framer's buffer. It stays valid until the owning Framer
// is Reset, so handlers must finish with it (or copy it) before the worker
// moves on to the next request on the same connection.
type Request struct {
	Method  string
	Target  string
	Version string
	Header  http.Header
	Body    []byte
}

// RequestLine renders the first line as it was received, without CRLF.
func (r *Request) RequestLine() string {
	return r.Method + " " + r.Target + " " + r.Version
}

// ContentLength returns the number of body bytes framed for this request.
func (r *Request) ContentLength() int {
	return len(r.Body)
}

// MediaType returns the lower-cased media type of the Content-Type header
// without parameters, or "" when the header is missing or unparsable.
func (r *Request) MediaType() string {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}
