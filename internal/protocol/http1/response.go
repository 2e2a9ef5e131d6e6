package http1

import (
	"net/http"
	"strconv"
)

// ContentTypeJSON is the only media type restd produces and accepts.
const ContentTypeJSON = "application/json"

// AppendResponse appends a complete response to dst and returns the extended
// slice:
//
//	HTTP/1.1 <status> <reason>\r\n
//	Content-Length: <len(body)>\r\n
//	Content-Type: application/json\r\n
//	\r\n
//	<body>
func AppendResponse(dst []byte, status int, body []byte) []byte {
	reason := http.StatusText(status)
	if reason == "" {
		reason = "Status " + strconv.Itoa(status)
	}

	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(status), 10)
	dst = append(dst, ' ')
	dst = append(dst, reason...)
	dst = append(dst, "\r\nContent-Length: "...)
	dst = strconv.AppendInt(dst, int64(len(body)), 10)
	dst = append(dst, "\r\nContent-Type: "...)
	dst = append(dst, ContentTypeJSON...)
	dst = append(dst, "\r\n\r\n"...)
	dst = append(dst, body...)
	return dst
}

// FormatResponse is AppendResponse into a fresh buffer.
func FormatResponse(status int, body []byte) []byte {
	return AppendResponse(make([]byte, 0, 96+len(body)), status, body)
}
