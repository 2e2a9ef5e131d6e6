package metrics

import "time"

// RESTMetrics provides observability for the REST adapter.
//
// This interface is optional: when the adapter gets nil it falls back to
// NewNoopRESTMetrics, which costs nothing.
//
// Example usage:
//
//	metrics.InitRegistry()
//	adapter := rest.New(config, dispatcher, prometheus.NewRESTMetrics())
type RESTMetrics interface {
	// RecordRequest records one answered request.
	//
	// Parameters:
	//   - method: request method (e.g., "GET", "POST")
	//   - status: HTTP status code of the response
	//   - duration: time from framing completion to response flushed
	RecordRequest(method string, status int, duration time.Duration)

	// RecordProtocolError counts a connection dropped for a framing failure.
	//
	// Parameters:
	//   - reason: the framing sentinel (e.g., "malformed request line")
	RecordProtocolError(reason string)

	// RecordBytesTransferred records bytes received or sent.
	//
	// Parameters:
	//   - direction: "read" or "write"
	//   - bytes: number of bytes
	RecordBytesTransferred(direction string, bytes int64)

	// SetActiveConnections updates the number of registered connections.
	SetActiveConnections(count int32)

	// SetQueueDepth updates the number of connections waiting for a worker.
	SetQueueDepth(depth int)

	// RecordConnectionAccepted increments the accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the closed connections counter.
	//
	// Parameters:
	//   - reason: "peer", "protocol", "transport", "exceptional" or "shutdown"
	RecordConnectionClosed(reason string)

	// RecordAcceptThrottled counts event loop passes where accepting was
	// deferred by the rate limiter or the connection cap.
	RecordAcceptThrottled()

	// RecordWriteStall counts sends that found the socket buffer full and
	// had to wait for write readiness.
	RecordWriteStall()
}

// NewNoopRESTMetrics returns a RESTMetrics that discards everything.
func NewNoopRESTMetrics() RESTMetrics {
	return noopRESTMetrics{}
}

type noopRESTMetrics struct{}

func (noopRESTMetrics) RecordRequest(string, int, time.Duration) {}
func (noopRESTMetrics) RecordProtocolError(string)               {}
func (noopRESTMetrics) RecordBytesTransferred(string, int64)     {}
func (noopRESTMetrics) SetActiveConnections(int32)               {}
func (noopRESTMetrics) SetQueueDepth(int)                        {}
func (noopRESTMetrics) RecordConnectionAccepted()                {}
func (noopRESTMetrics) RecordConnectionClosed(string)            {}
func (noopRESTMetrics) RecordAcceptThrottled()                   {}
func (noopRESTMetrics) RecordWriteStall()                        {}
