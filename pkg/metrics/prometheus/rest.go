package prometheus

import (
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/restd/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// restMetrics is the Prometheus implementation of metrics.RESTMetrics.
type restMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	protocolErrors      *prometheus.CounterVec
	bytesTransferred    *prometheus.CounterVec
	activeConnections   prometheus.Gauge
	queueDepth          prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   *prometheus.CounterVec
	acceptThrottled     prometheus.Counter
	writeStalls         prometheus.Counter
}

var (
	restOnce     sync.Once
	restInstance *restMetrics
)

// NewRESTMetrics returns the Prometheus-backed RESTMetrics. The collectors
// are registered once; later calls share them.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewRESTMetrics() metrics.RESTMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopRESTMetrics()
	}

	restOnce.Do(func() {
		restInstance = newRESTMetrics(metrics.GetRegistry())
	})
	return restInstance
}

func newRESTMetrics(reg prometheus.Registerer) *restMetrics {
	return &restMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "restd_requests_total",
				Help: "Total number of answered requests by method and status code",
			},
			[]string{"method", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "restd_request_duration_milliseconds",
				Help: "Time from a request being framed to its response being flushed",
				Buckets: []float64{
					0.1,  // 100µs
					0.5,  // 500µs
					1,    // 1ms
					5,    // 5ms
					25,   // 25ms
					100,  // 100ms
					1000, // 1s
				},
			},
			[]string{"method"},
		),
		protocolErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "restd_protocol_errors_total",
				Help: "Connections dropped because the request could not be framed",
			},
			[]string{"reason"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "restd_bytes_transferred_total",
				Help: "Total bytes received and sent on client connections",
			},
			[]string{"direction"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "restd_active_connections",
				Help: "Current number of registered client connections",
			},
		),
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "restd_job_queue_depth",
				Help: "Connections waiting for a worker",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "restd_connections_accepted_total",
				Help: "Total number of client connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "restd_connections_closed_total",
				Help: "Total number of client connections closed by reason",
			},
			[]string{"reason"},
		),
		acceptThrottled: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "restd_accept_throttled_total",
				Help: "Accept passes deferred by the connection cap or the accept rate limit",
			},
		),
		writeStalls: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "restd_write_stalls_total",
				Help: "Response writes that waited for a full socket buffer to drain",
			},
		),
	}
}

func (m *restMetrics) RecordRequest(method string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(float64(duration) / float64(time.Millisecond))
}

func (m *restMetrics) RecordProtocolError(reason string) {
	m.protocolErrors.WithLabelValues(reason).Inc()
}

func (m *restMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *restMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *restMetrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *restMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *restMetrics) RecordConnectionClosed(reason string) {
	m.connectionsClosed.WithLabelValues(reason).Inc()
}

func (m *restMetrics) RecordAcceptThrottled() {
	m.acceptThrottled.Inc()
}

func (m *restMetrics) RecordWriteStall() {
	m.writeStalls.Inc()
}
