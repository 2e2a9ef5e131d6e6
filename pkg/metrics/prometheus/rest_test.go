package prometheus

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns every sample of the registry as "name" -> summed value.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[mf.GetName()] += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[mf.GetName()] += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestRESTMetricsRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newRESTMetrics(reg)

	m.RecordRequest(http.MethodGet, http.StatusOK, 2*time.Millisecond)
	m.RecordRequest(http.MethodPost, http.StatusBadRequest, time.Millisecond)
	m.RecordProtocolError("malformed request line")
	m.RecordBytesTransferred("read", 100)
	m.RecordBytesTransferred("write", 37)
	m.SetActiveConnections(4)
	m.SetQueueDepth(2)
	m.RecordConnectionAccepted()
	m.RecordConnectionClosed("peer")
	m.RecordConnectionClosed("protocol")
	m.RecordAcceptThrottled()
	m.RecordWriteStall()
	m.RecordWriteStall()

	got := gathered(t, reg)
	assert.Equal(t, 2.0, got["restd_requests_total"])
	assert.Equal(t, 2.0, got["restd_request_duration_milliseconds"])
	assert.Equal(t, 1.0, got["restd_protocol_errors_total"])
	assert.Equal(t, 137.0, got["restd_bytes_transferred_total"])
	assert.Equal(t, 4.0, got["restd_active_connections"])
	assert.Equal(t, 2.0, got["restd_job_queue_depth"])
	assert.Equal(t, 1.0, got["restd_connections_accepted_total"])
	assert.Equal(t, 2.0, got["restd_connections_closed_total"])
	assert.Equal(t, 1.0, got["restd_accept_throttled_total"])
	assert.Equal(t, 2.0, got["restd_write_stalls_total"])
}

func TestNewRESTMetricsDisabled(t *testing.T) {
	// The global registry is never initialized in this package's tests.
	m := NewRESTMetrics()
	require.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.RecordRequest(http.MethodGet, http.StatusOK, time.Millisecond)
		m.RecordConnectionClosed("peer")
	})
}
