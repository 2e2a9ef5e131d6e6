package rest

import (
	"fmt"
	"net/netip"
	"time"
)

// RESTConfig holds configuration parameters for the REST adapter.
//
// Default values (applied by New if zero):
//   - ListenAddress: 127.0.0.1
//   - ListenPort: 27016
//   - WorkerCount: 3
//   - PollTimeout: 100ms
//   - WriteTimeout: 5s
//   - MaxConnections: 0 (unlimited)
//   - BufferSize: 8KB
//   - MaxHeaderBytes: 64KB
//   - MaxBodySize: 1MB
//   - ShutdownTimeout: 30s
//   - MetricsLogInterval: 5m (0 disables)
type RESTConfig struct {
	// Enabled controls whether the REST adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// ListenAddress is the IPv4 or IPv6 address to bind. "localhost" is
	// accepted as 127.0.0.1.
	ListenAddress string `mapstructure:"listen_address"`

	// ListenPort is the TCP port to bind. 0 picks a free port; Port() then
	// reports the one chosen by the kernel.
	ListenPort int `mapstructure:"listen_port" validate:"min=0,max=65535"`

	// WorkerCount is the number of goroutines processing readable
	// connections.
	WorkerCount int `mapstructure:"worker_count" validate:"min=0,max=1024"`

	// PollTimeout bounds one readiness wait of the event loop, and so the
	// latency of noticing shutdown.
	PollTimeout time.Duration `mapstructure:"poll_timeout" validate:"min=0"`

	// WriteTimeout bounds the time spent waiting for a socket to become
	// writable while flushing one response.
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=0"`

	// MaxConnections caps registered connections. While at the cap the
	// listener is left out of the readiness set so pending clients wait in
	// the kernel backlog. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// Backlog is the listen(2) backlog.
	Backlog int `mapstructure:"backlog" validate:"min=0"`

	// BufferSize is the size of the per-worker receive buffer and bounds a
	// single header line.
	BufferSize int `mapstructure:"buffer_size" validate:"min=0"`

	// MaxHeaderBytes caps the request line and header lines of one request
	// taken together.
	MaxHeaderBytes int `mapstructure:"max_header_bytes" validate:"min=0"`

	// MaxBodySize caps the declared Content-Length of a request.
	MaxBodySize int `mapstructure:"max_body_size" validate:"min=0"`

	// MaxRequestsPerPass is how many pipelined requests a worker serves on
	// one connection before yielding it back to the queue.
	MaxRequestsPerPass int `mapstructure:"max_requests_per_pass" validate:"min=0"`

	// AcceptRate limits accepted connections per second. 0 means unlimited.
	AcceptRate uint `mapstructure:"accept_rate"`

	// AcceptBurst is the token bucket size for AcceptRate.
	AcceptBurst uint `mapstructure:"accept_burst"`

	// ShutdownTimeout bounds how long Stop waits for workers to finish.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// MetricsLogInterval is the period of the metrics log line. 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0"`
}

const (
	DefaultListenAddress      = "127.0.0.1"
	DefaultListenPort         = 27016
	DefaultWorkerCount        = 3
	DefaultPollTimeout        = 100 * time.Millisecond
	DefaultWriteTimeout       = 5 * time.Second
	DefaultBacklog            = 128
	DefaultBufferSize         = 8 << 10
	DefaultMaxHeaderBytes     = 64 << 10
	DefaultMaxBodySize        = 1 << 20
	DefaultMaxRequestsPerPass = 16
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultMetricsLogInterval = 5 * time.Minute
)

// applyDefaults fills in zero values with sensible defaults.
//
// ListenPort is left alone: 0 is meaningful (ephemeral port). Enabled is
// defaulted by pkg/config so an explicit false survives.
func (c *RESTConfig) applyDefaults() {
	if c.ListenAddress == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = DefaultWorkerCount
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.Backlog <= 0 {
		c.Backlog = DefaultBacklog
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	if c.MaxRequestsPerPass <= 0 {
		c.MaxRequestsPerPass = DefaultMaxRequestsPerPass
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.MetricsLogInterval < 0 {
		c.MetricsLogInterval = 0
	}
}

// validate checks the configuration after defaults were applied.
func (c *RESTConfig) validate() error {
	if _, err := resolveListenAddress(c.ListenAddress); err != nil {
		return err
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("invalid listen port %d: must be 0-65535", c.ListenPort)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("invalid worker count %d: must be > 0", c.WorkerCount)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.BufferSize < 256 {
		return fmt.Errorf("invalid BufferSize %d: must be >= 256", c.BufferSize)
	}
	if c.MaxHeaderBytes < c.BufferSize {
		return fmt.Errorf("invalid MaxHeaderBytes %d: must be >= BufferSize (%d)", c.MaxHeaderBytes, c.BufferSize)
	}
	if c.AcceptRate > 0 && c.AcceptBurst == 0 {
		return fmt.Errorf("accept burst must be > 0 when accept rate is %d", c.AcceptRate)
	}
	return nil
}

// resolveListenAddress parses the configured bind address.
func resolveListenAddress(addr string) (netip.Addr, error) {
	switch addr {
	case "localhost":
		return netip.AddrFrom4([4]byte{127, 0, 0, 1}), nil
	case "", "*":
		return netip.IPv4Unspecified(), nil
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return ip.Unmap(), nil
}
