package rest

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	var cfg RESTConfig
	cfg.applyDefaults()

	assert.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	assert.Zero(t, cfg.ListenPort, "port 0 is meaningful and must survive defaults")
	assert.Equal(t, DefaultWorkerCount, cfg.WorkerCount)
	assert.Equal(t, DefaultPollTimeout, cfg.PollTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
	assert.Equal(t, DefaultBacklog, cfg.Backlog)
	assert.Equal(t, DefaultBufferSize, cfg.BufferSize)
	assert.Equal(t, DefaultMaxHeaderBytes, cfg.MaxHeaderBytes)
	assert.Equal(t, DefaultMaxBodySize, cfg.MaxBodySize)
	assert.Equal(t, DefaultMaxRequestsPerPass, cfg.MaxRequestsPerPass)
	assert.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	assert.Zero(t, cfg.MaxConnections)

	require.NoError(t, cfg.validate())
}

func TestConfigKeepsExplicitValues(t *testing.T) {
	cfg := RESTConfig{
		ListenAddress: "::1",
		ListenPort:    9000,
		WorkerCount:   8,
		PollTimeout:   5 * time.Millisecond,
		BufferSize:    1024,
	}
	cfg.applyDefaults()

	assert.Equal(t, "::1", cfg.ListenAddress)
	assert.Equal(t, 9000, cfg.ListenPort)
	assert.Equal(t, 8, cfg.WorkerCount)
	assert.Equal(t, 5*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, 1024, cfg.BufferSize)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RESTConfig)
	}{
		{name: "bad address", mutate: func(c *RESTConfig) { c.ListenAddress = "not-an-ip" }},
		{name: "port too large", mutate: func(c *RESTConfig) { c.ListenPort = 70000 }},
		{name: "negative max connections", mutate: func(c *RESTConfig) { c.MaxConnections = -1 }},
		{name: "tiny buffer", mutate: func(c *RESTConfig) { c.BufferSize = 16 }},
		{name: "header budget below buffer", mutate: func(c *RESTConfig) { c.MaxHeaderBytes = c.BufferSize - 1 }},
		{name: "rate without burst", mutate: func(c *RESTConfig) { c.AcceptRate = 10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg RESTConfig
			cfg.applyDefaults()
			tt.mutate(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() {
		New(RESTConfig{ListenAddress: "bogus"}, nil, nil)
	})
	assert.Panics(t, func() {
		New(RESTConfig{}, nil, nil)
	}, "a nil dispatcher is a programmer error")
}

func TestResolveListenAddress(t *testing.T) {
	tests := []struct {
		in   string
		want netip.Addr
	}{
		{in: "localhost", want: netip.MustParseAddr("127.0.0.1")},
		{in: "*", want: netip.IPv4Unspecified()},
		{in: "", want: netip.IPv4Unspecified()},
		{in: "10.0.0.1", want: netip.MustParseAddr("10.0.0.1")},
		{in: "::ffff:10.0.0.1", want: netip.MustParseAddr("10.0.0.1")},
		{in: "::1", want: netip.IPv6Loopback()},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := resolveListenAddress(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := resolveListenAddress("300.1.1.1")
	assert.Error(t, err)
}
