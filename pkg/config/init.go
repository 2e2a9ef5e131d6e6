package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const configHeader = `restd Configuration File

Values can be overridden with environment variables, for example
RESTD_LOGGING_LEVEL=DEBUG or RESTD_ADAPTERS_REST_WORKER_COUNT=8.`

// InitConfig writes a default configuration file at the default location
// and returns its path.
//
// Returns an error if the file already exists and force is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as a commented YAML document.
//
// The document is built as a yaml.Node tree rather than marshalled from the
// structs so that durations come out as "30s" and every key carries the
// comment a user needs to edit it.
func generateYAMLWithComments(cfg *Config) ([]byte, error) {
	rc := cfg.Adapters.REST

	root := mapping(
		pair("logging", "Log output", mapping(
			pair("level", "DEBUG, INFO, WARN or ERROR", str(cfg.Logging.Level)),
			pair("format", "text or json", str(cfg.Logging.Format)),
			pair("output", "stdout, stderr or a file path", str(cfg.Logging.Output)),
		)),
		pair("server", "Server-wide settings", mapping(
			pair("shutdown_timeout", "Maximum time to wait for graceful shutdown", duration(cfg.Server.ShutdownTimeout)),
			pair("metrics", "Prometheus endpoint", mapping(
				pair("enabled", "", boolean(cfg.Server.Metrics.Enabled)),
				pair("address", "Bind address, empty for all interfaces", str(cfg.Server.Metrics.Address)),
				pair("port", "", integer(int64(cfg.Server.Metrics.Port))),
			)),
		)),
		pair("store", "Position store: memory or badger", mapping(
			pair("type", "", str(cfg.Store.Type)),
			pair("memory", "No options", anyMap(cfg.Store.Memory)),
			pair("badger", "Used when type is badger", anyMap(cfg.Store.Badger)),
		)),
		pair("adapters", "Protocol adapters", mapping(
			pair("rest", "JSON command server", mapping(
				pair("enabled", "", boolean(rc.Enabled)),
				pair("listen_address", "IPv4/IPv6 address, \"localhost\" or \"*\"", str(rc.ListenAddress)),
				pair("listen_port", "", integer(int64(rc.ListenPort))),
				pair("worker_count", "Goroutines answering requests", integer(int64(rc.WorkerCount))),
				pair("poll_timeout", "Upper bound of one readiness wait", duration(rc.PollTimeout)),
				pair("write_timeout", "Upper bound for flushing one response", duration(rc.WriteTimeout)),
				pair("max_connections", "0 = unlimited", integer(int64(rc.MaxConnections))),
				pair("backlog", "listen(2) backlog", integer(int64(rc.Backlog))),
				pair("buffer_size", "Receive buffer per worker, also the longest header line", integer(int64(rc.BufferSize))),
				pair("max_header_bytes", "Request line plus headers of one request", integer(int64(rc.MaxHeaderBytes))),
				pair("max_body_size", "Largest accepted Content-Length", integer(int64(rc.MaxBodySize))),
				pair("max_requests_per_pass", "Pipelined requests served before yielding a connection", integer(int64(rc.MaxRequestsPerPass))),
				pair("accept_rate", "Accepted connections per second, 0 = unlimited", integer(int64(rc.AcceptRate))),
				pair("accept_burst", "", integer(int64(rc.AcceptBurst))),
				pair("shutdown_timeout", "", duration(rc.ShutdownTimeout)),
				pair("metrics_log_interval", "0 disables the periodic metrics log line", duration(rc.MetricsLogInterval)),
			)),
		)),
	)

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: configHeader,
		Content:     []*yaml.Node{root},
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return buf.Bytes(), nil
}

type keyValue struct {
	key   *yaml.Node
	value *yaml.Node
}

func pair(key, comment string, value *yaml.Node) keyValue {
	return keyValue{
		key:   &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key, HeadComment: comment},
		value: value,
	}
}

func mapping(pairs ...keyValue) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range pairs {
		n.Content = append(n.Content, p.key, p.value)
	}
	return n
}

func str(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func integer(v int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}
}

func boolean(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

func duration(v time.Duration) *yaml.Node {
	return str(v.String())
}

// anyMap renders a store options map with its keys sorted.
func anyMap(m map[string]any) *yaml.Node {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(keys) == 0 {
		n.Style = yaml.FlowStyle
	}
	for _, k := range keys {
		var value yaml.Node
		if err := value.Encode(m[k]); err != nil {
			value = *str(fmt.Sprint(m[k]))
		}
		n.Content = append(n.Content, str(k), &value)
	}
	return n
}
