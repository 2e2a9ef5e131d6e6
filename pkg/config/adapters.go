package config

import (
	"fmt"

	"github.com/marmos91/restd/pkg/adapter"
	"github.com/marmos91/restd/pkg/adapter/rest"
	"github.com/marmos91/restd/pkg/metrics"
)

// CreateAdapters creates all enabled protocol adapters from the configuration.
//
// Parameters:
//   - cfg: The complete restd configuration
//   - dispatcher: Turns framed requests into responses (shared by adapters)
//   - restMetrics: Optional REST metrics collector (nil = no metrics)
//
// Returns the enabled adapters, ready to be added to the server.
func CreateAdapters(cfg *Config, dispatcher rest.Dispatcher, restMetrics metrics.RESTMetrics) ([]adapter.Adapter, error) {
	var adapters []adapter.Adapter

	if cfg.Adapters.REST.Enabled {
		adapters = append(adapters, rest.New(cfg.Adapters.REST, dispatcher, restMetrics))
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no adapters enabled in configuration")
	}

	return adapters, nil
}
