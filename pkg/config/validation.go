package config

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults; validation accepts
// both cases.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs validation that struct tags cannot express.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.REST.Enabled {
		return fmt.Errorf("adapters: at least one adapter must be enabled")
	}

	rc := &cfg.Adapters.REST
	switch rc.ListenAddress {
	case "localhost", "*", "":
	default:
		if _, err := netip.ParseAddr(rc.ListenAddress); err != nil {
			return fmt.Errorf("adapters.rest.listen_address: %q is not an IP address", rc.ListenAddress)
		}
	}
	if rc.BufferSize < 256 {
		return fmt.Errorf("adapters.rest.buffer_size: must be at least 256 bytes, got %d", rc.BufferSize)
	}
	if rc.MaxHeaderBytes < rc.BufferSize {
		return fmt.Errorf("adapters.rest.max_header_bytes: must be at least buffer_size (%d), got %d", rc.BufferSize, rc.MaxHeaderBytes)
	}
	if rc.AcceptRate > 0 && rc.AcceptBurst == 0 {
		return fmt.Errorf("adapters.rest.accept_burst: must be > 0 when accept_rate is set")
	}

	if cfg.Server.Metrics.Enabled && cfg.Server.Metrics.Port == rc.ListenPort {
		return fmt.Errorf("server.metrics.port: %d is already used by the REST adapter", rc.ListenPort)
	}

	if cfg.Store.Type == "badger" {
		if path, _ := cfg.Store.Badger["db_path"].(string); path == "" {
			if inMemory, _ := cfg.Store.Badger["in_memory"].(bool); !inMemory {
				return fmt.Errorf("store.badger.db_path: required unless in_memory is true")
			}
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
