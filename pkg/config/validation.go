package config

import (
	"fmt"
	"path"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct tags and the rules that span several sections.
//
// Validate does not normalize values; ApplyDefaults does.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled")
	}

	if cfg.Filesystem.StartPath != path.Clean(cfg.Filesystem.StartPath) {
		return fmt.Errorf("filesystem.start_path %q is not a clean absolute path", cfg.Filesystem.StartPath)
	}

	if err := cfg.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}

	return validatePorts(cfg)
}

// validatePorts rejects two listeners on the same port.
func validatePorts(cfg *Config) error {
	used := map[int]string{cfg.Telnet.Port: "telnet.port"}

	check := func(port int, name string) error {
		if other, ok := used[port]; ok {
			return fmt.Errorf("%s %d conflicts with %s", name, port, other)
		}
		used[port] = name
		return nil
	}

	if cfg.API.IsEnabled() {
		if err := check(cfg.API.Port, "api.port"); err != nil {
			return err
		}
	}
	if cfg.Metrics.Enabled {
		if err := check(cfg.Metrics.Port, "metrics.port"); err != nil {
			return err
		}
	}
	return nil
}
