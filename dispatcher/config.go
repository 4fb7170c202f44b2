package dispatcher

import (
	"fmt"

	"github.com/kbukum/httpdispatch/config"
	"github.com/kbukum/httpdispatch/transport"
)

// Config configures a dispatcher Component.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// Transport configures the HTTP transport.
	Transport transport.HTTPConfig `yaml:"transport" mapstructure:"transport"`

	// Tracing wraps dispatches and exchanges in OpenTelemetry spans.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
	// Metrics records dispatch and transport instruments on the global meter.
	Metrics bool `yaml:"metrics" mapstructure:"metrics"`
	// RequestIDHeader names the header stamped with a per-request UUID.
	// Empty disables request IDs.
	RequestIDHeader string `yaml:"request_id_header" mapstructure:"request_id_header"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Transport.Name == "" {
		c.Transport.Name = c.Name
	}
	c.Transport.ApplyDefaults()
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Transport.Validate(); err != nil {
		return fmt.Errorf("config.transport: %w", err)
	}
	return nil
}

// LoadConfig loads, defaults and validates a Config for serviceName.
func LoadConfig(serviceName string, opts ...config.LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
