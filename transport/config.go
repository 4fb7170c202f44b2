package transport

import (
	"fmt"
	"net/url"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout = 30 * time.Second
)

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Name identifies the transport in logs, metrics and breaker state.
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is the base URL relative request URLs are resolved against.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds one exchange including reading the body. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// HTTP2 selects the HTTP/2 mode: auto, force or h2c. Defaults to auto.
	HTTP2 string `yaml:"http2" mapstructure:"http2"`

	// TLS configures TLS settings for the underlying http.Transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Auth configures authentication applied to every request.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *RetryConfig `yaml:"retry" mapstructure:"retry"`

	// CircuitBreaker configures circuit breaking. Nil disables it.
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimit configures client-side rate limiting. Nil disables it.
	RateLimit *RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// MaxConcurrent caps in-flight exchanges. Zero means unlimited.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *HTTPConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "http"
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.HTTP2 == "" {
		c.HTTP2 = HTTP2Auto
	}
	if c.Retry != nil {
		c.Retry.applyDefaults()
	}
	if c.CircuitBreaker != nil {
		c.CircuitBreaker.applyDefaults(c.Name)
	}
	if c.RateLimit != nil {
		c.RateLimit.applyDefaults()
	}
}

// Validate checks that the configuration is valid.
func (c *HTTPConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("transport: timeout must be positive")
	}
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("transport: base_url must be an absolute URL (got: %s)", c.BaseURL)
		}
	}
	if err := validateHTTP2Mode(c.HTTP2); err != nil {
		return err
	}
	if c.MaxConcurrent < 0 {
		return fmt.Errorf("transport: max_concurrent must not be negative")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// InitialBackoff is the initial delay between retries.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64 `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`
	// RetryIf decides whether a transport error is retried. Defaults to IsRetryable.
	RetryIf func(error) bool `yaml:"-" mapstructure:"-"`
	// RetryOnStatus decides whether a received status is retried. Defaults to 5xx.
	RetryOnStatus func(status int) bool `yaml:"-" mapstructure:"-"`
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, backoff time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() *RetryConfig {
	cfg := &RetryConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2.0
	}
	if c.RetryIf == nil {
		c.RetryIf = IsRetryable
	}
	if c.RetryOnStatus == nil {
		c.RetryOnStatus = isServerStatus
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker. Defaults to the transport name.
	Name string `yaml:"name" mapstructure:"name"`
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32 `yaml:"max_failures" mapstructure:"max_failures"`
	// Timeout is how long the circuit stays open before going half-open.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Interval is the cyclic period in the closed state after which counts reset.
	// Zero never resets while closed.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
	// HalfOpenMaxCalls is the number of calls allowed while half-open.
	HalfOpenMaxCalls uint32 `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`
	// OnStateChange is called when the state changes.
	OnStateChange func(name string, from, to gobreaker.State) `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) *CircuitBreakerConfig {
	cfg := &CircuitBreakerConfig{}
	cfg.applyDefaults(name)
	return cfg
}

func (c *CircuitBreakerConfig) applyDefaults(name string) {
	if c.Name == "" {
		c.Name = name
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = 1
	}
}

// RateLimitConfig configures a token bucket rate limiter.
type RateLimitConfig struct {
	// Rate is the number of requests allowed per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the maximum burst size.
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// DefaultRateLimitConfig returns sensible defaults.
func DefaultRateLimitConfig() *RateLimitConfig {
	cfg := &RateLimitConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *RateLimitConfig) applyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 10.0
	}
	if c.Burst <= 0 {
		c.Burst = int(c.Rate)
		if c.Burst < 1 {
			c.Burst = 1
		}
	}
}

func isServerStatus(status int) bool {
	return status >= 500 && status < 600
}
