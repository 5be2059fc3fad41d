package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/transcribe/resilience"
)

const (
	defaultTimeout = 60 * time.Second
)

// Config configures the HTTP client.
type Config struct {
	// Name identifies the upstream in logs (e.g. "google", "whisper").
	Name string `yaml:"name" mapstructure:"name"`

	// BaseURL is prepended to request paths that are not absolute URLs.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout bounds a single attempt. Defaults to 60s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Auth is applied to every request unless the request overrides it.
	Auth Auth `yaml:"-" mapstructure:"-"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry configures retry behavior. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"-" mapstructure:"-"`

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`

	// RateLimiter configures rate limiting. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" {
		c.Name = "http"
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	return nil
}

// ProviderConfig returns the configuration used for provider APIs: the
// transport retry policy plus a circuit breaker named after the upstream.
func ProviderConfig(name, baseURL string) Config {
	retry := resilience.DefaultRetryConfig()
	cb := resilience.DefaultCircuitBreakerConfig(name)
	return Config{
		Name:           name,
		BaseURL:        baseURL,
		Retry:          &retry,
		CircuitBreaker: &cb,
	}
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}
