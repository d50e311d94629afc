package config

import (
	"fmt"
	"strconv"
	"time"
)

// Validation constants for APIConfig.
const (
	// MinRestPort is the minimum valid port number.
	MinRestPort = 1
	// MaxRestPort is the maximum valid port number.
	MaxRestPort = 65535

	// DefaultRestPort is the port the REST API listens on by default.
	DefaultRestPort = "8000"

	// DefaultRequestTimeout bounds a single API request. Every operation
	// is an in-memory critical section, so requests are fast; the timeout
	// exists to shed stuck clients, not slow handlers.
	DefaultRequestTimeout = 10 * time.Second
)

// Validation constants for RateLimitConfig.
const (
	// MinRequestsPerSecond is the minimum allowed per-client request rate.
	MinRequestsPerSecond = 0.001
	// MaxRequestsPerSecond is the maximum allowed per-client request rate.
	MaxRequestsPerSecond = 1000

	// MinAllowedBurst is the minimum allowed burst size.
	MinAllowedBurst = 1
	// MaxAllowedBurst is the maximum allowed burst size.
	MaxAllowedBurst = 10000

	// DefaultRequestsPerSecond is the default per-client rate for mutating
	// lock and reservation endpoints.
	DefaultRequestsPerSecond = 10
	// DefaultAllowedBurst is the default per-client burst.
	DefaultAllowedBurst = 20
)

// APIConfig holds configuration for the coordinator REST API. These are
// basic app settings; they cannot be changed after startup.
type APIConfig struct {
	// LogJSON indicates whether to log in JSON format.
	LogJSON bool `json:"logJson" yaml:"logJson"`

	// Verbose indicates whether to enable verbose logging, including HTTP
	// access logs.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// RestPort is the port the REST API server listens on.
	RestPort string `json:"restPort" yaml:"restPort"`

	// RequestTimeout bounds the handling of a single request.
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`

	// RateLimitPerClient holds rate limiting applied per client id to
	// mutating endpoints. If nil, defaults are used.
	RateLimitPerClient *RateLimitConfig `json:"rateLimitPerClient" yaml:"rateLimitPerClient"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the number of mutating requests allowed per
	// second for a single client.
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`

	// AllowedBurst is the maximum burst size.
	AllowedBurst int `json:"allowedBurst" yaml:"allowedBurst"`
}

// Validate validates the RateLimitConfig and returns an error if any fields
// are invalid.
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < MinRequestsPerSecond || c.RequestsPerSecond > MaxRequestsPerSecond {
		return fmt.Errorf("requests per second must be between %v and %v", MinRequestsPerSecond, MaxRequestsPerSecond)
	}

	if c.AllowedBurst < MinAllowedBurst || c.AllowedBurst > MaxAllowedBurst {
		return fmt.Errorf("allowed burst must be between %d and %d", MinAllowedBurst, MaxAllowedBurst)
	}

	return nil
}

// NewAPIConfig returns an APIConfig with every field at its default.
func NewAPIConfig() *APIConfig {
	return &APIConfig{
		RestPort:       DefaultRestPort,
		RequestTimeout: DefaultRequestTimeout,
		RateLimitPerClient: &RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			AllowedBurst:      DefaultAllowedBurst,
		},
	}
}

// ApplyDefaults fills in zero-valued fields with their defaults.
func (c *APIConfig) ApplyDefaults() {
	if c.RestPort == "" {
		c.RestPort = DefaultRestPort
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}

	if c.RateLimitPerClient == nil {
		c.RateLimitPerClient = &RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			AllowedBurst:      DefaultAllowedBurst,
		}
	}
}

// Validate validates the APIConfig and returns an error if any fields are
// invalid.
func (c *APIConfig) Validate() error {
	port, err := strconv.Atoi(c.RestPort)
	if err != nil {
		return fmt.Errorf("rest port must be a number, got %q", c.RestPort)
	}

	if port < MinRestPort || port > MaxRestPort {
		return fmt.Errorf("rest port must be between %d and %d", MinRestPort, MaxRestPort)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %v", c.RequestTimeout)
	}

	if c.RateLimitPerClient != nil {
		if err := c.RateLimitPerClient.Validate(); err != nil {
			return fmt.Errorf("invalid rate limit config: %w", err)
		}
	}

	return nil
}
