package forward

import (
	"fmt"
	"time"
)

// Options contains optional configuration for the Engine.
// NewOptions should be used to create instances of Options.
type Options struct {
	// DialerFactory builds the connector used to reach a peer's SOCKS5 endpoint.
	DialerFactory DialerFactory

	// MaxResponseBytes caps the upstream response body buffered for a forwarded request.
	// Larger responses are rejected as upstream failures.
	MaxResponseBytes int64

	// Metrics receives request outcomes. Nil disables metrics.
	Metrics *Metrics

	// RateBurst is the token bucket size of the inbound rate limiter.
	RateBurst int

	// RateLimit is the sustained number of requests per second accepted. Zero disables rate limiting.
	RateLimit float64

	// RequestTimeout bounds a forwarded request, from dispatch until the full response is read.
	RequestTimeout time.Duration

	// SOCKSPort is the port of a peer's SOCKS5 endpoint when its address carries none.
	SOCKSPort int
}

// Option defines a functional option for configuring Options.
type Option func(*Options) error

// NewOptions creates Options with defaults, then applies opts in order.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		DialerFactory:    SOCKS5Dialer,
		MaxResponseBytes: DefaultMaxResponseBytes(),
		RequestTimeout:   DefaultRequestTimeout(),
		SOCKSPort:        DefaultSOCKSPort(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// WithDialerFactory replaces the SOCKS5 connector factory.
func WithDialerFactory(f DialerFactory) Option {
	return func(o *Options) error {
		if f == nil {
			return fmt.Errorf("dialer factory cannot be nil")
		}
		o.DialerFactory = f
		return nil
	}
}

// WithMaxResponseBytes sets the largest upstream response body the engine relays.
func WithMaxResponseBytes(n int64) Option {
	return func(o *Options) error {
		if n <= 0 {
			return fmt.Errorf("max response bytes must be positive, got %d", n)
		}
		o.MaxResponseBytes = n
		return nil
	}
}

// WithMetrics sets the collectors that receive request outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) error {
		o.Metrics = m
		return nil
	}
}

// WithRateLimit enables inbound rate limiting at limit requests per second with the given burst.
// A limit of zero disables rate limiting.
func WithRateLimit(limit float64, burst int) Option {
	return func(o *Options) error {
		if limit < 0 {
			return fmt.Errorf("rate limit cannot be negative, got %v", limit)
		}
		if limit > 0 && burst <= 0 {
			return fmt.Errorf("rate burst must be positive, got %d", burst)
		}
		o.RateLimit = limit
		o.RateBurst = burst
		return nil
	}
}

// WithRequestTimeout sets the time budget of a forwarded request.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("request timeout must be positive, got %v", timeout)
		}
		o.RequestTimeout = timeout
		return nil
	}
}

// WithSOCKSPort sets the port of peers' SOCKS5 endpoints.
func WithSOCKSPort(port int) Option {
	return func(o *Options) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid SOCKS port: %d", port)
		}
		o.SOCKSPort = port
		return nil
	}
}

// DefaultRequestTimeout is the default time budget of a forwarded request.
func DefaultRequestTimeout() time.Duration {
	return 30 * time.Second
}

// DefaultMaxResponseBytes is the default cap on a relayed response body (32 MiB).
func DefaultMaxResponseBytes() int64 {
	return 32 << 20
}

// DefaultSOCKSPort is the port peers expose their SOCKS5 endpoint on.
func DefaultSOCKSPort() int {
	return 1080
}
