package client

import (
	"fmt"
	"net/http"
	"time"
)

// Options contains optional configuration for the directory client.
// NewOptions should be used to create instances of Options.
type Options struct {
	// HTTPClient performs the requests. Its Timeout is overridden by Timeout.
	HTTPClient *http.Client

	// Timeout bounds every call, including reading the response body.
	Timeout time.Duration
}

// Option defines a functional option for configuring Options.
type Option func(*Options) error

// NewOptions creates Options with defaults, then applies opts in order.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		HTTPClient: &http.Client{},
		Timeout:    DefaultTimeout(),
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

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", timeout)
		}
		o.Timeout = timeout
		return nil
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Options) error {
		if c == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		o.HTTPClient = c
		return nil
	}
}

// DefaultTimeout is the default per-call timeout when talking to the directory.
func DefaultTimeout() time.Duration {
	return 10 * time.Second
}
