package health

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// Options contains optional configuration for the health Table.
// NewOptions should be used to create instances of Options.
type Options struct {
	// Clock is the gateway-local time source for last_seen and deferred releases.
	Clock clock.Clock

	// MaxConnections seeds the capacity ceiling of newly observed peers.
	MaxConnections int

	// ReleaseAfter is how long after a successful request its connection slot is released.
	ReleaseAfter time.Duration

	// Staleness is how long a peer may go unobserved before it is evicted.
	Staleness time.Duration
}

// Option defines a functional option for configuring Options.
type Option func(*Options) error

// NewOptions creates Options with defaults, then applies opts in order.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		Clock:          clock.New(),
		MaxConnections: DefaultMaxConnections(),
		ReleaseAfter:   DefaultReleaseAfter(),
		Staleness:      DefaultStaleness(),
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

// WithClock sets the table's time source.
func WithClock(c clock.Clock) Option {
	return func(o *Options) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.Clock = c
		return nil
	}
}

// WithMaxConnections sets the capacity seeded for newly observed peers.
func WithMaxConnections(n int) Option {
	return func(o *Options) error {
		if n <= 0 {
			return fmt.Errorf("max connections must be positive, got %d", n)
		}
		o.MaxConnections = n
		return nil
	}
}

// WithReleaseAfter sets the delay before a successful request's connection slot is released.
func WithReleaseAfter(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("release delay must be positive, got %v", d)
		}
		o.ReleaseAfter = d
		return nil
	}
}

// WithStaleness sets how long an unobserved peer is kept.
func WithStaleness(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("staleness must be positive, got %v", d)
		}
		o.Staleness = d
		return nil
	}
}

// DefaultMaxConnections is the capacity assumed for a peer that has not reported one.
func DefaultMaxConnections() int {
	return 50
}

// DefaultReleaseAfter is the fixed delay after which a successful request stops counting as active.
func DefaultReleaseAfter() time.Duration {
	return 60 * time.Second
}

// DefaultStaleness is how long a peer may be missing from directory polls before eviction.
func DefaultStaleness() time.Duration {
	return 300 * time.Second
}

// DefaultResponseTimeMs seeds the response time EMA of a newly observed peer.
func DefaultResponseTimeMs() float64 {
	return 100
}

// DefaultSuccessRate seeds the success rate of a newly observed peer.
func DefaultSuccessRate() float64 {
	return 0.95
}
