package daemon

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// Options contains optional configuration for the daemon.
// NewOptions should be used to create instances of Options.
type Options struct {
	// APIOptions contains functional options for the API server.
	APIOptions []APIOption

	// Clock drives the sweep loop.
	Clock clock.Clock

	// SweepInterval specifies how often dead peers are purged from the directory.
	SweepInterval time.Duration
}

// Option defines a functional option for configuring Options.
// Options are applied in order, with later options overriding earlier ones.
type Option func(*Options) error

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options := defaultOptions()

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

// WithAPIOptions configures API server options.
// Replaces all previous API configuration including CORS settings.
func WithAPIOptions(apiOpts ...APIOption) Option {
	return func(o *Options) error {
		o.APIOptions = apiOpts
		return nil
	}
}

// WithSweepInterval configures how often dead peers are purged.
func WithSweepInterval(interval time.Duration) Option {
	return func(o *Options) error {
		if interval <= 0 {
			return fmt.Errorf("sweep interval must be positive, got %v", interval)
		}
		o.SweepInterval = interval
		return nil
	}
}

// WithClock sets the clock driving the sweep loop.
func WithClock(c clock.Clock) Option {
	return func(o *Options) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.Clock = c
		return nil
	}
}

// DefaultSweepInterval is the default interval between dead peer sweeps.
func DefaultSweepInterval() time.Duration {
	return 30 * time.Second
}

// defaultOptions returns Options with default values.
func defaultOptions() Options {
	return Options{
		Clock:         clock.New(),
		SweepInterval: DefaultSweepInterval(),
	}
}
