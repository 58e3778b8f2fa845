package directory

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// Options contains optional configuration for the Directory.
// NewOptions should be used to create instances of Options.
type Options struct {
	// PeerTimeout is how long after its last heartbeat a peer is still considered online.
	// Records physically expire from the store after twice this duration.
	PeerTimeout time.Duration

	// Clock is the time source used for heartbeats and liveness checks.
	Clock clock.Clock
}

// Option defines a functional option for configuring Options.
// Options are applied in order, with later options overriding earlier ones.
type Option func(*Options) error

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		PeerTimeout: DefaultPeerTimeout(),
		Clock:       clock.New(),
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

// WithPeerTimeout configures the liveness timeout for peers.
func WithPeerTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("peer timeout must be positive, got %v", timeout)
		}
		o.PeerTimeout = timeout
		return nil
	}
}

// WithClock configures the time source, mainly so tests can control time.
func WithClock(c clock.Clock) Option {
	return func(o *Options) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.Clock = c
		return nil
	}
}

// DefaultPeerTimeout is the default liveness timeout for peers.
func DefaultPeerTimeout() time.Duration {
	return 60 * time.Second
}
