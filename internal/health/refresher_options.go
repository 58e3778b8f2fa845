package health

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// RefresherOptions contains optional configuration for the Refresher.
// NewRefresherOptions should be used to create instances of RefresherOptions.
type RefresherOptions struct {
	// Attempts is the number of directory polls made per cycle before giving up.
	Attempts int

	// BaseDelay is multiplied by the attempt number to get the wait after a failed poll.
	BaseDelay time.Duration

	// Clock drives every wait of the refresher.
	Clock clock.Clock

	// Cooldown is the wait after a cycle that failed unexpectedly.
	Cooldown time.Duration

	// FetchTimeout bounds a single directory poll.
	FetchTimeout time.Duration

	// Interval is the wait between cycles.
	Interval time.Duration
}

// RefresherOption defines a functional option for configuring RefresherOptions.
type RefresherOption func(*RefresherOptions) error

// NewRefresherOptions creates RefresherOptions with defaults, then applies opts in order.
func NewRefresherOptions(opts ...RefresherOption) (RefresherOptions, error) {
	options := RefresherOptions{
		Attempts:     DefaultRetryAttempts(),
		BaseDelay:    DefaultRetryBaseDelay(),
		Clock:        clock.New(),
		Cooldown:     DefaultCooldown(),
		FetchTimeout: DefaultFetchTimeout(),
		Interval:     DefaultRefreshInterval(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return RefresherOptions{}, err
		}
	}

	return options, nil
}

// WithRetryAttempts sets how many polls a cycle makes before giving up.
func WithRetryAttempts(n int) RefresherOption {
	return func(o *RefresherOptions) error {
		if n <= 0 {
			return fmt.Errorf("retry attempts must be positive, got %d", n)
		}
		o.Attempts = n
		return nil
	}
}

// WithRetryBaseDelay sets the base of the linear backoff between failed polls.
func WithRetryBaseDelay(d time.Duration) RefresherOption {
	return func(o *RefresherOptions) error {
		if d <= 0 {
			return fmt.Errorf("retry base delay must be positive, got %v", d)
		}
		o.BaseDelay = d
		return nil
	}
}

// WithRefresherClock sets the clock driving the refresher's waits.
func WithRefresherClock(c clock.Clock) RefresherOption {
	return func(o *RefresherOptions) error {
		if c == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		o.Clock = c
		return nil
	}
}

// WithCooldown sets the wait after an unexpected cycle failure.
func WithCooldown(d time.Duration) RefresherOption {
	return func(o *RefresherOptions) error {
		if d <= 0 {
			return fmt.Errorf("cooldown must be positive, got %v", d)
		}
		o.Cooldown = d
		return nil
	}
}

// WithFetchTimeout sets the time budget of a single directory poll.
func WithFetchTimeout(d time.Duration) RefresherOption {
	return func(o *RefresherOptions) error {
		if d <= 0 {
			return fmt.Errorf("fetch timeout must be positive, got %v", d)
		}
		o.FetchTimeout = d
		return nil
	}
}

// WithRefreshInterval sets the wait between refresh cycles.
func WithRefreshInterval(d time.Duration) RefresherOption {
	return func(o *RefresherOptions) error {
		if d <= 0 {
			return fmt.Errorf("refresh interval must be positive, got %v", d)
		}
		o.Interval = d
		return nil
	}
}

// DefaultRetryAttempts is the default number of directory polls per cycle.
func DefaultRetryAttempts() int {
	return 5
}

// DefaultRetryBaseDelay is the default backoff base; the n-th failure waits n times this long.
func DefaultRetryBaseDelay() time.Duration {
	return 2 * time.Second
}

// DefaultCooldown is the default wait after an unexpected cycle failure.
func DefaultCooldown() time.Duration {
	return 10 * time.Second
}

// DefaultFetchTimeout is the default time budget of one directory poll.
func DefaultFetchTimeout() time.Duration {
	return 10 * time.Second
}

// DefaultRefreshInterval is the default wait between refresh cycles.
func DefaultRefreshInterval() time.Duration {
	return 30 * time.Second
}
