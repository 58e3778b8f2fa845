package store

import (
	"fmt"
	"strings"
	"time"
)

// Options contains optional configuration for a BadgerStore.
// NewOptions should be used to create instances of Options.
type Options struct {
	// Dir is the directory holding the database files, empty keeps the store in memory.
	Dir string

	// GCInterval specifies how often value log garbage collection runs for on-disk stores.
	GCInterval time.Duration

	// GCDiscardRatio is the fraction of a value log file that must be stale before it is rewritten.
	GCDiscardRatio float64
}

// Option defines a functional option for configuring Options.
type Option func(*Options) error

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		GCInterval:     DefaultGCInterval(),
		GCDiscardRatio: DefaultGCDiscardRatio(),
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

// WithDir stores data on disk under dir instead of in memory.
func WithDir(dir string) Option {
	return func(o *Options) error {
		o.Dir = strings.TrimSpace(dir)
		return nil
	}
}

// WithGCInterval configures how often value log garbage collection runs.
func WithGCInterval(interval time.Duration) Option {
	return func(o *Options) error {
		if interval <= 0 {
			return fmt.Errorf("gc interval must be positive, got %v", interval)
		}
		o.GCInterval = interval
		return nil
	}
}

// WithGCDiscardRatio configures the value log garbage collection discard ratio.
func WithGCDiscardRatio(ratio float64) Option {
	return func(o *Options) error {
		if ratio <= 0 || ratio >= 1 {
			return fmt.Errorf("gc discard ratio must be between 0 and 1, got %v", ratio)
		}
		o.GCDiscardRatio = ratio
		return nil
	}
}

// DefaultGCInterval is the default interval between value log garbage collections.
func DefaultGCInterval() time.Duration {
	return 5 * time.Minute
}

// DefaultGCDiscardRatio is the default value log garbage collection discard ratio.
func DefaultGCDiscardRatio() float64 {
	return 0.5
}
