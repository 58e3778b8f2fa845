package gateway

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/mirage-net/mirage/internal/daemon"
	"github.com/mirage-net/mirage/internal/forward"
	"github.com/mirage-net/mirage/internal/health"
)

// Options contains optional configuration for the Gateway.
// NewOptions should be used to create instances of Options.
type Options struct {
	// AdminAddr is where the admin API (health view and metrics) listens. Empty disables it.
	AdminAddr string

	// AdminOptions configure the admin API server.
	AdminOptions []daemon.APIOption

	// ForwardOptions configure the forwarding engine.
	ForwardOptions []forward.Option

	// RefresherOptions configure the health refresher.
	RefresherOptions []health.RefresherOption

	// ShutdownTimeout bounds how long in-flight proxied requests may drain on shutdown.
	ShutdownTimeout time.Duration

	// TableOptions configure the health table.
	TableOptions []health.Option
}

// Option defines a functional option for configuring Options.
// Options are applied in order, with later options overriding earlier ones.
type Option func(*Options) error

// NewOptions creates Options with defaults, then applies opts in order.
func NewOptions(opts ...Option) (Options, error) {
	options := Options{
		ShutdownTimeout: DefaultShutdownTimeout(),
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

// WithAdminAPI enables the admin API on addr.
func WithAdminAPI(addr string, apiOpts ...daemon.APIOption) Option {
	return func(o *Options) error {
		if err := validateAddr(addr); err != nil {
			return fmt.Errorf("invalid admin address '%s': %w", addr, err)
		}
		o.AdminAddr = addr
		o.AdminOptions = apiOpts
		return nil
	}
}

// WithForwardOptions configures the forwarding engine.
// Replaces all previously supplied forwarding options.
func WithForwardOptions(opts ...forward.Option) Option {
	return func(o *Options) error {
		o.ForwardOptions = opts
		return nil
	}
}

// WithRefresherOptions configures the health refresher.
// Replaces all previously supplied refresher options.
func WithRefresherOptions(opts ...health.RefresherOption) Option {
	return func(o *Options) error {
		o.RefresherOptions = opts
		return nil
	}
}

// WithShutdownTimeout sets how long in-flight proxied requests may drain on shutdown.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("shutdown timeout must be positive, got %v", timeout)
		}
		o.ShutdownTimeout = timeout
		return nil
	}
}

// WithTableOptions configures the health table.
// Replaces all previously supplied table options.
func WithTableOptions(opts ...health.Option) Option {
	return func(o *Options) error {
		o.TableOptions = opts
		return nil
	}
}

// DefaultShutdownTimeout is the default drain time for the proxy listener.
func DefaultShutdownTimeout() time.Duration {
	return 30 * time.Second
}

func validateAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}
	if port == "" {
		return fmt.Errorf("address missing port")
	}
	if _, err := strconv.Atoi(port); err != nil {
		return fmt.Errorf("invalid address port: %s", port)
	}

	return nil
}
