// Package daemon runs the controller: the directory HTTP API and the loop that purges dead peers.
package daemon

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/mirage-net/mirage/internal/api"
	"github.com/mirage-net/mirage/internal/contracts"
)

// Daemon serves the peer directory over HTTP and periodically sweeps dead peers.
// NewDaemon should be used to create instances of Daemon.
type Daemon struct {
	apiServer     *APIServer
	directory     contracts.PeerRegistry
	logger        hclog.Logger
	clock         clock.Clock
	sweepInterval time.Duration
}

// NewDaemon creates a new Daemon instance with proper initialization.
// Use NewDependencies to create deps and NewOptions for opts.
func NewDaemon(deps Dependencies, opt ...Option) (*Daemon, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logger := deps.Logger.Named("daemon")
	if deps.APIKey == "" {
		logger.Warn("No API key configured, every directory request will be rejected")
	}

	routes := func(router huma.API) (string, error) {
		return api.RegisterDirectoryRoutes(router, deps.Directory, deps.APIKey)
	}

	apiDeps, err := NewAPIDependencies(deps.Logger, routes, deps.APIAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon API server dependencies: %w", err)
	}

	apiServer, err := NewAPIServer(apiDeps, opts.APIOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon API server: %w", err)
	}

	return &Daemon{
		apiServer:     apiServer,
		directory:     deps.Directory,
		logger:        logger,
		clock:         opts.Clock,
		sweepInterval: opts.SweepInterval,
	}, nil
}

// StartAndManage runs the API server and the sweep loop until ctx is cancelled or one of them fails.
// Cancellation is a clean shutdown and returns nil.
func (d *Daemon) StartAndManage(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.apiServer.Start(gCtx)
	})

	g.Go(func() error {
		d.sweepLoop(gCtx)
		return nil
	})

	d.logger.Info("Controller started", "sweep_interval", d.sweepInterval)

	err := g.Wait()
	if err != nil && !stdErrors.Is(err, context.Canceled) {
		return err
	}

	d.logger.Info("Controller stopped")

	return nil
}

// sweepLoop purges dead peers every sweep interval until ctx is done.
func (d *Daemon) sweepLoop(ctx context.Context) {
	ticker := d.clock.Ticker(d.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

func (d *Daemon) sweep() {
	removed, err := d.directory.SweepDead()
	if err != nil {
		d.logger.Warn("Dead peer sweep failed", "error", err)
		return
	}
	if removed > 0 {
		d.logger.Info("Swept dead peers", "count", removed)
	}
}
