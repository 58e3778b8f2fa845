// Package gateway runs the forwarding gateway: the proxy listener, the background health refresher and
// the optional admin API, under one lifecycle.
package gateway

import (
	"context"
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/mirage-net/mirage/internal/api"
	"github.com/mirage-net/mirage/internal/daemon"
	"github.com/mirage-net/mirage/internal/forward"
	"github.com/mirage-net/mirage/internal/health"
)

// MetricsPath is where the admin API serves Prometheus metrics.
const MetricsPath = "/metrics"

// Gateway forwards client requests through the healthiest peer.
// NewGateway should be used to create instances of Gateway.
type Gateway struct {
	addr            string
	logger          hclog.Logger
	table           *health.Table
	refresher       *health.Refresher
	engine          *forward.Engine
	admin           *daemon.APIServer
	registry        *prometheus.Registry
	shutdownTimeout time.Duration
}

// NewGateway wires the health table, refresher, forwarding engine and admin API.
func NewGateway(deps Dependencies, opt ...Option) (*Gateway, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logger := deps.Logger.Named("gateway")

	table, err := health.NewTable(deps.Logger, opts.TableOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create health table: %w", err)
	}

	refresher, err := health.NewRefresher(deps.Logger, table, deps.Directory, opts.RefresherOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create health refresher: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "mirage",
			Subsystem: "gateway",
			Name:      "tracked_peers",
			Help:      "Peers currently held in the health table.",
		}, func() float64 {
			return float64(table.Len())
		}),
	)

	metrics, err := forward.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	// Metrics come first so callers can still replace them.
	forwardOpts := append([]forward.Option{forward.WithMetrics(metrics)}, opts.ForwardOptions...)
	engine, err := forward.NewEngine(deps.Logger, table, forwardOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create forwarding engine: %w", err)
	}

	g := &Gateway{
		addr:            deps.Addr,
		logger:          logger,
		table:           table,
		refresher:       refresher,
		engine:          engine,
		registry:        registry,
		shutdownTimeout: opts.ShutdownTimeout,
	}

	if opts.AdminAddr != "" {
		routes := func(router huma.API) (string, error) {
			return api.RegisterGatewayRoutes(router, table)
		}

		adminDeps, err := daemon.NewAPIDependencies(deps.Logger, routes, opts.AdminAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create admin API dependencies: %w", err)
		}

		adminOpts := append([]daemon.APIOption{
			daemon.WithTitle("mirage gateway"),
			daemon.WithHandler(MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		}, opts.AdminOptions...)

		g.admin, err = daemon.NewAPIServer(adminDeps, adminOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create admin API server: %w", err)
		}
	}

	return g, nil
}

// ProxyHandler returns the handler served on the proxy listener.
// Panics in the forwarding path are recovered into a 500 response.
func (g *Gateway) ProxyHandler() http.Handler {
	return chi.Chain(middleware.RequestID, middleware.Recoverer).Handler(g.engine)
}

// Run serves until ctx is cancelled or a component fails.
// Cancellation is a clean shutdown and returns nil. The health table is closed on return.
func (g *Gateway) Run(ctx context.Context) error {
	defer g.table.Close()

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return g.refresher.Run(egCtx)
	})

	eg.Go(func() error {
		return g.serveProxy(egCtx)
	})

	if g.admin != nil {
		eg.Go(func() error {
			return g.admin.Start(egCtx)
		})
	}

	g.logger.Info("Gateway started", "address", g.addr, "admin", g.admin != nil)

	err := eg.Wait()
	if err != nil && !stdErrors.Is(err, context.Canceled) {
		return err
	}

	g.logger.Info("Gateway stopped")

	return nil
}

// serveProxy runs the proxy listener until ctx is done, then drains in-flight requests.
func (g *Gateway) serveProxy(ctx context.Context) error {
	srv := &http.Server{
		Addr:              g.addr,
		Handler:           g.ProxyHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("Starting proxy listener", "address", g.addr)
		if err := srv.ListenAndServe(); err != nil && !stdErrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.shutdownTimeout)
		defer cancel()
		g.logger.Info("Shutting down proxy listener...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			g.logger.Warn("Proxy listener did not drain in time", "error", err)
		}
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("proxy listener: %w", err)
	}
}
