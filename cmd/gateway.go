package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/mirage-net/mirage/internal/cmd"
	cmdopts "github.com/mirage-net/mirage/internal/cmd/options"
	"github.com/mirage-net/mirage/internal/config"
	"github.com/mirage-net/mirage/internal/flags"
	"github.com/mirage-net/mirage/internal/forward"
	"github.com/mirage-net/mirage/internal/gateway"
	"github.com/mirage-net/mirage/internal/health"
)

// DefaultGatewayAddr is the proxy listener bind address when neither flag nor config sets one.
const DefaultGatewayAddr = "0.0.0.0:8081"

// GatewayCmd should be used to represent the 'gateway' command.
type GatewayCmd struct {
	*cmd.BaseCmd
	Addr          string
	AdminAddr     string
	ControllerURL string
	cfgLoader     config.Loader
	clientFactory cmdopts.ClientFactory
}

// NewGatewayCmd creates a newly configured (Cobra) command.
func NewGatewayCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &GatewayCmd{
		BaseCmd:       baseCmd,
		cfgLoader:     opts.ConfigLoader,
		clientFactory: opts.ClientFactory,
	}

	cobraCommand := &cobra.Command{
		Use:   "gateway [--addr] [--admin-addr] [--controller-url]",
		Short: "Runs the forwarding gateway",
		Long: "Runs the forwarding gateway, which tracks peer health from the controller's directory " +
			"and forwards each HTTP request through the SOCKS5 endpoint of the best scoring peer",
		RunE: c.run,
	}

	cobraCommand.Flags().StringVar(
		&c.Addr,
		"addr",
		"",
		fmt.Sprintf("Address for the proxy listener to bind (default %s, or gateway.addr)", DefaultGatewayAddr),
	)

	cobraCommand.Flags().StringVar(
		&c.AdminAddr,
		"admin-addr",
		"",
		"Address for the admin API serving peer health and metrics, disabled when unset (or gateway.admin_addr)",
	)

	cobraCommand.Flags().StringVar(
		&c.ControllerURL,
		cmd.FlagNameControllerURL,
		"",
		fmt.Sprintf("Base URL of the controller (default %s, or gateway.controller_url)", cmd.DefaultControllerURL),
	)

	return cobraCommand, nil
}

// run is configured (via NewGatewayCmd) to be called by the Cobra framework when the command is executed.
func (c *GatewayCmd) run(cmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return err
	}

	gw, err := c.newGateway(logger, cfg)
	if err != nil {
		return err
	}

	// Create the signal handling context for the application.
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := gw.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Gateway exited with error", "error", err)
		return err
	}

	return nil
}

// newGateway builds the directory client and gateway from flags and the gateway config section.
func (c *GatewayCmd) newGateway(logger hclog.Logger, cfg *config.Config) (*gateway.Gateway, error) {
	sec := cfg.GatewaySection()

	controllerURL := cmd.ResolveControllerURL(c.ControllerURL, cfg)
	client, err := c.clientFactory(logger, controllerURL, flags.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory client: %w", err)
	}

	addr := DefaultGatewayAddr
	if sec.Addr != nil {
		addr = *sec.Addr
	}
	if v := strings.TrimSpace(c.Addr); v != "" {
		addr = v
	}

	adminAddr := strings.TrimSpace(c.AdminAddr)
	if adminAddr == "" && sec.AdminAddr != nil {
		adminAddr = strings.TrimSpace(*sec.AdminAddr)
	}

	deps, err := gateway.NewDependencies(logger, addr, client)
	if err != nil {
		return nil, fmt.Errorf("error configuring gateway: %w", err)
	}

	gw, err := gateway.NewGateway(deps, gatewayOptions(sec, adminAddr)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway instance: %w", err)
	}

	logger.Info("Gateway configured", "addr", addr, "controller", controllerURL, "admin_addr", adminAddr)

	return gw, nil
}

// gatewayOptions maps the settings present in the gateway config section to gateway options.
// Anything unset keeps the defaults of the component it configures.
func gatewayOptions(sec *config.GatewayConfigSection, adminAddr string) []gateway.Option {
	var tableOpts []health.Option
	if sec.MaxConnections != nil {
		tableOpts = append(tableOpts, health.WithMaxConnections(*sec.MaxConnections))
	}
	if sec.Staleness != nil {
		tableOpts = append(tableOpts, health.WithStaleness(time.Duration(*sec.Staleness)))
	}

	var refresherOpts []health.RefresherOption
	if sec.RefreshInterval != nil {
		refresherOpts = append(refresherOpts, health.WithRefreshInterval(time.Duration(*sec.RefreshInterval)))
	}
	if sec.RetryAttempts != nil {
		refresherOpts = append(refresherOpts, health.WithRetryAttempts(*sec.RetryAttempts))
	}
	if sec.RetryBaseDelay != nil {
		refresherOpts = append(refresherOpts, health.WithRetryBaseDelay(time.Duration(*sec.RetryBaseDelay)))
	}
	if sec.Cooldown != nil {
		refresherOpts = append(refresherOpts, health.WithCooldown(time.Duration(*sec.Cooldown)))
	}
	if sec.FetchTimeout != nil {
		refresherOpts = append(refresherOpts, health.WithFetchTimeout(time.Duration(*sec.FetchTimeout)))
	}

	var forwardOpts []forward.Option
	if sec.RequestTimeout != nil {
		forwardOpts = append(forwardOpts, forward.WithRequestTimeout(time.Duration(*sec.RequestTimeout)))
	}
	if sec.SOCKSPort != nil {
		forwardOpts = append(forwardOpts, forward.WithSOCKSPort(*sec.SOCKSPort))
	}
	if sec.MaxResponseBytes != nil {
		forwardOpts = append(forwardOpts, forward.WithMaxResponseBytes(*sec.MaxResponseBytes))
	}
	if sec.RateLimit != nil && *sec.RateLimit > 0 && sec.RateBurst != nil {
		forwardOpts = append(forwardOpts, forward.WithRateLimit(*sec.RateLimit, *sec.RateBurst))
	}

	opts := []gateway.Option{
		gateway.WithTableOptions(tableOpts...),
		gateway.WithRefresherOptions(refresherOpts...),
		gateway.WithForwardOptions(forwardOpts...),
	}

	if sec.ShutdownTimeout != nil {
		opts = append(opts, gateway.WithShutdownTimeout(time.Duration(*sec.ShutdownTimeout)))
	}
	if adminAddr != "" {
		opts = append(opts, gateway.WithAdminAPI(adminAddr))
	}

	return opts
}
