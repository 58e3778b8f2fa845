package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
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
	"github.com/mirage-net/mirage/internal/daemon"
	"github.com/mirage-net/mirage/internal/directory"
	"github.com/mirage-net/mirage/internal/flags"
	"github.com/mirage-net/mirage/internal/store"
)

// DefaultControllerAddr is the directory API bind address when neither flag nor config sets one.
const DefaultControllerAddr = "0.0.0.0:8080"

// ControllerCmd should be used to represent the 'controller' command.
type ControllerCmd struct {
	*cmd.BaseCmd
	Addr      string
	DataDir   string
	cfgLoader config.Loader
}

// NewControllerCmd creates a newly configured (Cobra) command.
func NewControllerCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ControllerCmd{
		BaseCmd:   baseCmd,
		cfgLoader: opts.ConfigLoader,
	}

	cobraCommand := &cobra.Command{
		Use:   "controller [--addr] [--data-dir]",
		Short: "Runs the peer directory",
		Long: "Runs the peer directory, serving registration, heartbeat and listing over HTTP " +
			"and periodically purging peers that stopped sending heartbeats",
		RunE: c.run,
	}

	cobraCommand.Flags().StringVar(
		&c.Addr,
		"addr",
		"",
		fmt.Sprintf("Address for the directory API to bind (default %s, or controller.addr)", DefaultControllerAddr),
	)

	cobraCommand.Flags().StringVar(
		&c.DataDir,
		"data-dir",
		"",
		"Directory for the peer store, peers are kept in memory when unset (or controller.data_dir)",
	)

	return cobraCommand, nil
}

// run is configured (via NewControllerCmd) to be called by the Cobra framework when the command is executed.
func (c *ControllerCmd) run(cmd *cobra.Command, _ []string) error {
	logger, err := c.Logger()
	if err != nil {
		return err
	}

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return err
	}

	d, closer, err := c.newDaemon(logger, cfg.ControllerSection())
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Warn("Failed to close peer store", "error", err)
		}
	}()

	// Create the signal handling context for the application.
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := d.StartAndManage(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Controller exited with error", "error", err)
		return err
	}

	return nil
}

// newDaemon wires the peer store, directory and daemon from flags and the controller config section.
// The returned closer releases the peer store.
func (c *ControllerCmd) newDaemon(
	logger hclog.Logger,
	sec *config.ControllerConfigSection,
) (*daemon.Daemon, io.Closer, error) {
	addr := DefaultControllerAddr
	if sec.Addr != nil {
		addr = *sec.Addr
	}
	if v := strings.TrimSpace(c.Addr); v != "" {
		addr = v
	}

	var storeOpts []store.Option
	dataDir := strings.TrimSpace(c.DataDir)
	if dataDir == "" && sec.DataDir != nil {
		dataDir = strings.TrimSpace(*sec.DataDir)
	}
	if dataDir != "" {
		storeOpts = append(storeOpts, store.WithDir(dataDir))
	}

	s, err := store.NewBadgerStore(logger, storeOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open peer store: %w", err)
	}

	var dirOpts []directory.Option
	if sec.PeerTimeout != nil {
		dirOpts = append(dirOpts, directory.WithPeerTimeout(time.Duration(*sec.PeerTimeout)))
	}

	dir, err := directory.NewDirectory(logger, s, dirOpts...)
	if err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("failed to create peer directory: %w", err)
	}

	deps, err := daemon.NewDependencies(logger, addr, flags.APIKey, dir)
	if err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("error configuring controller: %w", err)
	}

	d, err := daemon.NewDaemon(deps, controllerOptions(sec)...)
	if err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("failed to create controller instance: %w", err)
	}

	return d, s, nil
}

// controllerOptions maps the settings present in the controller config section to daemon options.
// Anything unset keeps the daemon's defaults.
func controllerOptions(sec *config.ControllerConfigSection) []daemon.Option {
	var opts []daemon.Option
	var apiOpts []daemon.APIOption

	if sec.SweepInterval != nil {
		opts = append(opts, daemon.WithSweepInterval(time.Duration(*sec.SweepInterval)))
	}
	if sec.ShutdownTimeout != nil {
		apiOpts = append(apiOpts, daemon.WithShutdownTimeout(time.Duration(*sec.ShutdownTimeout)))
	}

	if cors := sec.CORS; cors.EnableOrDefault(false) {
		apiOpts = append(apiOpts, daemon.WithCORSEnabled(true))
		if len(cors.Origins) > 0 {
			apiOpts = append(apiOpts, daemon.WithCORSAllowOrigins(cors.Origins))
		}
		if len(cors.Methods) > 0 {
			apiOpts = append(apiOpts, daemon.WithCORSAllowMethods(cors.Methods))
		}
		if len(cors.Headers) > 0 {
			apiOpts = append(apiOpts, daemon.WithCORSAllowHeaders(cors.Headers))
		}
		if len(cors.ExposeHeaders) > 0 {
			apiOpts = append(apiOpts, daemon.WithCORSExposeHeaders(cors.ExposeHeaders))
		}
		if cors.Credentials != nil {
			apiOpts = append(apiOpts, daemon.WithCORSAllowCredentials(*cors.Credentials))
		}
		if cors.MaxAge != nil {
			apiOpts = append(apiOpts, daemon.WithCORSMaxAge(time.Duration(*cors.MaxAge)))
		}
	}

	if len(apiOpts) > 0 {
		opts = append(opts, daemon.WithAPIOptions(apiOpts...))
	}

	return opts
}
