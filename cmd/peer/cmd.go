package peer

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mirage-net/mirage/internal/cmd"
	"github.com/mirage-net/mirage/internal/cmd/options"
	"github.com/mirage-net/mirage/internal/config"
	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/flags"
)

// NewCmd creates the parent peer command.
func NewCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	cobraCmd := &cobra.Command{
		Use:   "peer",
		Short: "Register and maintain peers in the directory",
		Long: "Register a peer with the controller, keep it alive with heartbeats " +
			"and list the peers the controller considers online",
	}

	// Sub-commands for: mirage peer.
	fns := []func(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error){
		NewHeartbeatCmd, // heartbeat
		NewListCmd,      // list
		NewRegisterCmd,  // register
	}

	for _, fn := range fns {
		tempCmd, err := fn(baseCmd, opt...)
		if err != nil {
			return nil, err
		}
		cobraCmd.AddCommand(tempCmd)
	}

	return cobraCmd, nil
}

// directoryCmd holds what every peer sub-command needs to reach the controller.
type directoryCmd struct {
	*cmd.BaseCmd
	ControllerURL string
	cfgLoader     config.Loader
	clientFactory options.ClientFactory
}

func newDirectoryCmd(baseCmd *cmd.BaseCmd, opts options.CmdOptions) directoryCmd {
	return directoryCmd{
		BaseCmd:       baseCmd,
		cfgLoader:     opts.ConfigLoader,
		clientFactory: opts.ClientFactory,
	}
}

func (c *directoryCmd) addControllerFlag(fs *pflag.FlagSet) {
	fs.StringVar(
		&c.ControllerURL,
		cmd.FlagNameControllerURL,
		"",
		fmt.Sprintf("Base URL of the controller (default %s, or gateway.controller_url)", cmd.DefaultControllerURL),
	)
}

// client returns the command logger and a directory client for the resolved controller URL.
func (c *directoryCmd) client() (hclog.Logger, contracts.DirectoryClient, error) {
	logger, err := c.Logger()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	client, err := c.clientFactory(logger, cmd.ResolveControllerURL(c.ControllerURL, cfg), flags.APIKey)
	if err != nil {
		return nil, nil, err
	}

	return logger, client, nil
}
