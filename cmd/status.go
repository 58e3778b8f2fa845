package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirage-net/mirage/internal/cmd"
	cmdopts "github.com/mirage-net/mirage/internal/cmd/options"
	"github.com/mirage-net/mirage/internal/cmd/output"
	"github.com/mirage-net/mirage/internal/config"
	"github.com/mirage-net/mirage/internal/flags"
	"github.com/mirage-net/mirage/internal/printer"
)

// StatusCmd should be used to represent the 'status' command.
type StatusCmd struct {
	*cmd.BaseCmd
	ControllerURL string
	Format        cmd.OutputFormat
	cfgLoader     config.Loader
	clientFactory cmdopts.ClientFactory
	printer       output.Printer[printer.NetworkStatusResult]
}

// NewStatusCmd creates a newly configured (Cobra) command.
func NewStatusCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &StatusCmd{
		BaseCmd:       baseCmd,
		Format:        cmd.FormatText,
		cfgLoader:     opts.ConfigLoader,
		clientFactory: opts.ClientFactory,
		printer:       &printer.NetworkStatusPrinter{},
	}

	cobraCommand := &cobra.Command{
		Use:   "status",
		Short: "Shows the peers currently online in the directory",
		Long:  "Shows a summary of the peers the controller currently considers online",
		RunE:  c.run,
	}

	cobraCommand.Flags().StringVar(
		&c.ControllerURL,
		cmd.FlagNameControllerURL,
		"",
		fmt.Sprintf("Base URL of the controller (default %s, or gateway.controller_url)", cmd.DefaultControllerURL),
	)

	allowed := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCommand, nil
}

func (c *StatusCmd) run(cobraCmd *cobra.Command, _ []string) error {
	handler, err := cmd.NewOutputHandler(c.Format, cobraCmd.OutOrStdout(), c.printer)
	if err != nil {
		return err
	}

	logger, err := c.Logger()
	if err != nil {
		return handler.HandleError(err)
	}

	cfg, err := c.cfgLoader.Load(flags.ConfigFile)
	if err != nil {
		return handler.HandleError(err)
	}

	client, err := c.clientFactory(logger, cmd.ResolveControllerURL(c.ControllerURL, cfg), flags.APIKey)
	if err != nil {
		return handler.HandleError(err)
	}

	stats, err := client.NetworkStatus(cobraCmd.Context())
	if err != nil {
		return handler.HandleError(err)
	}

	return handler.HandleResult(printer.NewNetworkStatusResult(stats))
}
