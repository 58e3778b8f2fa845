package peer

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirage-net/mirage/internal/cmd"
	"github.com/mirage-net/mirage/internal/cmd/options"
	"github.com/mirage-net/mirage/internal/cmd/output"
	"github.com/mirage-net/mirage/internal/printer"
)

type ListCmd struct {
	directoryCmd
	Format  cmd.OutputFormat
	printer output.Printer[printer.PeerResult]
}

func NewListCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &ListCmd{
		directoryCmd: newDirectoryCmd(baseCmd, opts),
		Format:       cmd.FormatText, // Default to plain text
		printer:      printer.NewPeerListPrinter(),
	}

	cobraCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists the peers currently online",
		Long:  "Lists the peers the controller currently considers online, ordered by id",
		RunE:  c.run,
	}

	c.addControllerFlag(cobraCmd.Flags())

	allowed := cmd.AllowedOutputFormats()
	cobraCmd.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (one of: %s)", allowed.String()),
	)

	return cobraCmd, nil
}

func (c *ListCmd) run(cobraCmd *cobra.Command, _ []string) error {
	handler, err := cmd.NewOutputHandler(c.Format, cobraCmd.OutOrStdout(), c.printer)
	if err != nil {
		return err
	}

	_, client, err := c.client()
	if err != nil {
		return handler.HandleError(err)
	}

	peers, err := client.ListPeers(cobraCmd.Context())
	if err != nil {
		return handler.HandleError(err)
	}

	return handler.HandleResults(printer.NewPeerResults(peers)...)
}
