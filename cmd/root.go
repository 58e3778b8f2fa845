package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mirage-net/mirage/cmd/peer"
	"github.com/mirage-net/mirage/internal/cmd"
	cmdopts "github.com/mirage-net/mirage/internal/cmd/options"
	"github.com/mirage-net/mirage/internal/flags"
)

// Execute builds the root command and runs it, exiting non-zero on failure.
func Execute() {
	rootCmd, err := NewRootCmd(&cmd.BaseCmd{})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates the 'mirage' command with every subcommand attached.
func NewRootCmd(c *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	rootCmd := &cobra.Command{
		Use:          cmd.AppName() + " <command> [args]",
		Short:        "Peer directory and load-aware forwarding gateway for the mirage network",
		Long:         longDescription(),
		SilenceUsage: true,
		Version:      cmd.Version(),
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	fns := []func(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error){
		NewInitCmd,
		NewControllerCmd,
		NewGatewayCmd,
		NewStatusCmd,
		peer.NewCmd,
	}

	for _, fn := range fns {
		tempCmd, err := fn(c, opt...)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(tempCmd)
	}

	return rootCmd, nil
}

func longDescription() string {
	return `The 'mirage' CLI runs the components of a mirage network.

The controller keeps the directory of peers and their heartbeats, the gateway forwards
HTTP traffic through the healthiest online peer's SOCKS5 endpoint, and the peer commands
let a node announce itself to the controller.`
}
