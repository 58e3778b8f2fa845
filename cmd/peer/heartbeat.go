package peer

import (
	stdErrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirage-net/mirage/internal/cmd"
	"github.com/mirage-net/mirage/internal/cmd/options"
	"github.com/mirage-net/mirage/internal/errors"
)

type HeartbeatCmd struct {
	directoryCmd
	ID       string
	Interval time.Duration
}

func NewHeartbeatCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &HeartbeatCmd{
		directoryCmd: newDirectoryCmd(baseCmd, opts),
	}

	cobraCmd := &cobra.Command{
		Use:   "heartbeat --id <peer-id> [--interval <duration>]",
		Short: "Renews a registered peer's liveness",
		Long: "Sends a heartbeat for a registered peer. With --interval, heartbeats keep being sent " +
			"until the command is interrupted (Ctrl+C)",
		RunE: c.run,
	}

	cobraCmd.Flags().StringVar(&c.ID, "id", "", "Unique peer identifier")
	cobraCmd.Flags().DurationVar(
		&c.Interval,
		"interval",
		0,
		"Keep sending heartbeats at this interval until interrupted (e.g. 20s)",
	)
	_ = cobraCmd.MarkFlagRequired("id")

	c.addControllerFlag(cobraCmd.Flags())

	return cobraCmd, nil
}

func (c *HeartbeatCmd) run(cobraCmd *cobra.Command, _ []string) error {
	id := strings.TrimSpace(c.ID)
	if id == "" {
		return fmt.Errorf("peer id is required")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval cannot be negative, got %v", c.Interval)
	}

	logger, client, err := c.client()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cobraCmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := client.Heartbeat(ctx, id); err != nil {
		return fmt.Errorf("error sending heartbeat for peer '%s': %w", id, err)
	}
	_, _ = fmt.Fprintf(cobraCmd.OutOrStdout(), "Heartbeat sent for peer '%s'\n", id)

	if c.Interval == 0 {
		return nil
	}

	ticker := time.NewTicker(c.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping heartbeats", "peer", id)
			return nil
		case <-ticker.C:
			err := client.Heartbeat(ctx, id)
			switch {
			case err == nil:
				logger.Debug("Heartbeat sent", "peer", id)
			case ctx.Err() != nil:
				return nil
			case stdErrors.Is(err, errors.ErrPeerNotFound):
				// The record expired, it has to be registered again.
				return fmt.Errorf("error sending heartbeat for peer '%s': %w", id, err)
			default:
				logger.Warn("Heartbeat failed, will retry", "peer", id, "error", err)
			}
		}
	}
}
