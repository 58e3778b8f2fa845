package peer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mirage-net/mirage/internal/cmd"
	"github.com/mirage-net/mirage/internal/cmd/options"
	"github.com/mirage-net/mirage/internal/domain"
)

type RegisterCmd struct {
	directoryCmd
	ID           string
	IP           string
	Capabilities map[string]string
}

func NewRegisterCmd(baseCmd *cmd.BaseCmd, opt ...options.CmdOption) (*cobra.Command, error) {
	opts, err := options.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &RegisterCmd{
		directoryCmd: newDirectoryCmd(baseCmd, opts),
	}

	cobraCmd := &cobra.Command{
		Use:   "register --ip <address> [--id <peer-id>] [--capability key=value]",
		Short: "Registers a peer with the controller",
		Long: "Registers a peer with the controller, replacing any existing record with the same id. " +
			"A random id is generated when --id is not given",
		RunE: c.run,
	}

	cobraCmd.Flags().StringVar(&c.ID, "id", "", "Unique peer identifier (defaults to a random UUID)")
	cobraCmd.Flags().StringVar(&c.IP, "ip", "", "Network address of the peer's SOCKS5 endpoint")
	cobraCmd.Flags().StringToStringVar(
		&c.Capabilities,
		"capability",
		nil,
		"Capability reported by the peer as key=value (can be repeated)",
	)
	_ = cobraCmd.MarkFlagRequired("ip")

	c.addControllerFlag(cobraCmd.Flags())

	return cobraCmd, nil
}

func (c *RegisterCmd) run(cobraCmd *cobra.Command, _ []string) error {
	ip := strings.TrimSpace(c.IP)
	if ip == "" {
		return fmt.Errorf("peer IP is required")
	}

	id := strings.TrimSpace(c.ID)
	if id == "" {
		id = uuid.NewString()
	}

	logger, client, err := c.client()
	if err != nil {
		return err
	}

	peer := domain.PeerRecord{
		ID:           id,
		Address:      ip,
		Capabilities: parseCapabilities(c.Capabilities),
	}

	if err := client.Register(cobraCmd.Context(), peer); err != nil {
		logger.Error("Peer registration failed", "peer", id, "error", err)
		return fmt.Errorf("error registering peer '%s': %w", id, err)
	}

	_, _ = fmt.Fprintf(cobraCmd.OutOrStdout(), "Registered peer '%s' at %s\n", id, ip)

	return nil
}

// parseCapabilities types each value as an integer, float or boolean where it parses as one, otherwise a string.
func parseCapabilities(raw map[string]string) map[string]any {
	capabilities := make(map[string]any, len(raw))

	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		capabilities[key] = parseCapability(strings.TrimSpace(v))
	}

	return capabilities
}

func parseCapability(v string) any {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}

	switch v {
	case "true":
		return true
	case "false":
		return false
	default:
		return v
	}
}
