package peer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mirage-net/mirage/internal/cmd/options"
)

func TestNewCmd(t *testing.T) {
	t.Parallel()

	c, err := NewCmd(testBaseCmd())
	require.NoError(t, err)
	require.Equal(t, "peer", c.Use)

	var names []string
	for _, sub := range c.Commands() {
		names = append(names, sub.Name())
	}
	require.Equal(t, []string{"heartbeat", "list", "register"}, names)
}

func TestNewCmd_InvalidOption(t *testing.T) {
	t.Parallel()

	_, err := NewCmd(testBaseCmd(), options.WithClientFactory(nil))
	require.EqualError(t, err, "client factory cannot be nil")
}
