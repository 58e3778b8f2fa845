package cmd

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	cmdopts "github.com/mirage-net/mirage/internal/cmd/options"
	"github.com/mirage-net/mirage/internal/config"
	"github.com/mirage-net/mirage/internal/daemon"
)

func TestNewControllerCmd(t *testing.T) {
	t.Parallel()

	c, err := NewControllerCmd(testBaseCmd())
	require.NoError(t, err)
	require.Equal(t, "controller", c.Name())
	require.NotNil(t, c.Flags().Lookup("addr"))
	require.NotNil(t, c.Flags().Lookup("data-dir"))

	_, err = NewControllerCmd(testBaseCmd(), cmdopts.WithConfigLoader(nil))
	require.Error(t, err)
}

func TestControllerCmd_ConfigLoadError(t *testing.T) {
	t.Parallel()

	c, err := NewControllerCmd(testBaseCmd(), cmdopts.WithConfigLoader(&fakeLoader{err: config.ErrConfigLoadFailed}))
	require.NoError(t, err)

	c.SetArgs([]string{})
	require.ErrorIs(t, c.Execute(), config.ErrConfigLoadFailed)
}

func TestControllerCmd_NewDaemon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cmd     ControllerCmd
		sec     *config.ControllerConfigSection
		wantErr string
	}{
		{
			name: "defaults with in-memory store",
			cmd:  ControllerCmd{},
			sec:  &config.ControllerConfigSection{},
		},
		{
			name: "flag overrides config address",
			cmd:  ControllerCmd{Addr: "127.0.0.1:0"},
			sec: &config.ControllerConfigSection{
				Addr:        ptr("not an address"),
				PeerTimeout: ptr(config.Duration(30 * time.Second)),
			},
		},
		{
			name: "persistent store",
			cmd:  ControllerCmd{DataDir: t.TempDir()},
			sec:  &config.ControllerConfigSection{},
		},
		{
			name:    "invalid address",
			cmd:     ControllerCmd{Addr: "nonsense"},
			sec:     &config.ControllerConfigSection{},
			wantErr: "error configuring controller",
		},
		{
			name: "invalid sweep interval",
			cmd:  ControllerCmd{},
			sec: &config.ControllerConfigSection{
				SweepInterval: ptr(config.Duration(-time.Second)),
			},
			wantErr: "sweep interval must be positive",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := tc.cmd
			c.BaseCmd = testBaseCmd()

			d, closer, err := c.newDaemon(hclog.NewNullLogger(), tc.sec)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				require.Nil(t, d)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, d)
			require.NoError(t, closer.Close())
		})
	}
}

func TestControllerOptions(t *testing.T) {
	t.Parallel()

	sec := &config.ControllerConfigSection{
		SweepInterval:   ptr(config.Duration(15 * time.Second)),
		ShutdownTimeout: ptr(config.Duration(3 * time.Second)),
		CORS: &config.CORSConfigSection{
			Enable:        ptr(true),
			Origins:       []string{"https://ui.example.com"},
			Methods:       []string{"GET"},
			Headers:       []string{"X-API-Key"},
			ExposeHeaders: []string{"Mirage-Error-Type"},
			Credentials:   ptr(true),
			MaxAge:        ptr(config.Duration(time.Minute)),
		},
	}

	opts, err := daemon.NewOptions(controllerOptions(sec)...)
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, opts.SweepInterval)

	apiOpts, err := daemon.NewAPIOptions(opts.APIOptions...)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, apiOpts.ShutdownTimeout)
	require.Equal(t, daemon.CORSConfig{
		Enabled:          true,
		AllowCredentials: true,
		AllowedHeaders:   []string{"X-API-Key"},
		AllowMethods:     []string{"GET"},
		AllowOrigins:     []string{"https://ui.example.com"},
		ExposedHeaders:   []string{"Mirage-Error-Type"},
		MaxAge:           time.Minute,
	}, apiOpts.CORS)
}

func TestControllerOptions_Defaults(t *testing.T) {
	t.Parallel()

	opts, err := daemon.NewOptions(controllerOptions(&config.ControllerConfigSection{
		CORS: &config.CORSConfigSection{Origins: []string{"*"}},
	})...)
	require.NoError(t, err)
	require.Equal(t, daemon.DefaultSweepInterval(), opts.SweepInterval)
	require.Empty(t, opts.APIOptions)
}
