package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/flags"
	"github.com/mirage-net/mirage/internal/perms"
)

// BaseCmd holds what every mirage command shares.
type BaseCmd struct {
	logger hclog.Logger

	// LogOutput is where logs go when no log path is configured. Defaults to stderr.
	LogOutput io.Writer
}

// SetLogger updates the command's logger
func (c *BaseCmd) SetLogger(logger hclog.Logger) {
	c.logger = logger
}

// Logger returns the logger for the command, building it from flags on first use.
func (c *BaseCmd) Logger() (hclog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}

	logLevel := strings.ToLower(strings.TrimSpace(flags.LogLevel))
	if logLevel == "" {
		logLevel = flags.DefaultLogLevel
	}
	level := hclog.LevelFromString(logLevel)
	if level == hclog.NoLevel {
		return nil, fmt.Errorf("invalid log level: %s", logLevel)
	}

	var output io.Writer = os.Stderr
	if c.LogOutput != nil {
		output = c.LogOutput
	}

	if logPath := strings.TrimSpace(flags.LogPath); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, perms.RegularFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file (%s): %w", logPath, err)
		}
		output = f
	}

	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   AppName(),
		Level:  level,
		Output: output,
	})

	return c.logger, nil
}
