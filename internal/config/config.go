package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mirage-net/mirage/internal/perms"
)

var _ Provider = (*DefaultLoader)(nil)

type Loader interface {
	Load(path string) (*Config, error)
}

type Initializer interface {
	Init(path string) error
}

type Provider interface {
	Initializer
	Loader
}

type DefaultLoader struct{}

// Config represents the .mirage.toml file structure.
// Unset values fall back to the defaults of the component they configure.
type Config struct {
	Controller *ControllerConfigSection `json:"controller,omitempty" toml:"controller,omitempty" yaml:"controller,omitempty"`
	Gateway    *GatewayConfigSection    `json:"gateway,omitempty"    toml:"gateway,omitempty"    yaml:"gateway,omitempty"`

	configFilePath string `toml:"-"`
}

// skeleton is written by Init, documenting the available settings with their defaults.
const skeleton = `# mirage configuration.
# The shared API key is never stored here, set MIRAGE_API_KEY instead.

[controller]
addr = "0.0.0.0:8080"
# data_dir = "/var/lib/mirage"
peer_timeout = "60s"
sweep_interval = "30s"
shutdown_timeout = "5s"

[gateway]
addr = "0.0.0.0:8081"
# admin_addr = "127.0.0.1:9090"
controller_url = "http://127.0.0.1:8080"
refresh_interval = "30s"
retry_attempts = 5
retry_base_delay = "2s"
cooldown = "10s"
fetch_timeout = "10s"
staleness = "5m"
max_connections = 50
request_timeout = "30s"
socks_port = 1080
max_response_bytes = 33554432
# rate_limit = 100.0
# rate_burst = 200
shutdown_timeout = "30s"
`

// Init creates the skeleton configuration file for a mirage deployment.
func (d *DefaultLoader) Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := os.WriteFile(path, []byte(skeleton), perms.RegularFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Load reads and validates the config file at path.
// A missing file is not an error: an empty Config is returned and every component keeps its defaults.
func (d *DefaultLoader) Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrConfigLoadFailed)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &Config{configFilePath: path}, nil
		}
		return nil, fmt.Errorf("%w: failed to stat config file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config from file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: failed to validate existing config (%s): %w", ErrConfigLoadFailed, path, err)
	}

	// Update the path that loaded this file to track it.
	cfg.configFilePath = path

	return &cfg, nil
}

// Path returns the file this configuration was loaded from.
func (c *Config) Path() string {
	return c.configFilePath
}

// ControllerSection returns the controller settings, never nil.
func (c *Config) ControllerSection() *ControllerConfigSection {
	if c.Controller == nil {
		return &ControllerConfigSection{}
	}
	return c.Controller
}

// GatewaySection returns the gateway settings, never nil.
func (c *Config) GatewaySection() *GatewayConfigSection {
	if c.Gateway == nil {
		return &GatewayConfigSection{}
	}
	return c.Gateway
}

// validate orchestrates validation of configuration structure.
func (c *Config) validate() error {
	if err := c.Controller.Validate(); err != nil {
		return fmt.Errorf("controller configuration error: %w", err)
	}

	if err := c.Gateway.Validate(); err != nil {
		return fmt.Errorf("gateway configuration error: %w", err)
	}

	return nil
}
