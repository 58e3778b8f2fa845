package config

import (
	"errors"
	"fmt"
	"strings"
)

// ControllerConfigSection contains the settings of 'mirage controller'.
//
// NOTE: if you add/remove fields you must review the associated Validate implementation,
// along with the skeleton written by DefaultLoader.Init.
type ControllerConfigSection struct {
	// Address to bind the directory API (e.g., "0.0.0.0:8080")
	// Maps to CLI flag --addr
	Addr *string `json:"addr,omitempty" toml:"addr,omitempty" yaml:"addr,omitempty"`

	// Directory for the peer store. Empty keeps peers in memory only.
	// Maps to CLI flag --data-dir
	DataDir *string `json:"dataDir,omitempty" toml:"data_dir,omitempty" yaml:"data_dir,omitempty"`

	// How long after its last heartbeat a peer is considered offline.
	PeerTimeout *Duration `json:"peerTimeout,omitempty" toml:"peer_timeout,omitempty" yaml:"peer_timeout,omitempty"`

	// How often dead peers are purged from the store.
	SweepInterval *Duration `json:"sweepInterval,omitempty" toml:"sweep_interval,omitempty" yaml:"sweep_interval,omitempty"`

	// Shutdown timeout for graceful API server shutdown.
	ShutdownTimeout *Duration `json:"shutdownTimeout,omitempty" toml:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`

	// Nested CORS configuration for cross-origin requests.
	CORS *CORSConfigSection `json:"cors,omitempty" toml:"cors,omitempty" yaml:"cors,omitempty"`
}

// CORSConfigSection contains Cross-Origin Resource Sharing (CORS) configuration.
type CORSConfigSection struct {
	// Enable CORS support
	Enable *bool `json:"enable,omitempty" toml:"enable,omitempty" yaml:"enable,omitempty"`

	// Allowed origins for CORS requests
	Origins []string `json:"allowOrigins,omitempty" toml:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`

	// Allowed HTTP methods for CORS requests
	Methods []string `json:"allowMethods,omitempty" toml:"allow_methods,omitempty" yaml:"allow_methods,omitempty"`

	// Allowed headers for CORS requests
	Headers []string `json:"allowHeaders,omitempty" toml:"allow_headers,omitempty" yaml:"allow_headers,omitempty"`

	// Headers exposed to the client
	ExposeHeaders []string `json:"exposeHeaders,omitempty" toml:"expose_headers,omitempty" yaml:"expose_headers,omitempty"`

	// Allow credentials in CORS requests
	Credentials *bool `json:"allowCredentials,omitempty" toml:"allow_credentials,omitempty" yaml:"allow_credentials,omitempty"`

	// Maximum age for CORS preflight cache
	MaxAge *Duration `json:"maxAge,omitempty" toml:"max_age,omitempty" yaml:"max_age,omitempty"`
}

// Validate implements Validator for ControllerConfigSection.
func (c *ControllerConfigSection) Validate() error {
	if c == nil {
		return nil
	}

	var validationErrors []error

	if c.Addr != nil {
		if *c.Addr == "" {
			validationErrors = append(validationErrors, fmt.Errorf("controller address cannot be empty"))
		} else if !isValidAddr(*c.Addr) {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("controller address \"%s\" appears to be invalid (expected format: host:port)", *c.Addr),
			)
		}
	}

	if c.DataDir != nil && strings.TrimSpace(*c.DataDir) == "" {
		validationErrors = append(validationErrors, fmt.Errorf("data directory cannot be blank, omit it for an in-memory store"))
	}

	validationErrors = validatePositive(validationErrors, "peer_timeout", c.PeerTimeout)
	validationErrors = validatePositive(validationErrors, "sweep_interval", c.SweepInterval)
	validationErrors = validatePositive(validationErrors, "shutdown_timeout", c.ShutdownTimeout)

	if c.CORS != nil {
		if err := c.CORS.Validate(); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("CORS configuration error: %w", err))
		}
	}

	return errors.Join(validationErrors...)
}

// EnableOrDefault returns the CORS enable setting, falling back to defaultEnable if not set.
func (c *CORSConfigSection) EnableOrDefault(defaultEnable bool) bool {
	if c == nil || c.Enable == nil {
		return defaultEnable
	}
	return *c.Enable
}

// Validate implements Validator for CORSConfigSection.
func (c *CORSConfigSection) Validate() error {
	var validationErrors []error

	for _, origin := range c.Origins {
		if origin == "*" {
			continue
		}
		if strings.TrimSpace(origin) == "" {
			validationErrors = append(validationErrors, fmt.Errorf("CORS origin cannot be empty"))
		}
	}

	validMethods := ValidHTTPRequestMethods()
	for _, method := range c.Methods {
		if method == "*" {
			continue
		}
		if method == "" {
			validationErrors = append(validationErrors, fmt.Errorf("CORS method cannot be empty"))
			continue
		}
		if _, ok := validMethods[method]; !ok {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("CORS method %s is not a valid HTTP request method", method),
			)
		}
	}

	if c.MaxAge != nil && *c.MaxAge <= 0 {
		validationErrors = append(validationErrors, fmt.Errorf("CORS max age must be positive"))
	}

	return errors.Join(validationErrors...)
}
