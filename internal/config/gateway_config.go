package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// GatewayConfigSection contains the settings of 'mirage gateway'.
//
// NOTE: if you add/remove fields you must review the associated Validate implementation,
// along with the skeleton written by DefaultLoader.Init.
type GatewayConfigSection struct {
	// Address the proxy listener binds (e.g., "0.0.0.0:8081")
	// Maps to CLI flag --addr
	Addr *string `json:"addr,omitempty" toml:"addr,omitempty" yaml:"addr,omitempty"`

	// Address of the admin API serving the health view and metrics. Unset disables it.
	// Maps to CLI flag --admin-addr
	AdminAddr *string `json:"adminAddr,omitempty" toml:"admin_addr,omitempty" yaml:"admin_addr,omitempty"`

	// Base URL of the controller's directory API (e.g., "http://controller:8080").
	// Maps to CLI flag --controller-url
	ControllerURL *string `json:"controllerUrl,omitempty" toml:"controller_url,omitempty" yaml:"controller_url,omitempty"`

	RefreshInterval *Duration `json:"refreshInterval,omitempty" toml:"refresh_interval,omitempty" yaml:"refresh_interval,omitempty"`
	RetryAttempts   *int      `json:"retryAttempts,omitempty"   toml:"retry_attempts,omitempty"   yaml:"retry_attempts,omitempty"`
	RetryBaseDelay  *Duration `json:"retryBaseDelay,omitempty"  toml:"retry_base_delay,omitempty" yaml:"retry_base_delay,omitempty"`
	Cooldown        *Duration `json:"cooldown,omitempty"        toml:"cooldown,omitempty"         yaml:"cooldown,omitempty"`
	FetchTimeout    *Duration `json:"fetchTimeout,omitempty"    toml:"fetch_timeout,omitempty"    yaml:"fetch_timeout,omitempty"`

	// Peers missing from the directory for longer than this are dropped from the health table.
	Staleness *Duration `json:"staleness,omitempty" toml:"staleness,omitempty" yaml:"staleness,omitempty"`

	// Capacity ceiling assumed for every peer.
	MaxConnections *int `json:"maxConnections,omitempty" toml:"max_connections,omitempty" yaml:"max_connections,omitempty"`

	RequestTimeout *Duration `json:"requestTimeout,omitempty" toml:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	SOCKSPort      *int      `json:"socksPort,omitempty"      toml:"socks_port,omitempty"      yaml:"socks_port,omitempty"`

	// Largest upstream response body relayed, in bytes.
	MaxResponseBytes *int64 `json:"maxResponseBytes,omitempty" toml:"max_response_bytes,omitempty" yaml:"max_response_bytes,omitempty"`

	// Requests per second accepted by the proxy listener. Zero or unset disables rate limiting.
	RateLimit *float64 `json:"rateLimit,omitempty" toml:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	RateBurst *int     `json:"rateBurst,omitempty" toml:"rate_burst,omitempty" yaml:"rate_burst,omitempty"`

	ShutdownTimeout *Duration `json:"shutdownTimeout,omitempty" toml:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

// Validate implements Validator for GatewayConfigSection.
func (g *GatewayConfigSection) Validate() error {
	if g == nil {
		return nil
	}

	var validationErrors []error

	addrs := []struct {
		name  string
		value *string
	}{
		{"addr", g.Addr},
		{"admin_addr", g.AdminAddr},
	}
	for _, a := range addrs {
		if a.value != nil && !isValidAddr(*a.value) {
			validationErrors = append(
				validationErrors,
				fmt.Errorf("gateway %s \"%s\" appears to be invalid (expected format: host:port)", a.name, *a.value),
			)
		}
	}

	if g.ControllerURL != nil {
		u, err := url.Parse(*g.ControllerURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			validationErrors = append(validationErrors, NewErrInvalidValue("controller_url", *g.ControllerURL))
		}
	}

	validationErrors = validatePositive(validationErrors, "refresh_interval", g.RefreshInterval)
	validationErrors = validatePositive(validationErrors, "retry_base_delay", g.RetryBaseDelay)
	validationErrors = validatePositive(validationErrors, "cooldown", g.Cooldown)
	validationErrors = validatePositive(validationErrors, "fetch_timeout", g.FetchTimeout)
	validationErrors = validatePositive(validationErrors, "staleness", g.Staleness)
	validationErrors = validatePositive(validationErrors, "request_timeout", g.RequestTimeout)
	validationErrors = validatePositive(validationErrors, "shutdown_timeout", g.ShutdownTimeout)

	if g.RetryAttempts != nil && *g.RetryAttempts <= 0 {
		validationErrors = append(validationErrors, NewErrInvalidValue("retry_attempts", strconv.Itoa(*g.RetryAttempts)))
	}
	if g.MaxConnections != nil && *g.MaxConnections <= 0 {
		validationErrors = append(validationErrors, NewErrInvalidValue("max_connections", strconv.Itoa(*g.MaxConnections)))
	}
	if g.MaxResponseBytes != nil && *g.MaxResponseBytes <= 0 {
		validationErrors = append(
			validationErrors,
			NewErrInvalidValue("max_response_bytes", strconv.FormatInt(*g.MaxResponseBytes, 10)),
		)
	}
	if g.SOCKSPort != nil && (*g.SOCKSPort <= 0 || *g.SOCKSPort > 65535) {
		validationErrors = append(validationErrors, NewErrInvalidValue("socks_port", strconv.Itoa(*g.SOCKSPort)))
	}
	if g.RateLimit != nil && *g.RateLimit < 0 {
		validationErrors = append(
			validationErrors,
			NewErrInvalidValue("rate_limit", strconv.FormatFloat(*g.RateLimit, 'f', -1, 64)),
		)
	}
	if g.RateLimit != nil && *g.RateLimit > 0 && (g.RateBurst == nil || *g.RateBurst <= 0) {
		validationErrors = append(validationErrors, fmt.Errorf("rate_burst must be positive when rate_limit is set"))
	}

	return errors.Join(validationErrors...)
}
