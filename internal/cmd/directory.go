package cmd

import (
	"strings"

	"github.com/mirage-net/mirage/internal/config"
)

const (
	// FlagNameControllerURL is the flag naming the controller's directory API.
	FlagNameControllerURL = "controller-url"

	// DefaultControllerURL is used when neither the flag nor the config file names a controller.
	DefaultControllerURL = "http://127.0.0.1:8080"
)

// ResolveControllerURL picks the directory API base URL.
// A non-blank flag value wins over gateway.controller_url from the config file, which wins over the default.
func ResolveControllerURL(flagValue string, cfg *config.Config) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}

	if cfg != nil {
		if sec := cfg.GatewaySection(); sec.ControllerURL != nil && strings.TrimSpace(*sec.ControllerURL) != "" {
			return strings.TrimSpace(*sec.ControllerURL)
		}
	}

	return DefaultControllerURL
}
