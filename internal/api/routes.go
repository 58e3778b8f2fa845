package api

import (
	"fmt"
	"net/url"
	"reflect"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirage-net/mirage/internal/contracts"
)

// APIVersion is the version used in the OpenAPI spec and URL paths.
const APIVersion = "v1"

// RegisterDirectoryRoutes registers the directory routes on the provided Huma router.
// Every route requires the X-API-Key header to match apiKey.
// Returns the API path prefix (e.g., "/api/v1") under which the routes are created.
func RegisterDirectoryRoutes(router huma.API, directory contracts.PeerDirectory, apiKey string) (string, error) {
	if router == nil || reflect.ValueOf(router).IsNil() {
		return "", fmt.Errorf("router cannot be nil")
	}
	if directory == nil || reflect.ValueOf(directory).IsNil() {
		return "", fmt.Errorf("directory cannot be nil")
	}

	apiPathPrefix, err := PathPrefix()
	if err != nil {
		return "", err
	}

	versionedGroup := huma.NewGroup(router, apiPathPrefix)
	versionedGroup.UseMiddleware(NewAPIKeyMiddleware(router, apiKey))
	RegisterPeerRoutes(versionedGroup, directory, "/peer")
	RegisterNetworkRoutes(versionedGroup, directory, "/network")

	return apiPathPrefix, nil
}

// RegisterGatewayRoutes registers the gateway's read-only admin routes on the provided Huma router.
// Returns the API path prefix (e.g., "/api/v1") under which the routes are created.
func RegisterGatewayRoutes(router huma.API, monitor contracts.PeerHealthMonitor) (string, error) {
	if router == nil || reflect.ValueOf(router).IsNil() {
		return "", fmt.Errorf("router cannot be nil")
	}
	if monitor == nil || reflect.ValueOf(monitor).IsNil() {
		return "", fmt.Errorf("health monitor cannot be nil")
	}

	apiPathPrefix, err := PathPrefix()
	if err != nil {
		return "", err
	}

	versionedGroup := huma.NewGroup(router, apiPathPrefix)
	RegisterHealthRoutes(versionedGroup, monitor, "/health")

	return apiPathPrefix, nil
}

// PathPrefix returns the root of every versioned route, "/api/v1".
func PathPrefix() (string, error) {
	// Safe way to ensure /api/{version}.
	p, err := url.JoinPath("/api", APIVersion)
	if err != nil {
		return "", fmt.Errorf("failed to construct API path prefix: %w", err)
	}
	return p, nil
}
