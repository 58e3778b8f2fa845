package daemon

import (
	"fmt"
	"reflect"

	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"
)

// RouteRegistrar registers a component's operations on the router and returns the path prefix they live under.
type RouteRegistrar func(router huma.API) (string, error)

// APIDependencies contains the required external dependencies for the API server.
// NewAPIDependencies should be used to create instances of APIDependencies.
type APIDependencies struct {
	// Addr specifies the network address to bind (e.g., "0.0.0.0:8080").
	Addr string

	// Logger for API server operations.
	Logger hclog.Logger

	// Routes registers the operations served by the API.
	Routes RouteRegistrar
}

// NewAPIDependencies creates and validates APIDependencies.
func NewAPIDependencies(logger hclog.Logger, routes RouteRegistrar, addr string) (APIDependencies, error) {
	deps := APIDependencies{
		Addr:   addr,
		Logger: logger,
		Routes: routes,
	}

	if err := deps.Validate(); err != nil {
		return APIDependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d APIDependencies) Validate() error {
	if err := validateAddr(d.Addr); err != nil {
		return fmt.Errorf("invalid API address '%s': %w", d.Addr, err)
	}
	if d.Routes == nil {
		return fmt.Errorf("routes cannot be nil")
	}
	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		return fmt.Errorf("logger cannot be nil")
	}
	return nil
}
