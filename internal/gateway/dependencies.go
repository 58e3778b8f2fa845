package gateway

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/contracts"
)

// Dependencies contains required dependencies for the Gateway.
// NewDependencies should be used to create instances of Dependencies.
type Dependencies struct {
	// Addr is where the proxy listener binds (e.g., "0.0.0.0:8081").
	Addr string

	// Directory lists the online peers the health table is refreshed from.
	Directory contracts.PeerLister

	// Logger for the gateway and its components.
	Logger hclog.Logger
}

// NewDependencies creates and validates Dependencies.
func NewDependencies(logger hclog.Logger, addr string, directory contracts.PeerLister) (Dependencies, error) {
	deps := Dependencies{
		Addr:      addr,
		Directory: directory,
		Logger:    logger,
	}

	if err := deps.Validate(); err != nil {
		return Dependencies{}, err
	}

	return deps, nil
}

// Validate ensures all required dependencies are provided and valid.
func (d Dependencies) Validate() error {
	if d.Logger == nil || reflect.ValueOf(d.Logger).IsNil() {
		return fmt.Errorf("logger cannot be nil")
	}

	if err := validateAddr(d.Addr); err != nil {
		return fmt.Errorf("invalid proxy address '%s': %w", d.Addr, err)
	}

	if d.Directory == nil || reflect.ValueOf(d.Directory).IsNil() {
		return fmt.Errorf("directory cannot be nil")
	}

	return nil
}
