package daemon

import (
	"fmt"
	"reflect"

	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/contracts"
)

// Dependencies contains required dependencies for the Daemon.
// NewDependencies should be used to create instances of Dependencies.
type Dependencies struct {
	// APIAddr specifies the network address for the APIServer to bind (e.g., "0.0.0.0:8080").
	APIAddr string

	// APIKey is the shared secret every API request must present.
	APIKey string

	// Directory is the peer registry served by the API and swept by the daemon.
	Directory contracts.PeerRegistry

	// Logger for daemon and subcomponent (API server) operations.
	Logger hclog.Logger
}

// NewDependencies creates and validates Dependencies.
func NewDependencies(
	logger hclog.Logger,
	apiAddr string,
	apiKey string,
	directory contracts.PeerRegistry,
) (Dependencies, error) {
	deps := Dependencies{
		APIAddr:   apiAddr,
		APIKey:    apiKey,
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

	if err := validateAddr(d.APIAddr); err != nil {
		return fmt.Errorf("invalid API address '%s': %w", d.APIAddr, err)
	}

	if d.Directory == nil || reflect.ValueOf(d.Directory).IsNil() {
		return fmt.Errorf("directory cannot be nil")
	}

	return nil
}
