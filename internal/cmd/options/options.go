package options

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/client"
	"github.com/mirage-net/mirage/internal/config"
	"github.com/mirage-net/mirage/internal/contracts"
)

// ClientFactory builds a directory API client for the controller at baseURL.
type ClientFactory func(logger hclog.Logger, baseURL string, apiKey string) (contracts.DirectoryClient, error)

type CmdOption func(*CmdOptions) error

type CmdOptions struct {
	ClientFactory     ClientFactory
	ConfigLoader      config.Loader
	ConfigInitializer config.Initializer
}

func defaultOptions() CmdOptions {
	configLoader := &config.DefaultLoader{}
	return CmdOptions{
		ClientFactory:     DefaultClientFactory,
		ConfigLoader:      configLoader,
		ConfigInitializer: configLoader,
	}
}

func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

func WithClientFactory(f ClientFactory) CmdOption {
	return func(o *CmdOptions) error {
		if f == nil {
			return fmt.Errorf("client factory cannot be nil")
		}
		o.ClientFactory = f
		return nil
	}
}

func WithConfigLoader(l config.Loader) CmdOption {
	return func(o *CmdOptions) error {
		if l == nil {
			return fmt.Errorf("config loader cannot be nil")
		}
		o.ConfigLoader = l
		return nil
	}
}

func WithConfigInitializer(i config.Initializer) CmdOption {
	return func(o *CmdOptions) error {
		if i == nil {
			return fmt.Errorf("config initializer cannot be nil")
		}
		o.ConfigInitializer = i
		return nil
	}
}

// DefaultClientFactory builds the HTTP directory client.
func DefaultClientFactory(logger hclog.Logger, baseURL string, apiKey string) (contracts.DirectoryClient, error) {
	return client.NewClient(logger, baseURL, apiKey)
}
