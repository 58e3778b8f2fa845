//go:build docsgen_api
// +build docsgen_api

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/api"
	"github.com/mirage-net/mirage/internal/domain"
)

// stubDirectory provides a stub implementation for documentation generation.
type stubDirectory struct{}

func (s *stubDirectory) Register(domain.PeerRecord) error         { return nil }
func (s *stubDirectory) Heartbeat(string) error                   { return nil }
func (s *stubDirectory) Get(string) (domain.PeerRecord, error)    { return domain.PeerRecord{}, nil }
func (s *stubDirectory) ListOnline() ([]domain.PeerRecord, error) { return nil, nil }
func (s *stubDirectory) Stats() (domain.NetworkStats, error)      { return domain.NetworkStats{}, nil }

// stubMonitor provides a stub implementation for documentation generation.
type stubMonitor struct{}

func (s *stubMonitor) Get(string) (domain.PeerHealth, error) { return domain.PeerHealth{}, nil }
func (s *stubMonitor) List() []domain.PeerHealth             { return nil }
func (s *stubMonitor) RecordOutcome(string, float64, bool)   {}

// main generates the OpenAPI specifications for the controller's directory API and the gateway's admin API.
// It assumes it is run from the repository root.
func main() {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "mirage.docsgen.api",
		Level:  hclog.Info,
		Output: os.Stderr,
	})

	specs := []struct {
		title    string
		path     string
		register func(huma.API) (string, error)
	}{
		{
			title: "mirage controller",
			path:  "./docs/api/controller.yaml",
			register: func(router huma.API) (string, error) {
				return api.RegisterDirectoryRoutes(router, &stubDirectory{}, "docs")
			},
		},
		{
			title: "mirage gateway",
			path:  "./docs/api/gateway.yaml",
			register: func(router huma.API) (string, error) {
				return api.RegisterGatewayRoutes(router, &stubMonitor{})
			},
		},
	}

	for _, s := range specs {
		if err := writeSpec(logger, s.title, s.path, s.register); err != nil {
			logger.Error("failed to generate OpenAPI spec", "title", s.title, "error", err)
			os.Exit(1)
		}
	}
}

func writeSpec(logger hclog.Logger, title string, outputPath string, register func(huma.API) (string, error)) error {
	// Create a chi router and Huma config (same as the API server).
	mux := chi.NewMux()
	mux.Use(middleware.StripSlashes)
	router := humachi.New(mux, huma.DefaultConfig(title, api.APIVersion))

	// The OpenAPI spec generation only needs the route definitions, not the actual handlers.
	apiPathPrefix, err := register(router)
	if err != nil {
		return fmt.Errorf("failed to register API routes: %w", err)
	}

	logger.Info("Routes registered", "title", title, "prefix", apiPathPrefix)

	yamlBytes, err := router.OpenAPI().YAML()
	if err != nil {
		return fmt.Errorf("failed to generate OpenAPI YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create docs directory: %w", err)
	}

	if err := os.WriteFile(outputPath, yamlBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write OpenAPI spec (%s): %w", outputPath, err)
	}

	logger.Info("OpenAPI spec generated", "path", outputPath, "size", fmt.Sprintf("%d bytes", len(yamlBytes)))

	return nil
}
