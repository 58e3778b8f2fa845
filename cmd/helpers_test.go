package cmd

import (
	"context"

	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/cmd"
	"github.com/mirage-net/mirage/internal/config"
	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/domain"
)

type fakeLoader struct {
	cfg *config.Config
	err error
}

func (f *fakeLoader) Load(string) (*config.Config, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.cfg == nil {
		return &config.Config{}, nil
	}
	return f.cfg, nil
}

type fakeInitializer struct {
	path string
	err  error
}

func (f *fakeInitializer) Init(path string) error {
	f.path = path
	return f.err
}

type fakeClient struct {
	contracts.DirectoryClient

	stats domain.NetworkStats
	err   error
}

func (f *fakeClient) ListPeers(context.Context) ([]domain.PeerRecord, error) {
	return nil, f.err
}

func (f *fakeClient) NetworkStatus(context.Context) (domain.NetworkStats, error) {
	return f.stats, f.err
}

func testBaseCmd() *cmd.BaseCmd {
	base := &cmd.BaseCmd{}
	base.SetLogger(hclog.NewNullLogger())
	return base
}

func ptr[T any](v T) *T {
	return &v
}
