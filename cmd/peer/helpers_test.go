package peer

import (
	"context"
	"sync"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/cmd"
	"github.com/mirage-net/mirage/internal/cmd/options"
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

type fakeClient struct {
	mu         sync.Mutex
	registered []domain.PeerRecord
	heartbeats int
	peers      []domain.PeerRecord

	registerErr error
	listErr     error

	// onHeartbeat is called with the 1-based heartbeat count and returns that heartbeat's error.
	onHeartbeat func(n int) error
}

func (f *fakeClient) Register(_ context.Context, record domain.PeerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.registerErr != nil {
		return f.registerErr
	}
	f.registered = append(f.registered, record)
	return nil
}

func (f *fakeClient) Heartbeat(_ context.Context, _ string) error {
	f.mu.Lock()
	f.heartbeats++
	n := f.heartbeats
	fn := f.onHeartbeat
	f.mu.Unlock()

	if fn != nil {
		return fn(n)
	}
	return nil
}

func (f *fakeClient) ListPeers(context.Context) ([]domain.PeerRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.peers, nil
}

func (f *fakeClient) Peer(_ context.Context, peerID string) (domain.PeerRecord, error) {
	return domain.PeerRecord{ID: peerID}, nil
}

func (f *fakeClient) NetworkStatus(context.Context) (domain.NetworkStats, error) {
	return domain.NetworkStats{}, nil
}

func (f *fakeClient) Registered() []domain.PeerRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]domain.PeerRecord(nil), f.registered...)
}

func (f *fakeClient) Heartbeats() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.heartbeats
}

// testOptions returns command options wired to client, recording the controller URL each client is built for.
func testOptions(t *testing.T, client *fakeClient, urls *[]string) []options.CmdOption {
	t.Helper()

	factory := func(_ hclog.Logger, baseURL string, _ string) (contracts.DirectoryClient, error) {
		if urls != nil {
			*urls = append(*urls, baseURL)
		}
		return client, nil
	}

	return []options.CmdOption{
		options.WithConfigLoader(&fakeLoader{}),
		options.WithClientFactory(factory),
	}
}

func testBaseCmd() *cmd.BaseCmd {
	base := &cmd.BaseCmd{}
	base.SetLogger(hclog.NewNullLogger())
	return base
}
