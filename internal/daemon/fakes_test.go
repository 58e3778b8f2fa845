package daemon

import (
	"sync"
	"sync/atomic"

	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
)

type fakeRegistry struct {
	mu       sync.Mutex
	sweeps   atomic.Int32
	sweepErr error
	peers    []domain.PeerRecord
}

func (f *fakeRegistry) Register(domain.PeerRecord) error { return nil }

func (f *fakeRegistry) Heartbeat(string) error { return nil }

func (f *fakeRegistry) Get(peerID string) (domain.PeerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.peers {
		if p.ID == peerID {
			return p, nil
		}
	}
	return domain.PeerRecord{}, errors.ErrPeerNotFound
}

func (f *fakeRegistry) ListOnline() ([]domain.PeerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]domain.PeerRecord(nil), f.peers...), nil
}

func (f *fakeRegistry) Stats() (domain.NetworkStats, error) {
	return domain.NetworkStats{}, nil
}

func (f *fakeRegistry) SweepDead() (int, error) {
	f.sweeps.Add(1)
	if f.sweepErr != nil {
		return 0, f.sweepErr
	}
	return 1, nil
}
