package api

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeDirectory struct {
	mu      sync.Mutex
	peers   map[string]domain.PeerRecord
	failErr error
}

func newFakeDirectory(peers ...domain.PeerRecord) *fakeDirectory {
	d := &fakeDirectory{peers: map[string]domain.PeerRecord{}}
	for _, p := range peers {
		d.peers[p.ID] = p
	}
	return d
}

func (f *fakeDirectory) Register(record domain.PeerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failErr != nil {
		return f.failErr
	}
	if record.ID == "" || record.Address == "" {
		return fmt.Errorf("%w: peer id and address are required", errors.ErrBadRequest)
	}
	record.LastSeen = testNow
	record.Status = domain.PeerStatusOnline
	f.peers[record.ID] = record
	return nil
}

func (f *fakeDirectory) Heartbeat(peerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failErr != nil {
		return f.failErr
	}
	if peerID == "" {
		return fmt.Errorf("%w: peer id is required", errors.ErrBadRequest)
	}
	p, ok := f.peers[peerID]
	if !ok {
		return fmt.Errorf("%w: %s", errors.ErrPeerNotFound, peerID)
	}
	p.LastSeen = testNow
	p.Status = domain.PeerStatusOnline
	f.peers[peerID] = p
	return nil
}

func (f *fakeDirectory) Get(peerID string) (domain.PeerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failErr != nil {
		return domain.PeerRecord{}, f.failErr
	}
	p, ok := f.peers[peerID]
	if !ok {
		return domain.PeerRecord{}, fmt.Errorf("%w: %s", errors.ErrPeerNotFound, peerID)
	}
	return p, nil
}

func (f *fakeDirectory) ListOnline() ([]domain.PeerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failErr != nil {
		return nil, f.failErr
	}
	out := make([]domain.PeerRecord, 0, len(f.peers))
	for _, p := range f.peers {
		if p.Status == domain.PeerStatusOnline {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDirectory) Stats() (domain.NetworkStats, error) {
	peers, err := f.ListOnline()
	if err != nil {
		return domain.NetworkStats{}, err
	}
	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ID)
	}
	return domain.NetworkStats{TotalPeers: len(ids), PeerIDs: ids, Timestamp: testNow}, nil
}

type fakeMonitor struct {
	healths []domain.PeerHealth
}

func (f *fakeMonitor) Get(peerID string) (domain.PeerHealth, error) {
	for _, h := range f.healths {
		if h.PeerID == peerID {
			return h, nil
		}
	}
	return domain.PeerHealth{}, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, peerID)
}

func (f *fakeMonitor) List() []domain.PeerHealth {
	return append([]domain.PeerHealth(nil), f.healths...)
}

func (f *fakeMonitor) RecordOutcome(string, float64, bool) {}
