package forward

import (
	"context"
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/proxy"

	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
)

type outcome struct {
	peerID  string
	ms      float64
	success bool
}

// fakeMonitor is a static health view that records the outcomes fed back to it.
type fakeMonitor struct {
	mu       sync.Mutex
	peers    []domain.PeerHealth
	outcomes []outcome
}

func (f *fakeMonitor) Get(peerID string) (domain.PeerHealth, error) {
	for _, p := range f.List() {
		if p.PeerID == peerID {
			return p, nil
		}
	}
	return domain.PeerHealth{}, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, peerID)
}

func (f *fakeMonitor) List() []domain.PeerHealth {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.PeerHealth, len(f.peers))
	copy(out, f.peers)
	return out
}

func (f *fakeMonitor) RecordOutcome(peerID string, responseTimeMs float64, success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.outcomes = append(f.outcomes, outcome{peerID: peerID, ms: responseTimeMs, success: success})
}

func (f *fakeMonitor) Outcomes() []outcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]outcome, len(f.outcomes))
	copy(out, f.outcomes)
	return out
}

// directDialer builds a DialerFactory that ignores the proxy and dials targets directly,
// remembering which proxy addresses were requested.
type directDialer struct {
	mu        sync.Mutex
	requested []string
}

func (d *directDialer) factory(proxyAddr string) (proxy.ContextDialer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.requested = append(d.requested, proxyAddr)
	return &net.Dialer{}, nil
}

func (d *directDialer) Requested() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, len(d.requested))
	copy(out, d.requested)
	return out
}

// refusingDialer fails every connection attempt.
type refusingDialer struct{}

func (refusingDialer) DialContext(context.Context, string, string) (net.Conn, error) {
	return nil, fmt.Errorf("connection refused")
}
