// Package health keeps the gateway's view of peer performance: a table of smoothed response times,
// success rates and load, fed by directory polls and by the outcome of every forwarded request.
package health

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
)

const (
	// emaWeight is the weight of the previous response time in the moving average.
	emaWeight = 0.7

	successStep = 0.01
	failureStep = 0.05
)

var _ contracts.PeerHealthMonitor = (*Table)(nil)

// Table is the in-memory health record of every peer the gateway currently knows about.
// Every read or write of a record happens under one mutex, and readers only ever receive copies.
// NewTable should be used to create instances of Table.
type Table struct {
	mu     sync.Mutex
	peers  map[string]domain.PeerHealth
	timers map[uint64]*clock.Timer
	nextID uint64
	closed bool

	clock          clock.Clock
	logger         hclog.Logger
	maxConnections int
	releaseAfter   time.Duration
	staleness      time.Duration
}

// NewTable creates an empty health Table.
func NewTable(logger hclog.Logger, opt ...Option) (*Table, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	return &Table{
		peers:          map[string]domain.PeerHealth{},
		timers:         map[uint64]*clock.Timer{},
		clock:          opts.Clock,
		logger:         logger.Named("health"),
		maxConnections: opts.MaxConnections,
		releaseAfter:   opts.ReleaseAfter,
		staleness:      opts.Staleness,
	}, nil
}

// Observe records that the given peers were listed by the directory.
// Unknown peers are seeded with default metrics; known peers only have last_seen and address refreshed.
func (t *Table) Observe(peers []domain.PeerRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now().UTC()
	for _, p := range peers {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			continue
		}

		h, ok := t.peers[id]
		if !ok {
			h = domain.PeerHealth{
				PeerID:         id,
				ResponseTimeMs: DefaultResponseTimeMs(),
				MaxConnections: t.maxConnections,
				SuccessRate:    DefaultSuccessRate(),
			}
			t.logger.Debug("Tracking new peer", "peer", id, "address", p.Address)
		}
		h.Address = p.Address
		h.LastSeen = now
		t.peers[id] = h
	}
}

// EvictStale removes every peer not observed within the staleness window and returns their ids, sorted.
func (t *Table) EvictStale() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	var evicted []string
	for id, h := range t.peers {
		if now.Sub(h.LastSeen) > t.staleness {
			delete(t.peers, id)
			evicted = append(evicted, id)
		}
	}
	slices.Sort(evicted)

	for _, id := range evicted {
		t.logger.Info("Evicted stale peer", "peer", id)
	}

	return evicted
}

// RecordOutcome folds the result of one forwarded request into the peer's metrics.
// Untracked peers are ignored. A successful request occupies a connection slot for the release delay.
func (t *Table) RecordOutcome(peerID string, responseTimeMs float64, success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.peers[peerID]
	if !ok {
		return
	}

	h.ResponseTimeMs = emaWeight*h.ResponseTimeMs + (1-emaWeight)*responseTimeMs
	if success {
		h.SuccessRate = min(1.0, h.SuccessRate+successStep)
		h.ActiveConnections++
	} else {
		h.SuccessRate = max(0.0, h.SuccessRate-failureStep)
	}
	t.peers[peerID] = h

	if success && !t.closed {
		t.scheduleRelease(peerID)
	}
}

// Get returns a copy of a single peer's health.
func (t *Table) Get(peerID string) (domain.PeerHealth, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.peers[peerID]
	if !ok {
		return domain.PeerHealth{}, fmt.Errorf("%w: %s", errors.ErrHealthNotTracked, peerID)
	}

	return h, nil
}

// List returns copies of all health records ordered by peer id.
func (t *Table) List() []domain.PeerHealth {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]domain.PeerHealth, 0, len(t.peers))
	for _, h := range t.peers {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b domain.PeerHealth) int {
		return cmp.Compare(a.PeerID, b.PeerID)
	})

	return out
}

// Len returns the number of tracked peers.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.peers)
}

// Close stops every pending connection release. It is safe to call more than once.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

// scheduleRelease must be called with t.mu held.
func (t *Table) scheduleRelease(peerID string) {
	id := t.nextID
	t.nextID++

	t.timers[id] = t.clock.AfterFunc(t.releaseAfter, func() {
		t.release(peerID, id)
	})
}

// release frees one connection slot, never going below zero. Evicted peers are left alone.
func (t *Table) release(peerID string, timerID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.timers, timerID)

	h, ok := t.peers[peerID]
	if !ok {
		return
	}
	h.ActiveConnections = max(0, h.ActiveConnections-1)
	t.peers[peerID] = h
}
