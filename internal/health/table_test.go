package health

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
)

func testNewTable(t *testing.T, opt ...Option) (*Table, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	table, err := NewTable(hclog.NewNullLogger(), append([]Option{WithClock(mock)}, opt...)...)
	require.NoError(t, err)
	t.Cleanup(table.Close)

	return table, mock
}

func peer(id string) domain.PeerRecord {
	return domain.PeerRecord{ID: id, Address: "10.0.0." + id}
}

func TestNewTable_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewTable(nil)
	require.EqualError(t, err, "logger cannot be nil")

	tests := []struct {
		name    string
		opt     Option
		wantErr string
	}{
		{name: "nil clock", opt: WithClock(nil), wantErr: "clock cannot be nil"},
		{name: "zero max connections", opt: WithMaxConnections(0), wantErr: "max connections must be positive, got 0"},
		{name: "zero release", opt: WithReleaseAfter(0), wantErr: "release delay must be positive, got 0s"},
		{name: "negative staleness", opt: WithStaleness(-time.Second), wantErr: "staleness must be positive, got -1s"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewTable(hclog.NewNullLogger(), tc.opt)
			require.EqualError(t, err, tc.wantErr)
		})
	}
}

func TestTable_ObserveSeedsDefaults(t *testing.T) {
	t.Parallel()

	table, mock := testNewTable(t)
	table.Observe([]domain.PeerRecord{peer("1"), {ID: "  "}})

	h, err := table.Get("1")
	require.NoError(t, err)
	require.Equal(t, domain.PeerHealth{
		PeerID:            "1",
		Address:           "10.0.0.1",
		LastSeen:          mock.Now().UTC(),
		ResponseTimeMs:    100,
		ActiveConnections: 0,
		MaxConnections:    50,
		SuccessRate:       0.95,
	}, h)
	require.Equal(t, 1, table.Len())
}

func TestTable_ObserveKeepsMetrics(t *testing.T) {
	t.Parallel()

	table, mock := testNewTable(t)
	table.Observe([]domain.PeerRecord{peer("1")})
	table.RecordOutcome("1", 50, false)

	mock.Add(10 * time.Second)
	table.Observe([]domain.PeerRecord{{ID: "1", Address: "10.9.9.9"}})

	h, err := table.Get("1")
	require.NoError(t, err)
	require.InDelta(t, 85.0, h.ResponseTimeMs, 1e-9)
	require.InDelta(t, 0.90, h.SuccessRate, 1e-9)
	require.Equal(t, "10.9.9.9", h.Address)
	require.Equal(t, mock.Now().UTC(), h.LastSeen)
}

func TestTable_RecordOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		startRate   float64
		outcomes    []bool
		sample      float64
		wantRate    float64
		wantActive  int
		wantLatency float64
	}{
		{
			name:        "success raises rate",
			startRate:   0.95,
			outcomes:    []bool{true},
			sample:      50,
			wantRate:    0.96,
			wantActive:  1,
			wantLatency: 85,
		},
		{
			name:        "failure lowers rate",
			startRate:   0.95,
			outcomes:    []bool{false},
			sample:      200,
			wantRate:    0.90,
			wantActive:  0,
			wantLatency: 130,
		},
		{
			name:        "rate capped at one",
			startRate:   0.95,
			outcomes:    []bool{true, true, true, true, true, true, true, true},
			sample:      100,
			wantRate:    1.0,
			wantActive:  8,
			wantLatency: 100,
		},
		{
			name:        "rate floored at zero",
			startRate:   0.95,
			outcomes:    []bool{false, false, false, false, false, false, false, false, false, false, false, false, false, false, false, false, false, false, false, false, false},
			sample:      100,
			wantRate:    0.0,
			wantActive:  0,
			wantLatency: 100,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			table, _ := testNewTable(t)
			table.Observe([]domain.PeerRecord{peer("1")})

			for _, ok := range tc.outcomes {
				table.RecordOutcome("1", tc.sample, ok)
			}

			h, err := table.Get("1")
			require.NoError(t, err)
			require.InDelta(t, tc.wantRate, h.SuccessRate, 1e-9)
			require.Equal(t, tc.wantActive, h.ActiveConnections)
			require.InDelta(t, tc.wantLatency, h.ResponseTimeMs, 1e-9)
			require.GreaterOrEqual(t, h.SuccessRate, 0.0)
			require.LessOrEqual(t, h.SuccessRate, 1.0)
		})
	}
}

func TestTable_RecordOutcomeUntracked(t *testing.T) {
	t.Parallel()

	table, _ := testNewTable(t)
	table.RecordOutcome("ghost", 10, true)

	_, err := table.Get("ghost")
	require.ErrorIs(t, err, errors.ErrHealthNotTracked)
	require.Empty(t, table.List())
}

func TestTable_ReleaseAfterDelay(t *testing.T) {
	t.Parallel()

	table, mock := testNewTable(t)
	table.Observe([]domain.PeerRecord{peer("1")})
	table.RecordOutcome("1", 10, true)
	table.RecordOutcome("1", 10, true)

	h, err := table.Get("1")
	require.NoError(t, err)
	require.Equal(t, 2, h.ActiveConnections)

	mock.Add(59 * time.Second)
	h, err = table.Get("1")
	require.NoError(t, err)
	require.Equal(t, 2, h.ActiveConnections)

	mock.Add(time.Second)
	require.Eventually(t, func() bool {
		h, err := table.Get("1")
		return err == nil && h.ActiveConnections == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTable_ReleaseForEvictedPeerIsNoop(t *testing.T) {
	t.Parallel()

	table, mock := testNewTable(t, WithStaleness(30*time.Second))
	table.Observe([]domain.PeerRecord{peer("1")})
	table.RecordOutcome("1", 10, true)

	mock.Add(31 * time.Second)
	require.Equal(t, []string{"1"}, table.EvictStale())

	mock.Add(30 * time.Second)
	require.Eventually(t, func() bool {
		table.mu.Lock()
		defer table.mu.Unlock()
		return len(table.timers) == 0
	}, 2*time.Second, 5*time.Millisecond)

	_, err := table.Get("1")
	require.ErrorIs(t, err, errors.ErrHealthNotTracked)
}

func TestTable_EvictStale(t *testing.T) {
	t.Parallel()

	table, mock := testNewTable(t)
	table.Observe([]domain.PeerRecord{peer("1"), peer("2")})

	mock.Add(100 * time.Second)
	table.Observe([]domain.PeerRecord{peer("2")})

	// Exactly at the staleness boundary nothing is evicted.
	mock.Add(200 * time.Second)
	require.Empty(t, table.EvictStale())

	mock.Add(time.Second)
	require.Equal(t, []string{"1"}, table.EvictStale())

	_, err := table.Get("1")
	require.ErrorIs(t, err, errors.ErrHealthNotTracked)

	_, err = table.Get("2")
	require.NoError(t, err)
}

func TestTable_ListSortedCopies(t *testing.T) {
	t.Parallel()

	table, _ := testNewTable(t)
	table.Observe([]domain.PeerRecord{peer("3"), peer("1"), peer("2")})

	list := table.List()
	require.Len(t, list, 3)
	require.Equal(t, "1", list[0].PeerID)
	require.Equal(t, "2", list[1].PeerID)
	require.Equal(t, "3", list[2].PeerID)

	list[0].SuccessRate = 0
	h, err := table.Get("1")
	require.NoError(t, err)
	require.InDelta(t, 0.95, h.SuccessRate, 1e-9)
}

func TestTable_CloseStopsReleases(t *testing.T) {
	t.Parallel()

	table, mock := testNewTable(t)
	table.Observe([]domain.PeerRecord{peer("1")})
	table.RecordOutcome("1", 10, true)

	table.Close()
	table.Close()

	table.RecordOutcome("1", 10, true)
	mock.Add(2 * time.Minute)

	require.Never(t, func() bool {
		h, err := table.Get("1")
		return err != nil || h.ActiveConnections != 2
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestTable_ConcurrentOutcomes(t *testing.T) {
	t.Parallel()

	table, _ := testNewTable(t)
	table.Observe([]domain.PeerRecord{peer("1")})

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				table.RecordOutcome("1", 10, true)
				_ = table.List()
			}
		}()
	}
	wg.Wait()

	h, err := table.Get("1")
	require.NoError(t, err)
	require.Equal(t, workers*perWorker, h.ActiveConnections)
	require.InDelta(t, 1.0, h.SuccessRate, 1e-9)
}
