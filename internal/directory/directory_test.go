package directory

import (
	stdErrors "errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
	"github.com/mirage-net/mirage/internal/store"
)

const testPeerTimeout = 60 * time.Second

// fakeStore is an in-memory store.Store which can be told to fail.
type fakeStore struct {
	data       map[string][]byte
	ttls       map[string]time.Duration
	setErr     error
	keysErr    error
	replaceErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		data: make(map[string][]byte),
		ttls: make(map[string]time.Duration),
	}
}

func (f *fakeStore) Set(key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Replace(key string, value []byte, ttl time.Duration) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	if _, ok := f.data[key]; !ok {
		return store.ErrKeyNotFound
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Get(key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, store.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeStore) Delete(key string) error {
	delete(f.data, key)
	return nil
}

func (f *fakeStore) Keys(prefix string) ([]string, error) {
	if f.keysErr != nil {
		return nil, f.keysErr
	}
	keys := make([]string, 0, len(f.data))
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *fakeStore) Close() error {
	return nil
}

func testNewDirectory(t *testing.T, s store.Store) (*Directory, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	d, err := NewDirectory(hclog.NewNullLogger(), s, WithPeerTimeout(testPeerTimeout), WithClock(mock))
	require.NoError(t, err)

	return d, mock
}

func testNewBadgerStore(t *testing.T) *store.BadgerStore {
	t.Helper()

	s, err := store.NewBadgerStore(hclog.NewNullLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestNewDirectory_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewDirectory(nil, newFakeStore())
	require.Error(t, err)

	_, err = NewDirectory(hclog.NewNullLogger(), nil)
	require.Error(t, err)

	_, err = NewDirectory(hclog.NewNullLogger(), newFakeStore(), WithPeerTimeout(0))
	require.Error(t, err)

	_, err = NewDirectory(hclog.NewNullLogger(), newFakeStore(), WithClock(nil))
	require.Error(t, err)

	d, err := NewDirectory(hclog.NewNullLogger(), newFakeStore())
	require.NoError(t, err)
	require.Equal(t, DefaultPeerTimeout(), d.PeerTimeout())
}

func TestDirectory_Register(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		peer    domain.PeerRecord
		wantErr error
	}{
		{
			name: "valid peer",
			peer: domain.PeerRecord{ID: "peer-1", Address: "10.0.0.1", Capabilities: map[string]any{"region": "eu"}},
		},
		{
			name: "nil capabilities",
			peer: domain.PeerRecord{ID: "peer-2", Address: "10.0.0.2"},
		},
		{
			name:    "missing id",
			peer:    domain.PeerRecord{Address: "10.0.0.3"},
			wantErr: errors.ErrBadRequest,
		},
		{
			name:    "missing address",
			peer:    domain.PeerRecord{ID: "peer-4", Address: "   "},
			wantErr: errors.ErrBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fs := newFakeStore()
			d, mock := testNewDirectory(t, fs)

			err := d.Register(tc.peer)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Empty(t, fs.data)
				return
			}

			require.NoError(t, err)
			require.Equal(t, 2*testPeerTimeout, fs.ttls["peer:"+tc.peer.ID])

			got, err := d.Get(tc.peer.ID)
			require.NoError(t, err)
			require.Equal(t, tc.peer.ID, got.ID)
			require.Equal(t, tc.peer.Address, got.Address)
			require.Equal(t, mock.Now().UTC(), got.LastSeen)
			require.Equal(t, domain.PeerStatusOnline, got.Status)
			require.NotNil(t, got.Capabilities)
		})
	}
}

func TestDirectory_RegisterOverwrites(t *testing.T) {
	t.Parallel()

	d, _ := testNewDirectory(t, testNewBadgerStore(t))

	require.NoError(t, d.Register(domain.PeerRecord{ID: "p", Address: "1.1.1.1", Capabilities: map[string]any{"a": 1.0}}))
	require.NoError(t, d.Register(domain.PeerRecord{ID: "p", Address: "2.2.2.2"}))

	got, err := d.Get("p")
	require.NoError(t, err)
	require.Equal(t, "2.2.2.2", got.Address)
	require.Empty(t, got.Capabilities)
}

func TestDirectory_RegisterStoreFailure(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.setErr = fmt.Errorf("%w: disk on fire", errors.ErrBackendUnavailable)
	d, _ := testNewDirectory(t, fs)

	err := d.Register(domain.PeerRecord{ID: "p", Address: "1.1.1.1"})
	require.ErrorIs(t, err, errors.ErrRegistrationFailed)
}

func TestDirectory_RegisterUnserializableCapabilities(t *testing.T) {
	t.Parallel()

	d, _ := testNewDirectory(t, newFakeStore())

	err := d.Register(domain.PeerRecord{ID: "p", Address: "1.1.1.1", Capabilities: map[string]any{"bad": make(chan int)}})
	require.ErrorIs(t, err, errors.ErrRegistrationFailed)
}

func TestDirectory_HeartbeatUnknownPeer(t *testing.T) {
	t.Parallel()

	d, _ := testNewDirectory(t, testNewBadgerStore(t))

	for _, id := range []string{"never-registered", "another-one"} {
		err := d.Heartbeat(id)
		require.ErrorIs(t, err, errors.ErrPeerNotFound)
	}

	require.ErrorIs(t, d.Heartbeat(" "), errors.ErrBadRequest)
}

func TestDirectory_HeartbeatAdvancesLastSeen(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	d, mock := testNewDirectory(t, fs)

	require.NoError(t, d.Register(domain.PeerRecord{ID: "p", Address: "1.1.1.1"}))
	registered, err := d.Get("p")
	require.NoError(t, err)

	mock.Add(testPeerTimeout - time.Second)
	require.NoError(t, d.Heartbeat("p"))

	renewed, err := d.Get("p")
	require.NoError(t, err)
	require.True(t, renewed.LastSeen.After(registered.LastSeen))
	require.Equal(t, mock.Now().UTC(), renewed.LastSeen)
	require.Equal(t, 2*testPeerTimeout, fs.ttls["peer:p"])

	// Still online well past the original registration time thanks to the heartbeat.
	mock.Add(testPeerTimeout - time.Second)
	online, err := d.ListOnline()
	require.NoError(t, err)
	require.Len(t, online, 1)
}

func TestDirectory_HeartbeatRecordVanished(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	d, _ := testNewDirectory(t, fs)
	require.NoError(t, d.Register(domain.PeerRecord{ID: "p", Address: "1.1.1.1"}))

	// Simulate expiry between the read and the write.
	fs.replaceErr = fmt.Errorf("%w: peer:p", store.ErrKeyNotFound)

	err := d.Heartbeat("p")
	require.ErrorIs(t, err, errors.ErrPeerNotFound)
}

func TestDirectory_HeartbeatMalformedRecord(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.data["peer:bad"] = []byte("{not json")
	d, _ := testNewDirectory(t, fs)

	require.ErrorIs(t, d.Heartbeat("bad"), errors.ErrPeerNotFound)
}

func TestDirectory_ListOnlineBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		elapsed    time.Duration
		wantOnline bool
	}{
		{name: "just registered", elapsed: 0, wantOnline: true},
		{name: "one nanosecond before timeout", elapsed: testPeerTimeout - time.Nanosecond, wantOnline: true},
		{name: "exactly at timeout", elapsed: testPeerTimeout, wantOnline: false},
		{name: "after timeout", elapsed: testPeerTimeout + time.Second, wantOnline: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d, mock := testNewDirectory(t, newFakeStore())
			require.NoError(t, d.Register(domain.PeerRecord{ID: "p", Address: "1.1.1.1"}))

			mock.Add(tc.elapsed)

			online, err := d.ListOnline()
			require.NoError(t, err)
			if tc.wantOnline {
				require.Len(t, online, 1)
				require.Equal(t, domain.PeerStatusOnline, online[0].Status)
			} else {
				require.Empty(t, online)

				// The record is still fetchable within the grace window, just offline.
				got, err := d.Get("p")
				require.NoError(t, err)
				require.Equal(t, domain.PeerStatusOffline, got.Status)
			}
		})
	}
}

func TestDirectory_ListOnlineSkipsMalformed(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	d, _ := testNewDirectory(t, fs)

	require.NoError(t, d.Register(domain.PeerRecord{ID: "good", Address: "1.1.1.1"}))
	fs.data["peer:garbage"] = []byte("not json at all")
	fs.data["peer:no-last-seen"] = []byte(`{"id":"no-last-seen","ip":"1.1.1.2"}`)
	fs.data["peer:bad-time"] = []byte(`{"id":"bad-time","ip":"1.1.1.3","last_seen":"yesterday"}`)

	online, err := d.ListOnline()
	require.NoError(t, err)
	require.Len(t, online, 1)
	require.Equal(t, "good", online[0].ID)
}

func TestDirectory_ListOnlineOrderedByID(t *testing.T) {
	t.Parallel()

	d, _ := testNewDirectory(t, testNewBadgerStore(t))
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, d.Register(domain.PeerRecord{ID: id, Address: "10.0.0.1"}))
	}

	online, err := d.ListOnline()
	require.NoError(t, err)
	require.Len(t, online, 3)
	require.Equal(t, "alpha", online[0].ID)
	require.Equal(t, "bravo", online[1].ID)
	require.Equal(t, "charlie", online[2].ID)
}

func TestDirectory_ListOnlineBackendFailure(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	fs.keysErr = fmt.Errorf("%w: unreachable", errors.ErrBackendUnavailable)
	d, _ := testNewDirectory(t, fs)

	_, err := d.ListOnline()
	require.ErrorIs(t, err, errors.ErrBackendUnavailable)

	_, err = d.Stats()
	require.ErrorIs(t, err, errors.ErrBackendUnavailable)

	_, err = d.SweepDead()
	require.ErrorIs(t, err, errors.ErrBackendUnavailable)
}

func TestDirectory_Stats(t *testing.T) {
	t.Parallel()

	d, mock := testNewDirectory(t, testNewBadgerStore(t))

	require.NoError(t, d.Register(domain.PeerRecord{ID: "old", Address: "10.0.0.1"}))
	mock.Add(testPeerTimeout / 2)
	require.NoError(t, d.Register(domain.PeerRecord{ID: "new-a", Address: "10.0.0.2"}))
	require.NoError(t, d.Register(domain.PeerRecord{ID: "new-b", Address: "10.0.0.3"}))
	mock.Add(testPeerTimeout / 2)

	stats, err := d.Stats()
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalPeers)
	require.Equal(t, []string{"new-a", "new-b"}, stats.PeerIDs)
	require.Equal(t, mock.Now().UTC(), stats.Timestamp)
}

func TestDirectory_SweepDead(t *testing.T) {
	t.Parallel()

	fs := newFakeStore()
	d, mock := testNewDirectory(t, fs)

	require.NoError(t, d.Register(domain.PeerRecord{ID: "stale", Address: "10.0.0.1"}))
	mock.Add(testPeerTimeout)
	require.NoError(t, d.Register(domain.PeerRecord{ID: "fresh", Address: "10.0.0.2"}))
	fs.data["peer:garbage"] = []byte("{")

	removed, err := d.SweepDead()
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	require.Contains(t, fs.data, "peer:fresh")
	require.NotContains(t, fs.data, "peer:stale")
	require.NotContains(t, fs.data, "peer:garbage")

	// Idempotent.
	removed, err = d.SweepDead()
	require.NoError(t, err)
	require.Zero(t, removed)
	require.Contains(t, fs.data, "peer:fresh")
}

func TestDirectory_PeerIDWithSlashes(t *testing.T) {
	t.Parallel()

	d, mock := testNewDirectory(t, testNewBadgerStore(t))

	require.NoError(t, d.Register(domain.PeerRecord{ID: "eu/peer-1", Address: "10.0.0.1"}))
	require.NoError(t, d.Register(domain.PeerRecord{ID: "us/east/peer-2", Address: "10.0.0.2"}))
	require.NoError(t, d.Heartbeat("eu/peer-1"))

	online, err := d.ListOnline()
	require.NoError(t, err)
	require.Len(t, online, 2)
	require.Equal(t, "eu/peer-1", online[0].ID)
	require.Equal(t, "us/east/peer-2", online[1].ID)

	stats, err := d.Stats()
	require.NoError(t, err)
	require.Equal(t, []string{"eu/peer-1", "us/east/peer-2"}, stats.PeerIDs)

	mock.Add(testPeerTimeout)

	removed, err := d.SweepDead()
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, err = d.Get("eu/peer-1")
	require.ErrorIs(t, err, errors.ErrPeerNotFound)
}

func TestDirectory_GetUnknown(t *testing.T) {
	t.Parallel()

	d, _ := testNewDirectory(t, newFakeStore())

	_, err := d.Get("nope")
	require.True(t, stdErrors.Is(err, errors.ErrPeerNotFound))

	_, err = d.Get("")
	require.True(t, stdErrors.Is(err, errors.ErrBadRequest))
}
