package daemon

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/danielgtaylor/huma/v2"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/mirage-net/mirage/internal/api"
	"github.com/mirage-net/mirage/internal/directory"
	"github.com/mirage-net/mirage/internal/store"
)

const testAPIKey = "secret"

func testDirectoryServer(t *testing.T, opt ...APIOption) *httptest.Server {
	t.Helper()

	logger := hclog.NewNullLogger()

	s, err := store.NewBadgerStore(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	d, err := directory.NewDirectory(logger, s, directory.WithClock(mock))
	require.NoError(t, err)

	routes := func(router huma.API) (string, error) {
		return api.RegisterDirectoryRoutes(router, d, testAPIKey)
	}

	deps, err := NewAPIDependencies(logger, routes, "127.0.0.1:0")
	require.NoError(t, err)

	server, err := NewAPIServer(deps, opt...)
	require.NoError(t, err)

	handler, prefix, err := server.Handler()
	require.NoError(t, err)
	require.Equal(t, "/api/v1", prefix)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return ts
}

func doRequest(t *testing.T, method string, url string, key string, body string) *http.Response {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(api.HeaderAPIKey, key)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func TestNewAPIServer_AppliesDefaults(t *testing.T) {
	t.Parallel()

	deps, err := NewAPIDependencies(hclog.NewNullLogger(), noRoutes, "localhost:8080")
	require.NoError(t, err)

	server, err := NewAPIServer(deps)
	require.NoError(t, err)
	require.Equal(t, DefaultAPIShutdownTimeout(), server.shutdownTimeout)
	require.False(t, server.cors.Enabled)

	server2, err := NewAPIServer(deps, nil, WithShutdownTimeout(3*time.Second), nil)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, server2.shutdownTimeout)

	_, err = NewAPIServer(APIDependencies{})
	require.ErrorContains(t, err, "invalid dependencies for API server")

	_, err = NewAPIServer(deps, WithShutdownTimeout(0))
	require.ErrorContains(t, err, "invalid API options")
}

func TestAPIServer_DirectoryRoundTrip(t *testing.T) {
	t.Parallel()

	ts := testDirectoryServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/v1/peer/register", testAPIKey,
		`{"peer_id":"p1","ip":"10.0.0.1","capabilities":{"bandwidth":100}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.URL+"/api/v1/peer/heartbeat", testAPIKey, `{"peer_id":"p1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Trailing slashes are stripped before routing.
	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/peer/list/", testAPIKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Status string     `json:"status"`
		Peers  []api.Peer `json:"peers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Equal(t, "success", list.Status)
	require.Len(t, list.Peers, 1)
	require.Equal(t, "p1", list.Peers[0].ID)
	require.Equal(t, "10.0.0.1", list.Peers[0].IP)
	require.Equal(t, api.PeerStatusOnline, list.Peers[0].Status)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/v1/network/status", testAPIKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Stats api.NetworkStats `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	require.Equal(t, 1, status.Stats.TotalPeers)
	require.Equal(t, []string{"p1"}, status.Stats.PeerIDs)
}

func TestAPIServer_ErrorStatuses(t *testing.T) {
	t.Parallel()

	ts := testDirectoryServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		body   string
		status int
	}{
		{name: "missing key", method: http.MethodGet, path: "/api/v1/peer/list", status: http.StatusUnauthorized},
		{name: "wrong key", method: http.MethodGet, path: "/api/v1/peer/list", key: "nope", status: http.StatusUnauthorized},
		{
			name:   "register without ip",
			method: http.MethodPost,
			path:   "/api/v1/peer/register",
			key:    testAPIKey,
			body:   `{"peer_id":"p1"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "heartbeat unknown peer",
			method: http.MethodPost,
			path:   "/api/v1/peer/heartbeat",
			key:    testAPIKey,
			body:   `{"peer_id":"ghost"}`,
			status: http.StatusNotFound,
		},
		{name: "unknown peer", method: http.MethodGet, path: "/api/v1/peer/ghost", key: testAPIKey, status: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp := doRequest(t, tc.method, ts.URL+tc.path, tc.key, tc.body)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestAPIServer_MountedHandlers(t *testing.T) {
	t.Parallel()

	ts := testDirectoryServer(t, WithHandler("/metrics", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})))

	resp := doRequest(t, http.MethodGet, ts.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
}

func TestAPIServer_ApplyCORS(t *testing.T) {
	t.Parallel()

	ts := testDirectoryServer(t,
		WithCORSEnabled(true),
		WithCORSAllowOrigins([]string{" http://localhost:3000 "}),
	)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/peer/list", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPIServer_StartStopsOnCancel(t *testing.T) {
	t.Parallel()

	deps, err := NewAPIDependencies(hclog.NewNullLogger(), noRoutes, "127.0.0.1:0")
	require.NoError(t, err)

	server, err := NewAPIServer(deps, WithShutdownTimeout(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("API server did not stop")
	}
}
