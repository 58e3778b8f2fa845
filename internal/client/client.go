// Package client talks to the directory HTTP API on behalf of peers, operators and the gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/api"
	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
)

var _ contracts.DirectoryClient = (*Client)(nil)

// maxErrorBody caps how much of an error response is read into an error message.
const maxErrorBody = 4 << 10

// Client is an HTTP client for the directory API.
// NewClient should be used to create instances of Client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  hclog.Logger
}

type registerRequest struct {
	PeerID       string         `json:"peer_id"`
	IP           string         `json:"ip"`
	Capabilities map[string]any `json:"capabilities"`
}

type heartbeatRequest struct {
	PeerID string `json:"peer_id"`
}

type peersResponse struct {
	Status string     `json:"status"`
	Peers  []api.Peer `json:"peers"`
}

type peerResponse struct {
	Status string   `json:"status"`
	Peer   api.Peer `json:"peer"`
}

type networkStatusResponse struct {
	Status string           `json:"status"`
	Stats  api.NetworkStats `json:"stats"`
}

// problem is the subset of an RFC 9457 problem document returned by the API on errors.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// NewClient creates a client for the directory rooted at baseURL (e.g. http://host:8080).
func NewClient(logger hclog.Logger, baseURL string, apiKey string, opt ...Option) (*Client, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("directory URL cannot be empty")
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	httpClient := *opts.HTTPClient
	httpClient.Timeout = opts.Timeout

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &httpClient,
		logger:  logger.Named("client"),
	}, nil
}

// Register registers (or re-registers) a peer with the directory.
func (c *Client) Register(ctx context.Context, peer domain.PeerRecord) error {
	capabilities := peer.Capabilities
	if capabilities == nil {
		capabilities = map[string]any{}
	}

	return c.do(ctx, http.MethodPost, "/peer/register", registerRequest{
		PeerID:       peer.ID,
		IP:           peer.Address,
		Capabilities: capabilities,
	}, nil)
}

// Heartbeat renews the liveness of a registered peer.
func (c *Client) Heartbeat(ctx context.Context, peerID string) error {
	return c.do(ctx, http.MethodPost, "/peer/heartbeat", heartbeatRequest{PeerID: peerID}, nil)
}

// ListPeers returns the peers the directory currently considers online.
func (c *Client) ListPeers(ctx context.Context) ([]domain.PeerRecord, error) {
	var resp peersResponse
	if err := c.do(ctx, http.MethodGet, "/peer/list", nil, &resp); err != nil {
		return nil, err
	}

	peers := make([]domain.PeerRecord, 0, len(resp.Peers))
	for _, p := range resp.Peers {
		peers = append(peers, toDomainPeer(p))
	}

	return peers, nil
}

// Peer returns a single peer, online or not.
func (c *Client) Peer(ctx context.Context, peerID string) (domain.PeerRecord, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return domain.PeerRecord{}, fmt.Errorf("%w: peer id is required", errors.ErrBadRequest)
	}

	var resp peerResponse
	if err := c.do(ctx, http.MethodGet, "/peer/"+url.PathEscape(peerID), nil, &resp); err != nil {
		return domain.PeerRecord{}, err
	}

	return toDomainPeer(resp.Peer), nil
}

// NetworkStatus returns the directory's summary of online peers.
func (c *Client) NetworkStatus(ctx context.Context) (domain.NetworkStats, error) {
	var resp networkStatusResponse
	if err := c.do(ctx, http.MethodGet, "/network/status", nil, &resp); err != nil {
		return domain.NetworkStats{}, err
	}

	return domain.NetworkStats{
		TotalPeers: resp.Stats.TotalPeers,
		PeerIDs:    resp.Stats.PeerIDs,
		Timestamp:  resp.Stats.Timestamp,
	}, nil
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	prefix, err := api.PathPrefix()
	if err != nil {
		return err
	}
	endpoint := c.baseURL + prefix + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: %w", errors.ErrBadRequest, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrBadRequest, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(api.HeaderAPIKey, c.apiKey)

	res, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s %s: %w", errors.ErrBackendUnavailable, method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return statusError(res)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		c.logger.Debug("Undecodable directory response", "path", path, "error", err)
		return fmt.Errorf("%w: decoding %s response: %w", errors.ErrBackendUnavailable, path, err)
	}

	return nil
}

// statusError converts a non-2xx response into the matching sentinel error.
func statusError(res *http.Response) error {
	msg := res.Status
	data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	var p problem
	if err := json.Unmarshal(data, &p); err == nil && (p.Detail != "" || p.Title != "") {
		msg = strings.TrimSpace(p.Title + ": " + p.Detail)
	} else if trimmed := strings.TrimSpace(string(data)); trimmed != "" {
		msg = res.Status + ": " + trimmed
	}

	var sentinel error
	switch res.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = errors.ErrBadRequest
	case http.StatusUnauthorized:
		sentinel = errors.ErrUnauthorized
	case http.StatusNotFound:
		sentinel = errors.ErrPeerNotFound
	default:
		sentinel = errors.ErrBackendUnavailable
	}

	return fmt.Errorf("%w: %s", sentinel, msg)
}

func toDomainPeer(p api.Peer) domain.PeerRecord {
	status := domain.PeerStatusOffline
	if p.Status == api.PeerStatusOnline {
		status = domain.PeerStatusOnline
	}

	return domain.PeerRecord{
		ID:           p.ID,
		Address:      p.IP,
		Capabilities: p.Capabilities,
		LastSeen:     p.LastSeen,
		Status:       status,
	}
}
