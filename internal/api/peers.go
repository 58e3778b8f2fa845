package api

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/domain"
)

const (
	PeerStatusOnline  PeerStatus = "online"
	PeerStatusOffline PeerStatus = "offline"
)

// StatusSuccess is the value of the "status" field in every successful directory response.
const StatusSuccess = "success"

// DomainPeerRecord is a wrapper that allows receivers to be declared in the API package that deal with domain types.
type DomainPeerRecord domain.PeerRecord

// PeerStatus represents whether a peer is currently considered online by the directory.
type PeerStatus string

// Peer is the API representation of a registered peer.
type Peer struct {
	ID           string         `doc:"Unique peer identifier"                  json:"id"`
	IP           string         `doc:"Network address of the peer"             json:"ip"`
	Capabilities map[string]any `doc:"Opaque capabilities reported by the peer" json:"capabilities"`
	LastSeen     time.Time      `doc:"Time of the last registration or heartbeat" json:"last_seen"`
	Status       PeerStatus     `doc:"Liveness derived from last_seen"          json:"status"`
}

// RegisterPeerRequest represents the incoming request to register a peer.
type RegisterPeerRequest struct {
	Body struct {
		PeerID       string         `doc:"Unique peer identifier"         example:"peer-1"   json:"peer_id,omitempty"`
		IP           string         `doc:"Network address of the peer"    example:"10.0.0.7" json:"ip,omitempty"`
		Capabilities map[string]any `doc:"Opaque capabilities of the peer"                   json:"capabilities,omitempty"`
	}
}

// RegisterPeerResponse is the response for POST /peer/register.
type RegisterPeerResponse struct {
	Body struct {
		Status string `example:"success" json:"status"`
		PeerID string `example:"peer-1"  json:"peer_id"`
	}
}

// HeartbeatRequest represents the incoming request to renew a peer's liveness.
type HeartbeatRequest struct {
	Body struct {
		PeerID string `doc:"Unique peer identifier" example:"peer-1" json:"peer_id,omitempty"`
	}
}

// HeartbeatResponse is the response for POST /peer/heartbeat.
type HeartbeatResponse struct {
	Body struct {
		Status string `example:"success" json:"status"`
	}
}

// PeersResponse is the response for GET /peer/list.
type PeersResponse struct {
	Body struct {
		Status string `example:"success"          json:"status"`
		Peers  []Peer `doc:"Currently online peers" json:"peers"`
	}
}

// PeerRequest represents the incoming request for a single peer.
type PeerRequest struct {
	ID string `doc:"Peer identifier" example:"peer-1" path:"id"`
}

// PeerResponse is the response for GET /peer/{id}.
type PeerResponse struct {
	Body struct {
		Status string `example:"success" json:"status"`
		Peer   Peer   `json:"peer"`
	}
}

// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
func (d DomainPeerRecord) ToAPIType() (Peer, error) {
	status, err := parsePeerStatus(d.Status)
	if err != nil {
		return Peer{}, err
	}

	capabilities := make(map[string]any, len(d.Capabilities))
	maps.Copy(capabilities, d.Capabilities)

	return Peer{
		ID:           d.ID,
		IP:           d.Address,
		Capabilities: capabilities,
		LastSeen:     d.LastSeen,
		Status:       status,
	}, nil
}

// RegisterPeerRoutes sets up peer registration and liveness routes.
func RegisterPeerRoutes(routerAPI huma.API, directory contracts.PeerDirectory, apiPathPrefix string) {
	peerAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Peers"}

	huma.Register(
		peerAPI,
		huma.Operation{
			OperationID: "registerPeer",
			Method:      http.MethodPost,
			Path:        "/register",
			Summary:     "Register a peer, replacing any existing record",
			Tags:        tags,
		},
		func(ctx context.Context, input *RegisterPeerRequest) (*RegisterPeerResponse, error) {
			return handleRegisterPeer(directory, input)
		},
	)

	huma.Register(
		peerAPI,
		huma.Operation{
			OperationID: "peerHeartbeat",
			Method:      http.MethodPost,
			Path:        "/heartbeat",
			Summary:     "Renew the liveness of a registered peer",
			Tags:        tags,
		},
		func(ctx context.Context, input *HeartbeatRequest) (*HeartbeatResponse, error) {
			return handleHeartbeat(directory, input.Body.PeerID)
		},
	)

	huma.Register(
		peerAPI,
		huma.Operation{
			OperationID: "listPeers",
			Method:      http.MethodGet,
			Path:        "/list",
			Summary:     "List online peers",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*PeersResponse, error) {
			return handleListPeers(directory)
		},
	)

	huma.Register(
		peerAPI,
		huma.Operation{
			OperationID: "getPeer",
			Method:      http.MethodGet,
			Path:        "/{id}",
			Summary:     "Get a peer, online or not",
			Tags:        tags,
		},
		func(ctx context.Context, input *PeerRequest) (*PeerResponse, error) {
			return handleGetPeer(directory, input.ID)
		},
	)
}

// handleRegisterPeer is the handler for registering (or re-registering) a peer.
func handleRegisterPeer(directory contracts.PeerDirectory, input *RegisterPeerRequest) (*RegisterPeerResponse, error) {
	err := directory.Register(domain.PeerRecord{
		ID:           input.Body.PeerID,
		Address:      input.Body.IP,
		Capabilities: input.Body.Capabilities,
	})
	if err != nil {
		return nil, err
	}

	resp := &RegisterPeerResponse{}
	resp.Body.Status = StatusSuccess
	resp.Body.PeerID = input.Body.PeerID

	return resp, nil
}

// handleHeartbeat is the handler for renewing a peer's liveness.
func handleHeartbeat(directory contracts.PeerDirectory, peerID string) (*HeartbeatResponse, error) {
	if err := directory.Heartbeat(peerID); err != nil {
		return nil, err
	}

	resp := &HeartbeatResponse{}
	resp.Body.Status = StatusSuccess

	return resp, nil
}

// handleListPeers is the handler for listing the peers currently online.
func handleListPeers(directory contracts.PeerDirectory) (*PeersResponse, error) {
	records, err := directory.ListOnline()
	if err != nil {
		return nil, err
	}

	peers := make([]Peer, 0, len(records))
	for _, r := range records {
		p, err := DomainPeerRecord(r).ToAPIType()
		if err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}

	resp := &PeersResponse{}
	resp.Body.Status = StatusSuccess
	resp.Body.Peers = peers

	return resp, nil
}

// handleGetPeer is the handler for retrieving a single peer.
func handleGetPeer(directory contracts.PeerDirectory, peerID string) (*PeerResponse, error) {
	record, err := directory.Get(peerID)
	if err != nil {
		return nil, err
	}

	p, err := DomainPeerRecord(record).ToAPIType()
	if err != nil {
		return nil, err
	}

	resp := &PeerResponse{}
	resp.Body.Status = StatusSuccess
	resp.Body.Peer = p

	return resp, nil
}

func parsePeerStatus(status domain.PeerStatus) (PeerStatus, error) {
	switch status {
	case domain.PeerStatusOnline:
		return PeerStatusOnline, nil
	case domain.PeerStatusOffline:
		return PeerStatusOffline, nil
	default:
		return "", fmt.Errorf("unknown peer status: %s", status)
	}
}
