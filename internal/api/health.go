package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/domain"
)

// DomainPeerHealth is a wrapper that allows receivers to be declared in the API package that deal with domain types.
type DomainPeerHealth domain.PeerHealth

// PeerHealth is the API representation of the gateway's view of a peer.
type PeerHealth struct {
	PeerID            string    `doc:"Peer identifier"                              json:"peer_id"`
	IP                string    `doc:"Network address of the peer"                  json:"ip"`
	LastSeen          time.Time `doc:"Last time the peer appeared in the directory" json:"last_seen"`
	ResponseTimeMs    float64   `doc:"Smoothed response time in milliseconds"       json:"response_time_ms"`
	ActiveConnections int       `doc:"Requests currently attributed to the peer"    json:"active_connections"`
	MaxConnections    int       `doc:"Connection capacity of the peer"              json:"max_connections"`
	SuccessRate       float64   `doc:"Smoothed success rate in [0, 1]"              json:"success_rate"`
}

// PeerHealthsResponse is the response for GET /health/peers.
type PeerHealthsResponse struct {
	Body []PeerHealth
}

// PeerHealthRequest represents the incoming request for a single peer's health.
type PeerHealthRequest struct {
	ID string `doc:"Peer identifier" example:"peer-1" path:"id"`
}

// PeerHealthResponse is the response for GET /health/peers/{id}.
type PeerHealthResponse struct {
	Body PeerHealth
}

// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
func (d DomainPeerHealth) ToAPIType() (PeerHealth, error) {
	return PeerHealth{
		PeerID:            d.PeerID,
		IP:                d.Address,
		LastSeen:          d.LastSeen,
		ResponseTimeMs:    d.ResponseTimeMs,
		ActiveConnections: d.ActiveConnections,
		MaxConnections:    d.MaxConnections,
		SuccessRate:       d.SuccessRate,
	}, nil
}

// RegisterHealthRoutes sets up the gateway's read-only health table routes.
func RegisterHealthRoutes(routerAPI huma.API, monitor contracts.PeerHealthMonitor, apiPathPrefix string) {
	healthAPI := huma.NewGroup(routerAPI, apiPathPrefix)
	tags := []string{"Health"}

	huma.Register(
		healthAPI,
		huma.Operation{
			OperationID: "listPeerHealth",
			Method:      http.MethodGet,
			Path:        "/peers",
			Summary:     "List health for all tracked peers",
			Tags:        tags,
		},
		func(ctx context.Context, _ *struct{}) (*PeerHealthsResponse, error) {
			return handlePeerHealthList(monitor)
		},
	)

	huma.Register(
		healthAPI,
		huma.Operation{
			OperationID: "getPeerHealth",
			Method:      http.MethodGet,
			Path:        "/peers/{id}",
			Summary:     "Get health for a specific peer",
			Tags:        tags,
		},
		func(ctx context.Context, input *PeerHealthRequest) (*PeerHealthResponse, error) {
			return handlePeerHealth(monitor, input.ID)
		},
	)
}

func handlePeerHealthList(monitor contracts.PeerHealthMonitor) (*PeerHealthsResponse, error) {
	healths := monitor.List()
	out := make([]PeerHealth, 0, len(healths))
	for _, h := range healths {
		ph, err := DomainPeerHealth(h).ToAPIType()
		if err != nil {
			return nil, err
		}
		out = append(out, ph)
	}

	return &PeerHealthsResponse{Body: out}, nil
}

func handlePeerHealth(monitor contracts.PeerHealthMonitor, peerID string) (*PeerHealthResponse, error) {
	h, err := monitor.Get(peerID)
	if err != nil {
		return nil, err
	}

	ph, err := DomainPeerHealth(h).ToAPIType()
	if err != nil {
		return nil, err
	}

	return &PeerHealthResponse{Body: ph}, nil
}
