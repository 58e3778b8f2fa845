package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/domain"
)

// DomainNetworkStats is a wrapper that allows receivers to be declared in the API package that deal with domain types.
type DomainNetworkStats domain.NetworkStats

// NetworkStats summarizes the peers currently online.
type NetworkStats struct {
	TotalPeers int       `doc:"Number of online peers"      json:"total_peers"`
	PeerIDs    []string  `doc:"Identifiers of online peers" json:"peer_ids"`
	Timestamp  time.Time `doc:"Time the summary was taken"  json:"timestamp"`
}

// NetworkStatusResponse is the response for GET /network/status.
type NetworkStatusResponse struct {
	Body struct {
		Status string       `example:"success" json:"status"`
		Stats  NetworkStats `json:"stats"`
	}
}

// ToAPIType can be used to convert a wrapped domain type to an API-safe type.
func (d DomainNetworkStats) ToAPIType() (NetworkStats, error) {
	ids := make([]string, len(d.PeerIDs))
	copy(ids, d.PeerIDs)

	return NetworkStats{
		TotalPeers: d.TotalPeers,
		PeerIDs:    ids,
		Timestamp:  d.Timestamp,
	}, nil
}

// RegisterNetworkRoutes sets up the network summary routes.
func RegisterNetworkRoutes(routerAPI huma.API, directory contracts.PeerDirectory, apiPathPrefix string) {
	networkAPI := huma.NewGroup(routerAPI, apiPathPrefix)

	huma.Register(
		networkAPI,
		huma.Operation{
			OperationID: "networkStatus",
			Method:      http.MethodGet,
			Path:        "/status",
			Summary:     "Summarize the online peers",
			Tags:        []string{"Network"},
		},
		func(ctx context.Context, _ *struct{}) (*NetworkStatusResponse, error) {
			return handleNetworkStatus(directory)
		},
	)
}

func handleNetworkStatus(directory contracts.PeerDirectory) (*NetworkStatusResponse, error) {
	stats, err := directory.Stats()
	if err != nil {
		return nil, err
	}

	s, err := DomainNetworkStats(stats).ToAPIType()
	if err != nil {
		return nil, err
	}

	resp := &NetworkStatusResponse{}
	resp.Body.Status = StatusSuccess
	resp.Body.Stats = s

	return resp, nil
}
