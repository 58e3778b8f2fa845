package contracts

import (
	"context"

	"github.com/mirage-net/mirage/internal/domain"
)

// PeerDirectory provides access to the registry of peers and their liveness.
type PeerDirectory interface {
	// Register inserts or overwrites the record for a peer.
	Register(record domain.PeerRecord) error

	// Heartbeat renews the liveness of a registered peer.
	Heartbeat(peerID string) error

	// Get returns the record for a single peer, online or not.
	Get(peerID string) (domain.PeerRecord, error)

	// ListOnline returns the peers whose last heartbeat is within the liveness timeout.
	ListOnline() ([]domain.PeerRecord, error)

	// Stats returns a summary of the peers currently online.
	Stats() (domain.NetworkStats, error)
}

// PeerLister fetches the online peers from a (possibly remote) directory.
type PeerLister interface {
	// ListPeers returns the peers the directory currently considers online.
	ListPeers(ctx context.Context) ([]domain.PeerRecord, error)
}

// PeerHealthMonitor provides a way to interact with the gateway's per-peer health records.
type PeerHealthMonitor interface {
	// Get returns the health record for a single tracked peer.
	Get(peerID string) (domain.PeerHealth, error)

	// List returns a copy of all known peer health records.
	List() []domain.PeerHealth

	// RecordOutcome feeds the result of a forwarded request back into the peer's metrics.
	RecordOutcome(peerID string, responseTimeMs float64, success bool)
}

// PeerRegistry is a PeerDirectory that can also purge the peers it no longer considers alive.
type PeerRegistry interface {
	PeerDirectory

	// SweepDead deletes every record that is no longer online and returns how many were removed.
	SweepDead() (int, error)
}

// DirectoryClient is a remote PeerDirectory reached over the directory API.
type DirectoryClient interface {
	PeerLister

	// Register inserts or overwrites the record for a peer.
	Register(ctx context.Context, record domain.PeerRecord) error

	// Heartbeat renews the liveness of a registered peer.
	Heartbeat(ctx context.Context, peerID string) error

	// Peer returns the record for a single peer, online or not.
	Peer(ctx context.Context, peerID string) (domain.PeerRecord, error)

	// NetworkStatus returns a summary of the peers currently online.
	NetworkStatus(ctx context.Context) (domain.NetworkStats, error)
}
