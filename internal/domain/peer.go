package domain

import "time"

const (
	PeerStatusOnline  PeerStatus = "online"
	PeerStatusOffline PeerStatus = "offline"
)

// PeerStatus is the liveness of a peer derived from its last heartbeat, it is never stored.
type PeerStatus string

// PeerRecord is the directory's record of a registered peer.
type PeerRecord struct {
	ID           string
	Address      string
	Capabilities map[string]any
	LastSeen     time.Time
	Status       PeerStatus
}

// NetworkStats summarizes the peers currently online in the directory.
type NetworkStats struct {
	TotalPeers int
	PeerIDs    []string
	Timestamp  time.Time
}
