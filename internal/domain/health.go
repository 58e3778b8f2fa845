package domain

import "time"

// PeerHealth tracks the gateway's view of a peer's performance, used for selection.
type PeerHealth struct {
	PeerID            string
	Address           string
	LastSeen          time.Time
	ResponseTimeMs    float64
	ActiveConnections int
	MaxConnections    int
	SuccessRate       float64
}
