package forward

import (
	"cmp"
	"slices"

	"github.com/mirage-net/mirage/internal/domain"
)

const (
	// minSuccessRate is the success rate a peer must exceed to be selected.
	minSuccessRate = 0.7

	loadWeight        = 0.3
	performanceWeight = 0.7
)

// Eligible reports whether a peer has spare capacity and a good enough success rate to take a request.
func Eligible(h domain.PeerHealth) bool {
	return h.ActiveConnections < h.MaxConnections && h.SuccessRate > minSuccessRate
}

// Score rates a peer; higher is better. Fast, reliable, lightly loaded peers score highest.
// Score expects an eligible peer, so MaxConnections is positive.
func Score(h domain.PeerHealth) float64 {
	loadFactor := float64(h.ActiveConnections) / float64(h.MaxConnections)

	responseTime := h.ResponseTimeMs
	if responseTime <= 0 {
		responseTime = 1
	}
	performance := (1000 / responseTime) * h.SuccessRate

	return loadWeight*(1-loadFactor) + performanceWeight*performance
}

// Select picks the eligible peer with the highest score.
// Ties go to the lowest peer id. It returns false when no peer is eligible.
func Select(peers []domain.PeerHealth) (domain.PeerHealth, bool) {
	candidates := make([]domain.PeerHealth, 0, len(peers))
	for _, p := range peers {
		if Eligible(p) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return domain.PeerHealth{}, false
	}

	slices.SortFunc(candidates, func(a, b domain.PeerHealth) int {
		return cmp.Compare(a.PeerID, b.PeerID)
	})
	slices.SortStableFunc(candidates, func(a, b domain.PeerHealth) int {
		return cmp.Compare(Score(b), Score(a))
	})

	return candidates[0], true
}
