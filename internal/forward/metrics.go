package forward

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for forwarded requests.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeTimeout     = "timeout"
	OutcomeNoPeer      = "no_peer"
	OutcomeRateLimited = "rate_limited"
	OutcomeBadRequest  = "bad_request"
)

// Metrics holds the Prometheus collectors of the forwarding engine.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
	tunnels  prometheus.Counter
}

// NewMetrics creates the engine's collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, fmt.Errorf("registerer cannot be nil")
	}

	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mirage",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests handled by the gateway, by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mirage",
			Subsystem: "gateway",
			Name:      "forward_duration_seconds",
			Help:      "Time from dispatch through a peer until the full response was read.",
			Buckets:   prometheus.DefBuckets,
		}),
		tunnels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mirage",
			Subsystem: "gateway",
			Name:      "connect_requests_total",
			Help:      "CONNECT requests acknowledged by the gateway.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.latency, m.tunnels} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering gateway metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) observeRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeLatency(seconds float64) {
	if m == nil {
		return
	}
	m.latency.Observe(seconds)
}

func (m *Metrics) observeTunnel() {
	if m == nil {
		return
	}
	m.tunnels.Inc()
}
