package printer

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/mirage-net/mirage/internal/cmd/output"
	"github.com/mirage-net/mirage/internal/domain"
)

var _ output.Printer[NetworkStatusResult] = (*NetworkStatusPrinter)(nil)

// NetworkStatusResult is the command output form of the directory's network summary.
type NetworkStatusResult struct {
	TotalPeers int       `json:"totalPeers" yaml:"total_peers"`
	PeerIDs    []string  `json:"peers"      yaml:"peers"`
	Timestamp  time.Time `json:"timestamp"  yaml:"timestamp"`
}

// NetworkStatusPrinter handles text output for the network summary.
type NetworkStatusPrinter struct {
	headerFunc output.WriteFunc[NetworkStatusResult]
	footerFunc output.WriteFunc[NetworkStatusResult]
}

func NewNetworkStatusResult(stats domain.NetworkStats) NetworkStatusResult {
	ids := slices.Clone(stats.PeerIDs)
	if ids == nil {
		ids = []string{}
	}

	return NetworkStatusResult{
		TotalPeers: stats.TotalPeers,
		PeerIDs:    ids,
		Timestamp:  stats.Timestamp.UTC(),
	}
}

func (p *NetworkStatusPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *NetworkStatusPrinter) SetHeader(fn output.WriteFunc[NetworkStatusResult]) {
	p.headerFunc = fn
}

func (p *NetworkStatusPrinter) Item(w io.Writer, status NetworkStatusResult) error {
	_, _ = fmt.Fprintf(w, "Online peers: %d\n", status.TotalPeers)
	if len(status.PeerIDs) > 0 {
		_, _ = fmt.Fprintf(w, "Peer IDs: %s\n", strings.Join(status.PeerIDs, ", "))
	}
	if !status.Timestamp.IsZero() {
		_, _ = fmt.Fprintf(w, "As of: %s\n", status.Timestamp.Format(time.RFC3339))
	}

	return nil
}

func (p *NetworkStatusPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *NetworkStatusPrinter) SetFooter(fn output.WriteFunc[NetworkStatusResult]) {
	p.footerFunc = fn
}
