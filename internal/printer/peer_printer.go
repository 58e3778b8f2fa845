package printer

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/mirage-net/mirage/internal/cmd/output"
	"github.com/mirage-net/mirage/internal/domain"
)

var _ output.Printer[PeerResult] = (*PeerPrinter)(nil)

// PeerResult is the command output form of a registered peer.
type PeerResult struct {
	ID           string         `json:"id"           yaml:"id"`
	IP           string         `json:"ip"           yaml:"ip"`
	Capabilities map[string]any `json:"capabilities" yaml:"capabilities"`
	LastSeen     time.Time      `json:"lastSeen"     yaml:"last_seen"`
	Status       string         `json:"status"       yaml:"status"`
}

// PeerPrinter handles text output for peers.
type PeerPrinter struct {
	headerFunc output.WriteFunc[PeerResult]
	footerFunc output.WriteFunc[PeerResult]
}

// NewPeerResult converts a directory record into its output form.
func NewPeerResult(p domain.PeerRecord) PeerResult {
	capabilities := make(map[string]any, len(p.Capabilities))
	maps.Copy(capabilities, p.Capabilities)

	return PeerResult{
		ID:           p.ID,
		IP:           p.Address,
		Capabilities: capabilities,
		LastSeen:     p.LastSeen.UTC(),
		Status:       string(p.Status),
	}
}

// NewPeerResults converts directory records into their output form, preserving order.
func NewPeerResults(peers []domain.PeerRecord) []PeerResult {
	results := make([]PeerResult, 0, len(peers))
	for _, p := range peers {
		results = append(results, NewPeerResult(p))
	}
	return results
}

// NewPeerListPrinter returns a PeerPrinter with the default list header and footer.
func NewPeerListPrinter() *PeerPrinter {
	return &PeerPrinter{
		headerFunc: DefaultPeerListHeader(),
		footerFunc: DefaultPeerListFooter(),
	}
}

func (p *PeerPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *PeerPrinter) SetHeader(fn output.WriteFunc[PeerResult]) {
	p.headerFunc = fn
}

// Item writes a single peer, with capabilities ordered by key.
func (p *PeerPrinter) Item(w io.Writer, peer PeerResult) error {
	_, _ = fmt.Fprintf(w, "  %s\n", peer.ID)
	_, _ = fmt.Fprintf(w, "    IP: %s\n", peer.IP)
	if peer.Status != "" {
		_, _ = fmt.Fprintf(w, "    Status: %s\n", peer.Status)
	}
	if !peer.LastSeen.IsZero() {
		_, _ = fmt.Fprintf(w, "    Last Seen: %s\n", peer.LastSeen.Format(time.RFC3339))
	}
	if len(peer.Capabilities) > 0 {
		_, _ = fmt.Fprintf(w, "    Capabilities: %s\n", formatCapabilities(peer.Capabilities))
	}

	return nil
}

func (p *PeerPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *PeerPrinter) SetFooter(fn output.WriteFunc[PeerResult]) {
	p.footerFunc = fn
}

func DefaultPeerListHeader() output.WriteFunc[PeerResult] {
	return func(w io.Writer, count int) {
		_, _ = fmt.Fprintf(w, "Online peers (%d total):\n", count)
	}
}

func DefaultPeerListFooter() output.WriteFunc[PeerResult] {
	return func(w io.Writer, count int) {
		_, _ = fmt.Fprintln(w, "")
	}
}

// formatCapabilities renders capabilities as comma-separated key=value pairs sorted by key.
func formatCapabilities(capabilities map[string]any) string {
	keys := slices.Sorted(maps.Keys(capabilities))

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, capabilities[k]))
	}

	return strings.Join(pairs, ", ")
}
