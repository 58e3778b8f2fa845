// Package directory implements the peer registry: registration, heartbeat renewal, liveness filtering and
// cleanup of peers stored in an expiring key-value store.
//
// A peer is online only while now - last_seen < peer timeout. Records are written with a store TTL of
// twice the peer timeout, so a record stays fetchable (but offline) for a grace window before the store
// drops it.
package directory

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-hclog"

	"github.com/mirage-net/mirage/internal/contracts"
	"github.com/mirage-net/mirage/internal/domain"
	"github.com/mirage-net/mirage/internal/errors"
	"github.com/mirage-net/mirage/internal/store"
)

const keyPrefix = "peer:"

var _ contracts.PeerDirectory = (*Directory)(nil)

// errMalformedRecord marks stored values that cannot be decoded into a usable peer record.
var errMalformedRecord = stdErrors.New("malformed peer record")

// Directory is the registry of peers.
// NewDirectory should be used to create instances of Directory.
type Directory struct {
	store       store.Store
	logger      hclog.Logger
	clock       clock.Clock
	peerTimeout time.Duration
}

// record is the serialized form of a peer stored under "peer:<id>".
type record struct {
	ID           string         `json:"id"`
	IP           string         `json:"ip"`
	Capabilities map[string]any `json:"capabilities"`
	LastSeen     time.Time      `json:"last_seen"`
}

// NewDirectory creates a Directory on top of the given store.
func NewDirectory(logger hclog.Logger, s store.Store, opt ...Option) (*Directory, error) {
	if logger == nil || reflect.ValueOf(logger).IsNil() {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if s == nil || reflect.ValueOf(s).IsNil() {
		return nil, fmt.Errorf("store cannot be nil")
	}

	opts, err := NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	return &Directory{
		store:       s,
		logger:      logger.Named("directory"),
		clock:       opts.Clock,
		peerTimeout: opts.PeerTimeout,
	}, nil
}

// PeerTimeout returns the liveness timeout used by the directory.
func (d *Directory) PeerTimeout() time.Duration {
	return d.peerTimeout
}

// Register inserts or overwrites the record for a peer, stamping it as seen now.
func (d *Directory) Register(peer domain.PeerRecord) error {
	id := strings.TrimSpace(peer.ID)
	addr := strings.TrimSpace(peer.Address)
	if id == "" || addr == "" {
		return fmt.Errorf("%w: peer id and address are required", errors.ErrBadRequest)
	}

	capabilities := peer.Capabilities
	if capabilities == nil {
		capabilities = map[string]any{}
	}

	data, err := json.Marshal(record{
		ID:           id,
		IP:           addr,
		Capabilities: capabilities,
		LastSeen:     d.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrRegistrationFailed, id, err)
	}

	if err := d.store.Set(key(id), data, d.recordTTL()); err != nil {
		d.logger.Error("Failed to store peer record", "peer", id, "error", err)
		return fmt.Errorf("%w: %s: %w", errors.ErrRegistrationFailed, id, err)
	}

	d.logger.Info("Peer registered", "peer", id, "address", addr)

	return nil
}

// Heartbeat renews a registered peer's last seen time and store expiry.
func (d *Directory) Heartbeat(peerID string) error {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return fmt.Errorf("%w: peer id is required", errors.ErrBadRequest)
	}

	rec, err := d.read(key(peerID))
	if stdErrors.Is(err, errMalformedRecord) {
		return fmt.Errorf("%w: %s: %w", errors.ErrPeerNotFound, peerID, err)
	}
	if err != nil {
		return err
	}

	rec.LastSeen = d.clock.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errors.ErrRegistrationFailed, peerID, err)
	}

	if err := d.store.Replace(key(peerID), data, d.recordTTL()); err != nil {
		if stdErrors.Is(err, store.ErrKeyNotFound) {
			// The record expired between the read and the write.
			return fmt.Errorf("%w: %s", errors.ErrPeerNotFound, peerID)
		}
		return err
	}

	d.logger.Debug("Peer heartbeat", "peer", peerID)

	return nil
}

// Get returns a single peer's record with its derived status, whether or not it is online.
func (d *Directory) Get(peerID string) (domain.PeerRecord, error) {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return domain.PeerRecord{}, fmt.Errorf("%w: peer id is required", errors.ErrBadRequest)
	}

	rec, err := d.read(key(peerID))
	if stdErrors.Is(err, errMalformedRecord) {
		return domain.PeerRecord{}, fmt.Errorf("%w: %s: %w", errors.ErrPeerNotFound, peerID, err)
	}
	if err != nil {
		return domain.PeerRecord{}, err
	}

	return d.toDomain(rec, d.clock.Now()), nil
}

// ListOnline returns the online peers ordered by id.
// Records that cannot be read or decoded are treated as offline and skipped.
func (d *Directory) ListOnline() ([]domain.PeerRecord, error) {
	keys, err := d.store.Keys(keyPrefix)
	if err != nil {
		return nil, err
	}

	now := d.clock.Now()
	peers := make([]domain.PeerRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := d.read(k)
		if err != nil {
			d.logger.Debug("Skipping unreadable peer record", "key", k, "error", err)
			continue
		}
		if !d.isOnline(rec, now) {
			continue
		}
		peers = append(peers, d.toDomain(rec, now))
	}

	return peers, nil
}

// Stats summarizes the peers currently online.
func (d *Directory) Stats() (domain.NetworkStats, error) {
	peers, err := d.ListOnline()
	if err != nil {
		return domain.NetworkStats{}, err
	}

	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ID)
	}

	return domain.NetworkStats{
		TotalPeers: len(peers),
		PeerIDs:    ids,
		Timestamp:  d.clock.Now().UTC(),
	}, nil
}

// SweepDead explicitly deletes every record that is offline or malformed, for store backends where
// expiry is delayed or disabled. It returns the number of records removed.
func (d *Directory) SweepDead() (int, error) {
	keys, err := d.store.Keys(keyPrefix)
	if err != nil {
		return 0, err
	}

	now := d.clock.Now()
	removed := 0
	for _, k := range keys {
		rec, err := d.read(k)
		switch {
		case err == nil && d.isOnline(rec, now):
			continue
		case stdErrors.Is(err, errors.ErrPeerNotFound):
			// Already expired.
			continue
		case stdErrors.Is(err, errors.ErrBackendUnavailable):
			d.logger.Warn("Unable to read peer record during sweep", "key", k, "error", err)
			continue
		}

		if err := d.store.Delete(k); err != nil {
			d.logger.Warn("Failed to delete dead peer", "key", k, "error", err)
			continue
		}
		removed++
		d.logger.Info("Cleaned up dead peer", "peer", strings.TrimPrefix(k, keyPrefix))
	}

	return removed, nil
}

// read loads and decodes the record stored under k.
// Missing records yield errors.ErrPeerNotFound, undecodable ones errMalformedRecord.
func (d *Directory) read(k string) (record, error) {
	data, err := d.store.Get(k)
	if err != nil {
		if stdErrors.Is(err, store.ErrKeyNotFound) {
			return record{}, fmt.Errorf("%w: %s", errors.ErrPeerNotFound, strings.TrimPrefix(k, keyPrefix))
		}
		return record{}, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return record{}, fmt.Errorf("%w: %s: %w", errMalformedRecord, k, err)
	}
	if rec.ID == "" || rec.LastSeen.IsZero() {
		return record{}, fmt.Errorf("%w: %s: missing id or last_seen", errMalformedRecord, k)
	}

	return rec, nil
}

// isOnline reports whether the peer was seen strictly less than the peer timeout ago.
func (d *Directory) isOnline(rec record, now time.Time) bool {
	return now.Sub(rec.LastSeen) < d.peerTimeout
}

func (d *Directory) toDomain(rec record, now time.Time) domain.PeerRecord {
	status := domain.PeerStatusOffline
	if d.isOnline(rec, now) {
		status = domain.PeerStatusOnline
	}

	capabilities := make(map[string]any, len(rec.Capabilities))
	maps.Copy(capabilities, rec.Capabilities)

	return domain.PeerRecord{
		ID:           rec.ID,
		Address:      rec.IP,
		Capabilities: capabilities,
		LastSeen:     rec.LastSeen,
		Status:       status,
	}
}

func (d *Directory) recordTTL() time.Duration {
	return 2 * d.peerTimeout
}

func key(peerID string) string {
	return keyPrefix + peerID
}
