package registry

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/mod/semver"

	"github.com/pendergraft/decentradns/internal/storage"
)

// SnapshotFormatVersion is the version written into exported snapshots.
// Imports accept any snapshot with the same major version.
const SnapshotFormatVersion = "v1.1.0"

// Snapshot is a full export of the store.
type Snapshot struct {
	FormatVersion string          `json:"formatVersion"`
	ExportedAt    time.Time       `json:"exportedAt"`
	Domains       []DomainRecord  `json:"domains"`
	History       []HistoryRecord `json:"history"`
}

// Export returns a consistent copy of both collections.
func (s *Store) Export(ctx context.Context) (*Snapshot, error) {
	s.lock()
	defer s.unlock(ctx)

	domains, err := s.loadDomains(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		FormatVersion: SnapshotFormatVersion,
		ExportedAt:    s.now().UTC(),
		Domains:       domains,
		History:       history,
	}, nil
}

// Import replaces both collections with the snapshot contents. History
// beyond the limit is dropped. No history entries are generated.
func (s *Store) Import(ctx context.Context, snap *Snapshot) error {
	if err := CheckSnapshotVersion(snap.FormatVersion); err != nil {
		return err
	}

	seen := make(map[string]bool, len(snap.Domains))
	for _, d := range snap.Domains {
		if err := checkName(d.Name); err != nil {
			return err
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate name %s in snapshot", ErrAlreadyExists, d.Name)
		}
		if d.Status != "" && !d.Status.Valid() {
			return fmt.Errorf("domain %s has unknown status %q", d.Name, d.Status)
		}
		seen[d.Name] = true
	}

	history := snap.History
	if len(history) > s.historyLimit {
		history = history[:s.historyLimit]
	}
	domains := snap.Domains
	if domains == nil {
		domains = []DomainRecord{}
	}
	if history == nil {
		history = []HistoryRecord{}
	}

	s.lock()
	defer s.unlock(ctx)

	if err := s.writeJSON(ctx, storage.DomainsKey, domains); err != nil {
		return err
	}
	return s.writeJSON(ctx, storage.HistoryKey, history)
}

// CheckSnapshotVersion rejects snapshots from another major version.
func CheckSnapshotVersion(v string) error {
	if !semver.IsValid(v) {
		return fmt.Errorf("invalid snapshot format version %q", v)
	}
	if semver.Major(v) != semver.Major(SnapshotFormatVersion) {
		return fmt.Errorf("unsupported snapshot format %s (want %s.x)", v, semver.Major(SnapshotFormatVersion))
	}
	return nil
}
