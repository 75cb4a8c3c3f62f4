// Package meta persists the per-installation sync metadata record: the
// hash of the configuration last known identical on both sides, when that
// reconciliation happened, the device identity, and the remote revision
// token used for optimistic concurrency.
package meta

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tabsync/tabsync/internal/logging"
	"github.com/tabsync/tabsync/internal/util"
)

// MetadataFilePerm is the permission for the metadata record (rw-r-----).
const MetadataFilePerm = 0o640

// Metadata is the persisted sync state, one instance per installation.
// It is mutated only by the sync engine after a successful reconciliation.
type Metadata struct {
	// LastSyncedHash is the hash of the configuration last known to be
	// identical locally and remotely. Empty on first run.
	LastSyncedHash string `json:"last_synced_hash"`

	// LastSyncedAt records when the last successful reconciliation happened.
	LastSyncedAt time.Time `json:"last_synced_at"`

	// DeviceID is a stable identifier for this machine.
	DeviceID string `json:"device_id"`

	// RemoteRevision is the opaque backend revision token observed at the
	// last reconciliation.
	RemoteRevision string `json:"remote_revision"`
}

// Store loads and saves the metadata record at a fixed path.
type Store struct {
	path string
}

// NewStore creates a metadata store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the metadata record.
func (s *Store) Path() string {
	return s.path
}

// Load reads the metadata record. A missing, corrupt, or unreadable record
// degrades to defaults (empty last-synced hash, fresh device id) rather
// than failing the sync.
func (s *Store) Load() Metadata {
	// #nosec G304 - path is constructed from the trusted config directory
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("metadata record unreadable, using defaults",
				logging.Path(s.path),
				logging.Err(err),
			)
		}
		return defaultMetadata()
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		logging.Warn("metadata record corrupt, using defaults",
			logging.Path(s.path),
			logging.Err(err),
		)
		return defaultMetadata()
	}

	if m.DeviceID == "" {
		m.DeviceID = newDeviceID()
	}

	return m
}

// Save persists the metadata record atomically (write-to-temp-then-rename)
// so a crash mid-save never leaves a half-written record.
func (s *Store) Save(m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := util.WriteFileAtomic(s.path, data, MetadataFilePerm); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Debug("saved sync metadata",
		logging.Path(s.path),
		logging.Hash(m.LastSyncedHash),
		logging.Revision(m.RemoteRevision),
	)

	return nil
}

// defaultMetadata returns first-run metadata: an empty last-synced hash
// forces the engine to treat any reachable content as possibly diverged.
func defaultMetadata() Metadata {
	return Metadata{
		DeviceID: newDeviceID(),
	}
}

func newDeviceID() string {
	return uuid.NewString()
}
