// Package backup stores pre-overwrite snapshots of the local configuration
// file and restores them on demand. Every destructive overwrite of the
// local file goes through Snapshot first; records are never deleted
// implicitly unless a retention bound is configured.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tabsync/tabsync/internal/logging"
)

const (
	// DirPerm is the permission for backup directories (rwxr-x---)
	DirPerm = 0o750
	// FilePerm is the permission for backup files (rw-r-----)
	FilePerm = 0o640
)

// Manager writes and restores configuration backups under a single directory.
type Manager struct {
	dir string

	// maxBackups bounds retention; zero or negative means keep everything.
	maxBackups int
}

// NewManager creates a backup manager rooted at dir. maxBackups limits how
// many records are kept (oldest pruned first); zero disables pruning.
func NewManager(dir string, maxBackups int) *Manager {
	return &Manager{dir: dir, maxBackups: maxBackups}
}

// Dir returns the backup storage directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Snapshot durably stores a copy of content before the caller overwrites
// the live file. Either the backup is on disk and indexed when Snapshot
// returns, or an error is returned and the caller must abort the overwrite.
func (m *Manager) Snapshot(content []byte) (*Record, error) {
	if err := os.MkdirAll(m.dir, DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	now := time.Now()
	id := now.Format("20060102-150405-") + hash[:8]
	path := filepath.Join(m.dir, id+".yaml")

	if err := writeDurable(path, content); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}

	record := Record{
		ID:         id,
		CreatedAt:  now,
		SourceHash: hash,
		Path:       path,
		Size:       int64(len(content)),
	}

	index, err := m.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	if err := m.addRecord(index, record); err != nil {
		return nil, fmt.Errorf("failed to index backup: %w", err)
	}

	logging.Debug("created backup",
		logging.Path(path),
		logging.Hash(hash),
	)

	// Pruning runs only after the new snapshot is confirmed durable.
	if m.maxBackups > 0 {
		if err := m.prune(index); err != nil {
			logging.Warn("backup pruning failed", logging.Err(err))
		}
	}

	return &record, nil
}

// Restore returns the content of the identified backup, verifying its hash.
func (m *Manager) Restore(id string) ([]byte, error) {
	index, err := m.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	record, ok := index.Records[id]
	if !ok {
		return nil, fmt.Errorf("backup %q not found", id)
	}

	// #nosec G304 - record path comes from the trusted backup index
	content, err := os.ReadFile(record.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	sum := sha256.Sum256(content)
	if hex.EncodeToString(sum[:]) != record.SourceHash {
		return nil, fmt.Errorf("backup %q corrupted: hash mismatch", id)
	}

	return content, nil
}

// Verify checks that the identified backup exists and matches its hash.
func (m *Manager) Verify(id string) error {
	_, err := m.Restore(id)
	return err
}

// List returns all backup records sorted newest first.
func (m *Manager) List() ([]Record, error) {
	index, err := m.loadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	return index.sorted(), nil
}

// Delete removes a backup and its index entry.
func (m *Manager) Delete(id string) error {
	index, err := m.loadIndex()
	if err != nil {
		return fmt.Errorf("failed to load backup index: %w", err)
	}

	record, ok := index.Records[id]
	if !ok {
		return fmt.Errorf("backup %q not found", id)
	}

	if err := os.Remove(record.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}

	delete(index.Records, id)
	return m.saveIndex(index)
}

// prune removes the oldest records beyond the retention bound.
func (m *Manager) prune(index *Index) error {
	records := index.sorted()
	if len(records) <= m.maxBackups {
		return nil
	}

	for _, record := range records[m.maxBackups:] {
		if err := os.Remove(record.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %q: %w", record.Path, err)
		}
		delete(index.Records, record.ID)
		logging.Debug("pruned backup", logging.Path(record.Path))
	}

	return m.saveIndex(index)
}

// writeDurable writes content and syncs it to disk before returning.
func writeDurable(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FilePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
