package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tabsync/tabsync/internal/util"
)

// Record describes a single stored backup.
type Record struct {
	ID         string    `json:"id"`          // Timestamp-based identifier
	CreatedAt  time.Time `json:"created_at"`  // Backup creation timestamp
	SourceHash string    `json:"source_hash"` // SHA-256 of the backed-up content
	Path       string    `json:"path"`        // Location of the stored copy
	Size       int64     `json:"size"`        // Content size in bytes
}

// Index maintains the record catalog for a backup directory.
type Index struct {
	Version string            `json:"version"`
	Updated time.Time         `json:"updated"`
	Records map[string]Record `json:"records"` // Key: record ID
}

const (
	// IndexVersion is the current version of the backup index format
	IndexVersion = "1.0"
	// IndexFilename is the name of the index file
	IndexFilename = "index.json"
)

func (m *Manager) indexPath() string {
	return filepath.Join(m.dir, IndexFilename)
}

// loadIndex reads the index from disk, returning an empty index if absent.
func (m *Manager) loadIndex() (*Index, error) {
	path := m.indexPath()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Index{
			Version: IndexVersion,
			Updated: time.Now(),
			Records: make(map[string]Record),
		}, nil
	}

	// #nosec G304 - path is constructed from the manager's backup directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse index file: %w", err)
	}
	if index.Records == nil {
		index.Records = make(map[string]Record)
	}

	return &index, nil
}

// saveIndex writes the index atomically.
func (m *Manager) saveIndex(index *Index) error {
	index.Updated = time.Now()

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	if err := util.WriteFileAtomic(m.indexPath(), data, FilePerm); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	return nil
}

// addRecord adds a record to the index and saves it.
func (m *Manager) addRecord(index *Index, record Record) error {
	index.Records[record.ID] = record
	return m.saveIndex(index)
}

// sorted returns all records ordered newest first.
func (idx *Index) sorted() []Record {
	records := make([]Record, 0, len(idx.Records))
	for _, record := range idx.Records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}
