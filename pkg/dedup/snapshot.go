package dedup

import (
	"encoding/json"
	"fmt"
	"os"

	"leadscout/pkg/models"
)

// SnapshotWriter replaces the ranked active-user report on every write
type SnapshotWriter struct {
	path string
}

// NewSnapshotWriter creates a writer for the snapshot file at path
func NewSnapshotWriter(path string) *SnapshotWriter {
	return &SnapshotWriter{path: path}
}

// Path returns the snapshot location
func (w *SnapshotWriter) Path() string {
	return w.path
}

// Write overwrites the snapshot with users
func (w *SnapshotWriter) Write(users []models.RankedUser) error {
	if users == nil {
		users = []models.RankedUser{}
	}
	return writeJSONAtomic(w.path, users)
}

// ReadSnapshot loads the latest snapshot; a missing file yields no users
func ReadSnapshot(path string) ([]models.RankedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.RankedUser{}, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var users []models.RankedUser
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return users, nil
}
