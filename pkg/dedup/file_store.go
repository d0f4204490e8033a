package dedup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"leadscout/pkg/logger"
)

// FileStore keeps each set in its own JSON array file
type FileStore struct {
	postsPath string
	usersPath string
	logger    logger.Logger
	mu        sync.Mutex
}

// NewFileStore creates a JSON file backed store. The parent directories are
// created on the first Flush.
func NewFileStore(postsPath, usersPath string, log logger.Logger) *FileStore {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &FileStore{
		postsPath: postsPath,
		usersPath: usersPath,
		logger:    logger.ForComponent(log, "dedup"),
	}
}

// Load reads both files. A missing file counts as an empty set; a corrupt
// one is an error.
func (s *FileStore) Load(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := readList(s.postsPath)
	if err != nil {
		return nil, err
	}
	users, err := readList(s.usersPath)
	if err != nil {
		return nil, err
	}

	state := NewStateFrom(posts, users)
	nPosts, nUsers := state.Len()
	s.logger.InfoWithFields("Dedup state loaded", map[string]interface{}{
		"posts": nPosts,
		"users": nUsers,
	})
	return state, nil
}

// Flush rewrites both files atomically
func (s *FileStore) Flush(ctx context.Context, state *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSONAtomic(s.postsPath, state.PostIDs()); err != nil {
		return err
	}
	if err := writeJSONAtomic(s.usersPath, state.Usernames()); err != nil {
		return err
	}

	nPosts, nUsers := state.Len()
	s.logger.DebugWithFields("Dedup state saved", map[string]interface{}{
		"posts": nPosts,
		"users": nUsers,
	})
	return nil
}

// Close is a no-op for file storage
func (s *FileStore) Close() error {
	return nil
}

func readList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return list, nil
}

// writeJSONAtomic writes v as indented JSON via a synced temp file and rename
func writeJSONAtomic(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
