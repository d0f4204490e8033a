package dedup

import (
	"context"
	"fmt"

	"leadscout/pkg/config"
	"leadscout/pkg/logger"
)

// Store loads and persists dedup state
type Store interface {
	// Load returns the persisted state; missing storage yields an empty state
	Load(ctx context.Context) (*State, error)
	// Flush overwrites durable storage with the full state
	Flush(ctx context.Context, state *State) error
	Close() error
}

// Open creates the store selected by the storage backend setting
func Open(cfg config.StorageConfig, log logger.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "json":
		return NewFileStore(cfg.Path(cfg.PostsFile), cfg.Path(cfg.UsersFile), log), nil
	case "sqlite":
		return OpenSQLite(cfg.Path(cfg.SQLitePath), log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
