package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"leadscout/pkg/logger"
)

// insertBatch keeps multi-row inserts well below SQLite's variable limit
const insertBatch = 400

// SQLiteStore keeps the sets in two keyed tables. Flush only inserts; rows
// are never updated or deleted.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger

	mu        sync.Mutex
	persisted struct {
		posts map[string]struct{}
		users map[string]struct{}
	}
}

// OpenSQLite opens or creates the database at path
func OpenSQLite(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening dedup db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger.ForComponent(log, "dedup")}
	s.persisted.posts = make(map[string]struct{})
	s.persisted.users = make(map[string]struct{})
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS seen_posts (
			id      TEXT PRIMARY KEY,
			seen_at DATETIME NOT NULL
		);
		CREATE TABLE IF NOT EXISTS seen_users (
			username TEXT PRIMARY KEY,
			seen_at  DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Load reads both tables in insertion order
func (s *SQLiteStore) Load(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.selectColumn(ctx, "seen_posts", "id")
	if err != nil {
		return nil, err
	}
	users, err := s.selectColumn(ctx, "seen_users", "username")
	if err != nil {
		return nil, err
	}

	for _, id := range posts {
		s.persisted.posts[id] = struct{}{}
	}
	for _, u := range users {
		s.persisted.users[u] = struct{}{}
	}

	s.logger.InfoWithFields("Dedup state loaded", map[string]interface{}{
		"posts":   len(posts),
		"users":   len(users),
		"backend": "sqlite",
	})
	return NewStateFrom(posts, users), nil
}

func (s *SQLiteStore) selectColumn(ctx context.Context, table, column string) ([]string, error) {
	query, args, err := sq.Select(column).From(table).OrderBy("rowid").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Flush inserts every entry not yet stored, in one transaction
func (s *SQLiteStore) Flush(ctx context.Context, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newPosts := missing(state.PostIDs(), s.persisted.posts)
	newUsers := missing(state.Usernames(), s.persisted.users)
	if len(newPosts) == 0 && len(newUsers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning flush: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if err := insertIgnore(ctx, tx, "seen_posts", "id", newPosts, now); err != nil {
		return err
	}
	if err := insertIgnore(ctx, tx, "seen_users", "username", newUsers, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing flush: %w", err)
	}

	for _, id := range newPosts {
		s.persisted.posts[id] = struct{}{}
	}
	for _, u := range newUsers {
		s.persisted.users[u] = struct{}{}
	}

	s.logger.DebugWithFields("Dedup state saved", map[string]interface{}{
		"new_posts": len(newPosts),
		"new_users": len(newUsers),
		"backend":   "sqlite",
	})
	return nil
}

func insertIgnore(ctx context.Context, tx *sql.Tx, table, column string, values []string, now time.Time) error {
	for start := 0; start < len(values); start += insertBatch {
		end := min(start+insertBatch, len(values))

		builder := sq.Insert(table).Options("OR IGNORE").Columns(column, "seen_at")
		for _, v := range values[start:end] {
			builder = builder.Values(v, now)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return fmt.Errorf("building insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return nil
}

func missing(values []string, have map[string]struct{}) []string {
	var out []string
	for _, v := range values {
		if _, ok := have[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
