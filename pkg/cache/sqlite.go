package cache

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteCache persists entries in a single-table SQLite database.
type SQLiteCache struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteCache returns a cache backed by the database at path. Call
// Init before use.
func NewSQLiteCache(path string) *SQLiteCache {
	return &SQLiteCache{path: path}
}

// Init opens the database and creates the table if needed.
func (s *SQLiteCache) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("cache: sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cells (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}
	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM cells WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteCache) Set(ctx context.Context, key string, data []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO cells (key, payload)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload
	`, key, data)
	return err
}

func (s *SQLiteCache) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteCache) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("cache: sqlite cache is not initialized")
	}
	return s.db, nil
}

var _ Cache = (*SQLiteCache)(nil)
