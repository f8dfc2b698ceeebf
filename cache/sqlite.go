package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// SQLiteCache stores entries in a single SQLite table.
type SQLiteCache struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteCache creates a new cache with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteCache(filename string) (*SQLiteCache, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite db %s: %w", filename, err)
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			expires INTEGER,
			requested_at INTEGER,
			received_at INTEGER,
			bytes BLOB
		)`,
		"CREATE INDEX IF NOT EXISTS expires_idx ON cache (expires)",
		"PRAGMA journal_mode=WAL",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("could not initialize sqlite db: %w", err)
		}
	}
	return &SQLiteCache{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s *SQLiteCache) Get(ctx context.Context, key string) (CacheEntry, bool, error) {
	entry := CacheEntry{Key: key}
	var exp, req, rec int64
	err := s.db.QueryRowContext(ctx,
		"SELECT expires, requested_at, received_at, bytes FROM cache WHERE key = ?", key,
	).Scan(&exp, &req, &rec, &entry.Bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return CacheEntry{}, false, nil
	}
	if err != nil {
		return CacheEntry{}, false, err
	}
	entry.Expires = fromUnix(exp)
	entry.RequestedAt = fromUnix(req)
	entry.ReceivedAt = fromUnix(rec)
	return entry, true, nil
}

func (s *SQLiteCache) Put(ctx context.Context, ce CacheEntry) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO cache
		(key, expires, requested_at, received_at, bytes) VALUES (?, ?, ?, ?, ?)`,
		ce.Key, toUnix(ce.Expires), toUnix(ce.RequestedAt), toUnix(ce.ReceivedAt), ce.Bytes)
	return err
}

func (s *SQLiteCache) Purge(ctx context.Context, key string) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache WHERE key = ?", key)
	return err
}

func (s *SQLiteCache) AllKeys(ctx context.Context, prefix string, cb func(string)) error {
	// keys are collected first so that cb may write to the cache
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM cache WHERE instr(key, ?) = 1 ORDER BY expires ASC", prefix)
	if err != nil {
		return err
	}
	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return err
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, key := range keys {
		cb(key)
	}
	return nil
}

func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
