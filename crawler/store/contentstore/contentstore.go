// Package contentstore implements the embedded content store: a single
// SQLite file of extracted page records, keyed by URL.
package contentstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const maxContentLength = 5000

// PageRecord mirrors a row of the pages table.
type PageRecord struct {
	URL       string
	Title     string
	Content   string
	Language  string
	Timestamp time.Time
	Analyzed  bool
}

// Store wraps a SQLite database, opened with WAL journaling and a
// 30-second busy timeout so concurrent writers coordinate through the
// engine's own busy-wait rather than an application-level mutex.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite file at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=30000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening content store: %w", err)
	}
	return &Store{db: db}, nil
}

// EnsureSchema creates the pages table if absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			url TEXT NOT NULL UNIQUE,
			title TEXT,
			content TEXT,
			language TEXT,
			timestamp DATETIME NOT NULL,
			analyzed BOOLEAN NOT NULL DEFAULT 0
		)`)
	if err != nil {
		return fmt.Errorf("ensuring content store schema: %w", err)
	}
	return nil
}

// Save upserts a page record keyed by url, truncating content to
// maxContentLength characters and resetting analyzed to false.
func (s *Store) Save(ctx context.Context, url, title, content, language string, timestamp time.Time) error {
	if runes := []rune(content); len(runes) > maxContentLength {
		content = string(runes[:maxContentLength])
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (url, title, content, language, timestamp, analyzed)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			language = excluded.language,
			timestamp = excluded.timestamp,
			analyzed = 0`,
		url, title, content, language, timestamp)
	if err != nil {
		return fmt.Errorf("saving page %s: %w", url, err)
	}
	return nil
}

// Exists reports whether url is already present, used by InsertBulk to
// short-circuit links already indexed. Matches queuestore.ContentExists,
// which takes no context.
func (s *Store) Exists(url string) bool {
	var dummy int
	err := s.db.QueryRow("SELECT 1 FROM pages WHERE url = ?", url).Scan(&dummy)
	return err == nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
