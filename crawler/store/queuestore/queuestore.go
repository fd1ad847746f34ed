// Package queuestore implements the transactional URL queue: the
// claim/insert/mark lifecycle and per-domain attempt counters, backed by
// MySQL row-level locking.
package queuestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/ayfilter/crawler/crawler/config"
	"github.com/ayfilter/crawler/crawler/urlutil"
)

// URLRecord mirrors a row of the urls table.
type URLRecord struct {
	ID          int64
	URL         string
	Domain      string
	InProgress  bool
	Visited     bool
	ErrorCount  int
	LastCrawled sql.NullTime
	LastError   sql.NullTime
}

// Store wraps a MySQL connection pool implementing the queue-store
// operations.
type Store struct {
	db   *sql.DB
	cfg  config.Config
}

// Open connects to MySQL using cfg.MySQL and sizes the pool to
// MaxConcurrentRequests plus headroom.
func Open(cfg config.Config) (*Store, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		cfg.MySQL.User, cfg.MySQL.Password, cfg.MySQL.Host, cfg.MySQL.Port, cfg.MySQL.Database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening queue store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConcurrentRequests + 5)
	return &Store{db: db, cfg: cfg}, nil
}

// EnsureSchema creates the urls/domain_counters/error_logs tables if
// absent and backfills any null domain column left by a prior schema
// version.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS urls (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			url VARCHAR(2048) NOT NULL,
			domain VARCHAR(255) NOT NULL,
			in_progress BOOLEAN NOT NULL DEFAULT FALSE,
			visited BOOLEAN NOT NULL DEFAULT FALSE,
			error_count INT NOT NULL DEFAULT 0,
			last_crawled DATETIME NULL,
			last_error DATETIME NULL,
			UNIQUE KEY uniq_url (url(768)),
			KEY idx_domain (domain),
			KEY idx_eligibility (visited, in_progress, error_count)
		)`,
		`CREATE TABLE IF NOT EXISTS domain_counters (
			domain VARCHAR(255) PRIMARY KEY,
			count INT NOT NULL DEFAULT 0,
			last_updated DATE NOT NULL,
			is_whitelisted BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS error_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			url VARCHAR(2048) NOT NULL,
			error_type VARCHAR(64) NOT NULL,
			error_message TEXT,
			timestamp DATETIME NOT NULL
		)`,
		`UPDATE urls SET domain = SUBSTRING_INDEX(SUBSTRING_INDEX(url, '/', 3), '//', -1) WHERE domain IS NULL OR domain = ''`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring queue store schema: %w", err)
		}
	}
	return nil
}

// SeedIfEmpty inserts the configured seed URLs when the urls table is
// empty.
func (s *Store) SeedIfEmpty(ctx context.Context, seeds []string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM urls").Scan(&count); err != nil {
		return fmt.Errorf("counting urls: %w", err)
	}
	if count > 0 {
		return nil
	}
	return s.InsertBulk(ctx, seeds, noopExists)
}

func noopExists(string) bool { return false }

// ContentExists reports whether a candidate link is already present in
// the content store; InsertBulk uses it to short-circuit before checking
// the queue store itself.
type ContentExists func(url string) bool

// Claim returns up to limit eligible URL records and marks them
// in_progress within a single transaction. Priority-domain rows sort
// first, then oldest last_crawled (nulls first), then ascending id. Rows
// already locked by a concurrent claimant are skipped via SKIP LOCKED.
func (s *Store) Claim(ctx context.Context, limit int, priorityDomains []string, priorityInterval time.Duration, maxErrorCount int) ([]URLRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim: begin tx: %w", err)
	}
	defer tx.Rollback()

	cutoff := time.Now().Add(-priorityInterval)
	query := `
		SELECT id, url, domain, in_progress, visited, error_count, last_crawled, last_error
		FROM urls
		WHERE error_count < ?
		  AND (
		    (visited = FALSE AND in_progress = FALSE)
		    OR (visited = TRUE AND domain IN (` + placeholders(len(priorityDomains)) + `) AND last_crawled < ?)
		  )
		ORDER BY FIELD(domain, ` + placeholders(len(priorityDomains)) + `) DESC, last_crawled IS NULL DESC, last_crawled ASC, id ASC
		LIMIT ?
		FOR UPDATE SKIP LOCKED`

	args := []interface{}{maxErrorCount}
	for _, d := range priorityDomains {
		args = append(args, d)
	}
	args = append(args, cutoff)
	for _, d := range priorityDomains {
		args = append(args, d)
	}
	args = append(args, limit)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("claim: select: %w", err)
	}
	var records []URLRecord
	var ids []int64
	for rows.Next() {
		var r URLRecord
		if err := rows.Scan(&r.ID, &r.URL, &r.Domain, &r.InProgress, &r.Visited, &r.ErrorCount, &r.LastCrawled, &r.LastError); err != nil {
			rows.Close()
			return nil, fmt.Errorf("claim: scan: %w", err)
		}
		records = append(records, r)
		ids = append(ids, r.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim: rows: %w", err)
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, "UPDATE urls SET in_progress = TRUE WHERE id = ?", id); err != nil {
			return nil, fmt.Errorf("claim: mark in_progress: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim: commit: %w", err)
	}
	for i := range records {
		records[i].InProgress = true
	}
	return records, nil
}

// InsertBulk canonicalizes and deduplicates links, discards any already
// present in the content store (via exists) or the queue store, and
// inserts the survivors. Duplicate-key races fall back to per-row
// inserts with duplicates ignored; the overall operation is idempotent.
func (s *Store) InsertBulk(ctx context.Context, links []string, exists ContentExists) error {
	candidates := make(map[string]struct{})
	for _, l := range links {
		if !urlutil.IsValid(l) {
			continue
		}
		canon := urlutil.Normalize(l)
		if exists != nil && exists(canon) {
			continue
		}
		candidates[canon] = struct{}{}
	}
	if len(candidates) == 0 {
		return nil
	}

	survivors := make([]string, 0, len(candidates))
	for canon := range candidates {
		var dummy int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM urls WHERE url = ?", canon).Scan(&dummy)
		if err == sql.ErrNoRows {
			survivors = append(survivors, canon)
		} else if err != nil {
			return fmt.Errorf("insert_bulk: existence check: %w", err)
		}
	}
	if len(survivors) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert_bulk: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO urls (url, domain, in_progress, visited) VALUES (?, ?, FALSE, FALSE)")
	if err != nil {
		return fmt.Errorf("insert_bulk: prepare: %w", err)
	}
	defer stmt.Close()

	bulkFailed := false
	for _, canon := range survivors {
		if _, err := stmt.ExecContext(ctx, canon, urlutil.Domain(canon)); err != nil {
			bulkFailed = true
			break
		}
	}
	if !bulkFailed {
		return tx.Commit()
	}

	// A duplicate-key race (or any other per-row failure) swallows the
	// whole transaction and falls back to isolated per-row inserts that
	// ignore individual duplicates.
	tx.Rollback()
	for _, canon := range survivors {
		_, err := s.db.ExecContext(ctx, "INSERT IGNORE INTO urls (url, domain, in_progress, visited) VALUES (?, ?, FALSE, FALSE)", canon, urlutil.Domain(canon))
		if err != nil {
			return fmt.Errorf("insert_bulk: fallback insert: %w", err)
		}
	}
	return nil
}

// MarkVisited sets visited=true, in_progress=false, last_crawled=now.
func (s *Store) MarkVisited(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE urls SET visited = TRUE, in_progress = FALSE, last_crawled = ? WHERE id = ?",
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("mark_visited: %w", err)
	}
	return nil
}

// MarkError sets in_progress=false, last_error=now, error_count += 1 and
// returns the resulting error_count.
func (s *Store) MarkError(ctx context.Context, id int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mark_error: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE urls SET in_progress = FALSE, last_error = ?, error_count = error_count + 1 WHERE id = ?",
		time.Now(), id); err != nil {
		return 0, fmt.Errorf("mark_error: update: %w", err)
	}
	var errorCount int
	if err := tx.QueryRowContext(ctx, "SELECT error_count FROM urls WHERE id = ?", id).Scan(&errorCount); err != nil {
		return 0, fmt.Errorf("mark_error: select: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mark_error: commit: %w", err)
	}
	return errorCount, nil
}

// LogError appends an entry to the error_logs table.
func (s *Store) LogError(ctx context.Context, url, errorType, message string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO error_logs (url, error_type, error_message, timestamp) VALUES (?, ?, ?, ?)",
		url, errorType, message, time.Now())
	return err
}

// UpdateDomainCounter fetches or creates the domain's counter row under a
// row lock: rolling over count to zero on a new UTC day for
// non-whitelisted domains, refusing to increment past domainLimit, and
// otherwise incrementing. Returns the post-operation (count, whitelisted).
func (s *Store) UpdateDomainCounter(ctx context.Context, domain string, whitelisted bool, domainLimit int) (int, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("update_domain_counter: begin tx: %w", err)
	}
	defer tx.Rollback()

	today := time.Now().UTC().Truncate(24 * time.Hour)

	var count int
	var lastUpdated time.Time
	var isWhitelisted bool
	err = tx.QueryRowContext(ctx,
		"SELECT count, last_updated, is_whitelisted FROM domain_counters WHERE domain = ? FOR UPDATE", domain).
		Scan(&count, &lastUpdated, &isWhitelisted)
	if err == sql.ErrNoRows {
		count, lastUpdated, isWhitelisted = 0, today, whitelisted
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO domain_counters (domain, count, last_updated, is_whitelisted) VALUES (?, ?, ?, ?)",
			domain, 0, today, whitelisted); err != nil {
			return 0, false, fmt.Errorf("update_domain_counter: insert: %w", err)
		}
	} else if err != nil {
		return 0, false, fmt.Errorf("update_domain_counter: select: %w", err)
	}

	if lastUpdated.Before(today) && !isWhitelisted {
		count = 0
	}

	if !isWhitelisted && count >= domainLimit {
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("update_domain_counter: commit: %w", err)
		}
		return count, isWhitelisted, nil
	}

	count++
	if _, err := tx.ExecContext(ctx,
		"UPDATE domain_counters SET count = ?, last_updated = ?, is_whitelisted = ? WHERE domain = ?",
		count, today, isWhitelisted, domain); err != nil {
		return 0, false, fmt.Errorf("update_domain_counter: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("update_domain_counter: commit: %w", err)
	}
	return count, isWhitelisted, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func placeholders(n int) string {
	if n == 0 {
		return "NULL"
	}
	out := "?"
	for i := 1; i < n; i++ {
		out += ", ?"
	}
	return out
}
