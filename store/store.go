// Package store persists extracted items and the seen-URL ledger in
// SQLite. The engine itself never touches storage: callers seed it with
// SeenURLs and drain the item sequence into SaveItem.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/use-agent/skimmer/models"
)

// Store is a SQLite-backed item sink and deduplication ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS seen_urls (
		source     TEXT NOT NULL,
		url        TEXT NOT NULL,
		first_seen TIMESTAMP NOT NULL,
		PRIMARY KEY (source, url)
	);
	CREATE TABLE IF NOT EXISTS items (
		source      TEXT NOT NULL,
		url         TEXT NOT NULL,
		ingested_at TIMESTAMP NOT NULL,
		fields      TEXT NOT NULL,
		PRIMARY KEY (source, url)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SeenURLs returns every URL previously recorded for source, in the set
// form the extraction engine consumes as its dedup seed.
func (s *Store) SeenURLs(source string) (map[string]struct{}, error) {
	rows, err := s.db.Query("SELECT url FROM seen_urls WHERE source = ?", source)
	if err != nil {
		return nil, fmt.Errorf("failed to query seen urls: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan seen url: %w", err)
		}
		seen[url] = struct{}{}
	}
	return seen, rows.Err()
}

// SaveItem persists one extracted item under its source and URL and marks
// the URL seen. Re-saving the same URL replaces the stored fields but
// keeps the original first_seen.
func (s *Store) SaveItem(source, url string, item models.Item) error {
	fields, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item fields: %w", err)
	}

	now := time.Now().UTC()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO seen_urls (source, url, first_seen) VALUES (?, ?, ?)",
		source, url, now,
	); err != nil {
		return fmt.Errorf("failed to record seen url: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO items (source, url, ingested_at, fields) VALUES (?, ?, ?, ?)",
		source, url, now, string(fields),
	); err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return tx.Commit()
}

// CountItems returns the number of stored items for source.
func (s *Store) CountItems(source string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM items WHERE source = ?", source).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}
