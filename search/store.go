package search

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides database operations for the search index.
type Store struct {
	db *sql.DB
}

// NewStore opens the search index database, creating it if needed.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open search db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the index tables if they don't exist.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS posts_fts USING fts5(
			slug UNINDEXED,
			link UNINDEXED,
			date UNINDEXED,
			title,
			tags,
			summary,
			body,
			tokenize = 'porter unicode61'
		);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

// migrate applies incremental schema migrations based on a version stored in the settings table.
func (s *Store) migrate() error {
	verStr, err := s.GetSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}

	if version < 1 {
		version = 1
	}

	return s.SetSetting("schema_version", strconv.Itoa(version))
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// SetSetting stores a setting value by key.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Reindex replaces the entire index with the given documents.
func (s *Store) Reindex(docs []Document) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin reindex: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM posts_fts`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO posts_fts (slug, link, date, title, tags, summary, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range docs {
		_, err := stmt.Exec(d.Slug, d.Link, d.Date.Format(time.RFC3339),
			d.Title, joinTags(d.Tags), d.Summary, d.Body)
		if err != nil {
			return fmt.Errorf("index post %s: %w", d.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reindex: %w", err)
	}
	return s.SetSetting("last_reindex", time.Now().UTC().Format(time.RFC3339))
}

// Query returns up to limit documents matching q, best matches first.
// An empty or unsearchable query returns no results and no error.
func (s *Store) Query(q string, limit int) ([]Result, error) {
	match := buildMatchQuery(q)
	if match == "" {
		return nil, nil
	}

	rows, err := s.db.Query(`
		SELECT slug, link, date, title, tags, summary,
		       snippet(posts_fts, 6, '<mark>', '</mark>', ' … ', 18)
		FROM posts_fts
		WHERE posts_fts MATCH ?
		ORDER BY bm25(posts_fts, 0.0, 0.0, 0.0, 10.0, 4.0, 2.0, 1.0)
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var date, tags string
		if err := rows.Scan(&r.Slug, &r.Link, &date, &r.Title, &tags, &r.Summary, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if date != "" {
			t, err := time.Parse(time.RFC3339, date)
			if err != nil {
				return nil, fmt.Errorf("parse date for %s: %w", r.Slug, err)
			}
			r.Date = t
		}
		r.Tags = splitTags(tags)
		results = append(results, r)
	}
	return results, rows.Err()
}

// Count reports how many documents are currently indexed.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT count(*) FROM posts_fts`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
