package penmark

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite build database: the post index, the render
// cache keyed by body hash, and the output manifest used for pruning.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the
// parent directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL allows the preview server to read while a build writes, the
	// busy timeout makes writers wait instead of failing with
	// SQLITE_BUSY, and synchronous=NORMAL skips the per-transaction
	// fsync that WAL makes unnecessary.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    date TEXT NOT NULL,
    updated TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL,
    summary TEXT NOT NULL,
    image TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'published',
    layout TEXT NOT NULL DEFAULT 'post',
    link TEXT NOT NULL,
    source TEXT NOT NULL,
    body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS render_cache (
    hash TEXT PRIMARY KEY,
    html TEXT NOT NULL,
    rendered_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS manifest (
    path TEXT PRIMARY KEY,
    build_id TEXT NOT NULL,
    hash TEXT NOT NULL DEFAULT ''
);
`)
	return err
}

const postColumns = `slug, title, date, updated, tags, summary, image, status, layout, link, source, body`

func scanPost(scan func(dest ...any) error) (Post, error) {
	var p Post
	var date, updated, tags, status string
	if err := scan(&p.Slug, &p.Title, &date, &updated, &tags, &p.Summary, &p.Image, &status, &p.Layout, &p.Link, &p.Source, &p.Body); err != nil {
		return Post{}, err
	}
	var err error
	if p.Date, err = time.Parse(time.RFC3339, date); err != nil {
		return Post{}, fmt.Errorf("post %s: bad date %q", p.Slug, date)
	}
	if updated != "" {
		if p.Updated, err = time.Parse(time.RFC3339, updated); err != nil {
			return Post{}, fmt.Errorf("post %s: bad updated %q", p.Slug, updated)
		}
	}
	p.Tags = ParseTags(tags)
	p.Status = Status(status)
	return p, nil
}

// ListPosts returns all published posts ordered by date descending.
// If tag is non-empty, results are filtered to posts containing that tag.
func (s *Store) ListPosts(tag string) ([]Post, error) {
	var rows *sql.Rows
	var err error
	if tag == "" {
		rows, err = s.db.Query(`SELECT ` + postColumns + ` FROM posts WHERE status = 'published' ORDER BY date DESC`)
	} else {
		normalized := strings.ToLower(strings.TrimSpace(tag))
		rows, err = s.db.Query(`SELECT `+postColumns+` FROM posts WHERE status = 'published' AND instr(lower(tags), ',' || ? || ',') > 0 ORDER BY date DESC`, normalized)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListAllPosts returns every post, drafts included, ordered by date descending.
func (s *Store) ListAllPosts() ([]Post, error) {
	rows, err := s.db.Query(`SELECT ` + postColumns + ` FROM posts ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows.Scan)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ListTags returns a sorted, deduplicated slice of all tags from published posts.
func (s *Store) ListTags() ([]string, error) {
	rows, err := s.db.Query(`SELECT tags FROM posts WHERE status = 'published'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range ParseTags(tags) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var result []string
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

// GetPost returns a single published post by slug.
func (s *Store) GetPost(slug string) (Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ? AND status = 'published'`, slug)
	return scanPost(row.Scan)
}

// GetPostAny returns a post by slug regardless of status.
func (s *Store) GetPostAny(slug string) (Post, error) {
	row := s.db.QueryRow(`SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug)
	return scanPost(row.Scan)
}

// SavePost upserts a post into the index. Tags are normalized to lowercase.
func (s *Store) SavePost(p Post) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Date.Format(time.RFC3339), formatUpdated(p.Updated),
		tagString(p.Tags), p.Summary, p.Image, string(p.Status), p.Layout, p.Link, p.Source, p.Body)
	return err
}

// ReplacePosts atomically replaces the whole post index with the given
// set. Builds call this so deleted source files drop out of the index.
func (s *Store) ReplacePosts(posts []Post) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM posts`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO posts (` + postColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range posts {
		if _, err := stmt.Exec(p.Slug, p.Title, p.Date.Format(time.RFC3339), formatUpdated(p.Updated),
			tagString(p.Tags), p.Summary, p.Image, string(p.Status), p.Layout, p.Link, p.Source, p.Body); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeletePost removes a post by slug.
func (s *Store) DeletePost(slug string) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE slug = ?`, slug)
	return err
}

// CachedHTML looks up rendered HTML for a body hash.
func (s *Store) CachedHTML(hash string) (string, bool, error) {
	var html string
	err := s.db.QueryRow(`SELECT html FROM render_cache WHERE hash = ?`, hash).Scan(&html)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return html, true, nil
}

// SaveHTML stores rendered HTML under a body hash.
func (s *Store) SaveHTML(hash, html string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO render_cache (hash, html, rendered_at) VALUES (?, ?, ?)`,
		hash, html, time.Now().UTC().Format(time.RFC3339))
	return err
}

// PruneRenderCache drops cache entries last rendered before cutoff.
func (s *Store) PruneRenderCache(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM render_cache WHERE rendered_at < ?`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordOutput marks an output path as written by the given build.
func (s *Store) RecordOutput(buildID, path, hash string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO manifest (path, build_id, hash) VALUES (?, ?, ?)`,
		path, buildID, hash)
	return err
}

// StaleOutputs returns manifest paths last written by an earlier build.
// These are files the current build no longer produces.
func (s *Store) StaleOutputs(buildID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM manifest WHERE build_id != ? ORDER BY path`, buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ForgetOutputs removes manifest rows for paths that were pruned.
func (s *Store) ForgetOutputs(paths []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, p := range paths {
		if _, err := tx.Exec(`DELETE FROM manifest WHERE path = ?`, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func tagString(tags []string) string {
	normalized := make([]string, len(tags))
	for i, t := range tags {
		normalized[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return "," + strings.Join(normalized, ",") + ","
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
