package penmark

import (
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = sql.ErrNoRows

// LoadFunc produces the current post set. The preview server wires the
// Loader in here so edits on disk show up after the TTL, or right away
// after an Invalidate from the file watcher.
type LoadFunc func() ([]Post, []LoadError, error)

// PostCache is an in-memory cache of loaded posts and tags with TTL.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	tags    []string
	errs    []LoadError
	fetched time.Time
	ttl     time.Duration
	load    LoadFunc
}

// NewPostCache creates a PostCache backed by the given load function.
func NewPostCache(load LoadFunc, ttl time.Duration) *PostCache {
	return &PostCache{load: load, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.errs = nil
	c.mu.Unlock()
}

func (c *PostCache) reload() error {
	if c.valid() {
		return nil
	}
	posts, errs, err := c.load()
	if err != nil {
		return err
	}
	c.posts = posts
	c.tags = publishedTags(posts)
	c.errs = errs
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached state after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded() ([]Post, []string, []LoadError, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags, errs := c.posts, c.tags, c.errs
		c.mu.RUnlock()
		return posts, tags, errs, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.reload(); err != nil {
		return nil, nil, nil, err
	}
	return c.posts, c.tags, c.errs, nil
}

// ListPosts returns live published posts, optionally filtered by tag.
// Drafts and future-dated posts are excluded.
func (c *PostCache) ListPosts(tag string) ([]Post, error) {
	posts, _, _, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []Post
	for _, p := range posts {
		if !p.Published() || p.Scheduled(now) {
			continue
		}
		if tag != "" && !hasTag(p, tag) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ListDrafts returns posts hidden from the public site: drafts and
// published posts whose date is still in the future.
func (c *PostCache) ListDrafts() ([]Post, error) {
	posts, _, _, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []Post
	for _, p := range posts {
		if p.Status == StatusDraft || p.Scheduled(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListTags returns all unique tags from published posts.
func (c *PostCache) ListTags() ([]string, error) {
	_, tags, _, err := c.ensureLoaded()
	return tags, err
}

// Errors returns the load errors from the most recent refresh, one per
// source file the loader had to skip.
func (c *PostCache) Errors() ([]LoadError, error) {
	_, _, errs, err := c.ensureLoaded()
	return errs, err
}

// GetPost returns a single published post by slug from the cache.
func (c *PostCache) GetPost(slug string) (Post, error) {
	posts, err := c.ListPosts("")
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

// PostByLink returns the post whose permalink matches link, regardless
// of status. The caller decides whether hidden posts may be shown.
func (c *PostCache) PostByLink(link string) (Post, error) {
	posts, _, _, err := c.ensureLoaded()
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Link == link {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

// GetPostAny returns a post by slug regardless of status.
func (c *PostCache) GetPostAny(slug string) (Post, error) {
	posts, _, _, err := c.ensureLoaded()
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}

func hasTag(p Post, tag string) bool {
	normalized := normalizeTag(tag)
	for _, t := range p.Tags {
		if normalizeTag(t) == normalized {
			return true
		}
	}
	return false
}

func publishedTags(posts []Post) []string {
	set := make(map[string]struct{})
	for _, p := range posts {
		if !p.Published() {
			continue
		}
		for _, t := range p.Tags {
			set[normalizeTag(t)] = struct{}{}
		}
	}
	var tags []string
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
