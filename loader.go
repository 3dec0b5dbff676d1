package penmark

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/veslund/penmark/frontmatter"
	"github.com/veslund/penmark/markdown"
)

// LoadError records one source file the loader had to skip and why.
// A malformed file never fails the whole load; it is reported and the
// rest of the site builds without it.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e LoadError) Unwrap() error { return e.Err }

// Loader reads Markdown sources under the content root into Posts.
type Loader struct {
	cfg SiteConfig
	log *slog.Logger
}

// NewLoader creates a Loader for the configured content directory.
func NewLoader(cfg SiteConfig, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{cfg: cfg, log: log}
}

var (
	datePrefix  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.*)$`)
	dateLayouts = []string{
		time.RFC3339,
		"2006-01-02 15:04:05 -0700",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// Load walks the content root and returns every post it could parse,
// newest first, along with one LoadError per skipped file. The error
// return is reserved for filesystem failures; parse problems only ever
// show up in the LoadError slice.
func (l *Loader) Load() ([]Post, []LoadError, error) {
	root := l.cfg.ContentDir
	var posts []Post
	var failed []LoadError
	slugs := make(map[string]string) // slug -> source path

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isMarkdown(name) {
			return nil
		}
		post, err := l.LoadFile(path)
		if err != nil {
			rel := relPath(root, path)
			l.log.Warn("skipping post", "path", rel, "error", err)
			failed = append(failed, LoadError{Path: rel, Err: err})
			return nil
		}
		if prev, ok := slugs[post.Slug]; ok {
			l.log.Warn("skipping post", "path", post.Source, "error", "duplicate slug", "first", prev)
			failed = append(failed, LoadError{
				Path: post.Source,
				Err:  fmt.Errorf("duplicate slug %q (already used by %s)", post.Slug, prev),
			})
			return nil
		}
		slugs[post.Slug] = post.Source
		posts = append(posts, post)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Slug < posts[j].Slug
	})
	return posts, failed, nil
}

// LoadFile parses a single source file into a Post.
func (l *Loader) LoadFile(path string) (Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Post{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Post{}, err
	}
	return l.fromSource(relPath(l.cfg.ContentDir, path), data, info.ModTime())
}

func (l *Loader) fromSource(rel string, data []byte, modTime time.Time) (Post, error) {
	var fm FrontMatter
	body, _, err := frontmatter.Decode(data, &fm)
	if err != nil {
		return Post{}, err
	}

	stem, nameDate := splitNameDate(rel)

	status, err := ParseStatus(fm.Status)
	if err != nil {
		return Post{}, err
	}
	// An explicit status: wins; the draft:/published: booleans and the
	// drafts/ directory convention only apply without one.
	if fm.Status == "" {
		switch {
		case fm.Draft != nil:
			if *fm.Draft {
				status = StatusDraft
			} else {
				status = StatusPublished
			}
		case fm.Published != nil:
			if *fm.Published {
				status = StatusPublished
			} else {
				status = StatusDraft
			}
		case inDraftsDir(rel):
			status = StatusDraft
		}
	}

	date := modTime
	switch {
	case fm.Date != "":
		if date, err = parseDate(fm.Date); err != nil {
			return Post{}, fmt.Errorf("date: %w", err)
		}
	case !nameDate.IsZero():
		date = nameDate
	}

	var updated time.Time
	if fm.Updated != "" {
		if updated, err = parseDate(fm.Updated); err != nil {
			return Post{}, fmt.Errorf("updated: %w", err)
		}
	}

	title := strings.TrimSpace(fm.Title)
	if title == "" {
		title = humanize(stem)
	}

	slug := fm.Slug
	if slug == "" {
		slug = Slugify(stem)
	}
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return Post{}, fmt.Errorf("cannot derive a slug (set title or slug)")
	}

	layout := fm.Layout
	if layout == "" {
		layout = "post"
	}

	post := Post{
		Slug:    slug,
		Title:   title,
		Layout:  layout,
		Date:    date,
		Updated: updated,
		Tags:    fm.Tags,
		Summary: strings.TrimSpace(fm.Summary),
		Image:   fm.Image,
		Status:  status,
		Meta:    fm.Extra,
		Body:    string(body),
		Source:  rel,
	}
	if post.Summary == "" {
		post.Summary = markdown.FirstParagraph(body, l.cfg.SummaryLength)
	}
	post.Link = ExpandPermalink(l.cfg.Permalink, post)
	return post, nil
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func inDraftsDir(rel string) bool {
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return first == "drafts"
}

// splitNameDate strips the extension and a Jekyll-style YYYY-MM-DD-
// prefix from a source path, returning the bare stem and the prefix
// date when present.
func splitNameDate(rel string) (string, time.Time) {
	stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	m := datePrefix.FindStringSubmatch(stem)
	if m == nil {
		return stem, time.Time{}
	}
	t, err := time.Parse("2006-01-02", m[1])
	if err != nil || m[2] == "" {
		return stem, time.Time{}
	}
	return m[2], t
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func humanize(stem string) string {
	words := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(words) == 0 {
		return stem
	}
	runes := []rune(strings.Join(words, " "))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}
