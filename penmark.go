// Package penmark compiles a directory of Markdown posts with YAML
// front matter into a finished blog: rendered pages, tag archives, an
// RSS feed, a sitemap and a search index. It also serves the site
// locally with live reload and a password-protected drafts view.
//
// The pipeline is deliberately forgiving: one malformed post is
// reported and skipped, never fatal to the rest of the site.
package penmark

import (
	"log/slog"
	"time"

	"github.com/veslund/penmark/markdown"
	"github.com/veslund/penmark/views"
)

// Engine wires together the loader, renderer, build store and theme.
type Engine struct {
	Config   SiteConfig
	Loader   *Loader
	Renderer *markdown.Renderer
	Store    *Store
	Theme    views.Theme

	log *slog.Logger
	now func() time.Time
	git *GitInfo
}

// Option configures additional Engine behavior.
type Option func(*Engine)

// WithTheme replaces the built-in theme.
func WithTheme(t views.Theme) Option {
	return func(e *Engine) {
		e.Theme = t
	}
}

// WithLogger sets the structured logger the engine reports through.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithClock overrides the time source used for draft and schedule
// decisions. Tests use this to build at a fixed instant.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine for the given site. It opens the build
// database at cfg.CachePath and detects an enclosing git repository
// for last-modified metadata.
func New(cfg SiteConfig, opts ...Option) (*Engine, error) {
	e := &Engine{
		Config: cfg,
		Theme:  views.Default(),
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.Loader = NewLoader(cfg, e.log)
	e.Renderer = markdown.New(markdown.Options{
		HighlightStyle: cfg.HighlightStyle,
		LineNumbers:    cfg.LineNumbers,
	})

	store, err := NewStore(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	e.Store = store

	git, err := OpenGitInfo(cfg.ContentDir)
	if err != nil {
		e.log.Warn("git detection failed", "error", err)
	}
	e.git = git

	return e, nil
}

// Close releases the build database.
func (e *Engine) Close() error {
	if e.Store != nil {
		return e.Store.Close()
	}
	return nil
}
