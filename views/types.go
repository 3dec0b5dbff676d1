// Package views holds the theme contract and the built-in default
// theme. A Theme is a set of templ components the engine calls when
// assembling pages; sites swap in their own components to restyle
// everything without touching the build pipeline.
package views

import "github.com/a-h/templ"

// Site carries site-wide settings into every template.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// Page carries per-page OpenGraph and SEO metadata into the <head>.
type Page struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	Image       string // og:image, absolute
	OGType      string // "website" or "article"
	JSONLD      string // schema.org block, already serialized
}

// Post is the view model templates render. Dates arrive preformatted
// so templates stay free of formatting logic.
type Post struct {
	Title     string
	Date      string // human form, e.g. "2 Jan 2006"
	ISODate   string // machine form for <time datetime>
	Updated   string
	Tags      []string
	Summary   string
	Image     string // cover image, absolute URL
	Link      string
	Slug      string
	HTML      string // rendered body
	Draft     bool
	Scheduled bool
	JSONLD    string
}

// Problem is a source file the loader skipped and why, shown on the
// drafts page so broken posts are never silently missing.
type Problem struct {
	Path    string
	Message string
}

// Theme is the set of components the engine renders pages with.
// Every field must be non-nil; Default fills them all.
type Theme struct {
	Home        func(site Site, posts []Post, activeTag string, tags []string) templ.Component
	Post        func(site Site, post Post, related []Post) templ.Component
	Page        func(site Site, post Post) templ.Component
	Tag         func(site Site, tag string, posts []Post) templ.Component
	Drafts      func(site Site, posts []Post, problems []Problem, csrfToken string) templ.Component
	Login       func(site Site, showError bool, csrfToken string) templ.Component
	Search      func(site Site, query string, results []Post) templ.Component
	NotFound    func(site Site) templ.Component
	ServerError func(site Site) templ.Component
}
