package penmark

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/veslund/penmark/frontmatter"
)

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := SiteConfig{ContentDir: dir, Permalink: "/blog/:slug/", SummaryLength: 160}
	return NewLoader(cfg, nil), dir
}

func TestLoadFile(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "2024-01-15-hello-world.md", `---
title: "Hello, World"
date: 2024-01-15
tags: [go, blogging]
summary: A first post.
image: /img/hello.png
---

Body text.
`)

	post, err := l.LoadFile(filepath.Join(dir, "2024-01-15-hello-world.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if post.Title != "Hello, World" {
		t.Errorf("Title = %q", post.Title)
	}
	if post.Slug != "hello-world" {
		t.Errorf("Slug = %q, want hello-world", post.Slug)
	}
	if !post.Date.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", post.Date)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "go" {
		t.Errorf("Tags = %v", post.Tags)
	}
	if post.Summary != "A first post." {
		t.Errorf("Summary = %q", post.Summary)
	}
	if post.Image != "/img/hello.png" {
		t.Errorf("Image = %q", post.Image)
	}
	if post.Status != StatusPublished {
		t.Errorf("Status = %q, want published", post.Status)
	}
	if post.Link != "/blog/hello-world/" {
		t.Errorf("Link = %q", post.Link)
	}
	if strings.TrimSpace(post.Body) != "Body text." {
		t.Errorf("Body = %q", post.Body)
	}
}

func TestLoadSkipsMalformedAndReports(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "good-one.md", "---\ntitle: One\n---\nbody")
	writeSource(t, dir, "good-two.md", "---\ntitle: Two\n---\nbody")
	// Opening delimiter with no closing delimiter.
	writeSource(t, dir, "broken.md", "---\ntitle: Broken\nbody without end")

	posts, failed, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(posts) != 2 {
		t.Errorf("got %d posts, want 2", len(posts))
	}
	if len(failed) != 1 {
		t.Fatalf("got %d load errors, want 1", len(failed))
	}
	if failed[0].Path != "broken.md" {
		t.Errorf("failed path = %q, want broken.md", failed[0].Path)
	}
	if !errors.Is(failed[0].Err, frontmatter.ErrUnclosedFrontMatter) {
		t.Errorf("failed err = %v, want ErrUnclosedFrontMatter", failed[0].Err)
	}
}

func TestLoadSkipsBadFieldValues(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "bad-date.md", "---\ntitle: X\ndate: not-a-date\n---\nbody")
	writeSource(t, dir, "bad-status.md", "---\ntitle: Y\nstatus: pending\n---\nbody")
	writeSource(t, dir, "fine.md", "---\ntitle: Z\n---\nbody")

	posts, failed, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "fine" {
		t.Errorf("posts = %v, want just fine", posts)
	}
	if len(failed) != 2 {
		t.Errorf("got %d load errors, want 2", len(failed))
	}
}

func TestLoadRejectsDuplicateSlugs(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "2024-01-01-same-slug.md", "---\ntitle: First\n---\nbody")
	writeSource(t, dir, "2024-06-01-same-slug.md", "---\ntitle: Second\n---\nbody")

	posts, failed, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(posts) != 1 {
		t.Errorf("got %d posts, want 1", len(posts))
	}
	if len(failed) != 1 || !strings.Contains(failed[0].Err.Error(), "duplicate slug") {
		t.Errorf("failed = %v, want one duplicate slug error", failed)
	}
}

func TestLoadOrdersNewestFirst(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "old.md", "---\ntitle: Old\ndate: 2023-01-01\n---\nbody")
	writeSource(t, dir, "new.md", "---\ntitle: New\ndate: 2024-06-01\n---\nbody")
	writeSource(t, dir, "mid.md", "---\ntitle: Mid\ndate: 2023-09-01\n---\nbody")

	posts, _, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []string{"new", "mid", "old"}
	for i, slug := range want {
		if posts[i].Slug != slug {
			t.Errorf("posts[%d] = %s, want %s", i, posts[i].Slug, slug)
		}
	}
}

func TestFilenameDateFallback(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "2024-03-05-from-filename.md", "---\ntitle: X\n---\nbody")

	post, err := l.LoadFile(filepath.Join(dir, "2024-03-05-from-filename.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if !post.Date.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v, want 2024-03-05 from the filename", post.Date)
	}
	if post.Slug != "from-filename" {
		t.Errorf("Slug = %q, want date prefix stripped", post.Slug)
	}
}

func TestExplicitSlugWins(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "whatever.md", "---\ntitle: X\nslug: custom-slug\n---\nbody")

	post, err := l.LoadFile(filepath.Join(dir, "whatever.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if post.Slug != "custom-slug" {
		t.Errorf("Slug = %q, want custom-slug", post.Slug)
	}
}

func TestDraftsDirectoryImpliesDraft(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "drafts/wip.md", "---\ntitle: WIP\n---\nbody")
	writeSource(t, dir, "drafts/forced.md", "---\ntitle: Forced\nstatus: published\n---\nbody")

	wip, err := l.LoadFile(filepath.Join(dir, "drafts", "wip.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if wip.Status != StatusDraft {
		t.Errorf("Status = %q, want draft for drafts/ file", wip.Status)
	}

	// An explicit status always beats the directory convention.
	forced, err := l.LoadFile(filepath.Join(dir, "drafts", "forced.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if forced.Status != StatusPublished {
		t.Errorf("Status = %q, want published when declared", forced.Status)
	}
}

func TestDraftFlagCompatibility(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "jekyll-style.md", "---\ntitle: X\ndraft: true\n---\nbody")

	post, err := l.LoadFile(filepath.Join(dir, "jekyll-style.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if post.Status != StatusDraft {
		t.Errorf("Status = %q, want draft via the boolean flag", post.Status)
	}
}

func TestPublishedFlagCompatibility(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "hidden.md", "---\ntitle: Hidden\npublished: false\n---\nbody")
	writeSource(t, dir, "drafts/early.md", "---\ntitle: Early\npublished: true\n---\nbody")

	hidden, err := l.LoadFile(filepath.Join(dir, "hidden.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if hidden.Status != StatusDraft {
		t.Errorf("Status = %q, want draft for published: false", hidden.Status)
	}

	// The boolean beats the directory convention.
	early, err := l.LoadFile(filepath.Join(dir, "drafts", "early.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if early.Status != StatusPublished {
		t.Errorf("Status = %q, want published when declared", early.Status)
	}
}

func TestTitleFallsBackToFilename(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "2024-01-01-nice-little-post.md", "---\ntags: [x]\n---\nbody")

	post, err := l.LoadFile(filepath.Join(dir, "2024-01-01-nice-little-post.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if post.Title != "Nice little post" {
		t.Errorf("Title = %q, want humanized filename", post.Title)
	}
}

func TestSummaryDerivedFromFirstParagraph(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "no-summary.md", `---
title: X
---

The opening paragraph becomes the summary.

Second paragraph is ignored.
`)

	post, err := l.LoadFile(filepath.Join(dir, "no-summary.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if post.Summary != "The opening paragraph becomes the summary." {
		t.Errorf("Summary = %q", post.Summary)
	}
}

func TestLoadIgnoresHiddenDirsAndNonMarkdown(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "real.md", "---\ntitle: Real\n---\nbody")
	writeSource(t, dir, ".obsidian/workspace.md", "---\ntitle: Editor state\n---\nbody")
	writeSource(t, dir, "_templates/base.md", "---\ntitle: Template\n---\nbody")
	writeSource(t, dir, "notes.txt", "not a post")

	posts, failed, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "real" {
		t.Errorf("posts = %v, want just real", posts)
	}
	if len(failed) != 0 {
		t.Errorf("failed = %v, want none", failed)
	}
}

func TestLoadFileWithoutFrontMatter(t *testing.T) {
	l, dir := testLoader(t)
	writeSource(t, dir, "2024-02-02-plain.md", "Just a body, no header.\n")

	post, err := l.LoadFile(filepath.Join(dir, "2024-02-02-plain.md"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if post.Title != "Plain" {
		t.Errorf("Title = %q", post.Title)
	}
	if post.Status != StatusPublished {
		t.Errorf("Status = %q, want published", post.Status)
	}
	if !strings.Contains(post.Body, "Just a body") {
		t.Errorf("Body = %q", post.Body)
	}
}
