package penmark

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "Blog" {
		t.Errorf("Name = %q, want Blog", cfg.Name)
	}
	if cfg.URL != "http://localhost:3000" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.ContentDir != "content" || cfg.OutputDir != "public" {
		t.Errorf("dirs = %q / %q", cfg.ContentDir, cfg.OutputDir)
	}
	if cfg.Permalink != "/blog/:slug/" {
		t.Errorf("Permalink = %q", cfg.Permalink)
	}
	if cfg.FeedSize != 20 || cfg.SummaryLength != 160 {
		t.Errorf("FeedSize = %d, SummaryLength = %d", cfg.FeedSize, cfg.SummaryLength)
	}
	if cfg.HighlightStyle != "github" {
		t.Errorf("HighlightStyle = %q", cfg.HighlightStyle)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Concurrency < 1 {
		t.Errorf("Concurrency = %d", cfg.Concurrency)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penmark.yaml")
	err := os.WriteFile(path, []byte(`
name: My Site
url: https://example.org
permalink: /:year/:slug/
drafts: true
highlight_style: dracula
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "My Site" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.URL != "https://example.org" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.Permalink != "/:year/:slug/" {
		t.Errorf("Permalink = %q", cfg.Permalink)
	}
	if !cfg.Drafts {
		t.Error("Drafts should be true")
	}
	if cfg.HighlightStyle != "dracula" {
		t.Errorf("HighlightStyle = %q", cfg.HighlightStyle)
	}
	// Unset fields still get defaults.
	if cfg.ContentDir != "content" || cfg.FeedSize != 20 {
		t.Errorf("defaults not applied: %q / %d", cfg.ContentDir, cfg.FeedSize)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penmark.yaml")
	if err := os.WriteFile(path, []byte("name: From File\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PENMARK_SITE_NAME", "From Env")
	t.Setenv("PENMARK_DRAFTS", "true")
	t.Setenv("PENMARK_DRAFTS_PASSWORD", "hunter2")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "From Env" {
		t.Errorf("Name = %q, env should beat the file", cfg.Name)
	}
	if !cfg.Drafts {
		t.Error("Drafts should be true via env")
	}
	if cfg.DraftsPassword != "hunter2" {
		t.Errorf("DraftsPassword = %q", cfg.DraftsPassword)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "relative-url.yaml")
	if err := os.WriteFile(path, []byte("url: not-a-url\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for a relative site url")
	}

	path = filepath.Join(dir, "same-dirs.yaml")
	if err := os.WriteFile(path, []byte("content_dir: site\noutput_dir: site\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error when content and output dirs collide")
	}

	path = filepath.Join(dir, "bad-yaml.yaml")
	if err := os.WriteFile(path, []byte(": nope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for unparseable yaml")
	}
}
