package penmark

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds all configuration for a penmark site. Values come from
// penmark.yaml, then PENMARK_* environment variables, then defaults.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for feeds and meta tags
	Author      string `yaml:"author"`      // Author name for JSON-LD and feeds

	ContentDir string `yaml:"content_dir"` // Markdown sources (default "content")
	OutputDir  string `yaml:"output_dir"`  // Generated site (default "public")
	AssetsDir  string `yaml:"assets_dir"`  // Static files copied into the output (default "assets")
	CachePath  string `yaml:"cache_path"`  // SQLite build cache (default ".penmark/penmark.db")

	Permalink     string `yaml:"permalink"`      // Post URL pattern (default "/blog/:slug/")
	FeedSize      int    `yaml:"feed_size"`      // Posts per feed (default 20)
	SummaryLength int    `yaml:"summary_length"` // Derived summary length in runes (default 160)
	Drafts        bool   `yaml:"drafts"`         // Include drafts in the build
	Future        bool   `yaml:"future"`         // Include future-dated posts in the build

	HighlightStyle string `yaml:"highlight_style"` // Chroma style name (default "github")
	LineNumbers    bool   `yaml:"line_numbers"`    // Number code block lines by default
	MaxImageWidth  int    `yaml:"max_image_width"` // Resize wider images on copy (default 1280)

	Concurrency int `yaml:"concurrency"` // Parallel page renders (default NumCPU)

	Addr         string `yaml:"addr"`          // Preview listen address (default ":3000")
	CookieSecure bool   `yaml:"cookie_secure"` // Set true when previewing over HTTPS

	// Secrets never live in penmark.yaml; they are read from the
	// environment (PENMARK_DRAFTS_PASSWORD, PENMARK_SESSION_SECRET).
	DraftsPassword string `yaml:"-"`
	SessionSecret  string `yaml:"-"`

	PostCacheTTL time.Duration `yaml:"-"` // Preview post cache TTL (default 5min)
}

// LoadConfig reads the config file at path, applies environment
// overrides and fills in defaults. A missing file is not an error; the
// site then runs entirely on overrides and defaults.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return SiteConfig{}, fmt.Errorf("read %s: %w", path, err)
	}
	cfg.applyEnv()
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

func (c *SiteConfig) applyEnv() {
	c.Name = EnvOr("PENMARK_SITE_NAME", c.Name)
	c.URL = EnvOr("PENMARK_SITE_URL", c.URL)
	c.ContentDir = EnvOr("PENMARK_CONTENT_DIR", c.ContentDir)
	c.OutputDir = EnvOr("PENMARK_OUTPUT_DIR", c.OutputDir)
	c.CachePath = EnvOr("PENMARK_CACHE_PATH", c.CachePath)
	c.Addr = EnvOr("PENMARK_ADDR", c.Addr)
	c.DraftsPassword = EnvOr("PENMARK_DRAFTS_PASSWORD", c.DraftsPassword)
	c.SessionSecret = EnvOr("PENMARK_SESSION_SECRET", c.SessionSecret)
	if v := os.Getenv("PENMARK_DRAFTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Drafts = b
		}
	}
	if v := os.Getenv("PENMARK_FUTURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Future = b
		}
	}
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.OutputDir == "" {
		c.OutputDir = "public"
	}
	if c.AssetsDir == "" {
		c.AssetsDir = "assets"
	}
	if c.CachePath == "" {
		c.CachePath = ".penmark/penmark.db"
	}
	if c.Permalink == "" {
		c.Permalink = "/blog/:slug/"
	}
	if c.FeedSize == 0 {
		c.FeedSize = 20
	}
	if c.SummaryLength == 0 {
		c.SummaryLength = 160
	}
	if c.HighlightStyle == "" {
		c.HighlightStyle = "github"
	}
	if c.MaxImageWidth == 0 {
		c.MaxImageWidth = 1280
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

func (c *SiteConfig) validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site url %q must be absolute", c.URL)
	}
	if c.ContentDir == c.OutputDir {
		return fmt.Errorf("content_dir and output_dir must differ (both %q)", c.ContentDir)
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("penmark: required environment variable %s is not set", key)
	}
	return v
}
