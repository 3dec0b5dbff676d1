package penmark

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CreatePost writes a skeleton source file for a new post and returns
// its path. Published posts get a date-prefixed filename and a date
// header; drafts land in content/drafts/ without either, picking up a
// date when they move out.
func CreatePost(cfg SiteConfig, title string, draft bool) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("post title is empty")
	}
	slug := Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("cannot derive a slug from %q", title)
	}

	now := time.Now()
	dir := cfg.ContentDir
	name := fmt.Sprintf("%s-%s.md", now.Format("2006-01-02"), slug)
	if draft {
		dir = filepath.Join(dir, "drafts")
		name = slug + ".md"
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", title)
	if !draft {
		fmt.Fprintf(&b, "date: %s\n", now.Format("2006-01-02 15:04:05 -0700"))
	}
	b.WriteString("tags: []\n")
	b.WriteString("---\n\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
