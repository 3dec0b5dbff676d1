package penmark

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Status says where a post is in its lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ParseStatus validates a front matter status value. The empty string
// means published, matching posts that never declare one.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return StatusPublished, nil
	case StatusDraft:
		return StatusDraft, nil
	case StatusPublished:
		return StatusPublished, nil
	}
	return "", fmt.Errorf("unknown status %q (want draft or published)", s)
}

// FrontMatter is the typed YAML header of a post file. Keys the struct
// does not name are collected into Extra so themes can still reach them.
type FrontMatter struct {
	Layout    string  `yaml:"layout,omitempty"`
	Title     string  `yaml:"title,omitempty"`
	Date      string  `yaml:"date,omitempty"`
	Updated   string  `yaml:"updated,omitempty"`
	Slug      string  `yaml:"slug,omitempty"`
	Tags      TagList `yaml:"tags,omitempty"`
	Summary   string  `yaml:"summary,omitempty"`
	Status    string  `yaml:"status,omitempty"`
	Draft     *bool   `yaml:"draft,omitempty"`
	Published *bool   `yaml:"published,omitempty"`
	Image     string  `yaml:"image,omitempty"`

	Extra map[string]string `yaml:",inline"`
}

// TagList accepts either a YAML sequence or a comma-separated scalar,
// since both forms are common in the wild.
type TagList []string

func (t *TagList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return err
		}
		*t = NormalizeTags(items)
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*t = NormalizeTags(strings.Split(s, ","))
	default:
		return fmt.Errorf("tags: expected list or string")
	}
	return nil
}

// Post is the core content type: one source file after its front matter
// has been decoded and its derived fields filled in.
type Post struct {
	Slug    string
	Title   string
	Layout  string
	Date    time.Time
	Updated time.Time
	Tags    []string
	Summary string
	Image   string // cover image path or URL
	Status  Status
	Meta    map[string]string // front matter keys beyond the known set
	Body    string            // Markdown source with the header stripped
	HTML    string            // rendered body, filled by the renderer
	Link    string            // site-relative URL, e.g. /blog/my-post/
	Source  string            // path relative to the content root
}

// Published reports whether the post should appear on the public site.
func (p Post) Published() bool {
	return p.Status == StatusPublished
}

// Scheduled reports whether the post is published but dated after now.
func (p Post) Scheduled(now time.Time) bool {
	return p.Status == StatusPublished && p.Date.After(now)
}

// Visible reports whether the post belongs in a build that started at
// now with the given draft and future toggles.
func (p Post) Visible(now time.Time, drafts, future bool) bool {
	if p.Status == StatusDraft && !drafts {
		return false
	}
	if p.Scheduled(now) && !future {
		return false
	}
	return true
}

// ImageInfo describes a resized asset: final dimensions and encoded size.
type ImageInfo struct {
	Width  int
	Height int
	Size   int
}
