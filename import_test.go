package penmark

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/veslund/penmark/frontmatter"
)

func importInto(t *testing.T, files map[string]string) (SiteConfig, int) {
	t.Helper()
	src := t.TempDir()
	for rel, content := range files {
		writeSource(t, src, rel, content)
	}
	cfg := SiteConfig{ContentDir: t.TempDir()}
	n, err := ImportDir(cfg, src, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("ImportDir failed: %v", err)
	}
	return cfg, n
}

func readImported(t *testing.T, cfg SiteConfig, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.ContentDir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("imported file missing: %v", err)
	}
	return data
}

func TestImportConvertsTOMLHeader(t *testing.T) {
	cfg, n := importInto(t, map[string]string{
		"2024-01-01-toml.md": "+++\ntitle = \"From TOML\"\ntags = [\"go\", \"tools\"]\n+++\n\nBody text.\n",
	})
	if n != 1 {
		t.Fatalf("imported %d posts, want 1", n)
	}

	out := readImported(t, cfg, "2024-01-01-toml.md")
	if !strings.HasPrefix(string(out), "---\n") {
		t.Errorf("converted file does not start with a YAML header:\n%s", out)
	}
	fields, body, err := frontmatter.Parse(out)
	if err != nil {
		t.Fatalf("converted header does not parse: %v", err)
	}
	if fields["title"] != "From TOML" {
		t.Errorf("title = %v", fields["title"])
	}
	tags, _ := fields["tags"].([]any)
	if len(tags) != 2 || tags[0] != "go" {
		t.Errorf("tags = %v", fields["tags"])
	}
	if !strings.Contains(string(body), "Body text.") {
		t.Errorf("body lost in conversion:\n%s", body)
	}
}

func TestImportConvertsJSONHeader(t *testing.T) {
	cfg, n := importInto(t, map[string]string{
		"json.md": ";;;\n{\"title\": \"From JSON\", \"draft\": true}\n;;;\n\nBody.\n",
	})
	if n != 1 {
		t.Fatalf("imported %d posts, want 1", n)
	}

	fields, _, err := frontmatter.Parse(readImported(t, cfg, "json.md"))
	if err != nil {
		t.Fatalf("converted header does not parse: %v", err)
	}
	if fields["title"] != "From JSON" {
		t.Errorf("title = %v", fields["title"])
	}
	if fields["draft"] != true {
		t.Errorf("draft = %v", fields["draft"])
	}
}

func TestImportCanonicalizesYAMLHeader(t *testing.T) {
	cfg, _ := importInto(t, map[string]string{
		"yaml.md": "---\nzebra: 1\napple: 2\n---\n\nBody.\n",
	})

	out := string(readImported(t, cfg, "yaml.md"))
	if strings.Index(out, "apple") > strings.Index(out, "zebra") {
		t.Errorf("keys not sorted:\n%s", out)
	}
}

func TestImportPassesThroughPlainFiles(t *testing.T) {
	const plain = "Just a body, no header.\n"
	cfg, n := importInto(t, map[string]string{"plain.md": plain})
	if n != 1 {
		t.Fatalf("imported %d posts, want 1", n)
	}
	if got := string(readImported(t, cfg, "plain.md")); got != plain {
		t.Errorf("plain file changed:\n%q", got)
	}
}

func TestImportPreservesSubdirectories(t *testing.T) {
	cfg, _ := importInto(t, map[string]string{
		"guides/2024-03-01-deep.md": "---\ntitle: Deep\n---\n\nNested.\n",
	})
	readImported(t, cfg, "guides/2024-03-01-deep.md")
}

func TestImportNeverOverwrites(t *testing.T) {
	src := t.TempDir()
	writeSource(t, src, "post.md", "---\ntitle: Incoming\n---\n\nNew.\n")

	cfg := SiteConfig{ContentDir: t.TempDir()}
	const original = "---\ntitle: Original\n---\n\nKeep me.\n"
	writeSource(t, cfg.ContentDir, "post.md", original)

	n, err := ImportDir(cfg, src, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("ImportDir failed: %v", err)
	}
	if n != 0 {
		t.Errorf("imported %d posts, want 0", n)
	}
	if got := string(readImported(t, cfg, "post.md")); got != original {
		t.Errorf("existing file was overwritten:\n%s", got)
	}
}

func TestImportSkipsUnconvertibleFiles(t *testing.T) {
	cfg, n := importInto(t, map[string]string{
		"bad.md":  "+++\ntitle = oops\n+++\n\nBody.\n",
		"good.md": "---\ntitle: Good\n---\n\nBody.\n",
	})
	if n != 1 {
		t.Errorf("imported %d posts, want 1", n)
	}
	if _, err := os.Stat(filepath.Join(cfg.ContentDir, "bad.md")); !os.IsNotExist(err) {
		t.Errorf("unconvertible file was written anyway")
	}
}
