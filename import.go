package penmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	extfm "github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/veslund/penmark/frontmatter"
)

// importFormats are the header dialects the importer understands:
// YAML between ---, TOML between +++, JSON between ;;;.
var importFormats = []*extfm.Format{
	extfm.NewFormat("---", "---", yaml.Unmarshal),
	extfm.NewFormat("+++", "+++", toml.Unmarshal),
	extfm.NewFormat(";;;", ";;;", json.Unmarshal),
}

// ImportDir copies the Markdown posts under src into the content
// directory, converting TOML (+++) and JSON front matter into the YAML
// form the loader reads. YAML headers are reserialized too, so every
// imported post ends up with the same canonical header shape. Files
// already present in the content directory are never overwritten; a
// post that cannot be converted is reported and skipped.
func ImportDir(cfg SiteConfig, src string, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}
	imported := 0

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != src && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isMarkdown(name) {
			return nil
		}

		rel := relPath(src, path)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		out, err := convertDocument(data)
		if err != nil {
			log.Warn("skipping import", "path", rel, "error", err)
			return nil
		}

		dst := filepath.Join(cfg.ContentDir, filepath.FromSlash(rel))
		if _, err := os.Stat(dst); err == nil {
			log.Warn("skipping import", "path", rel, "error", "already exists in content directory")
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, out, 0o644); err != nil {
			return err
		}
		log.Info("imported post", "path", rel)
		imported++
		return nil
	})
	if err != nil {
		return imported, fmt.Errorf("import %s: %w", src, err)
	}
	return imported, nil
}

// convertDocument rewrites one post as YAML front matter plus body.
// The incoming header may be YAML, TOML or JSON; a file with no header
// at all passes through unchanged.
func convertDocument(data []byte) ([]byte, error) {
	fields := map[string]any{}
	body, err := extfm.Parse(bytes.NewReader(data), &fields, importFormats...)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	if len(fields) == 0 {
		return data, nil
	}

	style := frontmatter.Style{Newline: "\n", HasTrailingNewline: true}
	meta, err := frontmatter.SerializeYAML(fields, style)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	return frontmatter.Join(meta, body, true, style), nil
}
