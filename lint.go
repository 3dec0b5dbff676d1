package penmark

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/veslund/penmark/frontmatter"
)

// LintIssue is one problem found in one source file.
type LintIssue struct {
	Path string
	Err  error
}

// LintReport summarizes a lint run over the content directory.
type LintReport struct {
	Checked int // source files examined
	Issues  []LintIssue
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Lint checks every source file under the content root without writing
// anything. It reports the files a build would skip, the field-level
// problems behind them, and declared slugs that would produce ugly or
// duplicate URLs. Each file yields at most one issue.
func Lint(cfg SiteConfig) (*LintReport, error) {
	loader := NewLoader(cfg, slog.New(slog.DiscardHandler))
	rep := &LintReport{}
	slugs := make(map[string]string) // slug -> source path
	root := cfg.ContentDir

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

		rel := relPath(root, path)
		rep.Checked++

		data, err := os.ReadFile(path)
		if err != nil {
			rep.Issues = append(rep.Issues, LintIssue{Path: rel, Err: err})
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		var fm FrontMatter
		if _, _, derr := frontmatter.Decode(data, &fm); derr != nil {
			rep.Issues = append(rep.Issues, LintIssue{Path: rel, Err: derr})
			return nil
		}
		if verr := validateFrontMatter(fm); verr != nil {
			rep.Issues = append(rep.Issues, LintIssue{Path: rel, Err: verr})
			return nil
		}

		post, perr := loader.fromSource(rel, data, info.ModTime())
		if perr != nil {
			rep.Issues = append(rep.Issues, LintIssue{Path: rel, Err: perr})
			return nil
		}
		if prev, ok := slugs[post.Slug]; ok {
			rep.Issues = append(rep.Issues, LintIssue{
				Path: rel,
				Err:  fmt.Errorf("duplicate slug %q (already used by %s)", post.Slug, prev),
			})
			return nil
		}
		slugs[post.Slug] = rel
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return rep, nil
}

// validateFrontMatter applies field rules the loader is too forgiving
// to enforce. Empty fields pass; declared ones must hold up.
func validateFrontMatter(fm FrontMatter) error {
	return validation.ValidateStruct(&fm,
		validation.Field(&fm.Slug,
			validation.Match(slugPattern).Error("must be lowercase letters, digits and hyphens")),
		validation.Field(&fm.Status, validation.By(statusKnown)),
		validation.Field(&fm.Date, validation.By(dateParses)),
		validation.Field(&fm.Updated, validation.By(dateParses)),
		validation.Field(&fm.Summary,
			validation.RuneLength(0, 500).Error("longer than 500 characters; move the detail into the body")),
	)
}

func statusKnown(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := ParseStatus(s)
	return err
}

func dateParses(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := parseDate(s)
	return err
}
