package penmark

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/a-h/templ"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BuildReport summarizes one site build.
type BuildReport struct {
	ID       string        // build identifier, also stamped into the manifest
	Commit   string        // short HEAD hash when building inside a git repo
	Started  time.Time
	Duration time.Duration
	Posts    int         // post pages written
	Files    int         // all output files written
	Cached   int         // post bodies served from the render cache
	Resized  int         // images resized while copying assets
	Skipped  []LoadError // malformed sources left out of the site
	Pruned   []string    // stale outputs removed from earlier builds
}

// Build compiles the whole site into the output directory: post pages,
// front page, tag archives, feed, sitemap, search index and assets.
// Outputs from earlier builds that this build no longer produces are
// pruned afterwards.
func (e *Engine) Build(ctx context.Context) (*BuildReport, error) {
	now := e.now()
	rep := &BuildReport{ID: uuid.NewString(), Started: now}
	if e.git != nil {
		rep.Commit = e.git.Head()
	}
	e.log.Info("build started", "id", rep.ID, "commit", rep.Commit, "output", e.Config.OutputDir)

	posts, skipped, err := e.Loader.Load()
	if err != nil {
		return nil, err
	}
	rep.Skipped = skipped

	e.fillUpdatedFromGit(posts)

	if err := e.renderAll(ctx, posts, rep); err != nil {
		return nil, err
	}

	var visible, public []Post
	for _, p := range posts {
		if !p.Visible(now, e.Config.Drafts, e.Config.Future) {
			continue
		}
		visible = append(visible, p)
		if p.Published() && !p.Scheduled(now) {
			public = append(public, p)
		}
	}
	tags := collectTags(visible)
	site := ViewSite(e.Config)

	// Post pages.
	viewAll := ViewPosts(visible, e.Config)
	for i, p := range visible {
		related := FilterRelatedPosts(p, visible)
		if len(related) > 4 {
			related = related[:4]
		}
		cmp := e.postComponent(site, p, viewAll[i], ViewPosts(related, e.Config))
		if err := e.writeComponent(ctx, rep, pagePath(p.Link), cmp); err != nil {
			return nil, err
		}
		rep.Posts++
	}

	// Front page and tag archives.
	if err := e.writeComponent(ctx, rep, "index.html", e.Theme.Home(site, viewAll, "", tags)); err != nil {
		return nil, err
	}
	for _, tag := range tags {
		var tagged []Post
		for _, p := range visible {
			if hasTag(p, tag) {
				tagged = append(tagged, p)
			}
		}
		cmp := e.Theme.Tag(site, tag, ViewPosts(tagged, e.Config))
		if err := e.writeComponent(ctx, rep, "tags/"+tag+"/index.html", cmp); err != nil {
			return nil, err
		}
	}
	if err := e.writeComponent(ctx, rep, "search/index.html", e.Theme.Search(site, "", nil)); err != nil {
		return nil, err
	}
	if err := e.writeComponent(ctx, rep, "404.html", e.Theme.NotFound(site)); err != nil {
		return nil, err
	}

	// Machine-readable artifacts. Feeds and the sitemap only ever carry
	// public posts, even when drafts are included in the page set.
	feed, err := FeedXML(e.Config, public, now)
	if err != nil {
		return nil, err
	}
	if err := e.writeFile(rep, "feed.xml", feed); err != nil {
		return nil, err
	}
	sitemap, err := SitemapXML(e.Config, public, collectTags(public))
	if err != nil {
		return nil, err
	}
	if err := e.writeFile(rep, "sitemap.xml", sitemap); err != nil {
		return nil, err
	}
	if err := e.writeFile(rep, "robots.txt", robotsTxt(e.Config)); err != nil {
		return nil, err
	}
	index, err := searchIndexJSON(public)
	if err != nil {
		return nil, err
	}
	if err := e.writeFile(rep, "search-index.json", index); err != nil {
		return nil, err
	}

	if err := e.writeTheme(rep); err != nil {
		return nil, err
	}
	if err := e.copyAssets(rep); err != nil {
		return nil, err
	}

	// Persist the index so the CLI and search can read this build's
	// posts, then prune files no build stage produced this time.
	if err := e.Store.ReplacePosts(posts); err != nil {
		return nil, err
	}
	if err := e.prune(rep); err != nil {
		return nil, err
	}

	rep.Duration = time.Since(now)
	e.log.Info("build complete",
		"id", rep.ID, "posts", rep.Posts, "files", rep.Files,
		"cached", rep.Cached, "skipped", len(rep.Skipped),
		"pruned", len(rep.Pruned), "took", rep.Duration)
	return rep, nil
}

// fillUpdatedFromGit sets each post's Updated time from its last
// commit when the front matter says nothing.
func (e *Engine) fillUpdatedFromGit(posts []Post) {
	if e.git == nil {
		return
	}
	for i := range posts {
		if !posts[i].Updated.IsZero() {
			continue
		}
		path := filepath.Join(e.Config.ContentDir, filepath.FromSlash(posts[i].Source))
		t, err := e.git.LastModified(path)
		if err != nil {
			e.log.Debug("git lastmod", "path", posts[i].Source, "error", err)
			continue
		}
		if !t.IsZero() && t.After(posts[i].Date) {
			posts[i].Updated = t
		}
	}
}

// renderAll converts every post body to HTML, in parallel, going
// through the render cache keyed by body hash and renderer settings.
func (e *Engine) renderAll(ctx context.Context, posts []Post, rep *BuildReport) error {
	fingerprint := e.Config.HighlightStyle
	if e.Config.LineNumbers {
		fingerprint += "+linenos"
	}

	var cached atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Config.Concurrency)
	for i := range posts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := &posts[i]
			hash := contentHash(fingerprint, p.Body)
			if html, ok, err := e.Store.CachedHTML(hash); err != nil {
				return err
			} else if ok {
				p.HTML = html
				cached.Add(1)
				return nil
			}
			out, err := e.Renderer.Render([]byte(p.Body))
			if err != nil {
				return fmt.Errorf("render %s: %w", p.Source, err)
			}
			p.HTML = string(out)
			return e.Store.SaveHTML(hash, p.HTML)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rep.Cached = int(cached.Load())
	return nil
}

// writeTheme emits the engine-owned assets: the default stylesheet
// (unless the site ships its own) and the syntax highlight CSS.
func (e *Engine) writeTheme(rep *BuildReport) error {
	if _, err := os.Stat(filepath.Join(e.Config.AssetsDir, "style.css")); errors.Is(err, fs.ErrNotExist) {
		css, err := EmbeddedAssets.ReadFile("embedded/style.css")
		if err != nil {
			return err
		}
		if err := e.writeFile(rep, "assets/style.css", css); err != nil {
			return err
		}
	}
	js, err := EmbeddedAssets.ReadFile("embedded/search.js")
	if err != nil {
		return err
	}
	if err := e.writeFile(rep, "assets/search.js", js); err != nil {
		return err
	}

	var buf strings.Builder
	if err := e.Renderer.WriteCSS(&buf); err != nil {
		return err
	}
	return e.writeFile(rep, "assets/highlight.css", []byte(buf.String()))
}

// copyAssets mirrors the site's assets directory into the output,
// resizing oversized JPEGs on the way through.
func (e *Engine) copyAssets(rep *BuildReport) error {
	root := e.Config.AssetsDir
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		data, resized, err := e.assetData(path)
		if err != nil {
			return err
		}
		if resized {
			rep.Resized++
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return e.writeFile(rep, "assets/"+filepath.ToSlash(rel), data)
	})
}

// writeComponent renders a theme component and writes it as a page file.
func (e *Engine) writeComponent(ctx context.Context, rep *BuildReport, rel string, cmp templ.Component) error {
	data, err := renderBytes(ctx, cmp)
	if err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}
	return e.writeFile(rep, rel, data)
}

// writeFile places data at rel under the output directory and records
// it in the manifest for pruning.
func (e *Engine) writeFile(rep *BuildReport, rel string, data []byte) error {
	path := filepath.Join(e.Config.OutputDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	if err := e.Store.RecordOutput(rep.ID, rel, contentHash("", string(data))); err != nil {
		return err
	}
	rep.Files++
	return nil
}

// prune removes output files recorded by earlier builds that this
// build did not write.
func (e *Engine) prune(rep *BuildReport) error {
	stale, err := e.Store.StaleOutputs(rep.ID)
	if err != nil {
		return err
	}
	for _, rel := range stale {
		path := filepath.Join(e.Config.OutputDir, filepath.FromSlash(rel))
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("prune %s: %w", rel, err)
		}
		// Collapse directories the removal emptied.
		for dir := filepath.Dir(path); dir != e.Config.OutputDir; dir = filepath.Dir(dir) {
			if os.Remove(dir) != nil {
				break
			}
		}
		rep.Pruned = append(rep.Pruned, rel)
		e.log.Debug("pruned stale output", "path", rel)
	}
	return e.Store.ForgetOutputs(stale)
}

// pagePath converts a site-relative link like /blog/my-post/ into the
// output file that serves it.
func pagePath(link string) string {
	return strings.Trim(link, "/") + "/index.html"
}

func collectTags(posts []Post) []string {
	set := make(map[string]struct{})
	for _, p := range posts {
		for _, t := range p.Tags {
			set[normalizeTag(t)] = struct{}{}
		}
	}
	var tags []string
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func robotsTxt(cfg SiteConfig) []byte {
	return []byte("User-agent: *\nAllow: /\n\nSitemap: " + cfg.URL + "/sitemap.xml\n")
}

type searchDoc struct {
	Title   string   `json:"title"`
	Link    string   `json:"link"`
	Tags    []string `json:"tags,omitempty"`
	Summary string   `json:"summary,omitempty"`
	Date    string   `json:"date"`
}

// searchIndexJSON emits the static client-side search index.
func searchIndexJSON(posts []Post) ([]byte, error) {
	docs := make([]searchDoc, 0, len(posts))
	for _, p := range posts {
		docs = append(docs, searchDoc{
			Title:   p.Title,
			Link:    p.Link,
			Tags:    p.Tags,
			Summary: p.Summary,
			Date:    p.Date.Format("2006-01-02"),
		})
	}
	return json.MarshalIndent(docs, "", "  ")
}

func contentHash(prefix, body string) string {
	h := sha256.New()
	h.Write([]byte(prefix))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}
