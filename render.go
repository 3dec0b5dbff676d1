package penmark

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/veslund/penmark/views"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// renderBytes renders a component into memory, for writing page files.
func renderBytes(ctx context.Context, cmp templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := cmp.Render(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const humanDate = "2 Jan 2006"

// ViewSite converts the site config into the theme's view model.
func ViewSite(cfg SiteConfig) views.Site {
	return views.Site{
		Name:        cfg.Name,
		URL:         cfg.URL,
		Description: cfg.Description,
		Author:      cfg.Author,
	}
}

// ViewPost converts a post into the theme's view model, formatting
// dates and attaching the JSON-LD block.
func ViewPost(p Post, cfg SiteConfig) views.Post {
	vp := views.Post{
		Title:     p.Title,
		Date:      p.Date.Format(humanDate),
		ISODate:   p.Date.Format("2006-01-02"),
		Tags:      p.Tags,
		Summary:   p.Summary,
		Link:      p.Link,
		Slug:      p.Slug,
		HTML:      p.HTML,
		Draft:     p.Status == StatusDraft,
		Scheduled: p.Scheduled(time.Now()),
		JSONLD:    PostJsonLD(p, cfg),
	}
	if !p.Updated.IsZero() {
		vp.Updated = p.Updated.Format(humanDate)
	}
	if p.Image != "" {
		vp.Image = AbsURL(cfg.URL, p.Image)
	}
	return vp
}

// ViewPosts converts a slice of posts for the theme.
func ViewPosts(posts []Post, cfg SiteConfig) []views.Post {
	out := make([]views.Post, len(posts))
	for i, p := range posts {
		out[i] = ViewPost(p, cfg)
	}
	return out
}

// postComponent picks the theme component for a document by its
// layout. `layout: page` drops the post chrome; anything else renders
// as a regular post.
func (e *Engine) postComponent(site views.Site, p Post, vp views.Post, related []views.Post) templ.Component {
	if p.Layout == "page" {
		return e.Theme.Page(site, vp)
	}
	return e.Theme.Post(site, vp, related)
}

// ViewProblems converts load errors for the drafts page.
func ViewProblems(errs []LoadError) []views.Problem {
	out := make([]views.Problem, len(errs))
	for i, e := range errs {
		out[i] = views.Problem{Path: e.Path, Message: e.Err.Error()}
	}
	return out
}
