package views

import (
	"context"
	"html"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"
)

func esc(s string) string { return html.EscapeString(s) }

// page wraps body content in the site shell. Components in this
// package are hand-written rather than generated, so they build the
// page into a strings.Builder and hand templ a single writer call.
func page(site Site, pg Page, body func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		writeHead(&b, site, pg)
		body(&b)
		writeFoot(&b, site)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeHead(b *strings.Builder, site Site, pg Page) {
	title := site.Name
	if pg.Title != "" {
		title = pg.Title + " · " + site.Name
	}
	desc := pg.Description
	if desc == "" {
		desc = site.Description
	}
	ogType := pg.OGType
	if ogType == "" {
		ogType = "website"
	}

	b.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n")
	b.WriteString("<meta charset=\"utf-8\"/>\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"/>\n")
	b.WriteString("<title>" + esc(title) + "</title>\n")
	if desc != "" {
		b.WriteString("<meta name=\"description\" content=\"" + esc(desc) + "\"/>\n")
	}
	if pg.URL != "" {
		b.WriteString("<link rel=\"canonical\" href=\"" + esc(pg.URL) + "\"/>\n")
	}
	b.WriteString("<link rel=\"alternate\" type=\"application/rss+xml\" title=\"" + esc(site.Name) + "\" href=\"/feed.xml\"/>\n")
	b.WriteString("<link rel=\"stylesheet\" href=\"/assets/style.css\"/>\n")
	b.WriteString("<link rel=\"stylesheet\" href=\"/assets/highlight.css\"/>\n")
	b.WriteString("<meta property=\"og:title\" content=\"" + esc(title) + "\"/>\n")
	b.WriteString("<meta property=\"og:type\" content=\"" + esc(ogType) + "\"/>\n")
	b.WriteString("<meta property=\"og:site_name\" content=\"" + esc(site.Name) + "\"/>\n")
	if pg.URL != "" {
		b.WriteString("<meta property=\"og:url\" content=\"" + esc(pg.URL) + "\"/>\n")
	}
	if desc != "" {
		b.WriteString("<meta property=\"og:description\" content=\"" + esc(desc) + "\"/>\n")
	}
	if pg.Image != "" {
		b.WriteString("<meta property=\"og:image\" content=\"" + esc(pg.Image) + "\"/>\n")
	}
	if pg.JSONLD != "" {
		// json.Marshal escapes < and > so the block is safe inside <script>.
		b.WriteString("<script type=\"application/ld+json\">" + pg.JSONLD + "</script>\n")
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString("<header class=\"site-header\">\n")
	b.WriteString("<a class=\"site-title\" href=\"/\">" + esc(site.Name) + "</a>\n")
	b.WriteString("<nav><a href=\"/\">Posts</a> <a href=\"/search/\">Search</a> <a href=\"/feed.xml\">Feed</a></nav>\n")
	b.WriteString("</header>\n<main>\n")
}

func writeFoot(b *strings.Builder, site Site) {
	b.WriteString("</main>\n<footer class=\"site-footer\">\n")
	b.WriteString("<p>© " + time.Now().Format("2006") + " " + esc(site.Name) + " · <a href=\"/feed.xml\">RSS</a> · <a href=\"/sitemap.xml\">Sitemap</a></p>\n")
	b.WriteString("</footer>\n</body>\n</html>\n")
}

func writePostCard(b *strings.Builder, p Post) {
	b.WriteString("<article class=\"post-card\">\n")
	b.WriteString("<h2><a href=\"" + esc(p.Link) + "\">" + esc(p.Title) + "</a></h2>\n")
	b.WriteString("<p class=\"post-meta\">")
	writeTime(b, p)
	writeBadge(b, p)
	for _, t := range p.Tags {
		b.WriteString(" <a class=\"" + TagClass(false) + "\" href=\"/tags/" + PathEscape(t) + "/\">" + esc(t) + "</a>")
	}
	b.WriteString("</p>\n")
	if p.Summary != "" {
		b.WriteString("<p class=\"post-summary\">" + esc(p.Summary) + "</p>\n")
	}
	b.WriteString("</article>\n")
}

func writeTime(b *strings.Builder, p Post) {
	b.WriteString("<time datetime=\"" + esc(p.ISODate) + "\">" + esc(p.Date) + "</time>")
}

func writeBadge(b *strings.Builder, p Post) {
	switch {
	case p.Draft:
		b.WriteString(" <span class=\"badge badge-draft\">draft</span>")
	case p.Scheduled:
		b.WriteString(" <span class=\"badge badge-scheduled\">scheduled</span>")
	}
}

func writePostList(b *strings.Builder, posts []Post) {
	b.WriteString("<section class=\"post-list\">\n")
	for _, p := range posts {
		writePostCard(b, p)
	}
	if len(posts) == 0 {
		b.WriteString("<p class=\"empty\">Nothing here yet.</p>\n")
	}
	b.WriteString("</section>\n")
}
