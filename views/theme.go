package views

import (
	"strings"

	"github.com/a-h/templ"
)

// Default returns the built-in theme. Sites that want their own look
// replace individual components or the whole struct.
func Default() Theme {
	return Theme{
		Home:        HomePage,
		Post:        PostPage,
		Page:        StaticPage,
		Tag:         TagPage,
		Drafts:      DraftsPage,
		Login:       LoginPage,
		Search:      SearchPage,
		NotFound:    NotFoundPage,
		ServerError: ServerErrorPage,
	}
}

// HomePage renders the front page: site intro, tag filter, post list.
func HomePage(site Site, posts []Post, activeTag string, tags []string) templ.Component {
	pg := Page{
		URL:    buildURL(site.URL),
		OGType: "website",
		JSONLD: WebsiteJsonLD(site),
	}
	return page(site, pg, func(b *strings.Builder) {
		if site.Description != "" {
			b.WriteString("<p class=\"site-intro\">" + esc(site.Description) + "</p>\n")
		}
		if len(tags) > 0 {
			b.WriteString("<p class=\"tag-row\">")
			b.WriteString("<a class=\"" + TagClass(activeTag == "") + "\" href=\"/\">all</a>")
			for _, t := range tags {
				b.WriteString(" <a class=\"" + TagClass(t == activeTag) + "\" href=\"/tags/" + PathEscape(t) + "/\">" + esc(t) + "</a>")
			}
			b.WriteString("</p>\n")
		}
		writePostList(b, posts)
	})
}

// PostPage renders a single post with its related posts.
func PostPage(site Site, post Post, related []Post) templ.Component {
	pg := Page{
		Title:       post.Title,
		Description: post.Summary,
		URL:         buildURL(site.URL, strings.Trim(post.Link, "/")),
		Image:       post.Image,
		OGType:      "article",
		JSONLD:      post.JSONLD,
	}
	return page(site, pg, func(b *strings.Builder) {
		b.WriteString("<article class=\"post\">\n<header>\n")
		b.WriteString("<h1>" + esc(post.Title) + "</h1>\n")
		b.WriteString("<p class=\"post-meta\">")
		writeTime(b, post)
		if post.Updated != "" {
			b.WriteString(" · updated " + esc(post.Updated))
		}
		writeBadge(b, post)
		for _, t := range post.Tags {
			b.WriteString(" <a class=\"" + TagClass(false) + "\" href=\"/tags/" + PathEscape(t) + "/\">" + esc(t) + "</a>")
		}
		b.WriteString("</p>\n</header>\n")
		b.WriteString("<div class=\"post-body\">\n")
		b.WriteString(post.HTML)
		b.WriteString("\n</div>\n</article>\n")
		if len(related) > 0 {
			b.WriteString("<aside class=\"related\">\n<h2>Related posts</h2>\n")
			writePostList(b, related)
			b.WriteString("</aside>\n")
		}
	})
}

// StaticPage renders a document with `layout: page`: just the title
// and body, none of the post chrome (date, tags, related).
func StaticPage(site Site, post Post) templ.Component {
	pg := Page{
		Title:       post.Title,
		Description: post.Summary,
		URL:         buildURL(site.URL, strings.Trim(post.Link, "/")),
		Image:       post.Image,
		OGType:      "website",
	}
	return page(site, pg, func(b *strings.Builder) {
		b.WriteString("<article class=\"post\">\n")
		b.WriteString("<h1>" + esc(post.Title) + "</h1>\n")
		b.WriteString("<div class=\"post-body\">\n")
		b.WriteString(post.HTML)
		b.WriteString("\n</div>\n</article>\n")
	})
}

// TagPage renders the archive for one tag.
func TagPage(site Site, tag string, posts []Post) templ.Component {
	pg := Page{
		Title:  "Tagged " + tag,
		URL:    buildURL(site.URL, "tags", tag),
		OGType: "website",
	}
	return page(site, pg, func(b *strings.Builder) {
		b.WriteString("<h1>Posts tagged <em>" + esc(tag) + "</em></h1>\n")
		writePostList(b, posts)
	})
}

// DraftsPage renders the private drafts overview: unpublished and
// scheduled posts plus every source file the loader had to skip.
func DraftsPage(site Site, posts []Post, problems []Problem, csrfToken string) templ.Component {
	pg := Page{Title: "Drafts"}
	return page(site, pg, func(b *strings.Builder) {
		b.WriteString("<h1>Drafts</h1>\n")
		if len(problems) > 0 {
			b.WriteString("<section class=\"problems\">\n<h2>Skipped files</h2>\n<ul>\n")
			for _, p := range problems {
				b.WriteString("<li><code>" + esc(p.Path) + "</code>: " + esc(p.Message) + "</li>\n")
			}
			b.WriteString("</ul>\n</section>\n")
		}
		writePostList(b, posts)
		b.WriteString("<form method=\"post\" action=\"/drafts/logout/\">")
		b.WriteString("<input type=\"hidden\" name=\"_csrf\" value=\"" + esc(csrfToken) + "\"/>")
		b.WriteString("<button type=\"submit\">Log out</button></form>\n")
	})
}

// LoginPage renders the drafts password prompt.
func LoginPage(site Site, showError bool, csrfToken string) templ.Component {
	pg := Page{Title: "Drafts"}
	return page(site, pg, func(b *strings.Builder) {
		b.WriteString("<h1>Drafts</h1>\n")
		if showError {
			b.WriteString("<p class=\"error\">Wrong password.</p>\n")
		}
		b.WriteString("<form method=\"post\" action=\"/drafts/login/\" class=\"login-form\">\n")
		b.WriteString("<input type=\"hidden\" name=\"_csrf\" value=\"" + esc(csrfToken) + "\"/>\n")
		b.WriteString("<label>Password <input type=\"password\" name=\"password\" autofocus/></label>\n")
		b.WriteString("<button type=\"submit\">Enter</button>\n</form>\n")
	})
}

// SearchPage renders the search form and any results.
func SearchPage(site Site, query string, results []Post) templ.Component {
	pg := Page{Title: "Search"}
	return page(site, pg, func(b *strings.Builder) {
		b.WriteString("<h1>Search</h1>\n")
		b.WriteString("<form method=\"get\" action=\"/search/\" class=\"search-form\">\n")
		b.WriteString("<input type=\"search\" name=\"q\" value=\"" + esc(query) + "\" placeholder=\"Search posts\"/>\n")
		b.WriteString("<button type=\"submit\">Search</button>\n</form>\n")
		if query != "" && len(results) > 0 {
			writePostList(b, results)
		} else {
			b.WriteString("<section class=\"post-list\"></section>\n")
		}
		b.WriteString("<script src=\"/assets/search.js\" defer></script>\n")
	})
}

// NotFoundPage renders the 404 page.
func NotFoundPage(site Site) templ.Component {
	pg := Page{Title: "Not found"}
	return page(site, pg, func(b *strings.Builder) {
		b.WriteString("<h1>404</h1>\n<p>That page does not exist. <a href=\"/\">Back to the front page.</a></p>\n")
	})
}

// ServerErrorPage renders the 500 page.
func ServerErrorPage(site Site) templ.Component {
	pg := Page{Title: "Something broke"}
	return page(site, pg, func(b *strings.Builder) {
		b.WriteString("<h1>500</h1>\n<p>Something broke on our side. Try again in a moment.</p>\n")
	})
}
