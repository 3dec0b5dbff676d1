package penmark

import (
	"bytes"
	"encoding/xml"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// SitemapXML builds the sitemap for the front page, tag archives and
// every published post.
func SitemapXML(cfg SiteConfig, posts []Post, tags []string) ([]byte, error) {
	urls := []sitemapURL{
		{Loc: BuildURL(cfg.URL)},
	}
	for _, t := range tags {
		urls = append(urls, sitemapURL{Loc: BuildURL(cfg.URL, "tags", t)})
	}
	for _, p := range posts {
		u := sitemapURL{
			Loc:     AbsURL(cfg.URL, p.Link),
			LastMod: p.Date.Format("2006-01-02"),
		}
		if !p.Updated.IsZero() {
			u.LastMod = p.Updated.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(sitemap); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
