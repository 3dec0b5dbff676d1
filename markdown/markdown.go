// Package markdown renders post bodies to HTML. The engine is goldmark
// with GFM extensions; fenced code blocks are highlighted through chroma
// according to the language declared on the fence.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Options configures a Renderer. The zero value is usable: GFM with
// footnotes, raw HTML passed through, the default highlight style, and
// line numbers off unless a fence asks for them.
type Options struct {
	// HighlightStyle names a chroma style; unknown names fall back to
	// the chroma default. The build writes the matching stylesheet.
	HighlightStyle string
	// LineNumbers turns line numbering on for every fence that does not
	// override it with linenos/nolinenos.
	LineNumbers bool
	// SafeHTML strips raw HTML from the source instead of passing it
	// through. Off by default: post authors are trusted.
	SafeHTML bool
}

// Renderer converts Markdown to HTML. It is stateless after
// construction and safe for concurrent use.
type Renderer struct {
	md          goldmark.Markdown
	style       *chroma.Style
	lineNumbers bool
}

// New builds a Renderer with the given options.
func New(opts Options) *Renderer {
	style := styles.Get(opts.HighlightStyle)
	if style == nil {
		style = styles.Fallback
	}

	rendererOpts := []renderer.Option{
		renderer.WithNodeRenderers(
			util.Prioritized(newCodeRenderer(style, opts.LineNumbers), 100),
		),
	}
	if !opts.SafeHTML {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOpts...),
	)

	return &Renderer{md: md, style: style, lineNumbers: opts.LineNumbers}
}

// Render converts src to HTML.
func (r *Renderer) Render(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// Component wraps the rendered HTML as a templ component so themes can
// embed post bodies directly.
func (r *Renderer) Component(src string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := r.Render([]byte(src))
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	})
}

// WriteCSS emits the stylesheet for the renderer's highlight style.
// The build writes this once per site so highlighted markup stays
// class-based instead of inlining colors into every page.
func (r *Renderer) WriteCSS(w io.Writer) error {
	return newChromaFormatter(false, nil).WriteCSS(w, r.style)
}

var defaultRenderer = New(Options{})

// Markdown renders content with the default options as a templ component.
func Markdown(content string) templ.Component {
	return defaultRenderer.Component(content)
}

// Render converts src to HTML with the default options.
func Render(src []byte) ([]byte, error) {
	return defaultRenderer.Render(src)
}
