package markdown

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// CodeBlock is a fenced code region lifted out of a document, with the
// display options its info string declared.
type CodeBlock struct {
	Lang        string
	LineNumbers bool
	Text        string
}

// CodeBlocks parses src and returns every fenced code block in document
// order. Indented code blocks are not reported; they carry no language.
func (r *Renderer) CodeBlocks(src []byte) ([]CodeBlock, error) {
	doc := r.md.Parser().Parse(text.NewReader(src))

	var blocks []CodeBlock
	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || node.Kind() != ast.KindFencedCodeBlock {
			return ast.WalkContinue, nil
		}
		n := node.(*ast.FencedCodeBlock)
		var info string
		if n.Info != nil {
			info = string(n.Info.Segment.Value(src))
		}
		lang, opts := parseFenceInfo(info, r.lineNumbers)
		blocks = append(blocks, CodeBlock{
			Lang:        lang,
			LineNumbers: opts.linenos,
			Text:        blockText(src, n),
		})
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// CodeBlocks extracts fenced code blocks using the default renderer.
func CodeBlocks(src []byte) ([]CodeBlock, error) {
	return defaultRenderer.CodeBlocks(src)
}

// FirstParagraph returns the plain text of the first paragraph in src,
// truncated on a word boundary to at most maxLen runes. It is the
// fallback source for post summaries.
func (r *Renderer) FirstParagraph(src []byte, maxLen int) string {
	doc := r.md.Parser().Parse(text.NewReader(src))

	var para ast.Node
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && node.Kind() == ast.KindParagraph {
			para = node
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if para == nil {
		return ""
	}

	var buf bytes.Buffer
	_ = ast.Walk(para, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Text:
			buf.Write(n.Segment.Value(src))
			if n.SoftLineBreak() || n.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(n.Value)
		}
		return ast.WalkContinue, nil
	})
	return truncateWords(strings.TrimSpace(buf.String()), maxLen)
}

// FirstParagraph extracts a summary using the default renderer.
func FirstParagraph(src []byte, maxLen int) string {
	return defaultRenderer.FirstParagraph(src, maxLen)
}

func truncateWords(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = maxLen
	}
	return strings.TrimRight(string(runes[:cut]), " \t") + "…"
}
