package markdown

import (
	"bytes"
	"html"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// codeRenderer replaces goldmark's default code block output with
// chroma-highlighted markup. Fences keep the wrapper and language badge
// structure themes style against:
//
//	<div class="code-block-wrapper"><span class="code-lang code-lang-go">go</span> …chroma… </div>
//
// Fences without a language, and indented code blocks, stay plain.
type codeRenderer struct {
	style          *chroma.Style
	defaultLinenos bool
}

func newCodeRenderer(style *chroma.Style, linenos bool) *codeRenderer {
	return &codeRenderer{style: style, defaultLinenos: linenos}
}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFenced)
	reg.Register(ast.KindCodeBlock, r.renderIndented)
}

func (r *codeRenderer) renderFenced(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var info string
	if n.Info != nil {
		info = string(n.Info.Segment.Value(source))
	}
	lang, opts := parseFenceInfo(info, r.defaultLinenos)
	text := blockText(source, n)

	if lang == "" {
		writePlainCode(w, text)
		return ast.WalkContinue, nil
	}

	escaped := html.EscapeString(lang)
	_, _ = w.WriteString(`<div class="code-block-wrapper"><span class="code-lang code-lang-` + escaped + `">` + escaped + `</span>`)
	if err := r.highlight(w, lang, text, opts); err != nil {
		// Highlighting never fails the build; degrade to plain output.
		writePlainCode(w, text)
	}
	_, _ = w.WriteString("</div>\n")
	return ast.WalkContinue, nil
}

func (r *codeRenderer) renderIndented(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	writePlainCode(w, blockText(source, node))
	return ast.WalkContinue, nil
}

func (r *codeRenderer) highlight(w util.BufWriter, lang, text string, opts fenceOptions) error {
	lexer := lexers.Get(lang)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		return err
	}
	return newChromaFormatter(opts.linenos, opts.highlights).Format(w, r.style, iterator)
}

func newChromaFormatter(linenos bool, highlights [][2]int) *chromahtml.Formatter {
	options := []chromahtml.Option{
		chromahtml.WithClasses(true),
	}
	if linenos {
		options = append(options, chromahtml.WithLineNumbers(true))
	}
	if len(highlights) > 0 {
		options = append(options, chromahtml.HighlightLines(highlights))
	}
	return chromahtml.New(options...)
}

func writePlainCode(w util.BufWriter, text string) {
	_, _ = w.WriteString(`<pre class="code-block"><code>`)
	_, _ = w.WriteString(html.EscapeString(text))
	_, _ = w.WriteString("</code></pre>\n")
}

func blockText(source []byte, node ast.Node) string {
	var buf bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

// fenceOptions are the display options a fence may declare after the
// language: linenos / nolinenos / linenos=<bool> and hl_lines=1,3-5.
// Braces around the option list are accepted and ignored.
type fenceOptions struct {
	linenos    bool
	highlights [][2]int
}

func parseFenceInfo(info string, defaultLinenos bool) (string, fenceOptions) {
	opts := fenceOptions{linenos: defaultLinenos}

	cleaned := strings.NewReplacer("{", " ", "}", " ", ",", ",").Replace(strings.TrimSpace(info))
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return "", opts
	}

	lang := fields[0]
	for _, field := range fields[1:] {
		key, value, hasValue := strings.Cut(field, "=")
		switch key {
		case "linenos":
			if !hasValue {
				opts.linenos = true
			} else if parsed, err := strconv.ParseBool(value); err == nil {
				opts.linenos = parsed
			}
		case "nolinenos":
			opts.linenos = false
		case "hl_lines":
			if hasValue {
				opts.highlights = parseLineRanges(value)
			}
		}
	}
	return lang, opts
}

func parseLineRanges(spec string) [][2]int {
	var ranges [][2]int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(from)
		if err != nil || start < 1 {
			continue
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(to); err != nil || end < start {
				continue
			}
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}
