// Package frontmatter splits YAML front matter from Markdown documents
// and converts it between raw bytes and key/value form.
//
// The splitter operates on byte subslices of its input: the raw metadata
// block plus the body always add up to the original document, which keeps
// rewrites lossless.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrUnclosedFrontMatter is returned when a document opens a front matter
// block but never closes it. Such a document cannot be rendered; callers
// are expected to skip it and report the file.
var ErrUnclosedFrontMatter = errors.New("front matter: opening delimiter without closing delimiter")

const delimiter = "---"

// Style records the formatting details needed to reassemble a document
// byte-for-byte: the newline convention and whether the file ends with one.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Split separates a leading `---` delimited YAML block from the body.
//
// When the document does not start with the delimiter, had is false and
// body is the entire input. When the opening delimiter is present but no
// closing delimiter follows, Split fails with ErrUnclosedFrontMatter.
//
// meta and body are subslices of content, so
// len(content) == block length (delimiters included) + len(body).
func Split(content []byte) (meta, body []byte, had bool, style Style, err error) {
	style = detectStyle(content)
	nl := style.Newline

	open := []byte(delimiter + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, style, nil
	}
	rest := content[len(open):]

	// Empty block: the closing delimiter is the very next line.
	if bytes.HasPrefix(rest, open) {
		return rest[:0], rest[len(open):], true, style, nil
	}
	if bytes.Equal(rest, []byte(delimiter)) {
		return rest[:0], rest[len(rest):], true, style, nil
	}

	closing := []byte(nl + delimiter + nl)
	if i := bytes.Index(rest, closing); i >= 0 {
		return rest[:i+len(nl)], rest[i+len(closing):], true, style, nil
	}

	// A file may end on the closing delimiter with no final newline;
	// the body is then empty.
	tail := []byte(nl + delimiter)
	if bytes.HasSuffix(rest, tail) {
		return rest[:len(rest)-len(delimiter)], rest[len(rest):], true, style, nil
	}

	return nil, nil, false, style, ErrUnclosedFrontMatter
}

// Parse splits content and decodes the metadata block into a map.
// Documents without front matter yield an empty, non-nil map.
func Parse(content []byte) (map[string]any, []byte, error) {
	meta, body, _, _, err := Split(content)
	if err != nil {
		return nil, nil, err
	}
	fields, err := decodeMap(meta)
	if err != nil {
		return nil, nil, err
	}
	return fields, body, nil
}

// Decode splits content and unmarshals the metadata block into out,
// which follows the usual yaml.Unmarshal conventions. It returns the
// body and whether a front matter block was present.
func Decode(content []byte, out any) (body []byte, had bool, err error) {
	meta, body, had, _, err := Split(content)
	if err != nil {
		return nil, false, err
	}
	if len(meta) > 0 {
		if err := yaml.Unmarshal(meta, out); err != nil {
			return nil, false, err
		}
	}
	return body, had, nil
}

// Join reassembles a document from a raw metadata block and body using
// the captured style. With had false the body is returned unchanged.
func Join(meta, body []byte, had bool, style Style) []byte {
	if !had {
		return body
	}
	nl := style.Newline
	if nl == "" {
		nl = "\n"
	}
	fence := []byte(delimiter + nl)
	out := make([]byte, 0, 2*len(fence)+len(meta)+len(body))
	out = append(out, fence...)
	out = append(out, meta...)
	out = append(out, fence...)
	out = append(out, body...)
	return out
}

func decodeMap(meta []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(meta) == 0 {
		return fields, nil
	}
	// yaml.v3 rejects duplicate mapping keys, which enforces the
	// metadata-keys-are-unique invariant for free.
	if err := yaml.Unmarshal(meta, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

func detectStyle(content []byte) Style {
	nl := "\n"
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		nl = "\r\n"
	}
	return Style{
		Newline:            nl,
		HasTrailingNewline: len(content) > 0 && content[len(content)-1] == '\n',
	}
}
