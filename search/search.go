// Package search maintains a full-text index over posts and answers
// ranked queries for the preview server.
//
// The index lives in its own SQLite database as an FTS5 table and is
// rebuilt wholesale after every build. Queries use bm25 ranking weighted
// toward titles and tags, with snippets taken from the body text.
package search

import (
	"strings"
	"time"
)

// Document is a post prepared for indexing.
type Document struct {
	Slug    string
	Title   string
	Link    string
	Date    time.Time
	Tags    []string
	Summary string
	Body    string
}

// Result is a single ranked query hit.
type Result struct {
	Slug    string    `json:"slug"`
	Title   string    `json:"title"`
	Link    string    `json:"link"`
	Date    time.Time `json:"date"`
	Tags    []string  `json:"tags,omitempty"`
	Summary string    `json:"summary,omitempty"`
	Snippet string    `json:"snippet,omitempty"`
}

// maxQueryTerms caps how many words of the input are used for matching.
const maxQueryTerms = 12

// buildMatchQuery turns raw user input into an FTS5 MATCH expression.
// Each word becomes a quoted term so operators in the input cannot change
// query semantics; the last word matches as a prefix so results appear
// while the user is still typing. Returns "" when nothing is searchable.
func buildMatchQuery(q string) string {
	fields := strings.Fields(q)
	if len(fields) > maxQueryTerms {
		fields = fields[:maxQueryTerms]
	}

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		// A token of only quote characters would leave an empty phrase.
		if strings.Trim(f, `"`) == "" {
			continue
		}
		f = strings.ReplaceAll(f, `"`, `""`)
		terms = append(terms, `"`+f+`"`)
	}
	if len(terms) == 0 {
		return ""
	}
	terms[len(terms)-1] += "*"
	return strings.Join(terms, " ")
}

// joinTags flattens tags for storage in a single indexed column.
func joinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// splitTags reverses joinTags.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ", ")
}
