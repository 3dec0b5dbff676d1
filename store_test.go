package penmark

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "penmark.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPost(slug string, day int, status Status, tags ...string) Post {
	return Post{
		Slug:    slug,
		Title:   "Post " + slug,
		Layout:  "post",
		Date:    time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC),
		Tags:    tags,
		Summary: "summary of " + slug,
		Status:  status,
		Body:    "body of " + slug,
		Link:    "/blog/" + slug + "/",
		Source:  slug + ".md",
	}
}

func TestSaveAndGetPost(t *testing.T) {
	s := setupTestStore(t)

	post := testPost("test-post", 15, StatusPublished, "go", "testing")
	post.Updated = time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)

	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.GetPost("test-post")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if got.Slug != post.Slug {
		t.Errorf("Slug = %q, want %q", got.Slug, post.Slug)
	}
	if got.Title != post.Title {
		t.Errorf("Title = %q, want %q", got.Title, post.Title)
	}
	if !got.Date.Equal(post.Date) {
		t.Errorf("Date = %v, want %v", got.Date, post.Date)
	}
	if !got.Updated.Equal(post.Updated) {
		t.Errorf("Updated = %v, want %v", got.Updated, post.Updated)
	}
	if got.Summary != post.Summary {
		t.Errorf("Summary = %q, want %q", got.Summary, post.Summary)
	}
	if got.Body != post.Body {
		t.Errorf("Body = %q, want %q", got.Body, post.Body)
	}
	if got.Link != "/blog/test-post/" {
		t.Errorf("Link = %q, want %q", got.Link, "/blog/test-post/")
	}
	if got.Status != StatusPublished {
		t.Errorf("Status = %q, want published", got.Status)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "testing" {
		t.Errorf("Tags = %v, want [go testing]", got.Tags)
	}
}

func TestSavePostUpdate(t *testing.T) {
	s := setupTestStore(t)

	post := testPost("update-test", 1, StatusPublished, "original")
	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	post.Title = "Updated Title"
	post.Tags = []string{"updated", "modified"}
	if err := s.SavePost(post); err != nil {
		t.Fatalf("SavePost update failed: %v", err)
	}

	got, err := s.GetPost("update-test")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	if got.Title != "Updated Title" {
		t.Errorf("Title = %q, want %q", got.Title, "Updated Title")
	}
	if len(got.Tags) != 2 {
		t.Errorf("Tags count = %d, want 2", len(got.Tags))
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetPost("nonexistent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestGetPostDraft(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(testPost("draft-post", 1, StatusDraft, "wip")); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	// GetPost only sees published posts.
	_, err := s.GetPost("draft-post")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetPost should return ErrNoRows for a draft, got %v", err)
	}

	got, err := s.GetPostAny("draft-post")
	if err != nil {
		t.Fatalf("GetPostAny failed: %v", err)
	}
	if got.Status != StatusDraft {
		t.Errorf("Status = %q, want draft", got.Status)
	}
}

func TestListPosts(t *testing.T) {
	s := setupTestStore(t)

	posts := []Post{
		testPost("post-1", 1, StatusPublished, "go"),
		testPost("post-2", 2, StatusPublished, "go", "web"),
		testPost("post-3", 3, StatusPublished, "rust"),
		testPost("post-4", 4, StatusDraft, "go"),
	}
	for _, p := range posts {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	got, err := s.ListPosts("")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}

	if len(got) != 3 {
		t.Errorf("ListPosts count = %d, want 3 (excluding drafts)", len(got))
	}
	if got[0].Slug != "post-3" {
		t.Errorf("first post should be post-3 (latest), got %s", got[0].Slug)
	}
}

func TestListPostsByTag(t *testing.T) {
	s := setupTestStore(t)

	posts := []Post{
		testPost("go-post-1", 1, StatusPublished, "go", "tutorial"),
		testPost("go-post-2", 2, StatusPublished, "go", "web"),
		testPost("rust-post", 3, StatusPublished, "rust"),
	}
	for _, p := range posts {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	got, err := s.ListPosts("go")
	if err != nil {
		t.Fatalf("ListPosts with tag failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListPosts(go) count = %d, want 2", len(got))
	}

	got, err = s.ListPosts("rust")
	if err != nil {
		t.Fatalf("ListPosts with tag failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("ListPosts(rust) count = %d, want 1", len(got))
	}

	got, err = s.ListPosts("nonexistent")
	if err != nil {
		t.Fatalf("ListPosts with tag failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListPosts(nonexistent) count = %d, want 0", len(got))
	}
}

func TestListPostsTagCaseInsensitive(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(testPost("case-test", 1, StatusPublished, "GoLang", "WEB")); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.ListPosts("golang")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("ListPosts(golang) should find post tagged GoLang, got %d", len(got))
	}

	got, err = s.ListPosts("WEB")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("ListPosts(WEB) should find post tagged web, got %d", len(got))
	}
}

func TestListAllPosts(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(testPost("published", 1, StatusPublished, "a")); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if err := s.SavePost(testPost("draft", 2, StatusDraft, "b")); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.ListAllPosts()
	if err != nil {
		t.Fatalf("ListAllPosts failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListAllPosts count = %d, want 2 (including drafts)", len(got))
	}
}

func TestListTags(t *testing.T) {
	s := setupTestStore(t)

	posts := []Post{
		testPost("p1", 1, StatusPublished, "Go", "Web"),
		testPost("p2", 2, StatusPublished, "go", "api"),
		testPost("p3", 3, StatusDraft, "rust"),
	}
	for _, p := range posts {
		if err := s.SavePost(p); err != nil {
			t.Fatalf("SavePost failed: %v", err)
		}
	}

	got, err := s.ListTags()
	if err != nil {
		t.Fatalf("ListTags failed: %v", err)
	}

	// Tags come from published posts only, deduplicated, lowercase, sorted.
	expected := []string{"api", "go", "web"}
	if len(got) != len(expected) {
		t.Fatalf("ListTags = %v, want %v", got, expected)
	}
	for i, tag := range expected {
		if got[i] != tag {
			t.Errorf("ListTags[%d] = %q, want %q", i, got[i], tag)
		}
	}
}

func TestReplacePosts(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(testPost("old-1", 1, StatusPublished, "a")); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if err := s.SavePost(testPost("old-2", 2, StatusPublished, "a")); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	next := []Post{
		testPost("new-1", 3, StatusPublished, "b"),
	}
	if err := s.ReplacePosts(next); err != nil {
		t.Fatalf("ReplacePosts failed: %v", err)
	}

	got, err := s.ListAllPosts()
	if err != nil {
		t.Fatalf("ListAllPosts failed: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "new-1" {
		t.Errorf("index after replace = %v, want just new-1", got)
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(testPost("to-delete", 1, StatusPublished, "x")); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}
	if _, err := s.GetPost("to-delete"); err != nil {
		t.Fatalf("post should exist before delete: %v", err)
	}

	if err := s.DeletePost("to-delete"); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}

	if _, err := s.GetPost("to-delete"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("post should not exist after delete, got err: %v", err)
	}

	// Deleting a slug that does not exist is not an error.
	if err := s.DeletePost("nonexistent"); err != nil {
		t.Errorf("DeletePost on nonexistent should not error, got: %v", err)
	}
}

func TestRenderCacheRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	if _, ok, err := s.CachedHTML("h1"); err != nil || ok {
		t.Fatalf("CachedHTML on empty cache = ok %v err %v, want miss", ok, err)
	}

	if err := s.SaveHTML("h1", "<p>hello</p>"); err != nil {
		t.Fatalf("SaveHTML failed: %v", err)
	}

	html, ok, err := s.CachedHTML("h1")
	if err != nil {
		t.Fatalf("CachedHTML failed: %v", err)
	}
	if !ok || html != "<p>hello</p>" {
		t.Errorf("CachedHTML = %q ok %v, want hit", html, ok)
	}
}

func TestPruneRenderCache(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SaveHTML("h1", "<p>one</p>"); err != nil {
		t.Fatalf("SaveHTML failed: %v", err)
	}

	n, err := s.PruneRenderCache(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneRenderCache failed: %v", err)
	}
	if n != 0 {
		t.Errorf("prune before cutoff removed %d entries, want 0", n)
	}

	n, err = s.PruneRenderCache(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneRenderCache failed: %v", err)
	}
	if n != 1 {
		t.Errorf("prune after cutoff removed %d entries, want 1", n)
	}
	if _, ok, _ := s.CachedHTML("h1"); ok {
		t.Error("entry should be gone after prune")
	}
}

func TestManifestPruning(t *testing.T) {
	s := setupTestStore(t)

	if err := s.RecordOutput("build-a", "blog/one/index.html", "x1"); err != nil {
		t.Fatalf("RecordOutput failed: %v", err)
	}
	if err := s.RecordOutput("build-a", "blog/two/index.html", "x2"); err != nil {
		t.Fatalf("RecordOutput failed: %v", err)
	}

	// The next build rewrites only one of the two outputs.
	if err := s.RecordOutput("build-b", "blog/one/index.html", "x1"); err != nil {
		t.Fatalf("RecordOutput failed: %v", err)
	}

	stale, err := s.StaleOutputs("build-b")
	if err != nil {
		t.Fatalf("StaleOutputs failed: %v", err)
	}
	if len(stale) != 1 || stale[0] != "blog/two/index.html" {
		t.Errorf("StaleOutputs = %v, want [blog/two/index.html]", stale)
	}

	if err := s.ForgetOutputs(stale); err != nil {
		t.Fatalf("ForgetOutputs failed: %v", err)
	}
	stale, err = s.StaleOutputs("build-b")
	if err != nil {
		t.Fatalf("StaleOutputs failed: %v", err)
	}
	if len(stale) != 0 {
		t.Errorf("StaleOutputs after forget = %v, want none", stale)
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{",", nil},
		{",go,", []string{"go"}},
		{",go,web,", []string{"go", "web"}},
		{",go, web ,rust,", []string{"go", "web", "rust"}},
	}

	for _, tt := range tests {
		got := ParseTags(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseTags(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}

func TestEmptyTags(t *testing.T) {
	s := setupTestStore(t)

	if err := s.SavePost(testPost("no-tags", 1, StatusPublished)); err != nil {
		t.Fatalf("SavePost failed: %v", err)
	}

	got, err := s.GetPost("no-tags")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if len(got.Tags) != 0 {
		t.Errorf("Tags should be empty, got %v", got.Tags)
	}
}
