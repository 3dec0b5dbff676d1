package penmark

import (
	"errors"
	"testing"
	"time"
)

func fixedLoad(posts []Post, errs []LoadError) (LoadFunc, *int) {
	calls := new(int)
	return func() ([]Post, []LoadError, error) {
		*calls++
		return posts, errs, nil
	}, calls
}

func TestPostCacheLoadsOnce(t *testing.T) {
	load, calls := fixedLoad([]Post{testPost("a", 1, StatusPublished)}, nil)
	c := NewPostCache(load, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := c.ListPosts(""); err != nil {
			t.Fatalf("ListPosts failed: %v", err)
		}
	}
	if *calls != 1 {
		t.Errorf("load called %d times, want 1", *calls)
	}
}

func TestPostCacheInvalidate(t *testing.T) {
	load, calls := fixedLoad([]Post{testPost("a", 1, StatusPublished)}, nil)
	c := NewPostCache(load, time.Minute)

	if _, err := c.ListPosts(""); err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	c.Invalidate()
	if _, err := c.ListPosts(""); err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if *calls != 2 {
		t.Errorf("load called %d times after invalidate, want 2", *calls)
	}
}

func TestPostCacheTTLExpiry(t *testing.T) {
	load, calls := fixedLoad([]Post{testPost("a", 1, StatusPublished)}, nil)
	c := NewPostCache(load, 50*time.Millisecond)

	if _, err := c.ListPosts(""); err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	time.Sleep(80 * time.Millisecond)
	if _, err := c.ListPosts(""); err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if *calls != 2 {
		t.Errorf("load called %d times after TTL, want 2", *calls)
	}
}

func TestPostCacheHidesDraftsAndScheduled(t *testing.T) {
	scheduled := testPost("scheduled", 1, StatusPublished)
	scheduled.Date = time.Now().Add(48 * time.Hour)

	load, _ := fixedLoad([]Post{
		testPost("visible", 1, StatusPublished),
		testPost("draft", 2, StatusDraft),
		scheduled,
	}, nil)
	c := NewPostCache(load, time.Minute)

	posts, err := c.ListPosts("")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "visible" {
		t.Errorf("ListPosts = %v, want just visible", posts)
	}

	drafts, err := c.ListDrafts()
	if err != nil {
		t.Fatalf("ListDrafts failed: %v", err)
	}
	if len(drafts) != 2 {
		t.Errorf("ListDrafts returned %d posts, want draft and scheduled", len(drafts))
	}
}

func TestPostCacheGetPost(t *testing.T) {
	load, _ := fixedLoad([]Post{
		testPost("public", 1, StatusPublished),
		testPost("hidden", 2, StatusDraft),
	}, nil)
	c := NewPostCache(load, time.Minute)

	if _, err := c.GetPost("public"); err != nil {
		t.Errorf("GetPost(public) failed: %v", err)
	}
	if _, err := c.GetPost("hidden"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost(hidden) = %v, want ErrNotFound", err)
	}
	if _, err := c.GetPostAny("hidden"); err != nil {
		t.Errorf("GetPostAny(hidden) failed: %v", err)
	}
}

func TestPostCachePostByLink(t *testing.T) {
	load, _ := fixedLoad([]Post{
		testPost("linked", 1, StatusPublished),
		testPost("draft", 2, StatusDraft),
	}, nil)
	c := NewPostCache(load, time.Minute)

	got, err := c.PostByLink("/blog/linked/")
	if err != nil {
		t.Fatalf("PostByLink failed: %v", err)
	}
	if got.Slug != "linked" {
		t.Errorf("Slug = %q", got.Slug)
	}

	// Drafts resolve too; visibility is the caller's call.
	if _, err := c.PostByLink("/blog/draft/"); err != nil {
		t.Errorf("PostByLink(draft) failed: %v", err)
	}

	if _, err := c.PostByLink("/blog/missing/"); !errors.Is(err, ErrNotFound) {
		t.Errorf("PostByLink(missing) = %v, want ErrNotFound", err)
	}
}

func TestPostCacheSurfacesLoadErrors(t *testing.T) {
	loadErrs := []LoadError{{Path: "broken.md", Err: errors.New("unclosed front matter")}}
	load, _ := fixedLoad([]Post{testPost("ok", 1, StatusPublished)}, loadErrs)
	c := NewPostCache(load, time.Minute)

	errs, err := c.Errors()
	if err != nil {
		t.Fatalf("Errors failed: %v", err)
	}
	if len(errs) != 1 || errs[0].Path != "broken.md" {
		t.Errorf("Errors = %v, want the broken.md report", errs)
	}
}

func TestPostCacheTagFilter(t *testing.T) {
	load, _ := fixedLoad([]Post{
		testPost("go-post", 1, StatusPublished, "Go"),
		testPost("other", 2, StatusPublished, "misc"),
	}, nil)
	c := NewPostCache(load, time.Minute)

	posts, err := c.ListPosts("go")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "go-post" {
		t.Errorf("ListPosts(go) = %v, want go-post via case-insensitive match", posts)
	}
}
