package penmark

import (
	"errors"
	"io"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
)

// GitInfo reads commit metadata from the repository enclosing the
// content directory. Builds use it to fill in a post's Updated time
// when the front matter does not declare one.
type GitInfo struct {
	repo *git.Repository
	root string
}

// OpenGitInfo walks up from dir looking for a git repository. A dir
// outside any repository returns (nil, nil); the build then simply
// skips git metadata.
func OpenGitInfo(dir string) (*GitInfo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	return &GitInfo{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Head returns the short hash of the current HEAD commit, or "" when
// the repository has no commits yet.
func (g *GitInfo) Head() string {
	ref, err := g.repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()[:8]
}

// LastModified returns the committer time of the newest commit that
// touched path. Uncommitted files return a zero time.
func (g *GitInfo) LastModified(path string) (time.Time, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, err
	}
	rel, err := filepath.Rel(g.root, abs)
	if err != nil {
		return time.Time{}, err
	}
	rel = filepath.ToSlash(rel)

	iter, err := g.repo.Log(&git.LogOptions{
		FileName: &rel,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return time.Time{}, err
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err == io.EOF {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return commit.Committer.When, nil
}
