// Package gitinfo derives last-modified times for source files from the
// commit history of the repository containing the site.
package gitinfo

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// History answers last-modified lookups. The commit log is walked once, on
// first use.
type History struct {
	root string

	once     sync.Once
	worktree string
	modified map[string]time.Time
	err      error
}

// New returns a History for the repository containing root. A root outside
// any repository yields no results rather than an error.
func New(root string) *History {
	return &History{root: root}
}

// LastMod returns the committer time of the newest commit touching path.
func (h *History) LastMod(path string) (time.Time, bool) {
	h.once.Do(h.load)
	if h.err != nil || h.modified == nil {
		return time.Time{}, false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, false
	}
	rel, err := filepath.Rel(h.worktree, abs)
	if err != nil {
		return time.Time{}, false
	}
	t, ok := h.modified[filepath.ToSlash(rel)]
	return t, ok
}

// Err reports why history could not be read, if it could not.
func (h *History) Err() error {
	h.once.Do(h.load)
	return h.err
}

func (h *History) load() {
	repo, err := git.PlainOpenWithOptions(h.root, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		slog.Debug("Site is not in a git repository", logfields.Path(h.root))
		return
	}
	if err != nil {
		h.err = err
		return
	}
	wt, err := repo.Worktree()
	if err != nil {
		h.err = err
		return
	}
	h.worktree, err = filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		h.err = err
		return
	}

	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		h.modified = map[string]time.Time{}
		return
	}
	if err != nil {
		h.err = err
		return
	}
	h.modified, h.err = collect(repo, head.Hash())
	if h.err != nil {
		slog.Warn("Failed to read git history", logfields.Path(h.root), logfields.Error(h.err))
	}
}

// collect walks the log newest first, so the first time a path is seen
// determines its modification time.
func collect(repo *git.Repository, from plumbing.Hash) (map[string]time.Time, error) {
	iter, err := repo.Log(&git.LogOptions{From: from, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	out := make(map[string]time.Time)
	record := func(name string, when time.Time) {
		if _, ok := out[name]; !ok {
			out[name] = when
		}
	}

	for {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		tree, err := c.Tree()
		if err != nil {
			return nil, err
		}
		when := c.Committer.When

		if c.NumParents() == 0 {
			err = tree.Files().ForEach(func(f *object.File) error {
				record(f.Name, when)
				return nil
			})
			if err != nil {
				return nil, err
			}
			continue
		}

		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		parentTree, err := parent.Tree()
		if err != nil {
			return nil, err
		}
		changes, err := parentTree.Diff(tree)
		if err != nil {
			return nil, err
		}
		for _, ch := range changes {
			if ch.To.Name != "" {
				record(ch.To.Name, when)
			}
		}
	}
}
