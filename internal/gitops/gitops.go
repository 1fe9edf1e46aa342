// Package gitops commits and pushes published content in the website
// repository. Failures here are reported to the caller and never retried;
// already-persisted index state is never unwound.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"tiny-agent/internal/contextutil"
)

// Client performs git operations against the website checkout.
type Client struct {
	repoPath string
	remote   string
	branch   string

	// Author overrides the committer identity. When empty, go-git falls back
	// to the repository's own configuration.
	AuthorName  string
	AuthorEmail string
}

// NewClient opens-on-demand a client for the repository at repoPath.
func NewClient(repoPath, remote, branch string) *Client {
	return &Client{repoPath: repoPath, remote: remote, branch: branch}
}

// CommitAndPush stages the given paths (relative to the repository root),
// commits them with the message, and pushes to the configured remote/branch.
func (c *Client) CommitAndPush(ctx context.Context, paths []string, message string) error {
	logger := contextutil.LoggerFromContext(ctx)

	repo, err := git.PlainOpen(c.repoPath)
	if err != nil {
		return fmt.Errorf("open repository %s: %w", c.repoPath, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}

	for _, p := range paths {
		rel := filepath.ToSlash(p)
		if _, err := wt.Add(rel); err != nil {
			return fmt.Errorf("stage %s: %w", rel, err)
		}
	}

	opts := &git.CommitOptions{}
	if c.AuthorName != "" {
		opts.Author = &object.Signature{
			Name:  c.AuthorName,
			Email: c.AuthorEmail,
			When:  time.Now(),
		}
	}

	hash, err := wt.Commit(message, opts)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.InfoContext(ctx, "created commit", "hash", hash.String()[:8], "message", message)

	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", c.branch, c.branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: c.remote,
		RefSpecs:   []config.RefSpec{refSpec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push to %s/%s: %w", c.remote, c.branch, err)
	}

	logger.InfoContext(ctx, "pushed changes", "remote", c.remote, "branch", c.branch)
	return nil
}
