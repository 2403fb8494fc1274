package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// gitClone clones a git repository to dest.
func gitClone(url, dest string) error {
	if _, err := git.PlainClone(dest, false, &git.CloneOptions{URL: url}); err != nil {
		return fmt.Errorf("git clone %s: %w", url, err)
	}
	return nil
}

// gitCheckout checks out a revision (tag, branch, or commit) in a repo.
func gitCheckout(dir string, rev plumbing.Revision) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("git open %s: %w", dir, err)
	}
	hash, err := repo.ResolveRevision(rev)
	if err != nil {
		return fmt.Errorf("resolve revision %s in %s: %w", rev, dir, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return fmt.Errorf("git checkout %s in %s: %w", rev, dir, err)
	}
	return nil
}

// gitFetch fetches updates and tags from the remote.
func gitFetch(dir string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("git open %s: %w", dir, err)
	}
	err = repo.Fetch(&git.FetchOptions{Tags: git.AllTags, Force: true})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("git fetch in %s: %w", dir, err)
	}
	return nil
}

// gitCurrentCommit returns the current HEAD commit hash.
func gitCurrentCommit(dir string) (string, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("git open %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD in %s: %w", dir, err)
	}
	return head.Hash().String(), nil
}

// gitIsClean returns true if the working directory has no uncommitted changes.
func gitIsClean(dir string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false, fmt.Errorf("git open %s: %w", dir, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("git status in %s: %w", dir, err)
	}
	return status.IsClean(), nil
}

// gitRevision picks the revision a dependency pins: rev, then tag, then
// branch. An empty revision means the remote's default HEAD.
func gitRevision(dep Dependency) plumbing.Revision {
	if rev := strings.TrimSpace(dep.Rev); rev != "" {
		return plumbing.Revision(rev)
	}
	if tag := strings.TrimSpace(dep.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag)
	}
	if branch := strings.TrimSpace(dep.Branch); branch != "" {
		return plumbing.Revision("refs/remotes/origin/" + branch)
	}
	return ""
}
