package datasource

import (
	"errors"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Revision returns the commit the fixtures in dir were read at, suffixed
// with "-dirty" when the worktree has uncommitted changes. Outside of a git
// repository, or before the first commit, it returns "".
func Revision(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	revision := head.Hash().String()

	worktree, err := repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return revision, nil
	}
	if err != nil {
		return "", err
	}
	status, err := worktree.Status()
	if err != nil {
		return "", err
	}
	if !status.IsClean() {
		revision += "-dirty"
	}
	return revision, nil
}
